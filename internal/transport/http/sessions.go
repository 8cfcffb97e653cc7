package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/sessions"
)

type turnPayload struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []turnPayload `json:"turns"`
}

// HandleSessionHistory serves GET /sessions/{id}: the in-memory conversation
// trail recorded around a request. DELETE drops the session.
func HandleSessionHistory(mem *sessions.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			turns := mem.History(sessionID)
			payload := make([]turnPayload, 0, len(turns))
			for _, turn := range turns {
				payload = append(payload, turnPayload{Role: turn.Role, Text: turn.Text, TS: turn.TS})
			}
			writeSuccess(w, http.StatusOK, sessionResponse{SessionID: sessionID, Turns: payload})
		case http.MethodDelete:
			mem.Clear(sessionID)
			writeSuccess(w, http.StatusOK, map[string]string{"session_id": sessionID})
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func recordTurn(mem *sessions.Memory, sessionID, role, text string, ts time.Time) {
	if mem == nil || sessionID == "" || text == "" {
		return
	}
	mem.Append(sessionID, sessions.Turn{Role: role, Text: text, TS: ts})
}
