package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/app"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/sessions"
)

func TestSessionTrail(t *testing.T) {
	t.Parallel()

	mem := sessions.NewMemory(10)
	createSvc := &stubTicketService{createResult: app.CreateTicketResult{
		RequestID:        "REQ-7",
		Type:             domain.TypeFood,
		Status:           domain.StatusAceptada,
		Priority:         domain.PriorityMedium,
		EstimatedMinutes: 35,
	}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(`{
		"guest_id": "g-1",
		"room": "501",
		"text": "una pizza margarita",
		"items": [{"item_id": "itm-1"}],
		"profile": {"spend_limit": 50}
	}`))
	HandleCreateRequest(createSvc, mem)(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	actSvc := &stubTicketService{doResult: app.TransitionResult{
		RequestID: "REQ-7",
		Status:    domain.StatusEnProceso,
		Message:   "request is being handled by kitchen",
	}}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/requests/REQ-7/status", nil)
	HandleRequestByID(actSvc, actSvc, mem)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("action: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/sessions/REQ-7", nil)
	HandleSessionHistory(mem)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string          `json:"status"`
		Data   sessionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(resp.Data.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d: %+v", len(resp.Data.Turns), resp.Data.Turns)
	}
	if resp.Data.Turns[0].Role != "guest" || resp.Data.Turns[0].Text != "una pizza margarita" {
		t.Fatalf("unexpected first turn %+v", resp.Data.Turns[0])
	}
	if resp.Data.Turns[3].Text != "request is being handled by kitchen" {
		t.Fatalf("unexpected last turn %+v", resp.Data.Turns[3])
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/sessions/REQ-7", nil)
	HandleSessionHistory(mem)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rec.Code)
	}
	if turns := mem.History("REQ-7"); len(turns) != 0 {
		t.Fatalf("expected session cleared, got %d turns", len(turns))
	}
}

func TestHandleSessionHistory_Paths(t *testing.T) {
	t.Parallel()

	mem := sessions.NewMemory(10)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/", nil)
	HandleSessionHistory(mem)(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/sessions/REQ-1", nil)
	HandleSessionHistory(mem)(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}
