package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/app"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/sessions"
)

// TicketCreator is the minimal interface needed to create a ticket.
type TicketCreator interface {
	Create(ctx context.Context, in app.CreateTicketInput) (app.CreateTicketResult, error)
}

// TicketActor dispatches lifecycle actions against an existing ticket.
type TicketActor interface {
	Do(ctx context.Context, action string, in app.ActionInput) (app.TransitionResult, error)
}

// TicketReader loads a ticket with its history.
type TicketReader interface {
	Get(ctx context.Context, requestID string) (domain.Ticket, []domain.HistoryEntry, error)
}

type requestedItem struct {
	ItemID string `json:"item_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Qty    int    `json:"qty,omitempty"`
}

type guestProfile struct {
	SpendLimit   float64 `json:"spend_limit"`
	DailySpend   float64 `json:"daily_spend"`
	VIP          bool    `json:"vip"`
	DoNotDisturb bool    `json:"do_not_disturb"`
}

type serviceWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type createRequest struct {
	GuestID      string          `json:"guest_id"`
	Room         string          `json:"room"`
	Type         string          `json:"type,omitempty"`
	Text         string          `json:"text,omitempty"`
	Items        []requestedItem `json:"items,omitempty"`
	Issue        string          `json:"issue,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Profile      guestProfile    `json:"profile"`
	Window       *serviceWindow  `json:"window,omitempty"`
	MinutesToSLA float64         `json:"minutes_to_sla,omitempty"`
}

type suggestionPayload struct {
	Provider string  `json:"provider"`
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type createResponse struct {
	RequestID        string              `json:"request_id"`
	Type             string              `json:"type"`
	Status           string              `json:"status"`
	Priority         string              `json:"priority"`
	EstimatedMinutes int                 `json:"estimated_time_minutes"`
	TotalCost        float64             `json:"total_cost"`
	Suggestions      []suggestionPayload `json:"cross_sell_suggestions"`
}

// HandleCreateRequest returns the handler for POST /requests. When mem is
// non-nil the request text and outcome are recorded as a conversation trail
// keyed by the new request id.
func HandleCreateRequest(svc TicketCreator, mem *sessions.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		items := make([]app.RequestedItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, app.RequestedItem{ItemID: item.ItemID, Name: item.Name, Qty: item.Qty})
		}
		var window *domain.ServiceWindow
		if req.Window != nil {
			window = &domain.ServiceWindow{Start: req.Window.Start, End: req.Window.End}
		}

		result, err := svc.Create(r.Context(), app.CreateTicketInput{
			GuestID: req.GuestID,
			Room:    req.Room,
			Type:    req.Type,
			Text:    req.Text,
			Items:   items,
			Issue:   req.Issue,
			Notes:   req.Notes,
			Profile: domain.GuestProfile{
				SpendLimit:   req.Profile.SpendLimit,
				DailySpend:   req.Profile.DailySpend,
				VIP:          req.Profile.VIP,
				DoNotDisturb: req.Profile.DoNotDisturb,
			},
			Window:       window,
			MinutesToSLA: req.MinutesToSLA,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		now := time.Now()
		guestText := req.Text
		if guestText == "" {
			guestText = req.Issue
		}
		recordTurn(mem, result.RequestID, "guest", guestText, now)
		recordTurn(mem, result.RequestID, "system",
			fmt.Sprintf("request %s %s, eta %d min", result.RequestID, strings.ToLower(string(result.Status)), result.EstimatedMinutes), now)

		suggestions := make([]suggestionPayload, 0, len(result.Suggestions))
		for _, s := range result.Suggestions {
			suggestions = append(suggestions, suggestionPayload{
				Provider: s.ProviderID,
				ItemID:   s.ItemID,
				Name:     s.Name,
				Price:    s.Price,
				Category: string(s.Category),
			})
		}

		writeSuccess(w, http.StatusCreated, createResponse{
			RequestID:        result.RequestID,
			Type:             string(result.Type),
			Status:           string(result.Status),
			Priority:         string(result.Priority),
			EstimatedMinutes: result.EstimatedMinutes,
			TotalCost:        result.TotalCost,
			Suggestions:      suggestions,
		})
	}
}

type actionRequest struct {
	Rating      int    `json:"rating,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CompletedBy string `json:"completed_by,omitempty"`
}

type transitionResponse struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Area      string `json:"area"`
	Message   string `json:"message,omitempty"`
}

type historyPayload struct {
	Status string    `json:"status"`
	Actor  string    `json:"actor"`
	Note   string    `json:"note,omitempty"`
	TS     time.Time `json:"ts"`
}

type ticketResponse struct {
	RequestID   string           `json:"request_id"`
	GuestID     string           `json:"guest_id"`
	Room        string           `json:"room"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	Issue       string           `json:"issue,omitempty"`
	TotalAmount float64          `json:"total_amount"`
	History     []historyPayload `json:"history"`
}

// HandleRequestByID serves GET /requests/{id} and POST /requests/{id}/{action}.
func HandleRequestByID(actor TicketActor, reader TicketReader, mem *sessions.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/requests/"), "/")
		parts := strings.Split(rest, "/")

		switch {
		case len(parts) == 1 && parts[0] != "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			serveTicket(w, r, reader, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] != "":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			serveAction(w, r, actor, mem, parts[0], parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func serveTicket(w http.ResponseWriter, r *http.Request, reader TicketReader, requestID string) {
	ticket, history, err := reader.Get(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]historyPayload, 0, len(history))
	for _, h := range history {
		entries = append(entries, historyPayload{Status: h.Status, Actor: h.Actor, Note: h.Note, TS: h.TS})
	}

	writeSuccess(w, http.StatusOK, ticketResponse{
		RequestID:   ticket.ID,
		GuestID:     ticket.GuestID,
		Room:        ticket.Room,
		Type:        string(ticket.Type),
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		Issue:       ticket.Issue,
		TotalAmount: ticket.TotalAmount,
		History:     entries,
	})
}

func serveAction(w http.ResponseWriter, r *http.Request, actor TicketActor, mem *sessions.Memory, requestID, action string) {
	var req actionRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
	}

	result, err := actor.Do(r.Context(), action, app.ActionInput{
		RequestID:   requestID,
		Rating:      req.Rating,
		Feedback:    req.Feedback,
		Notes:       req.Notes,
		CompletedBy: req.CompletedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	now := time.Now()
	recordTurn(mem, requestID, "guest", action, now)
	recordTurn(mem, requestID, "system", result.Message, now)

	writeSuccess(w, http.StatusOK, transitionResponse{
		RequestID: result.RequestID,
		Type:      string(result.Type),
		Status:    string(result.Status),
		Priority:  string(result.Priority),
		Area:      result.Area,
		Message:   result.Message,
	})
}
