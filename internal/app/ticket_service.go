package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/clock"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/events"
)

// TicketRepository is the storage contract of the engine. Implementations
// must run the fn passed to WithTx inside one transaction so that a ticket
// update and its history row commit or roll back together.
type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicket(ctx context.Context, id string) (domain.Ticket, error)
	GetHistory(ctx context.Context, requestID string) ([]domain.HistoryEntry, error)
	CreateTicket(ctx context.Context, t domain.Ticket) error
	UpdateTicketStatus(ctx context.Context, id string, status domain.TicketStatus, at time.Time) error
	UpdateTicketPriority(ctx context.Context, id string, p domain.Priority, at time.Time) error
	AppendHistory(ctx context.Context, h domain.HistoryEntry) error
	UpsertGuest(ctx context.Context, g domain.Guest) error
	DecrementStock(ctx context.Context, providerID, itemID string, qty int) error
}

type Charger interface {
	Charge(ctx context.Context, guestID, requestID string, amount float64, d domain.LedgerDomain) error
}

type Suggester interface {
	Suggest(ctx context.Context, chosen []domain.OrderLine, opts SuggestOptions) ([]Suggestion, error)
}

type ItemResolver interface {
	Resolve(ctx context.Context, items []RequestedItem, at time.Time, stockCheck bool) (Resolution, error)
}

type PriorityScorer interface {
	Classify(ctx context.Context, in ClassifyInput) PriorityResult
}

type TicketConfig struct {
	WindowStart          string
	WindowEnd            string
	StockCheckEnabled    bool
	CrossSellPerCategory int
}

// TicketService orchestrates ticket creation and lifecycle transitions.
type TicketService struct {
	repo      TicketRepository
	resolver  ItemResolver
	charger   Charger
	suggester Suggester
	scorer    PriorityScorer
	publisher events.Publisher
	clock     clock.Clock
	logger    *log.Logger
	cfg       TicketConfig
}

func NewTicketService(
	repo TicketRepository,
	resolver ItemResolver,
	charger Charger,
	suggester Suggester,
	scorer PriorityScorer,
	publisher events.Publisher,
	clk clock.Clock,
	logger *log.Logger,
	cfg TicketConfig,
) *TicketService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TicketService{
		repo:      repo,
		resolver:  resolver,
		charger:   charger,
		suggester: suggester,
		scorer:    scorer,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		cfg:       cfg,
	}
}

type CreateTicketInput struct {
	GuestID      string
	Room         string
	Type         string
	Text         string
	Items        []RequestedItem
	Issue        string
	Notes        string
	Profile      domain.GuestProfile
	Window       *domain.ServiceWindow
	MinutesToSLA float64
}

type CreateTicketResult struct {
	RequestID        string
	Type             domain.TicketType
	Status           domain.TicketStatus
	Priority         domain.Priority
	EstimatedMinutes int
	TotalCost        float64
	Suggestions      []Suggestion
}

// Create validates, classifies and persists a new ticket. The ticket is
// written at CREADO and auto-accepted to ACEPTADA inside the same
// transaction; both history rows are written even though no external actor
// requested the second transition.
//
// The ledger charge intentionally runs after the ticket is accepted,
// matching the two-step visible state of the upstream system. A charge that
// fails on the spend limit cancels the ticket through a compensating
// CANCELADO transition and still surfaces the error.
func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (CreateTicketResult, error) {
	if in.GuestID == "" {
		return CreateTicketResult{}, fmt.Errorf("%w: guest_id", domain.ErrValidation)
	}
	if in.Room == "" {
		return CreateTicketResult{}, fmt.Errorf("%w: room", domain.ErrValidation)
	}

	names := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		names = append(names, item.Name)
	}
	typ := ClassifyType(in.Type, in.Text, names)
	now := s.clock.Now()

	var resolution Resolution
	if typ == domain.TypeMaintenance {
		if in.Issue == "" {
			return CreateTicketResult{}, domain.ErrMissingIssue
		}
	} else {
		if in.Profile.DoNotDisturb {
			return CreateTicketResult{}, fmt.Errorf("%w: do not disturb", domain.ErrAccessWindowBlocked)
		}
		start, end := s.cfg.WindowStart, s.cfg.WindowEnd
		if in.Window != nil {
			start, end = in.Window.Start, in.Window.End
		}
		if !domain.WindowContains(now, start, end) {
			return CreateTicketResult{}, domain.ErrAccessWindowBlocked
		}
		if len(in.Items) == 0 {
			return CreateTicketResult{}, fmt.Errorf("%w: items", domain.ErrValidation)
		}

		var err error
		resolution, err = s.resolver.Resolve(ctx, in.Items, now, s.cfg.StockCheckEnabled)
		if err != nil {
			return CreateTicketResult{}, err
		}

		// Pre-check against the caller-supplied profile; the ledger's
		// decrement against the persisted budget is still authoritative.
		if in.Profile.DailySpend+resolution.Total > in.Profile.SpendLimit {
			return CreateTicketResult{}, domain.ErrSpendLimitExceeded
		}
	}

	scored := s.scorer.Classify(ctx, ClassifyInput{
		Text:         in.Text,
		Domain:       classifierDomain(typ),
		VIP:          in.Profile.VIP,
		RecentSpend:  in.Profile.DailySpend,
		MinutesToSLA: in.MinutesToSLA,
	})

	ticket := domain.Ticket{
		ID:            newRequestID(now),
		GuestID:       in.GuestID,
		Room:          in.Room,
		ProviderScope: providerScope(resolution.Lines),
		Type:          typ,
		Status:        domain.StatusCreado,
		Priority:      scored.Priority,
		Items:         resolution.Lines,
		Issue:         in.Issue,
		Notes:         in.Notes,
		TotalAmount:   resolution.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpsertGuest(txCtx, domain.Guest{
			ID:         in.GuestID,
			Room:       in.Room,
			SpendLimit: in.Profile.SpendLimit,
			DailySpend: in.Profile.DailySpend,
			VIP:        in.Profile.VIP,
		}); err != nil {
			return err
		}
		if err := s.repo.CreateTicket(txCtx, ticket); err != nil {
			return err
		}
		if err := s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: ticket.ID,
			Status:    string(domain.StatusCreado),
			Actor:     "guest",
			TS:        now,
		}); err != nil {
			return err
		}
		if err := s.repo.UpdateTicketStatus(txCtx, ticket.ID, domain.StatusAceptada, now); err != nil {
			return err
		}
		return s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: ticket.ID,
			Status:    string(domain.StatusAceptada),
			Actor:     "system",
			Note:      "auto-accepted for dispatch",
			TS:        now,
		})
	})
	if err != nil {
		return CreateTicketResult{}, fmt.Errorf("persist ticket: %w", err)
	}

	if typ != domain.TypeMaintenance && s.cfg.StockCheckEnabled {
		// Best-effort inventory bookkeeping; the resolver's stock read is
		// the authoritative check.
		for _, line := range resolution.Lines {
			if err := s.repo.DecrementStock(ctx, line.ProviderID, line.ItemID, line.Qty); err != nil {
				s.logger.Printf("WARN: stock decrement failed item=%s: %v", line.ItemID, err)
			}
		}
	}

	if typ != domain.TypeMaintenance && resolution.Total > 0 {
		if err := s.charger.Charge(ctx, in.GuestID, ticket.ID, resolution.Total, domain.LedgerDomainOrder); err != nil {
			if errors.Is(err, domain.ErrSpendLimitExceeded) {
				s.cancelUnpaid(ctx, ticket.ID)
				return CreateTicketResult{}, domain.ErrSpendLimitExceeded
			}
			return CreateTicketResult{}, fmt.Errorf("charge: %w", err)
		}
	}

	var suggestions []Suggestion
	if typ != domain.TypeMaintenance {
		suggestions, err = s.suggester.Suggest(ctx, resolution.Lines, SuggestOptions{
			Now:            now,
			PerCategory:    s.cfg.CrossSellPerCategory,
			PreferProvider: singleProvider(resolution.Lines),
			ExplicitType:   typ,
			StockCheck:     s.cfg.StockCheckEnabled,
		})
		if err != nil {
			s.logger.Printf("WARN: cross-sell suggestion failed request=%s: %v", ticket.ID, err)
			suggestions = nil
		}
	}

	s.publish(ctx, ticket.ID, typ, domain.StatusAceptada)

	return CreateTicketResult{
		RequestID:        ticket.ID,
		Type:             typ,
		Status:           domain.StatusAceptada,
		Priority:         scored.Priority,
		EstimatedMinutes: estimateMinutes(typ, scored.Priority),
		TotalCost:        resolution.Total,
		Suggestions:      suggestions,
	}, nil
}

// cancelUnpaid is the compensating path for a ticket whose ledger charge
// failed after acceptance.
func (s *TicketService) cancelUnpaid(ctx context.Context, requestID string) {
	now := s.clock.Now()
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateTicketStatus(txCtx, requestID, domain.StatusCancelado, now); err != nil {
			return err
		}
		return s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: requestID,
			Status:    string(domain.StatusCancelado),
			Actor:     "system",
			Note:      "cancelled: spend limit exceeded at charge",
			TS:        now,
		})
	})
	if err != nil {
		s.logger.Printf("ERROR: failed to cancel unpaid ticket %s: %v", requestID, err)
	}
}

type ActionInput struct {
	RequestID   string
	Rating      int
	Feedback    string
	Notes       string
	CompletedBy string
}

type TransitionResult struct {
	RequestID string
	Type      domain.TicketType
	Status    domain.TicketStatus
	Priority  domain.Priority
	Area      string
	Message   string
}

// Do dispatches a transition action by its discriminator.
func (s *TicketService) Do(ctx context.Context, action string, in ActionInput) (TransitionResult, error) {
	switch action {
	case "status":
		return s.Status(ctx, in.RequestID)
	case "complete":
		return s.Complete(ctx, in.RequestID)
	case "confirm_service":
		return s.ConfirmService(ctx, in)
	case "feedback":
		return s.Feedback(ctx, in)
	case "assign":
		return s.Assign(ctx, in.RequestID)
	default:
		return TransitionResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownAction, action)
	}
}

// Status moves the ticket to EN_PROCESO with the dispatch area as actor.
// The transition applies regardless of the current state, including from
// COMPLETADA; backward moves are deliberately not guarded.
func (s *TicketService) Status(ctx context.Context, requestID string) (TransitionResult, error) {
	ticket, err := s.repo.GetTicket(ctx, requestID)
	if err != nil {
		return TransitionResult{}, err
	}

	area := domain.DispatchArea(ticket.Type)
	if err := s.transition(ctx, ticket.ID, domain.StatusEnProceso, area, ""); err != nil {
		return TransitionResult{}, err
	}
	s.publish(ctx, ticket.ID, ticket.Type, domain.StatusEnProceso)

	return TransitionResult{
		RequestID: ticket.ID,
		Type:      ticket.Type,
		Status:    domain.StatusEnProceso,
		Priority:  ticket.Priority,
		Area:      area,
		Message:   fmt.Sprintf("request is being handled by %s", area),
	}, nil
}

var completionMessages = map[domain.TicketType]string{
	domain.TypeFood:        "your order has been delivered, enjoy your meal",
	domain.TypeBeverage:    "your drinks have been delivered, cheers",
	domain.TypeMaintenance: "the maintenance issue has been resolved",
}

// Complete moves the ticket to COMPLETADA and returns a confirmation
// message keyed by ticket type.
func (s *TicketService) Complete(ctx context.Context, requestID string) (TransitionResult, error) {
	ticket, err := s.repo.GetTicket(ctx, requestID)
	if err != nil {
		return TransitionResult{}, err
	}

	area := domain.DispatchArea(ticket.Type)
	if err := s.transition(ctx, ticket.ID, domain.StatusCompletada, area, ""); err != nil {
		return TransitionResult{}, err
	}
	s.publish(ctx, ticket.ID, ticket.Type, domain.StatusCompletada)

	return TransitionResult{
		RequestID: ticket.ID,
		Type:      ticket.Type,
		Status:    domain.StatusCompletada,
		Priority:  ticket.Priority,
		Area:      area,
		Message:   completionMessages[ticket.Type],
	}, nil
}

// ConfirmService completes the ticket on behalf of the fulfilling staff,
// recording rating and feedback in the history note.
func (s *TicketService) ConfirmService(ctx context.Context, in ActionInput) (TransitionResult, error) {
	ticket, err := s.repo.GetTicket(ctx, in.RequestID)
	if err != nil {
		return TransitionResult{}, err
	}

	actor := in.CompletedBy
	if actor == "" {
		actor = domain.DispatchArea(ticket.Type)
	}
	note := ""
	if in.Rating > 0 {
		note = fmt.Sprintf("rating=%d", in.Rating)
	}
	if in.Feedback != "" {
		if note != "" {
			note += " "
		}
		note += "feedback=" + in.Feedback
	}

	if err := s.transition(ctx, ticket.ID, domain.StatusCompletada, actor, note); err != nil {
		return TransitionResult{}, err
	}
	s.publish(ctx, ticket.ID, ticket.Type, domain.StatusCompletada)

	return TransitionResult{
		RequestID: ticket.ID,
		Type:      ticket.Type,
		Status:    domain.StatusCompletada,
		Priority:  ticket.Priority,
		Area:      domain.DispatchArea(ticket.Type),
		Message:   "service confirmed",
	}, nil
}

// Feedback appends a history row without changing status. A rating of 2 or
// below on a ticket that is not yet COMPLETADA escalates priority to high
// and writes an additional ESCALADO history row.
func (s *TicketService) Feedback(ctx context.Context, in ActionInput) (TransitionResult, error) {
	ticket, err := s.repo.GetTicket(ctx, in.RequestID)
	if err != nil {
		return TransitionResult{}, err
	}

	now := s.clock.Now()
	note := in.Notes
	if in.Rating > 0 {
		if note != "" {
			note = fmt.Sprintf("rating=%d %s", in.Rating, note)
		} else {
			note = fmt.Sprintf("rating=%d", in.Rating)
		}
	}

	escalate := in.Rating > 0 && in.Rating <= 2 && ticket.Status != domain.StatusCompletada
	priority := ticket.Priority

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: ticket.ID,
			Status:    "feedback",
			Actor:     "guest",
			Note:      note,
			TS:        now,
		}); err != nil {
			return err
		}
		if !escalate {
			return nil
		}
		if err := s.repo.UpdateTicketPriority(txCtx, ticket.ID, domain.PriorityHigh, now); err != nil {
			return err
		}
		return s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: ticket.ID,
			Status:    "ESCALADO",
			Actor:     "system",
			Note:      "escalated on negative feedback",
			TS:        now,
		})
	})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("record feedback: %w", err)
	}
	if escalate {
		priority = domain.PriorityHigh
	}

	return TransitionResult{
		RequestID: ticket.ID,
		Type:      ticket.Type,
		Status:    ticket.Status,
		Priority:  priority,
		Area:      domain.DispatchArea(ticket.Type),
		Message:   "feedback recorded",
	}, nil
}

// Assign recomputes the dispatch area from the ticket type and records the
// reassignment. The computation is idempotent: the area never differs from
// what the classifier already chose.
func (s *TicketService) Assign(ctx context.Context, requestID string) (TransitionResult, error) {
	ticket, err := s.repo.GetTicket(ctx, requestID)
	if err != nil {
		return TransitionResult{}, err
	}

	now := s.clock.Now()
	area := domain.DispatchArea(ticket.Type)
	err = s.repo.AppendHistory(ctx, domain.HistoryEntry{
		RequestID: ticket.ID,
		Status:    string(ticket.Status),
		Actor:     "system",
		Note:      "reassigned to " + area,
		TS:        now,
	})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("record assignment: %w", err)
	}

	return TransitionResult{
		RequestID: ticket.ID,
		Type:      ticket.Type,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		Area:      area,
		Message:   "assigned to " + area,
	}, nil
}

// Get returns a ticket with its full history.
func (s *TicketService) Get(ctx context.Context, requestID string) (domain.Ticket, []domain.HistoryEntry, error) {
	ticket, err := s.repo.GetTicket(ctx, requestID)
	if err != nil {
		return domain.Ticket{}, nil, err
	}
	history, err := s.repo.GetHistory(ctx, requestID)
	if err != nil {
		return domain.Ticket{}, nil, fmt.Errorf("load history: %w", err)
	}
	return ticket, history, nil
}

// transition applies a status update and its history row in one tx.
func (s *TicketService) transition(ctx context.Context, requestID string, status domain.TicketStatus, actor, note string) error {
	now := s.clock.Now()
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateTicketStatus(txCtx, requestID, status, now); err != nil {
			return err
		}
		return s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			RequestID: requestID,
			Status:    string(status),
			Actor:     actor,
			Note:      note,
			TS:        now,
		})
	})
	if err != nil {
		return fmt.Errorf("transition to %s: %w", status, err)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, requestID string, typ domain.TicketType, status domain.TicketStatus) {
	payload, err := json.Marshal(events.TicketEvent{
		RequestID: requestID,
		Status:    string(status),
		Type:      string(typ),
		Area:      domain.DispatchArea(typ),
		TS:        s.clock.Now(),
	})
	if err != nil {
		s.logger.Printf("WARN: marshal ticket event %s: %v", requestID, err)
		return
	}
	subject := "concierge.tickets." + string(status)
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.Printf("WARN: publish ticket event %s: %v", requestID, err)
	}
}

func classifierDomain(typ domain.TicketType) string {
	if typ == domain.TypeMaintenance {
		return "m"
	}
	return "rb"
}

func providerScope(lines []domain.OrderLine) domain.ProviderScope {
	if singleProvider(lines) != "" || len(lines) == 0 {
		return domain.ScopeSingle
	}
	return domain.ScopeMulti
}

// singleProvider returns the shared provider of all lines, or "" when the
// lines span providers.
func singleProvider(lines []domain.OrderLine) string {
	provider := ""
	for _, line := range lines {
		if provider == "" {
			provider = line.ProviderID
			continue
		}
		if line.ProviderID != provider {
			return ""
		}
	}
	return provider
}

func estimateMinutes(typ domain.TicketType, p domain.Priority) int {
	if typ == domain.TypeMaintenance {
		switch p {
		case domain.PriorityHigh:
			return 20
		case domain.PriorityMedium:
			return 45
		default:
			return 90
		}
	}
	if p == domain.PriorityHigh {
		return 25
	}
	return 35
}
