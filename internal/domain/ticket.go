package domain

import "time"

type TicketStatus string

const (
	StatusCreado     TicketStatus = "CREADO"
	StatusAceptada   TicketStatus = "ACEPTADA"
	StatusEnProceso  TicketStatus = "EN_PROCESO"
	StatusCompletada TicketStatus = "COMPLETADA"
	StatusRechazada  TicketStatus = "RECHAZADA"
	StatusCancelado  TicketStatus = "CANCELADO"
)

// Terminal reports whether no further lifecycle transitions are expected.
// Note: transitions are currently applied permissively regardless of the
// terminal set; see the engine for details.
func (s TicketStatus) Terminal() bool {
	switch s {
	case StatusCompletada, StatusRechazada, StatusCancelado:
		return true
	}
	return false
}

type TicketType string

const (
	TypeFood        TicketType = "food"
	TypeBeverage    TicketType = "beverage"
	TypeMaintenance TicketType = "maintenance"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type ProviderScope string

const (
	ScopeSingle ProviderScope = "single"
	ScopeMulti  ProviderScope = "multi"
)

// Ticket is the persisted record of one guest service request.
type Ticket struct {
	ID            string
	GuestID       string
	Room          string
	ProviderScope ProviderScope
	Type          TicketType
	Status        TicketStatus
	Priority      Priority
	Items         []OrderLine
	Issue         string
	Notes         string
	TotalAmount   float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is one row of a ticket's append-only audit trail.
type HistoryEntry struct {
	RequestID string
	Status    string
	Actor     string
	Note      string
	TS        time.Time
}

const (
	AreaKitchen     = "kitchen"
	AreaBar         = "bar"
	AreaMaintenance = "maintenance"
)

// DispatchArea returns the department responsible for fulfilling a ticket.
func DispatchArea(t TicketType) string {
	switch t {
	case TypeBeverage:
		return AreaBar
	case TypeMaintenance:
		return AreaMaintenance
	default:
		return AreaKitchen
	}
}
