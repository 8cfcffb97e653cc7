package domain

// Guest is the persisted guest record. SpendLimit is a remaining-budget
// counter: it is decremented by charges and never incremented here
// (top-ups happen outside this service).
type Guest struct {
	ID         string
	Room       string
	SpendLimit float64
	DailySpend float64
	VIP        bool
}

// GuestProfile is the caller-supplied snapshot of a guest that arrives with
// each request. The engine pre-checks spend against it before the ledger's
// authoritative decrement; both checks apply.
type GuestProfile struct {
	SpendLimit   float64
	DailySpend   float64
	VIP          bool
	DoNotDisturb bool
}

// ServiceWindow is an explicit time-of-day access window supplied with a
// request. It overrides the configured default.
type ServiceWindow struct {
	Start string
	End   string
}
