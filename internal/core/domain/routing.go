package domain

import "time"

// RouteScope controls how routing assignments are keyed in the shared store.
type RouteScope string

const (
	// ScopeGlobal keeps a single assignment shared by every caller.
	ScopeGlobal RouteScope = "global"
	// ScopePerCaller keeps one assignment per caller ID.
	ScopePerCaller RouteScope = "per-caller"
)

// RoutingAssignment is the sticky routing decision cached in the shared
// store. Absence means "undecided", not "no preference".
type RoutingAssignment struct {
	Provider   string    `json:"provider"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HealthStatus is the binary provider status written by the bulk sweep.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthRecord is the per-provider record persisted by the bulk sweep. It
// carries no TTL: it is the source of truth for recovery detection across
// sweep cycles and must survive until overwritten.
type HealthRecord struct {
	Status        HealthStatus `json:"status"`
	LastCheckedAt time.Time    `json:"last_checked_at"`
	LastError     string       `json:"last_error,omitempty"`
}

// CallRecord is one routed request outcome persisted to the optional
// history table. Observational only, never read by routing.
type CallRecord struct {
	ID        string    `db:"id"         json:"id"`
	CallerID  string    `db:"caller_id"  json:"caller_id"`
	Provider  string    `db:"provider"   json:"provider"`
	City      string    `db:"city"       json:"city"`
	Outcome   string    `db:"outcome"    json:"outcome"` // "success" or "failure"
	ErrorText string    `db:"error_text" json:"error_text,omitempty"`
	LatencyMS int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
