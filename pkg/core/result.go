package core

import (
	"fmt"
	"time"
)

// Status is the terminal outcome of one request.
type Status string

// Request statuses.
const (
	StatusAccepted Status = "accepted"
	StatusClarify  Status = "clarify"
	StatusFailed   Status = "failed"
)

// Result is the single structured response produced per request.
// SQL is set only when Status is StatusAccepted.
type Result struct {
	RequestID   string              `json:"request_id"`
	Status      Status              `json:"status"`
	SQL         string              `json:"sql,omitempty"`
	Intent      *Intent             `json:"intent,omitempty"`
	Resolution  *Resolution         `json:"resolution,omitempty"`
	Plan        *QueryPlan          `json:"plan,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
	Attempts    []CorrectionAttempt `json:"attempts,omitempty"`
	LatencyMs   int64               `json:"latency_ms"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%s (%s, %d attempts)", r.RequestID, r.Status, len(r.Attempts))
}

// MemoryRecord is an append-only log entry of one finished request.
type MemoryRecord struct {
	ID            string     `json:"id"`
	OriginalQuery string     `json:"original_query"`
	FinalIntent   *Intent    `json:"final_intent,omitempty"`
	FinalPlan     *QueryPlan `json:"final_plan,omitempty"`
	FinalSQL      string     `json:"final_sql,omitempty"`
	Succeeded     bool       `json:"succeeded"`
	LatencyMs     int64      `json:"latency_ms"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RecordFromResult converts a terminal result into a memory record.
// Failed results keep the SQL of their last attempt.
func RecordFromResult(utterance string, r *Result, createdAt time.Time) MemoryRecord {
	finalSQL := r.SQL
	if finalSQL == "" && len(r.Attempts) > 0 {
		finalSQL = r.Attempts[len(r.Attempts)-1].SQL
	}
	return MemoryRecord{
		ID:            r.RequestID,
		OriginalQuery: utterance,
		FinalIntent:   r.Intent,
		FinalPlan:     r.Plan,
		FinalSQL:      finalSQL,
		Succeeded:     r.Status == StatusAccepted,
		LatencyMs:     r.LatencyMs,
		CreatedAt:     createdAt,
	}
}
