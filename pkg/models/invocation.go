package models

import "time"

// Invocation records a single tools/call outcome.
type Invocation struct {
	CallID    string        `json:"call_id"`
	RequestID string        `json:"request_id,omitempty"`
	Tool      string        `json:"tool"`
	IsError   bool          `json:"is_error"`
	Failure   string        `json:"failure,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// InvocationQuery filters journal lookups.
type InvocationQuery struct {
	Tool   string
	Since  time.Time
	Errors bool
	Limit  int
}

// ToolStat aggregates invocations of one tool.
type ToolStat struct {
	Tool         string        `json:"tool"`
	Calls        int           `json:"calls"`
	Errors       int           `json:"errors"`
	Failures     int           `json:"failures"`
	MeanDuration time.Duration `json:"mean_duration"`
	LastCalledAt time.Time     `json:"last_called_at"`
}
