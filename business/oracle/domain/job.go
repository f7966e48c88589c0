package domain

import "time"

// JobState is the lifecycle of a single oracle run.
type JobState string

const (
	StateIdle       JobState = "idle"
	StateFetching   JobState = "fetching"
	StateSubmitting JobState = "submitting"
	StateConfirming JobState = "confirming"
	StateSucceeded  JobState = "succeeded"
	StateFailed     JobState = "failed"
)

// IsTerminal reports whether no further transitions follow s.
func (s JobState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// InFlight reports whether a run in state s holds the domain guard.
func (s JobState) InFlight() bool {
	return s == StateFetching || s == StateSubmitting || s == StateConfirming
}

// Trigger names what started a run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// RunSummary is the in-memory record of a finished run.
type RunSummary struct {
	JobID       string    `json:"jobId"`
	Trigger     Trigger   `json:"trigger"`
	State       JobState  `json:"state"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	TxHash      string    `json:"transactionHash,omitempty"`
	BlockNumber uint64    `json:"blockNumber,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Status is a point-in-time view of one domain's orchestrator.
type Status struct {
	Domain     Domain      `json:"domain"`
	State      JobState    `json:"state"`
	JobID      string      `json:"jobId,omitempty"`
	Since      time.Time   `json:"since"`
	LastRun    *RunSummary `json:"lastRun,omitempty"`
	Runs       int64       `json:"runs"`
	Failures   int64       `json:"failures"`
	Rejections int64       `json:"busyRejections"`
}
