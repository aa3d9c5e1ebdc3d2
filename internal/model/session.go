package model

import (
	"fmt"
	"strings"
	"time"
)

// SessionStatus represents the overall outcome of a collection session.
type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionSuccess SessionStatus = "success"
	SessionPartial SessionStatus = "partial"
	SessionFailed  SessionStatus = "failed"
)

// StageStatus represents the outcome of a single pipeline stage.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageResult is what every pipeline stage returns. Stages never propagate
// errors past their boundary; failures are carried here and the session
// decides whether downstream stages run.
type StageResult struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	Collected  int         `json:"collected"`
	Inserted   int         `json:"inserted"`
	Updated    int         `json:"updated"`
	Associated int         `json:"associated"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Errors     []string    `json:"errors,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}

// Succeeded reports whether the stage completed well enough to unblock the
// next stage. A stage with errors can still succeed if some records made it
// through.
func (r *StageResult) Succeeded() bool {
	return r.Status == StageSuccess
}

// Output returns the stage's effective output count, used by gating.
func (r *StageResult) Output() int {
	if r.Associated > 0 {
		return r.Associated
	}
	if r.Inserted+r.Updated > 0 {
		return r.Inserted + r.Updated
	}
	return r.Collected
}

// AddError records a non-fatal error on the stage.
func (r *StageResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// CollectionSession binds the stages of one collection run together. The
// identifier threads through every stage so downstream stages can select
// exactly the records this run produced.
type CollectionSession struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Status    SessionStatus `json:"status"`
	Stages    []StageResult `json:"stages"`
}

// NewCollectionSession creates a session with a time-derived identifier,
// formatted YYYYMMDD_HHMMSS_mmm in UTC. Identifiers sort by start time and
// are never reused across runs.
func NewCollectionSession(now time.Time) *CollectionSession {
	now = now.UTC()
	id := fmt.Sprintf("%s_%03d", now.Format("20060102_150405"), now.Nanosecond()/1e6)
	return &CollectionSession{
		ID:        id,
		StartedAt: now,
		Status:    SessionRunning,
	}
}

// Record appends a finished stage result.
func (s *CollectionSession) Record(r StageResult) {
	s.Stages = append(s.Stages, r)
}

// Completed returns the names of the stages that succeeded.
func (s *CollectionSession) Completed() []string {
	var names []string
	for _, st := range s.Stages {
		if st.Succeeded() {
			names = append(names, st.Name)
		}
	}
	return names
}

// Finish sets the final status from the recorded stages and returns a
// human-readable summary. Partial success names the completed stages
// rather than collapsing to a binary outcome.
func (s *CollectionSession) Finish() string {
	total := len(s.Stages)
	done := s.Completed()

	switch {
	case total == 0 || len(done) == 0:
		s.Status = SessionFailed
		return "session failed: no stage completed"
	case len(done) == total:
		s.Status = SessionSuccess
		return fmt.Sprintf("session complete (%d/%d stages)", len(done), total)
	default:
		s.Status = SessionPartial
		return fmt.Sprintf("partial success (%d/%d stages: %s)", len(done), total, strings.Join(done, ", "))
	}
}
