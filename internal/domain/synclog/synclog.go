// Package synclog records synchronization attempts for diagnostics and
// idempotent retry decisions.
package synclog

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Kind names the synchronization flow an entry belongs to.
type Kind string

const (
	KindTicketRefresh  Kind = "ticket_refresh"
	KindMessageCatchUp Kind = "message_catch_up"
	KindProfileSync    Kind = "profile_sync"
)

type Entry struct {
	id         uint
	kind       Kind
	status     Status
	detail     string
	startedAt  time.Time
	finishedAt *time.Time
}

func NewEntry(kind Kind) *Entry {
	return &Entry{
		kind:      kind,
		status:    StatusPending,
		startedAt: time.Now(),
	}
}

func ReconstructEntry(id uint, kind Kind, status Status, detail string, startedAt time.Time, finishedAt *time.Time) (*Entry, error) {
	if id == 0 {
		return nil, fmt.Errorf("entry ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	return &Entry{
		id:         id,
		kind:       kind,
		status:     status,
		detail:     detail,
		startedAt:  startedAt,
		finishedAt: finishedAt,
	}, nil
}

func (e *Entry) ID() uint {
	return e.id
}

func (e *Entry) Kind() Kind {
	return e.kind
}

func (e *Entry) Status() Status {
	return e.status
}

func (e *Entry) Detail() string {
	return e.detail
}

func (e *Entry) StartedAt() time.Time {
	return e.startedAt
}

func (e *Entry) FinishedAt() *time.Time {
	return e.finishedAt
}

func (e *Entry) SetID(id uint) error {
	if e.id != 0 {
		return fmt.Errorf("entry ID is already set")
	}
	e.id = id
	return nil
}

func (e *Entry) Start() {
	e.status = StatusInProgress
}

func (e *Entry) Complete(detail string) {
	now := time.Now()
	e.status = StatusCompleted
	e.detail = detail
	e.finishedAt = &now
}

func (e *Entry) Fail(detail string) {
	now := time.Now()
	e.status = StatusFailed
	e.detail = detail
	e.finishedAt = &now
}
