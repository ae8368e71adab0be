// Package programme contains the programme records, the role-scoped
// visibility rules over them, and the append-only activity ledger that is the
// only sanctioned path for status changes.
package programme

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"progtrack.org/internal/auth"
)

var (
	ErrNotFound      = errors.New("programme: not found")
	ErrInvalidInput  = errors.New("programme: invalid input")
	ErrInvalidStatus = errors.New("programme: invalid status value")
	ErrInvalidKind   = errors.New("programme: invalid update kind")
)

// Status is the closed programme lifecycle enumeration. It only ever changes
// as a side effect of a status_change update appended to the ledger.
type Status string

const (
	StatusReceived   Status = "received"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// ParseStatus rejects anything outside the five recognized values; an
// unrecognized status is never persisted.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusReceived:
		return StatusReceived, nil
	case StatusAssigned:
		return StatusAssigned, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusBlocked:
		return StatusBlocked, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (s Status) String() string { return string(s) }

// UpdateKind classifies ledger entries.
type UpdateKind string

const (
	KindStatusChange UpdateKind = "status_change"
	KindComment      UpdateKind = "comment"
	KindAttachment   UpdateKind = "attachment"
)

// ParseKind validates an update kind.
func ParseKind(raw string) (UpdateKind, error) {
	switch UpdateKind(strings.TrimSpace(strings.ToLower(raw))) {
	case KindStatusChange:
		return KindStatusChange, nil
	case KindComment:
		return KindComment, nil
	case KindAttachment:
		return KindAttachment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

func (k UpdateKind) String() string { return string(k) }

// ScopeMode declares a programme's visibility breadth.
type ScopeMode string

const (
	ScopeDistrict     ScopeMode = "district"
	ScopeAllDivisions ScopeMode = "all_divisions"
	ScopeSpecificList ScopeMode = "specific_list"
)

// ParseScopeMode validates a scope mode.
func ParseScopeMode(raw string) (ScopeMode, error) {
	switch ScopeMode(strings.TrimSpace(strings.ToLower(raw))) {
	case ScopeDistrict:
		return ScopeDistrict, nil
	case ScopeAllDivisions:
		return ScopeAllDivisions, nil
	case ScopeSpecificList:
		return ScopeSpecificList, nil
	default:
		return "", fmt.Errorf("%w: unknown scope mode %q", ErrInvalidInput, raw)
	}
}

func (m ScopeMode) String() string { return string(m) }

// Priority orders programmes for presentation only.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority validates a priority.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.TrimSpace(strings.ToLower(raw))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityCritical:
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
}

func (p Priority) String() string { return string(p) }

// Frequency describes how often a programme recurs.
type Frequency string

const (
	FreqOneTime   Frequency = "one-time"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
	FreqTenure    Frequency = "tenure"
)

// ParseFrequency validates a frequency.
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.TrimSpace(strings.ToLower(raw))) {
	case FreqOneTime, FreqWeekly, FreqMonthly, FreqQuarterly, FreqYearly, FreqTenure:
		return Frequency(strings.TrimSpace(strings.ToLower(raw))), nil
	default:
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, raw)
	}
}

// Attachment is an opaque reference into the external blob store. Contents
// are never opened or validated here.
type Attachment struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Programme is a tracked work item owned by the district/division hierarchy.
type Programme struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	OwnerActorID  string       `json:"owner_actor_id"`
	CreatedAt     time.Time    `json:"created_at"`
	LastUpdatedAt time.Time    `json:"last_updated_at"`
	DueDate       *time.Time   `json:"due_date,omitempty"`
	Priority      Priority     `json:"priority"`
	PortfolioID   string       `json:"portfolio_id,omitempty"`
	Frequency     Frequency    `json:"frequency"`
	ScopeMode     ScopeMode    `json:"scope_mode"`
	Districts     []string     `json:"assigned_districts,omitempty"`
	Divisions     []string     `json:"assigned_divisions,omitempty"`
	Status        Status       `json:"status"`
	Active        bool         `json:"is_active"`
	Remarks       string       `json:"remarks,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// Update is an entry in a programme's activity feed. Append-only: once
// written it is never edited or deleted.
type Update struct {
	ID          string            `json:"id"`
	ProgrammeID string            `json:"programme_id"`
	AuthorID    string            `json:"author_actor_id"`
	Author      auth.ActorSummary `json:"author"`
	Kind        UpdateKind        `json:"kind"`
	Content     string            `json:"content,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Patch carries optional admin mutations of programme core fields. Status is
// deliberately absent: status only moves through the ledger.
type Patch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
	Priority    *Priority
	PortfolioID *string
	Frequency   *Frequency
	ScopeMode   *ScopeMode
	Districts   []string
	Divisions   []string
	Active      *bool
	Remarks     *string
	Attachments []Attachment
}

// Page is offset+limit pagination.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}
	return p
}
