// Package todo holds the persisted record type and its field rules.
package todo

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Priority levels.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Record validation errors.
var (
	ErrEmptyText       = errors.New("todo text cannot be empty")
	ErrInvalidID       = errors.New("todo id must be a positive integer")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidDueDate  = errors.New("invalid due date")
)

// dueDateFormat is the accepted due-date layout. A strict shape check runs
// before parsing so near-ISO forms (slashes, datetimes) are rejected.
const dueDateFormat = "2006-01-02"

var dueDateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Todo is one task record. Ids are positive integers, unique within a
// collection; text is sanitized on construction and rename.
type Todo struct {
	ID        int      `json:"id"`
	Text      string   `json:"text"`
	Done      bool     `json:"done"`
	Priority  string   `json:"priority,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// New creates a todo with the given id and sanitized text. Timestamps are
// set to now (UTC, RFC 3339); priority defaults to medium.
func New(id int, text string) (Todo, error) {
	text = Sanitize(text)
	if text == "" {
		return Todo{}, ErrEmptyText
	}

	if id <= 0 {
		return Todo{}, fmt.Errorf("%w: got %d", ErrInvalidID, id)
	}

	now := nowISO()

	return Todo{
		ID:        id,
		Text:      text,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the record's field rules. Ids are positive by policy;
// non-positive ids in legacy files survive loading but are rejected on save.
func (t Todo) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidID, t.ID)
	}

	if Sanitize(t.Text) == "" {
		return ErrEmptyText
	}

	switch t.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("%w: %q (want low, medium or high)", ErrInvalidPriority, t.Priority)
	}

	if t.DueDate != "" {
		if err := validateDueDate(t.DueDate); err != nil {
			return err
		}
	}

	return nil
}

// MarkDone marks the todo complete.
func (t *Todo) MarkDone() {
	t.Done = true
	t.UpdatedAt = nowISO()
}

// MarkUndone marks the todo incomplete.
func (t *Todo) MarkUndone() {
	t.Done = false
	t.UpdatedAt = nowISO()
}

// Rename replaces the text with the sanitized value.
func (t *Todo) Rename(text string) error {
	text = Sanitize(text)
	if text == "" {
		return ErrEmptyText
	}

	t.Text = text
	t.UpdatedAt = nowISO()

	return nil
}

// SetDueDate sets the due date (YYYY-MM-DD).
func (t *Todo) SetDueDate(date string) error {
	if err := validateDueDate(date); err != nil {
		return err
	}

	t.DueDate = date
	t.UpdatedAt = nowISO()

	return nil
}

// IsOverdue reports whether the todo has a past due date and is not done.
// Records with unparseable due dates are never overdue.
func (t Todo) IsOverdue() bool {
	if t.DueDate == "" || t.Done {
		return false
	}

	due, err := time.Parse(dueDateFormat, t.DueDate)
	if err != nil {
		return false
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	return due.Before(today)
}

func validateDueDate(date string) error {
	if !dueDateShape.MatchString(date) {
		return fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDueDate, date)
	}

	if _, err := time.Parse(dueDateFormat, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDueDate, date)
	}

	return nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
