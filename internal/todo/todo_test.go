package todo

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_New_Sanitizes_Text_And_Stamps_Timestamps(t *testing.T) {
	t.Parallel()

	record, err := New(1, "  buy​ milk\x00  ")
	if err != nil {
		t.Fatalf("New(): %v", err)
	}

	if record.Text != "buy milk" {
		t.Fatalf("Text = %q, want %q", record.Text, "buy milk")
	}

	if record.CreatedAt == "" || record.UpdatedAt != record.CreatedAt {
		t.Fatalf("timestamps = (%q, %q), want equal and non-empty", record.CreatedAt, record.UpdatedAt)
	}

	if record.Priority != PriorityMedium {
		t.Fatalf("Priority = %q, want %q", record.Priority, PriorityMedium)
	}
}

func Test_New_Rejects_Empty_And_Whitespace_Only_Text(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "​‌", "\x00\x1f"} {
		if _, err := New(1, text); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("New(%q): err=%v, want %v", text, err, ErrEmptyText)
		}
	}
}

func Test_New_Rejects_NonPositive_Ids(t *testing.T) {
	t.Parallel()

	for _, id := range []int{0, -1, -100} {
		if _, err := New(id, "x"); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("New(%d): err=%v, want %v", id, err, ErrInvalidID)
		}
	}
}

func Test_Validate_Rejects_Bad_Priority(t *testing.T) {
	t.Parallel()

	record := Todo{ID: 1, Text: "x", Priority: "urgent"}
	if err := record.Validate(); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("Validate(): err=%v, want %v", err, ErrInvalidPriority)
	}
}

func Test_SetDueDate_Accepts_Strict_ISO_Dates_Only(t *testing.T) {
	t.Parallel()

	record := Todo{ID: 1, Text: "x"}

	if err := record.SetDueDate("2026-12-31"); err != nil {
		t.Fatalf("SetDueDate(valid): %v", err)
	}

	for _, date := range []string{"2026/12/31", "2026-13-01", "2026-12-31T10:00:00Z", "31-12-2026", "not a date"} {
		if err := record.SetDueDate(date); !errors.Is(err, ErrInvalidDueDate) {
			t.Fatalf("SetDueDate(%q): err=%v, want %v", date, err, ErrInvalidDueDate)
		}
	}
}

func Test_IsOverdue_Ignores_Done_And_Unparseable_Dates(t *testing.T) {
	t.Parallel()

	past := Todo{ID: 1, Text: "x", DueDate: "2000-01-01"}
	if !past.IsOverdue() {
		t.Fatal("IsOverdue() = false for a past due date")
	}

	done := Todo{ID: 1, Text: "x", DueDate: "2000-01-01", Done: true}
	if done.IsOverdue() {
		t.Fatal("IsOverdue() = true for a completed todo")
	}

	garbled := Todo{ID: 1, Text: "x", DueDate: "garbage"}
	if garbled.IsOverdue() {
		t.Fatal("IsOverdue() = true for an unparseable date")
	}

	future := Todo{ID: 1, Text: "x", DueDate: "2999-01-01"}
	if future.IsOverdue() {
		t.Fatal("IsOverdue() = true for a future due date")
	}
}

func Test_Todo_JSON_Round_Trip_Preserves_All_Fields(t *testing.T) {
	t.Parallel()

	want := Todo{
		ID:        7,
		Text:      "ship it",
		Done:      true,
		Priority:  PriorityHigh,
		Tags:      []string{"release", "q3"},
		DueDate:   "2026-09-01",
		CreatedAt: "2026-08-01T10:00:00Z",
		UpdatedAt: "2026-08-02T11:30:00Z",
	}

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}

	var got Todo
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Sanitize_Strips_Control_ZeroWidth_And_Bidi(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		in   string
		want string
	}{
		{"control chars", "a\x00b\x1fc\x7fd", "abcd"},
		{"zero width", "a​b‌c‍d⁠e\uFEFFf", "abcdef"},
		{"bidi overrides", "a‮b⁦c", "abc"},
		{"plain unicode kept", "café ☕", "café ☕"},
		{"whitespace trimmed", "  hello  ", "hello"},
	} {
		if got := Sanitize(tc.in); got != tc.want {
			t.Fatalf("%s: Sanitize(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
