package cli

import (
	"testing"
)

func Test_Due_Sets_Date(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	r.MustRun("add", "file taxes")

	stdout := r.MustRun("due", "1", "2999-04-15")
	AssertContains(t, stdout, "(due 2999-04-15)")
}

func Test_Due_Clear_Removes_Date(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	r.MustRun("add", "x", "--due", "2999-04-15")

	stdout := r.MustRun("due", "1", "--clear")
	AssertNotContains(t, stdout, "due")
}

func Test_Due_Rejects_Near_ISO_Shapes(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	r.MustRun("add", "x")

	for _, date := range []string{"2999/04/15", "2999-04-15T10:00:00Z", "next tuesday"} {
		stderr := r.MustFail("due", "1", date)
		AssertContains(t, stderr, "invalid due date")
	}
}

func Test_Due_Without_Date_Fails(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	r.MustRun("add", "x")

	stderr := r.MustFail("due", "1")
	AssertContains(t, stderr, "date is required")
}
