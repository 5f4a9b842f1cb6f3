package cli

import (
	"testing"
)

func Test_Shell_Runs_Piped_Commands_Against_One_Store(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	script := "add buy milk\nadd walk dog\ncomplete 1\nlist\nquit\n"

	stdout, stderr, code := r.RunWithInput(script, "shell")
	if code != 0 {
		t.Fatalf("shell exit code = %d\nstderr: %s", code, stderr)
	}

	AssertContains(t, stdout, "1 [x] buy milk")
	AssertContains(t, stdout, "2 [ ] walk dog")
}

func Test_Shell_Reports_Unknown_Commands_And_Continues(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	stdout, stderr, code := r.RunWithInput("frobnicate\nadd still works\nquit\n", "shell")
	if code != 0 {
		t.Fatalf("shell exit code = %d", code)
	}

	AssertContains(t, stderr, "unknown command: frobnicate")
	AssertContains(t, stdout, "1")
}

func Test_Shell_Help_Lists_Commands_Without_Shell(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	stdout, _, code := r.RunWithInput("help\nquit\n", "shell")
	if code != 0 {
		t.Fatalf("shell exit code = %d", code)
	}

	AssertContains(t, stdout, "add <text>")
	AssertContains(t, stdout, "quit")
	AssertNotContains(t, stdout, "shell\n")
}

func Test_Shell_Exits_Cleanly_On_EOF(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	_, _, code := r.RunWithInput("add x\n", "shell")
	if code != 0 {
		t.Fatalf("shell exit code after EOF = %d, want 0", code)
	}
}

func Test_Shell_Rejects_Nested_Shell(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	_, stderr, code := r.RunWithInput("shell\nquit\n", "shell")
	if code != 0 {
		t.Fatalf("shell exit code = %d", code)
	}

	AssertContains(t, stderr, "already in a shell")
}
