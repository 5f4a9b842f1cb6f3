package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"flywheel/internal/storage"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "flywheel" in help.
	// Includes the command name and arguments/flags.
	// Examples: "add <text> [flags]", "complete <id>", "list [flags]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Aliases are alternate names that dispatch to this command.
	Aliases []string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// Matches reports whether name selects this command.
func (c *Command) Matches(name string) bool {
	if name == c.Name() {
		return true
	}

	for _, alias := range c.Aliases {
		if name == alias {
			return true
		}
	}

	return false
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-24s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "flywheel <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: flywheel", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return exitCode(err)
	}

	return 0
}

// exitCode maps command failures to exit codes: 2 for storage-engine
// failures, 1 for user errors.
func exitCode(err error) int {
	for _, kind := range []error{
		storage.ErrStorageIO,
		storage.ErrStorageTimeout,
		storage.ErrLockTimeout,
		storage.ErrWrongContext,
		storage.ErrInvalidPath,
		storage.ErrInvalidDocument,
		storage.ErrStoreClosed,
	} {
		if errors.Is(err, kind) {
			return 2
		}
	}

	return 1
}
