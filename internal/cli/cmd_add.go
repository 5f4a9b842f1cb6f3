package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"flywheel/internal/todo"
)

var (
	errTextRequired = errors.New("todo text is required")
	errBadPriority  = errors.New("invalid priority (must be low, medium or high)")
)

func (a *app) cmdAdd() *Command {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	priority := flags.StringP("priority", "p", todo.PriorityMedium, "Priority: low|medium|high")
	due := flags.String("due", "", "Due date (YYYY-MM-DD)")
	tags := flags.StringArray("tag", nil, "Tag (repeatable)")

	return &Command{
		Flags: flags,
		Usage: "add <text> [flags]",
		Short: "Add a todo, prints its id",
		Long:  "Add a new todo. The text is sanitized; the assigned id is printed on success.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errTextRequired
			}

			// Unquoted multi-word text is joined, matching shell habits.
			text := strings.Join(args, " ")

			if !isValidPriority(*priority) {
				return fmt.Errorf("%w: %q", errBadPriority, *priority)
			}

			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			record, err := todo.New(a.store.NextID(records), text)
			if err != nil {
				return err
			}

			record.Priority = *priority
			record.Tags = cleanTags(*tags)

			if *due != "" {
				if err := record.SetDueDate(*due); err != nil {
					return err
				}
			}

			records = append(records, record)

			if err := a.store.Save(ctx, records); err != nil {
				return err
			}

			o.Println(record.ID)

			return nil
		},
	}
}

func isValidPriority(p string) bool {
	return p == todo.PriorityLow || p == todo.PriorityMedium || p == todo.PriorityHigh
}

// cleanTags sanitizes and drops empty tags, preserving order.
func cleanTags(tags []string) []string {
	var out []string

	for _, tag := range tags {
		if cleaned := todo.Sanitize(tag); cleaned != "" {
			out = append(out, cleaned)
		}
	}

	return out
}
