package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"

	"flywheel/internal/todo"
)

func (a *app) cmdList() *Command {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	done := flags.Bool("done", false, "Show only completed todos")
	pending := flags.Bool("pending", false, "Show only open todos")
	overdue := flags.Bool("overdue", false, "Show only overdue todos")
	priority := flags.String("priority", "", "Filter by priority (low|medium|high)")
	tag := flags.String("tag", "", "Filter by tag")

	return &Command{
		Flags:   flags,
		Usage:   "list [flags]",
		Short:   "List todos",
		Long:    "List todos sorted by id. Filters combine with AND.",
		Aliases: []string{"ls"},
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *priority != "" && !isValidPriority(*priority) {
				return fmt.Errorf("%w: %q", errBadPriority, *priority)
			}

			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			slices.SortFunc(records, func(x, y todo.Todo) int { return x.ID - y.ID })

			shown := 0

			for _, record := range records {
				if *done && !record.Done {
					continue
				}

				if *pending && record.Done {
					continue
				}

				if *overdue && !record.IsOverdue() {
					continue
				}

				if *priority != "" && record.Priority != *priority {
					continue
				}

				if *tag != "" && !slices.Contains(record.Tags, *tag) {
					continue
				}

				o.Println(formatTodoLine(record))

				shown++
			}

			if shown == 0 {
				o.Println("no todos")
			}

			return nil
		},
	}
}

func formatTodoLine(record todo.Todo) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%d ", record.ID)

	if record.Done {
		builder.WriteString("[x] ")
	} else {
		builder.WriteString("[ ] ")
	}

	if record.Priority != "" && record.Priority != todo.PriorityMedium {
		fmt.Fprintf(&builder, "(%s) ", record.Priority)
	}

	builder.WriteString(record.Text)

	if record.DueDate != "" {
		if record.IsOverdue() {
			fmt.Fprintf(&builder, " (due %s, overdue)", record.DueDate)
		} else {
			fmt.Fprintf(&builder, " (due %s)", record.DueDate)
		}
	}

	for _, t := range record.Tags {
		builder.WriteString(" #")
		builder.WriteString(t)
	}

	return builder.String()
}
