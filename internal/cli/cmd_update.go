package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

var errNothingToUpdate = errors.New("nothing to update (pass --text, --priority, --tag or --clear-tags)")

func (a *app) cmdUpdate() *Command {
	flags := flag.NewFlagSet("update", flag.ContinueOnError)
	text := flags.StringP("text", "t", "", "Replace the todo text")
	priority := flags.StringP("priority", "p", "", "Set priority (low|medium|high)")
	tags := flags.StringArray("tag", nil, "Replace tags (repeatable)")
	clearTags := flags.Bool("clear-tags", false, "Remove all tags")

	return &Command{
		Flags: flags,
		Usage: "update <id> [flags]",
		Short: "Edit text, priority or tags",
		Long:  "Update one todo in place. Only the passed flags change; --tag replaces the whole tag list.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}

			if !flags.Changed("text") && !flags.Changed("priority") &&
				!flags.Changed("tag") && !*clearTags {
				return errNothingToUpdate
			}

			if flags.Changed("priority") && !isValidPriority(*priority) {
				return fmt.Errorf("%w: %q", errBadPriority, *priority)
			}

			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			idx, err := findTodo(records, id)
			if err != nil {
				return err
			}

			if flags.Changed("text") {
				if err := records[idx].Rename(*text); err != nil {
					return err
				}
			}

			if flags.Changed("priority") {
				records[idx].Priority = *priority
			}

			if *clearTags {
				records[idx].Tags = nil
			} else if flags.Changed("tag") {
				records[idx].Tags = cleanTags(*tags)
			}

			if err := a.store.Save(ctx, records); err != nil {
				return err
			}

			o.Println(formatTodoLine(records[idx]))

			return nil
		},
	}
}
