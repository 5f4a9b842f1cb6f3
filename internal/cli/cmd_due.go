package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"
)

var errDateRequired = errors.New("due date is required (or pass --clear)")

func (a *app) cmdDue() *Command {
	flags := flag.NewFlagSet("due", flag.ContinueOnError)
	clear := flags.Bool("clear", false, "Remove the due date")

	return &Command{
		Flags: flags,
		Usage: "due <id> <date>",
		Short: "Set or clear a due date",
		Long:  "Set the due date (YYYY-MM-DD) of one todo, or remove it with --clear.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}

			if !*clear && len(args) < 2 {
				return errDateRequired
			}

			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			idx, err := findTodo(records, id)
			if err != nil {
				return err
			}

			if *clear {
				records[idx].DueDate = ""
			} else if err := records[idx].SetDueDate(args[1]); err != nil {
				return err
			}

			if err := a.store.Save(ctx, records); err != nil {
				return err
			}

			o.Println(formatTodoLine(records[idx]))

			return nil
		},
	}
}
