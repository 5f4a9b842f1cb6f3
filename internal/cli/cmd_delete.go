package cli

import (
	"context"
	"slices"

	flag "github.com/spf13/pflag"
)

func (a *app) cmdDelete() *Command {
	return &Command{
		Flags:   flag.NewFlagSet("delete", flag.ContinueOnError),
		Usage:   "delete <id>",
		Short:   "Delete a todo",
		Aliases: []string{"rm"},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}

			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			idx, err := findTodo(records, id)
			if err != nil {
				return err
			}

			deleted := records[idx]
			records = slices.Delete(records, idx, idx+1)

			if err := a.store.Save(ctx, records); err != nil {
				return err
			}

			o.Println("deleted", formatTodoLine(deleted))

			return nil
		},
	}
}
