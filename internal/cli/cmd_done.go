package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func (a *app) cmdComplete() *Command {
	return &Command{
		Flags:   flag.NewFlagSet("complete", flag.ContinueOnError),
		Usage:   "complete <id>",
		Short:   "Mark a todo done",
		Aliases: []string{"done"},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return a.setDone(ctx, o, args, true)
		},
	}
}

func (a *app) cmdUndone() *Command {
	return &Command{
		Flags: flag.NewFlagSet("undone", flag.ContinueOnError),
		Usage: "undone <id>",
		Short: "Mark a todo not done",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return a.setDone(ctx, o, args, false)
		},
	}
}

func (a *app) setDone(ctx context.Context, o *IO, args []string, done bool) error {
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

	// Flipping an already-settled todo is allowed but worth flagging.
	if records[idx].Done == done {
		if done {
			o.Warn("already done", "nothing changed; run 'flywheel list' to review")
		} else {
			o.Warn("already open", "nothing changed; run 'flywheel list' to review")
		}

		return nil
	}

	if done {
		records[idx].MarkDone()
	} else {
		records[idx].MarkUndone()
	}

	if err := a.store.Save(ctx, records); err != nil {
		return err
	}

	o.Println(formatTodoLine(records[idx]))

	return nil
}
