package cli

import (
	"context"
	"slices"

	flag "github.com/spf13/pflag"

	"flywheel/internal/storage"
	"flywheel/internal/todo"
)

func (a *app) cmdStats() *Command {
	flags := flag.NewFlagSet("stats", flag.ContinueOnError)
	showIO := flags.Bool("io", false, "Include storage I/O metrics")

	return &Command{
		Flags: flags,
		Usage: "stats [flags]",
		Short: "Show counts and storage metrics",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			records, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			if a.store.Degraded() {
				o.Warn("file locking unavailable on this filesystem",
					"concurrent writers may race; prefer a local filesystem")
			}

			printCounts(o, records)

			if *showIO {
				o.Println()
				printIOMetrics(o, a.store)
			}

			return nil
		},
	}
}

func printCounts(o *IO, records []todo.Todo) {
	var done, overdue int

	byPriority := map[string]int{}

	for _, record := range records {
		if record.Done {
			done++
		}

		if record.IsOverdue() {
			overdue++
		}

		priority := record.Priority
		if priority == "" {
			priority = todo.PriorityMedium
		}

		byPriority[priority]++
	}

	o.Println("total:  ", len(records))
	o.Println("done:   ", done)
	o.Println("pending:", len(records)-done)
	o.Println("overdue:", overdue)

	for _, priority := range []string{todo.PriorityHigh, todo.PriorityMedium, todo.PriorityLow} {
		if n := byPriority[priority]; n > 0 {
			o.Printf("%-8s %d\n", priority+":", n)
		}
	}
}

func printIOMetrics(o *IO, store *storage.Store) {
	snapshot := store.Metrics().Snapshot()

	o.Println("storage i/o:")
	o.Println("  duration:", snapshot.Duration)
	o.Println("  retries: ", snapshot.Retries)
	o.Println("  failures:", snapshot.Failures)

	for _, op := range sortedKeys(snapshot.Operations) {
		o.Printf("  %-8s %d\n", op+":", snapshot.Operations[op])
	}

	for _, kind := range sortedKeys(snapshot.Errors) {
		o.Printf("  error %-14s %d\n", kind+":", snapshot.Errors[kind])
	}

	if len(snapshot.Recent) > 0 {
		last := snapshot.Recent[len(snapshot.Recent)-1]
		o.Printf("  last: %s in %s (retries=%d ok=%t)\n",
			last.Op, last.Duration, last.Retries, last.Success)
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
