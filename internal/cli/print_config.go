package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"flywheel/internal/config"
)

func (a *app) cmdPrintConfig() *Command {
	return &Command{
		Flags:   flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage:   "print-config",
		Short:   "Show resolved configuration",
		Aliases: []string{"config"},
		Exec: func(_ context.Context, o *IO, _ []string) error {
			formatted, err := config.Format(a.cfg)
			if err != nil {
				return err
			}

			o.Println(formatted)

			o.Println("")
			o.Println("# Sources:")

			if a.sources.Global != "" {
				o.Println("#   global:", a.sources.Global)
			}

			if a.sources.Project != "" {
				o.Println("#   project:", a.sources.Project)
			}

			if a.sources.Global == "" && a.sources.Project == "" {
				o.Println("#   (using defaults only)")
			}

			return nil
		},
	}
}
