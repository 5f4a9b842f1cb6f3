package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

const shellPrompt = "flywheel> "

func (a *app) cmdShell() *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive prompt",
		Long: "Run commands interactively against one open store. " +
			"Reads line-by-line from a pipe when stdin is not a terminal.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if file, ok := a.stdin.(*os.File); ok && file == os.Stdin {
				return a.runInteractiveShell(ctx, o)
			}

			return a.runScriptedShell(ctx, o)
		},
	}
}

// runInteractiveShell drives a line editor with history and completion.
func (a *app) runInteractiveShell(ctx context.Context, o *IO) error {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string

		for _, name := range shellCommandNames(a.commands()) {
			if strings.HasPrefix(name, prefix) {
				matches = append(matches, name)
			}
		}

		return matches
	})

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := line.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if quit := a.shellDispatch(ctx, o, input); quit {
			return nil
		}
	}
}

// runScriptedShell reads commands from the invocation's stdin. Used when
// stdin is a pipe and by tests.
func (a *app) runScriptedShell(ctx context.Context, o *IO) error {
	if a.stdin == nil {
		return nil
	}

	scanner := bufio.NewScanner(a.stdin)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if quit := a.shellDispatch(ctx, o, input); quit {
			return nil
		}
	}

	return scanner.Err()
}

// shellDispatch runs one shell line. Returns true on quit.
func (a *app) shellDispatch(ctx context.Context, o *IO, input string) bool {
	fields := strings.Fields(input)
	name, rest := fields[0], fields[1:]

	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		a.printShellHelp(o)

		return false
	case "shell":
		o.ErrPrintln("error: already in a shell")

		return false
	}

	cmd := findCommand(a.commands(), name)
	if cmd == nil {
		o.ErrPrintln("error: unknown command:", name, "(try 'help')")

		return false
	}

	// Exit codes are per-line in the shell; errors were already printed.
	_ = cmd.Run(ctx, o, rest)

	return false
}

func (a *app) printShellHelp(o *IO) {
	o.Println("Commands:")

	for _, cmd := range a.commands() {
		if cmd.Name() == "shell" {
			continue
		}

		o.Println(cmd.HelpLine())
	}

	o.Println("  help                     Show this help")
	o.Println("  quit                     Leave the shell")
}

func shellCommandNames(cmds []*Command) []string {
	names := []string{"help", "quit", "exit"}

	for _, cmd := range cmds {
		if cmd.Name() == "shell" {
			continue
		}

		names = append(names, cmd.Name())
		names = append(names, cmd.Aliases...)
	}

	return names
}
