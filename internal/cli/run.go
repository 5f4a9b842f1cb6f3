// Package cli implements the flywheel command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"flywheel/internal/config"
	"flywheel/internal/logging"
	"flywheel/internal/storage"
	"flywheel/internal/todo"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

var (
	errFlagRequiresArg = errors.New("flag requires an argument")
	errUnknownFlag     = errors.New("unknown flag")
	errIDRequired      = errors.New("todo id is required")
	errInvalidIDArg    = errors.New("todo id must be a positive integer")
	errTodoNotFound    = errors.New("todo not found")
)

// app carries the resolved configuration and the open store shared by all
// commands of one invocation.
type app struct {
	cfg     config.Config
	sources config.Sources
	store   *storage.Store
	logger  *log.Logger
	stdin   io.Reader
}

// Run is the main entry point. Returns exit code.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	ioCtx := NewIO(out, errOut)

	if len(args) < minArgs {
		printUsage(ioCtx)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		ioCtx.ErrPrintln("error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			ioCtx.ErrPrintln("error: cannot get working directory:", err)

			return 1
		}
	}

	cfg, sources, err := config.Load(workDir, flags.configPath, env)
	if err != nil {
		ioCtx.ErrPrintln("error:", err)

		return 1
	}

	// --db beats every config layer.
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}

	if len(flags.remaining) == 0 {
		printUsage(ioCtx)

		return 0
	}

	cmdName := flags.remaining[0]
	if cmdName == "-h" || cmdName == helpFlag {
		printUsage(ioCtx)

		return 0
	}

	logger := logging.New(errOut, cfg.LogLevel)

	dbPath := cfg.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workDir, dbPath)
	}

	store, err := storage.NewStore(dbPath, storage.StoreOptions{
		LockTimeout:  time.Duration(cfg.LockTimeout) * time.Second,
		Retry:        storage.RetryOptions{MaxAttempts: cfg.MaxAttempts},
		BackupCount:  cfg.BackupCount,
		DisableCache: cfg.DisableCache,
		Metrics:      storage.NewIOMetrics(),
		Logger:       logger,
	})
	if err != nil {
		ioCtx.ErrPrintln("error:", err)

		return 1
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("closing store", "err", closeErr)
		}
	}()

	application := &app{
		cfg:     cfg,
		sources: sources,
		store:   store,
		logger:  logger,
		stdin:   stdin,
	}

	ctx, cancel := signalContext(context.Background(), sigCh)
	defer cancel()

	cmd := findCommand(application.commands(), cmdName)
	if cmd == nil {
		ioCtx.ErrPrintln("error: unknown command:", cmdName)
		printUsage(ioCtx)

		return 1
	}

	if code := cmd.Run(ctx, ioCtx, flags.remaining[1:]); code != 0 {
		return code
	}

	return ioCtx.Finish()
}

// signalContext cancels the returned context on the first signal. A nil
// channel (tests) yields a plain cancelable context.
func signalContext(parent context.Context, sigCh <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return ctx, cancel
}

// commands returns the command registry for this invocation. The shell
// command reuses the same registry for its inner dispatch.
func (a *app) commands() []*Command {
	return []*Command{
		a.cmdAdd(),
		a.cmdList(),
		a.cmdComplete(),
		a.cmdUndone(),
		a.cmdUpdate(),
		a.cmdDelete(),
		a.cmdDue(),
		a.cmdStats(),
		a.cmdShell(),
		a.cmdPrintConfig(),
	}
}

func findCommand(cmds []*Command, name string) *Command {
	for _, cmd := range cmds {
		if cmd.Matches(name) {
			return cmd
		}
	}

	return nil
}

type globalFlags struct {
	workDir    string
	configPath string
	dbPath     string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if arg == "-c" || arg == "--config" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// --db flag
	if arg == "--db" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.dbPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--db="); ok {
		flags.dbPath = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

// parseIDArg reads the required positional todo id.
func parseIDArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errIDRequired
	}

	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidIDArg, args[0])
	}

	return id, nil
}

// findTodo returns the index of the record with the given id.
func findTodo(records []todo.Todo, id int) (int, error) {
	for i := range records {
		if records[i].ID == id {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %d", errTodoNotFound, id)
}

func printUsage(o *IO) {
	o.Println(`flywheel - todo list with crash-safe JSON storage

Usage: flywheel [options] <command> [args]

Options:
  -C, --cwd <dir>    Run as if started in <dir>
  -c, --config       Use specified config file
  --db <path>        Todo database file [default: .todo.json]

Commands:
  add <text>               Add a todo, prints its id
  list                     List todos (alias: ls)
  complete <id>            Mark a todo done (alias: done)
  undone <id>              Mark a todo not done
  update <id>              Edit text, priority or tags
  delete <id>              Delete a todo (alias: rm)
  due <id> <date>          Set or clear a due date
  stats                    Show counts and storage metrics
  shell                    Interactive prompt
  print-config             Show resolved configuration

Run 'flywheel <command> --help' for command details.`)
}
