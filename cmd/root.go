// Package cmd implements the todos command line.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/logging"
	"github.com/nibzard/todos-go/internal/todo"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries what every subcommand needs.
type app struct {
	cfg     *config.Config
	sources *config.ConfigWithSources
	log     *log.Logger
	out     io.Writer
}

// Run executes the todos CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("todos", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, out)
		return nil
	}

	a := &app{
		cfg:     cws.Config,
		sources: cws,
		out:     out,
	}
	a.log = logging.NewFromConfig(a.cfg.LogLevel, a.cfg.LogFormat, a.cfg.LogTimestamps, a.cfg.LogCaller, logging.DefaultPrefix)

	if *showVersion {
		return a.versionCommand()
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return a.lsCommand(nil)
	}
	subcommand, rest := remaining[0], remaining[1:]
	a.log.Debug("cli: dispatch", "command", subcommand, "data_file", a.cfg.DataFile)

	switch subcommand {
	case "add":
		return a.addCommand(rest)
	case "ls", "list":
		return a.lsCommand(rest)
	case "show":
		return a.showCommand(rest)
	case "edit":
		return a.editCommand(rest)
	case "toggle":
		return a.toggleCommand(rest, false)
	case "done":
		return a.toggleCommand(rest, true)
	case "rm", "delete":
		return a.rmCommand(rest)
	case "parse":
		return a.parseCommand(rest)
	case "export":
		return a.exportCommand(rest)
	case "init":
		return a.initCommand(rest)
	case "tui":
		return a.tuiCommand(ctx, rest)
	case "serve":
		return a.serveCommand(ctx, rest)
	case "config":
		return a.configCommand(rest)
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(fs, out)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// openStore loads the snapshot file into a fresh store.
func (a *app) openStore() (*todo.Store, error) {
	store := todo.NewStore(
		todo.WithLogger(a.log),
		todo.WithResetWhenEmpty(a.cfg.ResetIDsWhenEmpty),
	)
	snap, err := todo.LoadSnapshot(a.cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", a.cfg.DataFile, err)
	}
	if err := store.Restore(snap); err != nil {
		return nil, fmt.Errorf("loading %s: %w", a.cfg.DataFile, err)
	}
	a.log.Debug("cli: store loaded", "tasks", store.Len(), "session", store.SessionID())
	return store, nil
}

// saver returns a hook that writes store back to the data file.
func (a *app) saver(store *todo.Store) func() error {
	return func() error {
		return a.saveStore(store)
	}
}

func (a *app) saveStore(store *todo.Store) error {
	return writeSnapshot(a.cfg.DataFile, store.Snapshot())
}

func writeSnapshot(path string, snap todo.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return snap.Save(path)
}

func (a *app) versionCommand() error {
	fmt.Fprintf(a.out, "todos version %s\n", Version)
	return nil
}

// parseArgs parses fs from args while allowing flags after positional
// arguments. Everything after "--" is positional.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var tail []string
	for i, arg := range args {
		if arg == "--" {
			tail = args[i+1:]
			args = args[:i]
			break
		}
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	return append(positional, tail...), nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("todos "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// singleID parses a command that takes exactly one task id.
func singleID(name string, args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s: missing task id", name)
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("%s: unexpected arguments: %v", name, args[1:])
	}
	return parseID(args[0])
}

func notFound(id int) error {
	return fmt.Errorf("task #%d not found", id)
}

var errNoText = errors.New("missing task text")

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todos - a task list with prerequisites")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todos [global options] [command] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <text>            Add a task; end with (#1, #2) to add prerequisites")
	fmt.Fprintln(w, "                        (every word is text, including ones starting with -)")
	fmt.Fprintln(w, "  ls                    List tasks (default command)")
	fmt.Fprintln(w, "  show <id>             Show one task and its prerequisites")
	fmt.Fprintln(w, "  edit <id> <text>      Replace a task's description and prerequisites")
	fmt.Fprintln(w, "  toggle <id>           Flip a task between done and not done")
	fmt.Fprintln(w, "  done <id>             Mark a task done")
	fmt.Fprintln(w, "  rm <id>               Delete a task")
	fmt.Fprintln(w, "  parse <text>          Show how text would be read, without saving")
	fmt.Fprintln(w, "  export                Print all tasks as JSON or YAML")
	fmt.Fprintln(w, "  init                  Create the data file")
	fmt.Fprintln(w, "  tui                   Launch terminal UI")
	fmt.Fprintln(w, "  serve                 Serve the HTTP API")
	fmt.Fprintln(w, "  config [example]      Show resolved configuration")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options:")
	fmt.Fprintln(w, "  -v          Show counts and session details")
	fmt.Fprintln(w, "  -ready      Only tasks that can be completed now")
	fmt.Fprintln(w, "  -blocked    Only tasks waiting on prerequisites")
	fmt.Fprintln(w, "  -done       Only completed tasks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit Options:")
	fmt.Fprintln(w, "  -done       Mark the task done (refused while prerequisites are open)")
	fmt.Fprintln(w, "  -open       Mark the task not done")
	fmt.Fprintln(w, "  Put text that starts with - after --, as in: todos edit 3 -- -v flag")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options:")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Output format (json|yaml) (default \"json\")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Init Options:")
	fmt.Fprintln(w, "  -seed       Start with demo tasks")
	fmt.Fprintln(w, "  -force      Overwrite an existing data file")
	fmt.Fprintln(w, "  -config     Also write an example todos.toml")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve Options:")
	fmt.Fprintln(w, "  -addr string")
	fmt.Fprintln(w, "        Listen address (default from config)")
}
