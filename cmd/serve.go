package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/httpapi"
	"github.com/nibzard/todos-go/internal/todo"
	"github.com/nibzard/todos-go/internal/ui"
)

// tuiCommand launches the TUI.
func (a *app) tuiCommand(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("tui: unexpected arguments: %v", args)
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return ui.RunTUI(ctx, store,
		ui.WithSave(a.saver(store)),
		ui.WithLogger(a.log),
		ui.WithDataPath(a.cfg.DataFile),
	)
}

// serveCommand runs the HTTP API until ctx is cancelled.
func (a *app) serveCommand(ctx context.Context, args []string) error {
	flags := newFlagSet("serve")
	addr := flags.String("addr", a.cfg.ListenAddr, "Listen address")
	rest, err := parseArgs(flags, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("serve: unexpected arguments: %v", rest)
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}

	if a.log.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httpapi.NewServer(store,
		httpapi.WithLogger(a.log),
		httpapi.WithSave(a.saver(store)),
	)
	fmt.Fprintf(a.out, "Serving %s on http://%s/api/tasks\n", a.cfg.DataFile, *addr)
	return server.Run(ctx, *addr)
}

// initCommand writes an empty or seeded data file.
func (a *app) initCommand(args []string) error {
	flags := newFlagSet("init")
	seed := flags.Bool("seed", false, "Start with demo tasks")
	force := flags.Bool("force", false, "Overwrite an existing data file")
	withConfig := flags.Bool("config", false, "Also write an example todos.toml")
	rest, err := parseArgs(flags, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("init: unexpected arguments: %v", rest)
	}

	path := a.cfg.DataFile
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	snap := todo.EmptySnapshot()
	if *seed {
		snap = todo.SeedSnapshot()
	}
	if err := writeSnapshot(path, snap); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s (%d tasks)\n", path, len(snap.Tasks))

	if *withConfig {
		cfgPath := filepath.Join(a.cfg.ProjectRoot, "todos.toml")
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Fprintf(a.out, "Kept existing %s\n", cfgPath)
			return nil
		}
		if err := os.WriteFile(cfgPath, []byte(config.ExampleConfig()), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		fmt.Fprintf(a.out, "Created %s\n", cfgPath)
	}
	return nil
}

// configCommand prints each setting with the layer it came from.
func (a *app) configCommand(args []string) error {
	if len(args) > 0 {
		if args[0] == "example" && len(args) == 1 {
			fmt.Fprint(a.out, config.ExampleConfig())
			return nil
		}
		return fmt.Errorf("config: unexpected arguments: %v", args)
	}

	for _, s := range a.sources.Settings() {
		fmt.Fprintf(a.out, "%-22s %-28s (%s)\n", s.Key, s.Value, s.Source)
	}
	if len(a.sources.Files) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Files:")
		for _, f := range a.sources.Files {
			fmt.Fprintf(a.out, "  %s\n", f)
		}
	}
	return nil
}
