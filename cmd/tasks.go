package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/todos-go/internal/todo"
	"github.com/nibzard/todos-go/internal/ui"
)

// addCommand parses the text into a draft and stores it. add takes no
// flags, so words starting with "-" are part of the text.
func (a *app) addCommand(args []string) error {
	words := args
	if len(words) > 0 && words[0] == "--" {
		words = words[1:]
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	draft, ok := todo.ParseDraft(strings.Join(words, " "), store)
	if !ok {
		return errNoText
	}
	id, err := store.CreateGated(draft.Input())
	if err != nil {
		return err
	}
	if err := a.saveStore(store); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "#%d\n", id)
	return nil
}

// lsCommand prints tasks in insertion order.
func (a *app) lsCommand(args []string) error {
	fs := newFlagSet("ls")
	verbose := fs.Bool("v", false, "Show counts and session details")
	onlyReady := fs.Bool("ready", false, "Only tasks that can be completed now")
	onlyBlocked := fs.Bool("blocked", false, "Only tasks waiting on prerequisites")
	onlyDone := fs.Bool("done", false, "Only completed tasks")

	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("ls: unexpected arguments: %v", rest)
	}

	selected := 0
	for _, on := range []bool{*onlyReady, *onlyBlocked, *onlyDone} {
		if on {
			selected++
		}
	}
	if selected > 1 {
		return errors.New("ls: use only one of -ready, -blocked, -done")
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	views := store.List()

	shown := 0
	for _, v := range views {
		switch {
		case *onlyReady && (v.Done || v.IsBlocked):
			continue
		case *onlyBlocked && (v.Done || !v.IsBlocked):
			continue
		case *onlyDone && !v.Done:
			continue
		}
		fmt.Fprintln(a.out, ui.FormatLine(v))
		shown++
	}
	if shown == 0 && selected == 0 {
		fmt.Fprintln(a.out, "No tasks. Add one with: todos add <text>")
	}

	if *verbose {
		var ready, blocked, done int
		for _, v := range views {
			switch {
			case v.Done:
				done++
			case v.IsBlocked:
				blocked++
			default:
				ready++
			}
		}
		fmt.Fprintln(a.out)
		fmt.Fprintf(a.out, "Ready: %d  Blocked: %d  Done: %d\n", ready, blocked, done)
		fmt.Fprintf(a.out, "Data file: %s\n", a.cfg.DataFile)
		if id := store.SessionID(); id != "" {
			fmt.Fprintf(a.out, "Session: %s\n", id)
		}
	}
	return nil
}

// showCommand prints one task followed by its prerequisites.
func (a *app) showCommand(args []string) error {
	id, err := singleID("show", args)
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	v, ok := store.Get(id)
	if !ok {
		return notFound(id)
	}

	fmt.Fprintln(a.out, ui.FormatLine(v))
	for _, dep := range v.DependsOn {
		if dv, ok := store.Get(dep); ok {
			fmt.Fprintf(a.out, "  needs %s\n", ui.FormatLine(dv))
		}
	}
	return nil
}

// editCommand replaces the description and prerequisites of a task.
// The done flag is kept unless -done or -open is given.
func (a *app) editCommand(args []string) error {
	fs := newFlagSet("edit")
	markDone := fs.Bool("done", false, "Mark the task done")
	markOpen := fs.Bool("open", false, "Mark the task not done")

	rest, err := parseArgs(fs, args)
	if err != nil {
		return fmt.Errorf("edit: %w (put text starting with - after --)", err)
	}
	if *markDone && *markOpen {
		return errors.New("edit: use only one of -done, -open")
	}
	if len(rest) == 0 {
		return errors.New("edit: missing task id")
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	current, ok := store.Get(id)
	if !ok {
		return notFound(id)
	}
	draft, ok := todo.ParseDraft(strings.Join(rest[1:], " "), store)
	if !ok {
		return errNoText
	}

	in := draft.Input()
	in.Done = current.Done
	switch {
	case *markDone:
		in.Done = true
	case *markOpen:
		in.Done = false
	}

	found, err := store.UpdateGated(id, in)
	if !found {
		return notFound(id)
	}
	if errors.Is(err, todo.ErrBlocked) {
		deps := make([]int, 0, len(draft.DependsOn))
		for _, dep := range draft.DependsOn {
			if dep != id {
				deps = append(deps, dep)
			}
		}
		return fmt.Errorf("task #%d: %w (waiting on %s)", id, err, openRefs(store, deps))
	}
	if err != nil {
		return err
	}
	if err := a.saveStore(store); err != nil {
		return err
	}

	v, _ := store.Get(id)
	fmt.Fprintln(a.out, ui.FormatLine(v))
	return nil
}

// toggleCommand flips a task's done flag. With onlyComplete set a done
// task is left alone.
func (a *app) toggleCommand(args []string, onlyComplete bool) error {
	name := "toggle"
	if onlyComplete {
		name = "done"
	}
	id, err := singleID(name, args)
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	v, ok := store.Get(id)
	if !ok {
		return notFound(id)
	}
	if onlyComplete && v.Done {
		fmt.Fprintln(a.out, ui.FormatLine(v))
		return nil
	}
	if _, err := store.ToggleGated(id); err != nil {
		return blockedError(store, id, err)
	}
	if err := a.saveStore(store); err != nil {
		return err
	}
	v, _ = store.Get(id)
	fmt.Fprintln(a.out, ui.FormatLine(v))
	return nil
}

// blockedError names the open prerequisites of task id.
func blockedError(store *todo.Store, id int, err error) error {
	v, _ := store.Get(id)
	return fmt.Errorf("task #%d: %w (waiting on %s)", id, err, openRefs(store, v.DependsOn))
}

// openRefs lists the ids in deps that are not done as "#2, #5".
func openRefs(store *todo.Store, deps []int) string {
	var refs []string
	for _, dep := range deps {
		if dv, ok := store.Get(dep); ok && !dv.Done {
			refs = append(refs, fmt.Sprintf("#%d", dep))
		}
	}
	return strings.Join(refs, ", ")
}

func (a *app) rmCommand(args []string) error {
	id, err := singleID("rm", args)
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if !store.Delete(id) {
		return notFound(id)
	}
	if err := a.saveStore(store); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted #%d\n", id)
	return nil
}

// parseCommand prints the draft that text would produce.
func (a *app) parseCommand(args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	draft, ok := todo.ParseDraft(strings.Join(args, " "), store)
	if !ok {
		return errNoText
	}
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// exportCommand prints every task view.
func (a *app) exportCommand(args []string) error {
	fs := newFlagSet("export")
	format := fs.String("format", "json", "Output format (json|yaml)")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("export: unexpected arguments: %v", rest)
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	views := store.List()

	switch strings.ToLower(*format) {
	case "json":
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
	case "yaml", "yml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: unknown format %q (expected json|yaml)", *format)
	}
	return nil
}
