package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nibzard/todos-go/internal/todo"
)

// isolate points config lookup at empty temp dirs and returns a data file
// path inside a fresh project directory.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	project := filepath.Join(root, "project")
	for _, dir := range []string{home, project} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, k := range []string{
		"TODOS_DATA", "TODOS_RESET_IDS", "TODOS_ADDR",
		"TODOS_LOG_LEVEL", "TODOS_LOG_FORMAT", "TODOS_LOG_TIMESTAMPS", "TODOS_LOG_CALLER",
	} {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return filepath.Join(project, "todos.json")
}

// todos runs the CLI against data and returns stdout.
func todos(t *testing.T, data string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-data", data}, args...), &out)
	return out.String(), err
}

func mustTodos(t *testing.T, data string, args ...string) string {
	t.Helper()
	out, err := todos(t, data, args...)
	if err != nil {
		t.Fatalf("todos %v failed: %v", args, err)
	}
	return out
}

func seeded(t *testing.T) string {
	t.Helper()
	data := isolate(t)
	mustTodos(t, data, "init", "-seed")
	return data
}

func TestRun(t *testing.T) {
	isolate(t)

	t.Run("help flag", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(context.Background(), []string{"--help"}, &out); err != nil {
			t.Fatalf("--help: %v", err)
		}
		if !strings.Contains(out.String(), "Commands:") {
			t.Errorf("usage not printed:\n%s", out.String())
		}
	})

	t.Run("help command", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(context.Background(), []string{"help"}, &out); err != nil {
			t.Fatalf("help: %v", err)
		}
		if !strings.Contains(out.String(), "-data") {
			t.Errorf("global flags missing from usage:\n%s", out.String())
		}
	})

	t.Run("version", func(t *testing.T) {
		for _, args := range [][]string{{"version"}, {"-v"}, {"--version"}} {
			var out bytes.Buffer
			if err := run(context.Background(), args, &out); err != nil {
				t.Fatalf("%v: %v", args, err)
			}
			if out.String() != "todos version dev\n" {
				t.Errorf("%v: got %q", args, out.String())
			}
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("got %v, want unknown command error", err)
		}
	})

	t.Run("unknown global flag", func(t *testing.T) {
		err := run(context.Background(), []string{"-bogus"}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "loading config") {
			t.Errorf("got %v, want config error", err)
		}
	})
}

func TestListEmpty(t *testing.T) {
	data := isolate(t)

	out := mustTodos(t, data)
	if !strings.Contains(out, "No tasks.") {
		t.Errorf("default command output: %q", out)
	}
	if _, err := os.Stat(data); !os.IsNotExist(err) {
		t.Errorf("listing created the data file: %v", err)
	}
}

func TestAddAndList(t *testing.T) {
	data := seeded(t)

	if out := mustTodos(t, data, "add", "demo", "it", "(#2,", "#3,", "#9)"); out != "#4\n" {
		t.Fatalf("add output: got %q, want #4", out)
	}
	if out := mustTodos(t, data, "add", "--", "-3 degrees"); out != "#5\n" {
		t.Fatalf("add after --: got %q, want #5", out)
	}
	if out := mustTodos(t, data, "add", "fix", "-v", "flag"); out != "#6\n" {
		t.Fatalf("add with dash word: got %q, want #6", out)
	}

	want := strings.Join([]string{
		"[x] #1 do the laundry",
		"[ ] #2 make a todo app",
		"[ ] #3 show todo app to santi (#2) BLOCKED",
		"[ ] #4 demo it (#2, #3) BLOCKED",
		"[ ] #5 -3 degrees",
		"[ ] #6 fix -v flag",
		"",
	}, "\n")
	if out := mustTodos(t, data, "ls"); out != want {
		t.Errorf("ls:\ngot:\n%s\nwant:\n%s", out, want)
	}

	snap, err := todo.LoadSnapshot(data)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap.Tasks) != 6 || snap.NextID != 7 {
		t.Errorf("snapshot: %d tasks, next_id %d", len(snap.Tasks), snap.NextID)
	}
}

func TestListFilters(t *testing.T) {
	data := seeded(t)

	tests := []struct {
		flag string
		want string
	}{
		{"-ready", "[ ] #2 make a todo app\n"},
		{"-blocked", "[ ] #3 show todo app to santi (#2) BLOCKED\n"},
		{"-done", "[x] #1 do the laundry\n"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if out := mustTodos(t, data, "ls", tt.flag); out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}

	if _, err := todos(t, data, "ls", "-ready", "-done"); err == nil {
		t.Error("expected error for two filters")
	}

	out := mustTodos(t, data, "ls", "-v")
	if !strings.Contains(out, "Ready: 1  Blocked: 1  Done: 1") {
		t.Errorf("verbose output missing counts:\n%s", out)
	}
	if !strings.Contains(out, "Session: ") {
		t.Errorf("verbose output missing session:\n%s", out)
	}
}

func TestAddBlankText(t *testing.T) {
	data := isolate(t)
	_, err := todos(t, data, "add", "   ")
	if !errors.Is(err, errNoText) {
		t.Errorf("got %v, want errNoText", err)
	}
}

func TestAddTooLong(t *testing.T) {
	data := isolate(t)
	_, err := todos(t, data, "add", strings.Repeat("x", todo.MaxDescriptionLength+1))
	var ve *todo.ValidationError
	if !errors.As(err, &ve) || !ve.Has("description", todo.RuleMaxLength) {
		t.Errorf("got %v, want max_length violation", err)
	}
}

func TestDoneRespectsPrerequisites(t *testing.T) {
	data := seeded(t)

	_, err := todos(t, data, "done", "3")
	if !errors.Is(err, todo.ErrBlocked) {
		t.Fatalf("done #3: got %v, want ErrBlocked", err)
	}
	if !strings.Contains(err.Error(), "waiting on #2") {
		t.Errorf("error does not name the open prerequisite: %v", err)
	}

	if out := mustTodos(t, data, "done", "#2"); out != "[x] #2 make a todo app\n" {
		t.Errorf("done #2: got %q", out)
	}
	if out := mustTodos(t, data, "done", "3"); out != "[x] #3 show todo app to santi (#2)\n" {
		t.Errorf("done #3: got %q", out)
	}

	// done never reopens; toggle does
	if out := mustTodos(t, data, "done", "1"); out != "[x] #1 do the laundry\n" {
		t.Errorf("done #1: got %q", out)
	}
	if out := mustTodos(t, data, "toggle", "1"); out != "[ ] #1 do the laundry\n" {
		t.Errorf("toggle #1: got %q", out)
	}
}

func TestNotFound(t *testing.T) {
	data := seeded(t)

	for _, cmd := range []string{"show", "toggle", "done", "rm"} {
		t.Run(cmd, func(t *testing.T) {
			_, err := todos(t, data, cmd, "9")
			if err == nil || err.Error() != "task #9 not found" {
				t.Errorf("got %v, want task #9 not found", err)
			}
		})
	}

	_, err := todos(t, data, "edit", "9", "anything")
	if err == nil || err.Error() != "task #9 not found" {
		t.Errorf("edit: got %v", err)
	}
}

func TestInvalidIDs(t *testing.T) {
	data := seeded(t)

	tests := [][]string{
		{"show"},
		{"show", "abc"},
		{"show", "0"},
		{"rm", "1", "2"},
		{"toggle", "1.5"},
	}
	for _, args := range tests {
		if _, err := todos(t, data, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestShow(t *testing.T) {
	data := seeded(t)

	want := "[ ] #3 show todo app to santi (#2) BLOCKED\n  needs [ ] #2 make a todo app\n"
	if out := mustTodos(t, data, "show", "3"); out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestEdit(t *testing.T) {
	data := seeded(t)

	_, err := todos(t, data, "edit", "3", "show", "todo", "app", "(#2, #3)", "-done")
	if !errors.Is(err, todo.ErrBlocked) {
		t.Fatalf("edit -done with open prerequisite: got %v, want ErrBlocked", err)
	}
	if !strings.HasSuffix(err.Error(), "(waiting on #2)") {
		t.Errorf("error should name only #2: %v", err)
	}
	if out := mustTodos(t, data, "show", "3"); !strings.HasPrefix(out, "[ ] #3 show todo app to santi (#2) BLOCKED\n") {
		t.Errorf("refused edit was saved: %q", out)
	}

	if out := mustTodos(t, data, "edit", "1", "wash", "clothes"); out != "[x] #1 wash clothes\n" {
		t.Errorf("edit keeps done: got %q", out)
	}
	if out := mustTodos(t, data, "edit", "3", "show", "it", "(#1, #3)", "-done"); out != "[x] #3 show it (#1)\n" {
		t.Errorf("edit -done: got %q", out)
	}
	if out := mustTodos(t, data, "edit", "-open", "1", "wash"); out != "[ ] #1 wash\n" {
		t.Errorf("edit -open: got %q", out)
	}

	if _, err := todos(t, data, "edit", "1", "x", "-done", "-open"); err == nil {
		t.Error("expected error for -done with -open")
	}
	if _, err := todos(t, data, "edit", "1"); !errors.Is(err, errNoText) {
		t.Errorf("edit without text: got %v", err)
	}
}

func TestRemoveCascades(t *testing.T) {
	data := seeded(t)

	if out := mustTodos(t, data, "rm", "2"); out != "deleted #2\n" {
		t.Errorf("rm: got %q", out)
	}
	if out := mustTodos(t, data, "show", "3"); out != "[ ] #3 show todo app to santi\n" {
		t.Errorf("show after rm: got %q", out)
	}
	if out := mustTodos(t, data, "add", "next"); out != "#4\n" {
		t.Errorf("ids reused after rm: got %q", out)
	}
}

func TestResetIDsWhenEmpty(t *testing.T) {
	data := isolate(t)
	t.Setenv("TODOS_RESET_IDS", "true")

	mustTodos(t, data, "add", "a")
	mustTodos(t, data, "add", "b")
	mustTodos(t, data, "rm", "1")
	mustTodos(t, data, "rm", "2")
	if out := mustTodos(t, data, "add", "c"); out != "#1\n" {
		t.Errorf("add after emptying: got %q, want #1", out)
	}
}

func TestParse(t *testing.T) {
	data := seeded(t)

	out := mustTodos(t, data, "parse", "ship", "(#2, #2, #7)")
	var d todo.Draft
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("parse output is not JSON: %v\n%s", err, out)
	}
	if d.Description != "ship" || !reflect.DeepEqual(d.DependsOn, []int{2}) {
		t.Errorf("draft: %+v", d)
	}

	snap, _ := todo.LoadSnapshot(data)
	if len(snap.Tasks) != 3 {
		t.Errorf("parse saved a task: %d tasks", len(snap.Tasks))
	}
}

func TestExport(t *testing.T) {
	data := seeded(t)

	out := mustTodos(t, data, "export")
	var views []todo.TaskView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("json export: %v", err)
	}
	if len(views) != 3 || !views[2].IsBlocked {
		t.Errorf("views: %+v", views)
	}

	out = mustTodos(t, data, "export", "-format", "yaml")
	for _, want := range []string{"- id: 3", "description: show todo app to santi", "isBlocked: true", "dependsOn:"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml export missing %q:\n%s", want, out)
		}
	}

	if _, err := todos(t, data, "export", "-format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestInit(t *testing.T) {
	data := isolate(t)

	if out := mustTodos(t, data, "init", "-config"); !strings.Contains(out, "(0 tasks)") {
		t.Errorf("init: got %q", out)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(data), "todos.toml")); err != nil {
		t.Errorf("todos.toml not written: %v", err)
	}

	if _, err := todos(t, data, "init", "-seed"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("init over existing: got %v", err)
	}
	if out := mustTodos(t, data, "init", "-seed", "-force"); !strings.Contains(out, "(3 tasks)") {
		t.Errorf("init -force: got %q", out)
	}
}

func TestInitNestedDataFile(t *testing.T) {
	isolate(t)
	data := filepath.Join(t.TempDir(), "a", "b", "todos.json")
	mustTodos(t, data, "init")
	if _, err := os.Stat(data); err != nil {
		t.Errorf("data file not created: %v", err)
	}
}

func TestCorruptDataFile(t *testing.T) {
	data := isolate(t)
	if err := os.WriteFile(data, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := todos(t, data, "ls")
	if err == nil || !strings.Contains(err.Error(), "parse snapshot") {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestInvalidSnapshotRejected(t *testing.T) {
	data := isolate(t)
	content := `{"schema_version": 1, "next_id": 3, "tasks": [
  {"id": 1, "description": "a", "done": false, "dependsOn": []},
  {"id": 1, "description": "b", "done": false, "dependsOn": []}
]}`
	if err := os.WriteFile(data, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := todos(t, data, "ls"); err == nil {
		t.Error("expected error for duplicate ids")
	}
}

func TestConfigCommand(t *testing.T) {
	data := isolate(t)
	t.Setenv("TODOS_ADDR", ":9999")

	out := mustTodos(t, data, "config")
	for _, want := range []string{"data_file", "(flag)", ":9999", "(environment)", "log_level", "(default)"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}

	out = mustTodos(t, data, "config", "example")
	if !strings.Contains(out, "reset_ids_when_empty") {
		t.Errorf("example config: %q", out)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPos  []string
		wantDone bool
		wantErr  bool
	}{
		{"positional only", []string{"1", "buy", "milk"}, []string{"1", "buy", "milk"}, false, false},
		{"flag first", []string{"-done", "1", "x"}, []string{"1", "x"}, true, false},
		{"flag last", []string{"1", "x", "-done"}, []string{"1", "x"}, true, false},
		{"flag between", []string{"1", "-done", "x"}, []string{"1", "x"}, true, false},
		{"double dash", []string{"1", "--", "-done", "x"}, []string{"1", "-done", "x"}, false, false},
		{"unknown flag", []string{"1", "-nope"}, nil, false, true},
		{"empty", nil, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(&bytes.Buffer{})
			done := fs.Bool("done", false, "")

			got, err := parseArgs(fs, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.wantPos) || (len(got) > 0 && !reflect.DeepEqual(got, tt.wantPos)) {
				t.Errorf("positional: got %v, want %v", got, tt.wantPos)
			}
			if *done != tt.wantDone {
				t.Errorf("done: got %v, want %v", *done, tt.wantDone)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"#12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"x", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}
