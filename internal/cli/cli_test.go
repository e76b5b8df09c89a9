package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amirbrooks/tasktrack/internal/store"
	"github.com/amirbrooks/tasktrack/internal/task"
)

type harness struct {
	t      *testing.T
	file   string
	config string
}

func newHarness(t *testing.T, name string) *harness {
	t.Helper()
	t.Setenv("TASKTRACK_FILE", "")
	t.Setenv("TASKTRACK_CONFIG", "")
	t.Setenv("TASKTRACK_LOG_LEVEL", "")
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("clear_screen: false\ncolor: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{t: t, file: filepath.Join(dir, name), config: cfg}
}

func (h *harness) run(stdin string, args ...string) (int, string, string) {
	h.t.Helper()
	all := append([]string{"--config", h.config, "--file", h.file}, args...)
	var out, errOut bytes.Buffer
	code := RunIO(all, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.run("", args...)
	if code != ExitOK {
		h.t.Fatalf("%v: exit %d, stderr: %s", args, code, errOut)
	}
	return out
}

func (h *harness) tasks() []task.Task {
	h.t.Helper()
	s, err := store.Open(h.file)
	if err != nil {
		h.t.Fatalf("open store: %v", err)
	}
	return s.Tasks()
}

func TestAddAndList(t *testing.T) {
	h := newHarness(t, "tasks.json")
	out := h.mustRun("add", "Купить", "хлеб", "--category", "работа", "--priority", "высок", "--due", "2024-12-31")
	if !strings.Contains(out, "Added task #0: Купить хлеб") {
		t.Fatalf("add output: %q", out)
	}
	h.mustRun("add", "--desc", "вечером", "Позвонить маме", "--category", "личное")

	out = h.mustRun("--plain", "ls")
	want := "0\tработа\tвысокий\tв процессе\t2024-12-31 00:00\tКупить хлеб"
	if !strings.Contains(out, want) {
		t.Fatalf("ls output missing %q:\n%s", want, out)
	}
	if !strings.Contains(out, "1\tличное\tотсутствует") {
		t.Fatalf("ls output missing second task:\n%s", out)
	}

	out = h.mustRun("--plain", "ls", "--category", "лично")
	if strings.Contains(out, "Купить хлеб") || !strings.Contains(out, "Позвонить маме") {
		t.Fatalf("filtered ls:\n%s", out)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, "tasks.json")
	cases := [][]string{
		{"add", "Task", "--category", "xyz"},
		{"add", "Task", "--due", "tomorrow-ish"},
		{"add", "!bad"},
	}
	for _, args := range cases {
		code, _, errOut := h.run("", args...)
		if code != ExitInvalid {
			t.Errorf("%v: exit %d, want %d (stderr %q)", args, code, ExitInvalid, errOut)
		}
	}
	if code, _, _ := h.run("", "add"); code != ExitUsage {
		t.Errorf("add without title: exit %d", code)
	}
	if n := len(h.tasks()); n != 0 {
		t.Fatalf("%d tasks stored after rejected adds", n)
	}
}

func TestAddBlankFlagsTakeDefaults(t *testing.T) {
	h := newHarness(t, "tasks.json")
	h.mustRun("add", "Пустые", "--category", "  ", "--priority", "", "--status", " ", "--due", "")
	got := h.tasks()
	if len(got) != 1 {
		t.Fatalf("stored = %+v", got)
	}
	if got[0].Category != task.DefaultCategory || got[0].Priority != task.DefaultPriority || got[0].Status != task.DefaultStatus {
		t.Fatalf("stored = %+v", got[0])
	}
}

func TestSearchCommand(t *testing.T) {
	h := newHarness(t, "tasks.json")
	h.mustRun("add", "Задача 1", "--desc", "Описание задачи 1", "--category", "работа", "--priority", "высокий")
	h.mustRun("add", "Личная задача", "--category", "личное")

	out := h.mustRun("--plain", "search", "/Задача/")
	if !strings.Contains(out, "Задача 1") || strings.Contains(out, "Личная задача") {
		t.Fatalf("regex search:\n%s", out)
	}
	out = h.mustRun("--plain", "search", "--field", "priority", "^выс")
	if !strings.Contains(out, "Задача 1") {
		t.Fatalf("field search:\n%s", out)
	}
	out = h.mustRun("search", "nothing-here")
	if !strings.Contains(out, "No tasks matched your query.") {
		t.Fatalf("empty search: %q", out)
	}
	if code, _, _ := h.run("", "search", "/(/"); code != ExitInvalid {
		t.Fatalf("invalid regex: exit %d", code)
	}
	if code, _, _ := h.run("", "search", "--field", "colour", "x"); code != ExitUsage {
		t.Fatalf("unknown field: exit %d", code)
	}
}

func TestShowSetDoneRm(t *testing.T) {
	h := newHarness(t, "tasks.json")
	h.mustRun("add", "Отчет", "--due", "2024-12-31 18:00")

	out := h.mustRun("show", "0")
	for _, want := range []string{"Task #0: Отчет", "Category: другое", "Due: 2024-12-31 18:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
	if code, _, _ := h.run("", "show", "7"); code != ExitNotFound {
		t.Fatalf("show unknown: exit %d", code)
	}
	if code, _, _ := h.run("", "show", "abc"); code != ExitInvalid {
		t.Fatalf("show non-number: exit %d", code)
	}

	h.mustRun("set", "0", "category", "досуг")
	h.mustRun("set", "0", "description", "квартальный", "отчет")
	if code, _, _ := h.run("", "set", "0", "id", "5"); code != ExitUsage {
		t.Fatalf("set id: exit %d", code)
	}
	if code, _, _ := h.run("", "set", "0", "status", "zzz"); code != ExitInvalid {
		t.Fatalf("set bad status: exit %d", code)
	}
	h.mustRun("done", "0")

	got := h.tasks()
	if len(got) != 1 || got[0].Category != task.CategoryLeisure || got[0].Description != "квартальный отчет" || got[0].Status != task.StatusDone {
		t.Fatalf("stored task = %+v", got)
	}

	h.mustRun("rm", "0")
	if code, _, _ := h.run("", "rm", "0"); code != ExitNotFound {
		t.Fatalf("rm twice: exit %d", code)
	}
}

func TestExportCommand(t *testing.T) {
	h := newHarness(t, "tasks.yaml")
	h.mustRun("add", "Export me")
	dir := filepath.Join(t.TempDir(), "snap")
	out := h.mustRun("--quiet", "export", "--format", "toml", "--dir", dir)
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".toml" {
		t.Fatalf("export path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if code, _, _ := h.run("", "export", "--format", "xml"); code != ExitUsage {
		t.Fatalf("bad format: exit %d", code)
	}
}

func TestCorruptFile(t *testing.T) {
	h := newHarness(t, "tasks.json")
	if err := os.WriteFile(h.file, []byte("{invalid_json}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, errOut := h.run("", "ls")
	if code != ExitInternal || !strings.Contains(errOut, "invalid persisted data") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestHelpAndUnknownCommand(t *testing.T) {
	h := newHarness(t, "tasks.json")
	code, out, _ := h.run("", "help")
	if code != ExitOK || !strings.Contains(out, "Usage:") {
		t.Fatalf("help: exit %d, out %q", code, out)
	}
	if code, _, _ := h.run("", "frobnicate"); code != ExitUsage {
		t.Fatalf("unknown command: exit %d", code)
	}
}

func TestExtractGlobalFlags(t *testing.T) {
	gf, rest, err := extractGlobalFlags([]string{"--format", "yaml", "export", "--plain", "--format", "toml", "--file", "t.yaml"})
	if err != nil {
		t.Fatalf("extractGlobalFlags: %v", err)
	}
	if gf.Format != "yaml" || gf.File != "t.yaml" || !gf.Plain {
		t.Fatalf("gf = %+v", gf)
	}
	if strings.Join(rest, " ") != "export --format toml" {
		t.Fatalf("rest = %v", rest)
	}

	gf, rest, err = extractGlobalFlags([]string{"ls", "--format", "toml"})
	if err != nil || gf.Format != "toml" || strings.Join(rest, " ") != "ls" {
		t.Fatalf("gf = %+v, rest = %v, err = %v", gf, rest, err)
	}

	for _, args := range [][]string{{"--file"}, {"--quiet", "--verbose"}, {"ls", "--format"}} {
		if _, _, err := extractGlobalFlags(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestReorderFlags(t *testing.T) {
	got := reorderFlags([]string{"title", "--due", "1d", "words", "--", "--literal"}, map[string]bool{"--due": true})
	want := "--due 1d title words --literal"
	if strings.Join(got, " ") != want {
		t.Fatalf("reorderFlags = %v", got)
	}
}
