package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/amirbrooks/tasktrack/internal/config"
	"github.com/amirbrooks/tasktrack/internal/due"
	"github.com/amirbrooks/tasktrack/internal/fuzzy"
	"github.com/amirbrooks/tasktrack/internal/store"
	"github.com/amirbrooks/tasktrack/internal/task"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitInvalid  = 5
	ExitInternal = 10
)

type GlobalFlags struct {
	File    string
	Config  string
	Format  string
	Plain   bool
	Quiet   bool
	Verbose bool
	NoColor bool
}

// env is what every command runs against.
type env struct {
	st    *store.Store
	cfg   *config.Config
	gf    GlobalFlags
	in    io.Reader
	out   io.Writer
	err   io.Writer
	style *styles
	log   *slog.Logger
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	return RunIO(args, os.Stdin, os.Stdout, os.Stderr)
}

// RunIO is Run with explicit streams.
func RunIO(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return ExitUsage
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "help", "--help", "-h":
			printHelp(stdout)
			return ExitOK
		}
	}

	cfg, err := config.Load(gf.Config)
	if err != nil {
		fmt.Fprintln(stderr, "tasktrack:", err)
		return exitCode(err)
	}
	if gf.File != "" {
		cfg.File = gf.File
	}
	if gf.Format != "" {
		cfg.Format = gf.Format
	}
	if gf.NoColor {
		cfg.Color = false
	}
	format, err := store.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintln(stderr, "tasktrack:", err)
		return ExitUsage
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	switch {
	case gf.Verbose:
		level = slog.LevelDebug
	case gf.Quiet:
		level = slog.LevelError
	}
	logger := config.NewLogger(stderr, level)
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}

	st, err := store.Open(cfg.File, store.WithFormat(format), store.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(stderr, "tasktrack:", err)
		return exitCode(err)
	}

	e := &env{
		st:    st,
		cfg:   cfg,
		gf:    gf,
		in:    stdin,
		out:   stdout,
		err:   stderr,
		style: newStyles(cfg.Color),
		log:   logger,
	}

	if len(rest) == 0 {
		return runShell(e)
	}
	cmd := rest[0]
	cmdArgs := rest[1:]

	switch cmd {
	case "shell":
		return runShell(e)
	case "add":
		return cmdAdd(e, cmdArgs)
	case "ls", "list":
		return cmdList(e, cmdArgs)
	case "search", "find":
		return cmdSearch(e, cmdArgs)
	case "show":
		return cmdShow(e, cmdArgs)
	case "set", "edit":
		return cmdSet(e, cmdArgs)
	case "done":
		return cmdDone(e, cmdArgs)
	case "rm", "remove":
		return cmdRm(e, cmdArgs)
	case "export":
		return cmdExport(e, cmdArgs)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", cmd)
		printHelp(stderr)
		return ExitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `tasktrack: a personal task tracker

Usage:
  tasktrack [global flags] [command] [args]

Without a command the interactive shell starts.

Global flags:
  --file <path>     Task file (default: tasks.json, TASKTRACK_FILE or config "file")
  --config <path>   Config file (default: ~/.config/tasktrack/config.yaml or TASKTRACK_CONFIG)
  --format <f>      Task file format json|yaml|toml (default: from extension)
  --plain           TSV output
  --no-color        Disable styling
  --quiet
  --verbose

Commands:
  add "<title>" [--desc <d>] [--category <c>] [--due <expr>] [--priority <p>] [--status <s>]
  ls [--category <c>] [--priority <p>] [--status <s>] [--cards]
  search [--field <f>] [--cards] <query>
  show <id>
  set <id> <field> <value>
  done <id>
  rm <id> [<id>...]
  export [--format json|yaml|toml] [--dir <path>]
  shell
  help

Search queries:
  /pattern/   regular expression over title, description, category, status
  ^text       prefix of any field, including id and due date
  text        substring of any field except id and priority

Due dates:
  2024-12-31, "2024-12-31 18:00", 18:00, or offsets like 1d, "2h 30m", 1mo, 1y
  (unit words: `+strings.Join(due.Synonyms(), " ")+`)

Fields:
  title|description|category|due_date|priority|status

Values:
  category: `+strings.Join(task.Categories, ", ")+`
  priority: `+strings.Join(task.Priorities, ", ")+`
  status:   `+strings.Join(task.Statuses, ", ")+`
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{}

	out := make([]string, 0, len(args))
	skip := 0

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		switch a {
		case "--file", "--config":
			if i+1 >= len(args) {
				return gf, nil, fmt.Errorf("%s requires a value", a)
			}
			if a == "--file" {
				gf.File = args[i+1]
			} else {
				gf.Config = args[i+1]
			}
			skip = 1
		case "--plain":
			gf.Plain = true
		case "--no-color":
			gf.NoColor = true
		case "--quiet":
			gf.Quiet = true
		case "--verbose":
			gf.Verbose = true
		default:
			out = append(out, a)
		}
	}
	if gf.Quiet && gf.Verbose {
		return gf, nil, errors.New("--quiet and --verbose are mutually exclusive")
	}

	// --format is global except after the export command, where it selects
	// the snapshot format.
	kept := make([]string, 0, len(out))
	command := ""
	for i := 0; i < len(out); i++ {
		a := out[i]
		if a == "--" {
			kept = append(kept, out[i:]...)
			break
		}
		if a == "--format" && command != "export" {
			if i+1 >= len(out) {
				return gf, nil, errors.New("--format requires a value")
			}
			gf.Format = out[i+1]
			i++
			continue
		}
		if command == "" && !strings.HasPrefix(a, "-") {
			command = a
		}
		kept = append(kept, a)
	}
	out = kept
	return gf, out, nil
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrInvalidPersistedData):
		return ExitInternal
	case errors.Is(err, fuzzy.ErrInvalidEnumValue),
		errors.Is(err, due.ErrInvalidDueDate),
		errors.Is(err, task.ErrInvalidTitle),
		errors.Is(err, task.ErrInvalidID),
		errors.Is(err, store.ErrInvalidPattern),
		errors.Is(err, config.ErrInvalid):
		return ExitInvalid
	default:
		return ExitInternal
	}
}

func (e *env) fail(cmd string, err error) int {
	fmt.Fprintln(e.err, cmd+":", err)
	return exitCode(err)
}

func (e *env) info(format string, a ...any) {
	if e.gf.Quiet {
		return
	}
	fmt.Fprintf(e.out, format, a...)
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.err)
	return fs
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", task.ErrInvalidID, s)
	}
	return id, nil
}

// optional maps blank user input to nil so the task defaults apply.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func cmdAdd(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--desc":     true,
		"--category": true,
		"--due":      true,
		"--priority": true,
		"--status":   true,
	})
	fs := newFlagSet(e, "add")
	desc := fs.String("desc", "", "Description")
	category := fs.String("category", "", "Category ("+strings.Join(task.Categories, "|")+")")
	dueExpr := fs.String("due", "", "Due date or offset (default: now)")
	priority := fs.String("priority", "", "Priority ("+strings.Join(task.Priorities, "|")+")")
	status := fs.String("status", "", "Status ("+strings.Join(task.Statuses, "|")+")")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(e.err, "Usage: tasktrack add \"<title>\" [--desc d] [--category c] [--due expr] [--priority p] [--status s]")
		return ExitUsage
	}
	t, err := e.st.Add(task.Input{
		Title:       strings.Join(rest, " "),
		Description: strings.TrimSpace(*desc),
		Category:    optional(*category),
		Due:         optional(*dueExpr),
		Priority:    optional(*priority),
		Status:      optional(*status),
	})
	if err != nil {
		return e.fail("add", err)
	}
	e.info("Added task #%d: %s\n", t.ID, t.Title)
	return ExitOK
}

func cmdList(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--category": true,
		"--priority": true,
		"--status":   true,
		"--cards":    false,
	})
	fs := newFlagSet(e, "ls")
	category := fs.String("category", "", "Only this category")
	priority := fs.String("priority", "", "Only this priority")
	status := fs.String("status", "", "Only this status")
	cards := fs.Bool("cards", false, "Render tasks as cards")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	type filter struct {
		field   task.Field
		value   string
		allowed []string
	}
	var filters []filter
	for _, f := range []filter{
		{task.FieldCategory, *category, task.Categories},
		{task.FieldPriority, *priority, task.Priorities},
		{task.FieldStatus, *status, task.Statuses},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		v, err := fuzzy.Normalize(f.value, f.allowed)
		if err != nil {
			return e.fail("ls", fmt.Errorf("%s: %w", f.field, err))
		}
		f.value = v
		filters = append(filters, f)
	}

	var tasks []task.Task
	for _, t := range e.st.Tasks() {
		keep := true
		for _, f := range filters {
			if t.Value(f.field) != f.value {
				keep = false
				break
			}
		}
		if keep {
			tasks = append(tasks, t)
		}
	}
	e.printTasks(tasks, *cards, "No tasks to show.")
	return ExitOK
}

func (e *env) printTasks(tasks []task.Task, cards bool, empty string) {
	if len(tasks) == 0 {
		e.info("%s\n", empty)
		return
	}
	if cards && !e.gf.Plain {
		writeCards(e.out, e.style, tasks)
		return
	}
	writeTable(e.out, tasks, e.gf.Plain)
}

func cmdSearch(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--field": true,
		"--cards": false,
	})
	fs := newFlagSet(e, "search")
	fieldName := fs.String("field", "", "Restrict prefix and substring search to one field")
	cards := fs.Bool("cards", false, "Render tasks as cards")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(e.err, "Usage: tasktrack search [--field f] <query>")
		return ExitUsage
	}
	var field task.Field
	if strings.TrimSpace(*fieldName) != "" {
		f, ok := task.ParseField(*fieldName)
		if !ok || !task.IsUserField(f) {
			fmt.Fprintf(e.err, "search: unknown field %q (use %s)\n", *fieldName, fieldList("|"))
			return ExitUsage
		}
		field = f
	}
	tasks, err := e.st.Search(query, field)
	if err != nil {
		return e.fail("search", err)
	}
	e.printTasks(tasks, *cards, "No tasks matched your query.")
	return ExitOK
}

func fieldList(sep string) string {
	names := make([]string, 0, len(task.UserFields))
	for _, f := range task.UserFields {
		names = append(names, string(f))
	}
	return strings.Join(names, sep)
}

func cmdShow(e *env, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.err, "Usage: tasktrack show <id>")
		return ExitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return e.fail("show", err)
	}
	t, err := e.st.SearchByID(id)
	if err != nil {
		return e.fail("show", err)
	}
	writeCards(e.out, e.style, []task.Task{t})
	return ExitOK
}

func cmdSet(e *env, args []string) int {
	if len(args) < 3 {
		fmt.Fprintf(e.err, "Usage: tasktrack set <id> <%s> <value>\n", fieldList("|"))
		return ExitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return e.fail("set", err)
	}
	f, ok := task.ParseField(args[1])
	if !ok || !task.IsUserField(f) {
		fmt.Fprintf(e.err, "set: field %q cannot be edited (use %s)\n", args[1], fieldList("|"))
		return ExitUsage
	}
	t, err := e.st.Set(id, f, strings.Join(args[2:], " "))
	if err != nil {
		return e.fail("set", err)
	}
	e.info("Updated task #%d: %s = %s\n", t.ID, f, t.Value(f))
	return ExitOK
}

func cmdDone(e *env, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.err, "Usage: tasktrack done <id>")
		return ExitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return e.fail("done", err)
	}
	t, err := e.st.MarkDone(id)
	if err != nil {
		return e.fail("done", err)
	}
	e.info("Task #%d marked %s\n", t.ID, t.Status)
	return ExitOK
}

func cmdRm(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.err, "Usage: tasktrack rm <id> [<id>...]")
		return ExitUsage
	}
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return e.fail("rm", err)
		}
		if _, err := e.st.SearchByID(id); err != nil {
			return e.fail("rm", err)
		}
		ids = append(ids, id)
	}
	n, err := e.st.RemoveAll(ids)
	if err != nil {
		return e.fail("rm", err)
	}
	e.info("Removed %d task(s)\n", n)
	return ExitOK
}

func cmdExport(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--format": true,
		"--dir":    true,
	})
	fs := newFlagSet(e, "export")
	formatName := fs.String("format", "", "Snapshot format json|yaml|toml (default: task file format)")
	dir := fs.String("dir", "", "Export directory (default: config export_dir)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(e.err, "Usage: tasktrack export [--format f] [--dir d]")
		return ExitUsage
	}
	f, err := store.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintln(e.err, "export:", err)
		return ExitUsage
	}
	target := strings.TrimSpace(*dir)
	if target == "" {
		target = e.cfg.ResolvedExportDir()
	}
	path, err := e.st.Export(target, f)
	if err != nil {
		return e.fail("export", err)
	}
	if e.gf.Quiet {
		fmt.Fprintln(e.out, path)
	} else {
		fmt.Fprintln(e.out, "Wrote tasks to:", path)
	}
	return ExitOK
}
