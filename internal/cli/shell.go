package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/amirbrooks/tasktrack/internal/store"
	"github.com/amirbrooks/tasktrack/internal/task"
)

const clearSequence = "\033[H\033[2J"

// shell is the interactive menu loop. Domain errors are reported and the
// loop continues; end of input exits cleanly.
type shell struct {
	*env
	sc *bufio.Scanner
}

func runShell(e *env) int {
	sh := &shell{env: e, sc: bufio.NewScanner(e.in)}
	if err := sh.loop(); err != nil && !errors.Is(err, io.EOF) {
		return e.fail("shell", err)
	}
	return ExitOK
}

func (sh *shell) loop() error {
	for {
		if sh.st.Len() == 0 {
			sh.println("No tasks to show.")
			if err := sh.pause("Press Enter to add a task..."); err != nil {
				return err
			}
			sh.clear()
			if err := sh.add(); err != nil {
				return err
			}
			continue
		}

		sh.clear()
		sh.menu()
		choice, err := sh.prompt("Choose an action: ")
		if err != nil {
			return err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			err = sh.view()
		case "2":
			err = sh.add()
		case "3":
			err = sh.update()
		case "4":
			err = sh.remove()
		case "0":
			sh.println("Bye.")
			return nil
		default:
			sh.println("Invalid choice, try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (sh *shell) println(a ...any) {
	fmt.Fprintln(sh.out, a...)
}

// prompt prints label and reads one line. It returns io.EOF when input ends.
func (sh *shell) prompt(label string) (string, error) {
	fmt.Fprint(sh.out, label)
	if !sh.sc.Scan() {
		if err := sh.sc.Err(); err != nil {
			sh.log.Error("read input", "err", err)
		}
		fmt.Fprintln(sh.out)
		return "", io.EOF
	}
	return strings.TrimRight(sh.sc.Text(), "\r"), nil
}

func (sh *shell) pause(label string) error {
	_, err := sh.prompt("\n" + label)
	return err
}

func (sh *shell) back() error {
	return sh.pause("Press Enter to return...")
}

func (sh *shell) clear() {
	if sh.cfg.ClearScreen {
		fmt.Fprint(sh.out, clearSequence)
	}
}

// report prints a domain error without leaving the loop.
func (sh *shell) report(err error) {
	if errors.Is(err, store.ErrInvalidPattern) {
		sh.println(sh.style.failure("Invalid regular expression, try again."))
		return
	}
	sh.println(sh.style.failure("Error: " + err.Error()))
}

func (sh *shell) menu() {
	sh.println(sh.style.heading("Choose an action:"))
	sh.println("1. View / search tasks")
	sh.println("2. Add a task")
	sh.println("3. Update a task")
	sh.println("4. Delete tasks")
	sh.println("0. Exit")
}

func (sh *shell) searchHelp() {
	sh.println("Search options:")
	sh.println("- substring match, e.g. 'работа'")
	sh.println("- regular expression between slashes, e.g. '/\\d{4}-\\d{2}-\\d{2}/'")
	sh.println("- prefix match with a leading caret, e.g. '^личное'")
}

func (sh *shell) showTasks(tasks []task.Task) {
	writeCards(sh.out, sh.style, tasks)
}

// readField asks for an optional search field. Unknown names fall back to
// searching every field.
func (sh *shell) readField(label string) (task.Field, error) {
	raw, err := sh.prompt(label)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	f, ok := task.ParseField(raw)
	if !ok || !task.IsUserField(f) {
		sh.println(sh.style.warning(fmt.Sprintf("Field %q is not one of %s;", strings.TrimSpace(raw), fieldList(", "))))
		sh.println(sh.style.warning("searching all fields instead."))
		return "", nil
	}
	return f, nil
}

func (sh *shell) view() error {
	sh.clear()
	sh.println(sh.style.heading("View tasks"))
	sh.println("1. All tasks")
	sh.println("2. Search by substring / regular expression")
	sh.println("0. Back")
	choice, err := sh.prompt("\nChoose an action: ")
	if err != nil {
		return err
	}
	switch strings.TrimSpace(choice) {
	case "1":
		tasks := sh.st.Tasks()
		if len(tasks) == 0 {
			sh.println("No tasks to show.")
		} else {
			sh.showTasks(tasks)
		}
		return sh.back()
	case "2":
		sh.println("Search fields: " + fieldList(", "))
		field, err := sh.readField("Field (Enter to search all fields): ")
		if err != nil {
			return err
		}
		sh.clear()
		sh.searchHelp()
		query, err := sh.prompt("\nSearch for: ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(query) == "" {
			sh.println("Search query cannot be empty.")
			return sh.back()
		}
		tasks, err := sh.st.Search(query, field)
		switch {
		case err != nil:
			sh.report(err)
		case len(tasks) == 0:
			sh.println("No tasks matched your query.")
		default:
			sh.showTasks(tasks)
		}
		return sh.back()
	}
	return nil
}

func (sh *shell) add() error {
	sh.println(sh.style.heading("Add a task"))
	var title, desc, category, dueExpr, priority, status string
	prompts := []struct {
		label string
		dst   *string
	}{
		{"Title: ", &title},
		{"Description: ", &desc},
		{"Category (" + strings.Join(task.Categories, ", ") + "): ", &category},
		{"Due (e.g. '2024-12-31' or '1h 2m', Enter for now): ", &dueExpr},
		{"Priority (" + strings.Join(task.Priorities, ", ") + "): ", &priority},
		{"Status (" + strings.Join(task.Statuses, ", ") + "): ", &status},
	}
	for _, p := range prompts {
		v, err := sh.prompt(p.label)
		if err != nil {
			return err
		}
		*p.dst = v
	}
	in := task.Input{
		Title:       title,
		Description: desc,
		Category:    optional(category),
		Due:         optional(dueExpr),
		Priority:    optional(priority),
		Status:      optional(status),
	}
	t, err := sh.st.Add(in)
	if err != nil {
		sh.report(err)
	} else {
		sh.println(fmt.Sprintf("\nTask #%d added.", t.ID))
	}
	return sh.back()
}

// readTask asks for an id and looks the task up. ok is false when the id
// was rejected or unknown; the reason has already been printed.
func (sh *shell) readTask(label string) (t task.Task, ok bool, err error) {
	raw, err := sh.prompt(label)
	if err != nil {
		return task.Task{}, false, err
	}
	id, perr := parseID(raw)
	if perr != nil {
		sh.println("ID must be a number.")
		return task.Task{}, false, nil
	}
	t, lerr := sh.st.SearchByID(id)
	if lerr != nil {
		sh.println("Task not found.")
		return task.Task{}, false, nil
	}
	return t, true, nil
}

var updateLabels = []string{"Title", "Description", "Category", "Due date", "Priority", "Status"}

func patchFor(f task.Field, value string) task.Patch {
	var p task.Patch
	switch f {
	case task.FieldTitle:
		p.Title = value
	case task.FieldDescription:
		p.Description = value
	case task.FieldCategory:
		p.Category = value
	case task.FieldDue:
		p.Due = value
	case task.FieldPriority:
		p.Priority = value
	case task.FieldStatus:
		p.Status = value
	}
	return p
}

func (sh *shell) update() error {
	sh.clear()
	sh.println(sh.style.heading("Update a task"))
	t, ok, err := sh.readTask("Task ID: ")
	if err != nil {
		return err
	}
	if !ok {
		return sh.back()
	}
	sh.println("Selected task:")
	sh.showTasks([]task.Task{t})
	sh.println("\nWhat do you want to change?")
	sh.println("0. Back")
	for i, label := range updateLabels {
		sh.println(fmt.Sprintf("%d. %s", i+1, label))
	}
	sh.println(fmt.Sprintf("%d. Mark as done", len(updateLabels)+1))
	choice, err := sh.prompt("Field: ")
	if err != nil {
		return err
	}
	choice = strings.TrimSpace(choice)
	switch {
	case choice == "0":
		return nil
	case choice == fmt.Sprint(len(updateLabels)+1):
		if _, err := sh.st.MarkDone(t.ID); err != nil {
			sh.report(err)
		} else {
			sh.println("\nTask marked as done.")
		}
		return sh.back()
	}
	n, perr := parseID(choice)
	if perr != nil || n < 1 || n > len(task.UserFields) {
		sh.println("Invalid choice, try again.")
		return sh.back()
	}
	value, err := sh.prompt("New value: ")
	if err != nil {
		return err
	}
	p := patchFor(task.UserFields[n-1], value)
	if p.IsEmpty() {
		sh.println("\nNothing changed.")
		return sh.back()
	}
	if _, err := sh.st.Update(t.ID, p); err != nil {
		sh.report(err)
	} else {
		sh.println("\nTask updated.")
	}
	return sh.back()
}

func (sh *shell) remove() error {
	sh.clear()
	sh.println(sh.style.heading("Delete tasks"))
	sh.println("1. By ID")
	sh.println("2. Search by substring / regular expression")
	sh.println("0. Back")
	choice, err := sh.prompt("\nChoose an action: ")
	if err != nil {
		return err
	}

	var tasks []task.Task
	switch strings.TrimSpace(choice) {
	case "1":
		t, ok, err := sh.readTask("Task ID to delete: ")
		if err != nil {
			return err
		}
		if !ok {
			return sh.back()
		}
		tasks = []task.Task{t}
	case "2":
		sh.searchHelp()
		query, err := sh.prompt("\nSearch for: ")
		if err != nil {
			return err
		}
		field, err := sh.readField("Field (" + fieldList(", ") + ") or Enter for all: ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(query) == "" {
			tasks = sh.st.Tasks()
		} else if tasks, err = sh.st.Search(query, field); err != nil {
			sh.report(err)
			return sh.back()
		}
	default:
		return nil
	}

	if len(tasks) == 0 {
		sh.println("No tasks found.")
		return sh.back()
	}
	sh.println("\nFound tasks:")
	sh.showTasks(tasks)
	answer, err := sh.prompt("\nDelete these tasks? (y/n): ")
	if err != nil {
		return err
	}
	if !confirmed(answer) {
		sh.println("\nDeletion cancelled.")
		return sh.back()
	}
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	n, err := sh.st.RemoveAll(ids)
	if err != nil {
		sh.report(err)
	} else {
		sh.println(fmt.Sprintf("\nDeleted %d task(s).", n))
	}
	return sh.back()
}

func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "да":
		return true
	}
	return false
}
