package store

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/amirbrooks/tasktrack/internal/task"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidPattern       = errors.New("invalid pattern")
	ErrInvalidPersistedData = errors.New("invalid persisted data")
	timeNow                 = time.Now
)

// Store owns the ordered task collection and is the only writer of its file.
// Every mutation rewrites the whole file; when the write fails the in-memory
// collection is left as it was.
type Store struct {
	path   string
	format Format
	codec  codec
	tasks  []task.Task
	ids    *task.Counter
	lock   *flock.Flock
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Store)

// WithFormat overrides the format inferred from the file extension.
func WithFormat(f Format) Option {
	return func(s *Store) {
		if f != "" {
			s.format = f
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used to resolve relative due dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the task file at path. A missing or blank file yields an empty store.
func Open(path string, opts ...Option) (*Store, error) {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return nil, errors.New("task file path is required")
	}
	s := &Store{
		path:   path,
		format: FormatForPath(path),
		ids:    task.NewCounter(),
		log:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		now:    timeNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	c, err := codecFor(s.format)
	if err != nil {
		return nil, err
	}
	s.codec = c
	s.lock = flock.New(path + ".lock")
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string   { return s.path }
func (s *Store) Format() Format { return s.format }
func (s *Store) Len() int       { return len(s.tasks) }

// Tasks returns a copy of the collection in insertion order.
func (s *Store) Tasks() []task.Task {
	return append([]task.Task(nil), s.tasks...)
}

func (s *Store) load() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("task file missing, starting empty", "path", s.path)
			return nil
		}
		return err
	}
	// The read lock is best-effort.
	if err := s.lock.RLock(); err != nil {
		s.log.Debug("read lock unavailable, loading unlocked", "path", s.path, "err", err)
	} else {
		defer func() { _ = s.lock.Unlock() }()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	records, err := s.codec.decode(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPersistedData, s.path, err)
	}
	ids := task.NewCounter()
	tasks := make([]task.Task, 0, len(records))
	seen := make(map[int]bool, len(records))
	now := s.now()
	for i, r := range records {
		t, err := task.FromRecord(r, ids, now)
		if err != nil {
			return fmt.Errorf("%w: %s: record %d: %w", ErrInvalidPersistedData, s.path, i, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: %s: record %d: duplicate id %d", ErrInvalidPersistedData, s.path, i, t.ID)
		}
		seen[t.ID] = true
		tasks = append(tasks, *t)
	}
	s.tasks = tasks
	s.ids = ids
	s.log.Debug("loaded tasks", "path", s.path, "tasks", len(tasks), "format", s.format)
	return nil
}

func (s *Store) save(tasks []task.Task) error {
	data, err := s.codec.encode(records(tasks))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()
	if err := atomicWriteFile(s.path, data, 0o644); err != nil {
		return err
	}
	s.log.Debug("saved tasks", "path", s.path, "tasks", len(tasks), "format", s.format)
	return nil
}

func records(tasks []task.Task) []task.Record {
	out := make([]task.Record, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Record())
	}
	return out
}

// commit persists next and, on success, makes it the current collection.
func (s *Store) commit(next []task.Task) error {
	if err := s.save(next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

func (s *Store) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Add validates in, appends the new task and saves.
func (s *Store) Add(in task.Input) (task.Task, error) {
	if in.ID != nil && s.indexOf(*in.ID) >= 0 {
		return task.Task{}, fmt.Errorf("%w: %d already exists", task.ErrInvalidID, *in.ID)
	}
	t, err := task.New(in, s.ids, s.now())
	if err != nil {
		return task.Task{}, err
	}
	next := append(s.Tasks(), *t)
	if err := s.commit(next); err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

// Update applies p to the task with the given id. Either every field in p is
// applied and saved, or nothing changes.
func (s *Store) Update(id int, p task.Patch) (task.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	updated := s.tasks[i]
	if err := updated.Apply(p, s.now()); err != nil {
		return task.Task{}, err
	}
	next := s.Tasks()
	next[i] = updated
	if err := s.commit(next); err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

// Set updates a single field by name.
func (s *Store) Set(id int, f task.Field, value string) (task.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	updated := s.tasks[i]
	if err := updated.Set(f, value, s.now()); err != nil {
		return task.Task{}, err
	}
	next := s.Tasks()
	next[i] = updated
	if err := s.commit(next); err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

func (s *Store) MarkDone(id int) (task.Task, error) {
	return s.Update(id, task.Patch{Status: task.StatusDone})
}

// Remove deletes the task with the given id, keeping the others in order.
func (s *Store) Remove(id int) error {
	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	_, err := s.RemoveAll([]int{id})
	return err
}

// RemoveAll deletes every listed id that exists with a single save and
// returns how many were removed.
func (s *Store) RemoveAll(ids []int) (int, error) {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	next := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !drop[t.ID] {
			next = append(next, t)
		}
	}
	removed := len(s.tasks) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(next); err != nil {
		return 0, err
	}
	return removed, nil
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// atomicWriteFile writes to a synced temp file in the target directory and
// renames it over path, so readers see either the old or the new content.
func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), newULID()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
