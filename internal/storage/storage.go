package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kanban/internal/task"
)

var ErrNotFound = errors.New("task not found")

const memoryPath = ":memory:"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'TODO',
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_user_lane ON tasks (user_id, status, sort_order);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

func (s *Store) ensureTaskColumns() error {
	required := map[string]string{
		"description": "ALTER TABLE tasks ADD COLUMN description TEXT NOT NULL DEFAULT '';",
		"updated_at":  "ALTER TABLE tasks ADD COLUMN updated_at TEXT DEFAULT NULL;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

const taskColumns = `id, title, description, status, sort_order, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(r scanner) (task.Task, error) {
	var t task.Task
	var id int64
	var status, createdStr string
	if err := r.Scan(&id, &t.Title, &t.Description, &status, &t.Order, &createdStr); err != nil {
		return t, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Status = task.Status(status)
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		t.CreatedAt = created
	}
	return t, nil
}

func (s *Store) FetchTasks(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY status, sort_order, id;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (task.Task, error) {
	n, err := parseID(id)
	if err != nil {
		return task.Task{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?;`, n, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func (s *Store) AddTask(ctx context.Context, userID string, d task.Draft) (task.Task, error) {
	now := s.now().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		userID, d.Title, d.Description, string(d.Status), d.Order, now, now)
	if err != nil {
		return task.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, err
	}
	return s.GetTask(ctx, userID, strconv.FormatInt(id, 10))
}

func (s *Store) UpdateTask(ctx context.Context, userID, id string, d task.Draft) (task.Task, error) {
	n, err := parseID(id)
	if err != nil {
		return task.Task{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?;`,
		d.Title, d.Description, string(d.Status), d.Order, s.now().Format(time.RFC3339), n, userID)
	if err := affected(res, err, id); err != nil {
		return task.Task{}, err
	}
	return s.GetTask(ctx, userID, id)
}

func (s *Store) SetStatus(ctx context.Context, userID, id string, status task.Status) (task.Task, error) {
	n, err := parseID(id)
	if err != nil {
		return task.Task{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?;`,
		string(status), s.now().Format(time.RFC3339), n, userID)
	if err := affected(res, err, id); err != nil {
		return task.Task{}, err
	}
	return s.GetTask(ctx, userID, id)
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?;`, n, userID)
	return affected(res, err, id)
}

// Reorder sets each listed task's key to its index, for tasks in status.
// Ids outside the lane are skipped. It returns the lane afterwards.
func (s *Store) Reorder(ctx context.Context, userID string, ids []string, status task.Status) ([]task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now().Format(time.RFC3339)
	for i, id := range ids {
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ? AND status = ?;`,
			i, now, n, userID, string(status)); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	all, err := s.FetchTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	lane := []task.Task{}
	for _, t := range all {
		if t.Status == status {
			lane = append(lane, t)
		}
	}
	return lane, nil
}

func affected(res sql.Result, err error, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func sqliteDSN(path string) string {
	if path == memoryPath || strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
