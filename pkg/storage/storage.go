package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prereqgraph/prereqgraph/pkg/catalog"
)

// ErrNotFound is returned when a course is not in the cache.
var ErrNotFound = errors.New("course not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS courses (
  id            INTEGER PRIMARY KEY,
  subject_id    TEXT NOT NULL,
  subject_long  TEXT,
  call_number   TEXT NOT NULL,
  title         TEXT,
  description   TEXT,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(subject_id, call_number)
);
CREATE INDEX IF NOT EXISTS idx_courses_subject ON courses(subject_id);
CREATE TABLE IF NOT EXISTS course_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  subject_id  TEXT NOT NULL,
  call_number TEXT NOT NULL,
  title       TEXT,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON course_changes(occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// UpsertCourses stores courses keyed by subject and call number and returns
// what was added or changed. Courses identical to the cached copy only have
// their last_seen_at refreshed.
func (d *DB) UpsertCourses(ctx context.Context, courses []catalog.Course) (changes []Change, err error) {
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range courses {
		subject := normalizeSubject(c.SubjectID)
		number := strings.TrimSpace(c.CallNumber)

		var title, desc sql.NullString
		err = tx.QueryRowContext(ctx, "SELECT title, description FROM courses WHERE subject_id = ? AND call_number = ?", subject, number).Scan(&title, &desc)

		changeType := ""
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `INSERT INTO courses(subject_id, subject_long, call_number, title, description) VALUES(?,?,?,?,?)`,
				subject, nullIfEmpty(c.SubjectLong), number, nullIfEmpty(c.Title), nullIfEmpty(c.Description))
			changeType = "added"
		case err != nil:
			return nil, err
		case title.String != c.Title || desc.String != c.Description:
			_, err = tx.ExecContext(ctx, `UPDATE courses SET subject_long = ?, title = ?, description = ?, last_seen_at = CURRENT_TIMESTAMP WHERE subject_id = ? AND call_number = ?`,
				nullIfEmpty(c.SubjectLong), nullIfEmpty(c.Title), nullIfEmpty(c.Description), subject, number)
			changeType = "updated"
		default:
			_, err = tx.ExecContext(ctx, `UPDATE courses SET last_seen_at = CURRENT_TIMESTAMP WHERE subject_id = ? AND call_number = ?`, subject, number)
		}
		if err != nil {
			return nil, err
		}

		if changeType != "" {
			_, err = tx.ExecContext(ctx, `INSERT INTO course_changes(subject_id, call_number, title, change_type) VALUES(?,?,?,?)`,
				subject, number, nullIfEmpty(c.Title), changeType)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, SubjectID: subject, CallNumber: number, Title: c.Title, ChangeType: changeType})
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListCourses returns cached courses matching opts, ordered by subject and
// call number.
func (d *DB) ListCourses(ctx context.Context, opts ListOptions) ([]catalog.Course, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if len(opts.Subjects) > 0 {
		placeholders := make([]string, len(opts.Subjects))
		for i, s := range opts.Subjects {
			placeholders[i] = "?"
			args = append(args, normalizeSubject(s))
		}
		where += " AND subject_id IN (" + strings.Join(placeholders, ",") + ")"
	}
	if !opts.Since.IsZero() {
		where += " AND last_seen_at >= ?"
		args = append(args, opts.Since.UTC().Format("2006-01-02 15:04:05"))
	}

	q := "SELECT subject_id, subject_long, call_number, title, description FROM courses " + where + " ORDER BY subject_id, call_number"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Course
	for rows.Next() {
		var c catalog.Course
		var long, title, desc sql.NullString
		if err := rows.Scan(&c.SubjectID, &long, &c.CallNumber, &title, &desc); err != nil {
			return nil, err
		}
		c.SubjectLong = long.String
		c.Title = title.String
		c.Description = desc.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns one cached course or ErrNotFound.
func (d *DB) GetCourse(ctx context.Context, subjectID, callNumber string) (*catalog.Course, error) {
	c := catalog.Course{}
	var long, title, desc sql.NullString
	err := d.sql.QueryRowContext(ctx, "SELECT subject_id, subject_long, call_number, title, description FROM courses WHERE subject_id = ? AND call_number = ?",
		normalizeSubject(subjectID), strings.TrimSpace(callNumber)).Scan(&c.SubjectID, &long, &c.CallNumber, &title, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.SubjectLong = long.String
	c.Title = title.String
	c.Description = desc.String
	return &c, nil
}

// HasCourse reports whether a course is cached.
func (d *DB) HasCourse(ctx context.Context, subjectID, callNumber string) (bool, error) {
	_, err := d.GetCourse(ctx, subjectID, callNumber)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CourseKeys returns the identity of every cached course, for resuming a
// fetch without one query per course.
func (d *DB) CourseKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT subject_id, call_number FROM courses")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var subject, number string
		if err := rows.Scan(&subject, &number); err != nil {
			return nil, err
		}
		keys[courseKey(subject, number)] = true
	}
	return keys, rows.Err()
}

// CourseKey is the identity used by CourseKeys.
func CourseKey(subjectID, callNumber string) string {
	return courseKey(subjectID, callNumber)
}

// ListRecentChanges returns the most recent N changes.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, subject_id, call_number, title, change_type FROM course_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt interface{}
		var title sql.NullString
		if err := rows.Scan(&occurredAt, &c.SubjectID, &c.CallNumber, &title, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAt)
		c.Title = title.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// GetStats returns per-subject course counts. A course counts as having
// prerequisites when its description mentions a prereq section.
func (d *DB) GetStats(ctx context.Context) ([]SubjectStats, error) {
	query := `
		SELECT
			subject_id,
			COALESCE(MAX(subject_long), ''),
			COUNT(*),
			SUM(CASE WHEN LOWER(description) LIKE '%prereq%' THEN 1 ELSE 0 END)
		FROM
			courses
		GROUP BY
			subject_id
		ORDER BY
			subject_id;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SubjectStats
	for rows.Next() {
		var s SubjectStats
		if err := rows.Scan(&s.SubjectID, &s.SubjectLong, &s.CourseCount, &s.WithPrereqs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// parseTimestamp accepts what the sqlite driver hands back for DATETIME
// columns: a time.Time or the CURRENT_TIMESTAMP text form.
func parseTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
