/*
Package sqlite provides the SQLite-backed implementation of the Ledger.

PURPOSE:
  Implements center.Ledger and center.TxLedger using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  Versioned goose migrations embedded in the binary (migrations/). Applied
  automatically on New().

KEY TABLES:
  teachers, groups, students: the center's roster
  enrollments:                one row per (student, group), reused across
                              deactivation/reactivation
  attendance:                 one row per student per group per date
  payments:                   tuition payments with a YYYY-MM billing token
  inquiries:                  prospective students

MONEY:
  Fees and amounts are stored as TEXT and parsed with shopspring/decimal.
  REAL columns would reintroduce the floating-point rounding this system
  exists to avoid.

CONCURRENCY:
  SQLite is opened with WAL (Write-Ahead Logging) and a single writer
  connection. WithTx serializes multi-step mutations (enroll, withdraw,
  purge, group cascade delete) behind one database transaction.

USAGE:
  store, err := sqlite.New("./data/center.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - center/store.go: Interface definitions
  - ledger.go: Enrollment/attendance/payment queries
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements center.Ledger over either a *sql.DB or a *sql.Tx.
type queries struct {
	db DBTX
}

// Store implements center.TxLedger using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// New creates a SQLite store at the given path and applies migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY under concurrent writers and
	// keeps :memory: databases from silently splitting per connection.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{queries: queries{db: db}, db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// WithTx executes fn within a database transaction. The Ledger handed to fn
// is only valid for the duration of the call.
func (s *Store) WithTx(ctx context.Context, fn func(center.Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func parseDate(s string) time.Time {
	t, err := time.ParseInLocation(dateFormat, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func notFound(entity string, id int64, err error) error {
	if err == sql.ErrNoRows {
		return &center.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// TEACHERS
// =============================================================================

func (q *queries) CreateTeacher(ctx context.Context, t *center.Teacher) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO teachers (full_name, phone_number, created_at) VALUES (?, ?, ?)`,
		t.FullName, t.PhoneNumber, t.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = center.TeacherID(id)
	return nil
}

func (q *queries) GetTeacher(ctx context.Context, id center.TeacherID) (*center.Teacher, error) {
	var t center.Teacher
	var createdAt string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, full_name, phone_number, created_at FROM teachers WHERE id = ?`, id).
		Scan(&t.ID, &t.FullName, &t.PhoneNumber, &createdAt)
	if err != nil {
		return nil, notFound("Teacher", int64(id), err)
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (q *queries) ListTeachers(ctx context.Context) ([]center.Teacher, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, full_name, phone_number, created_at FROM teachers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []center.Teacher
	for rows.Next() {
		var t center.Teacher
		var createdAt string
		if err := rows.Scan(&t.ID, &t.FullName, &t.PhoneNumber, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func (q *queries) UpdateTeacher(ctx context.Context, t *center.Teacher) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE teachers SET full_name = ?, phone_number = ? WHERE id = ?`,
		t.FullName, t.PhoneNumber, t.ID)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return requireRow(res, "Teacher", int64(t.ID))
}

func (q *queries) DeleteTeacher(ctx context.Context, id center.TeacherID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return requireRow(res, "Teacher", int64(id))
}

func (q *queries) TeacherExists(ctx context.Context, id center.TeacherID) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM teachers WHERE id = ?`, id)
}

// =============================================================================
// GROUPS
// =============================================================================

const groupViewSelect = `
	SELECT g.id, g.name, g.teacher_id, g.monthly_fee, g.created_at,
	       COALESCE(t.full_name, '') AS teacher_name
	FROM groups g
	LEFT JOIN teachers t ON t.id = g.teacher_id`

func (q *queries) CreateGroup(ctx context.Context, g *center.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO groups (name, teacher_id, monthly_fee, created_at) VALUES (?, ?, ?, ?)`,
		g.Name, g.TeacherID, g.MonthlyFee.String(), g.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = center.GroupID(id)
	return nil
}

func (q *queries) GetGroup(ctx context.Context, id center.GroupID) (*center.GroupView, error) {
	row := q.db.QueryRowContext(ctx, groupViewSelect+` WHERE g.id = ?`, id)
	gv, err := scanGroupView(row)
	if err != nil {
		return nil, notFound("Group", int64(id), err)
	}
	return gv, nil
}

func (q *queries) ListGroups(ctx context.Context) ([]center.GroupView, error) {
	return q.queryGroupViews(ctx, groupViewSelect+` ORDER BY g.id`)
}

func (q *queries) ListGroupsByTeacher(ctx context.Context, teacherID center.TeacherID) ([]center.GroupView, error) {
	return q.queryGroupViews(ctx, groupViewSelect+` WHERE g.teacher_id = ? ORDER BY g.name`, teacherID)
}

func (q *queries) UpdateGroup(ctx context.Context, g *center.Group) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE groups SET name = ?, teacher_id = ?, monthly_fee = ? WHERE id = ?`,
		g.Name, g.TeacherID, g.MonthlyFee.String(), g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return requireRow(res, "Group", int64(g.ID))
}

func (q *queries) DeleteGroup(ctx context.Context, id center.GroupID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return requireRow(res, "Group", int64(id))
}

func (q *queries) GroupExists(ctx context.Context, id center.GroupID) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM groups WHERE id = ?`, id)
}

func scanGroupView(r rowScanner) (*center.GroupView, error) {
	var gv center.GroupView
	var fee, createdAt string
	if err := r.Scan(&gv.ID, &gv.Name, &gv.TeacherID, &fee, &createdAt, &gv.TeacherName); err != nil {
		return nil, err
	}
	gv.MonthlyFee = parseDecimal(fee)
	gv.CreatedAt = parseTime(createdAt)
	return &gv, nil
}

func (q *queries) queryGroupViews(ctx context.Context, query string, args ...any) ([]center.GroupView, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []center.GroupView
	for rows.Next() {
		gv, err := scanGroupView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *gv)
	}
	return views, rows.Err()
}

// =============================================================================
// STUDENTS
// =============================================================================

func (q *queries) CreateStudent(ctx context.Context, s *center.Student) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO students (full_name, parent_name, parent_phone, reference_code, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.FullName, s.ParentName, s.ParentPhone, s.ReferenceCode, s.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = center.StudentID(id)
	return nil
}

func (q *queries) GetStudent(ctx context.Context, id center.StudentID) (*center.Student, error) {
	var s center.Student
	var createdAt string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, full_name, parent_name, parent_phone, COALESCE(reference_code, ''), created_at
		 FROM students WHERE id = ?`, id).
		Scan(&s.ID, &s.FullName, &s.ParentName, &s.ParentPhone, &s.ReferenceCode, &createdAt)
	if err != nil {
		return nil, notFound("Student", int64(id), err)
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (q *queries) ListStudents(ctx context.Context) ([]center.Student, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, full_name, parent_name, parent_phone, COALESCE(reference_code, ''), created_at
		 FROM students ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []center.Student
	for rows.Next() {
		var s center.Student
		var createdAt string
		if err := rows.Scan(&s.ID, &s.FullName, &s.ParentName, &s.ParentPhone, &s.ReferenceCode, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		students = append(students, s)
	}
	return students, rows.Err()
}

func (q *queries) UpdateStudent(ctx context.Context, s *center.Student) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE students SET full_name = ?, parent_name = ?, parent_phone = ? WHERE id = ?`,
		s.FullName, s.ParentName, s.ParentPhone, s.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRow(res, "Student", int64(s.ID))
}

func (q *queries) DeleteStudent(ctx context.Context, id center.StudentID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRow(res, "Student", int64(id))
}

func (q *queries) StudentExists(ctx context.Context, id center.StudentID) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM students WHERE id = ?`, id)
}

// =============================================================================
// INQUIRIES
// =============================================================================

const inquirySelect = `
	SELECT id, full_name, parent_name, parent_phone, interested_courses, status, notes, created_at, updated_at
	FROM inquiries`

func (q *queries) CreateInquiry(ctx context.Context, i *center.Inquiry) error {
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
	if i.Status == "" {
		i.Status = center.InquiryNew
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO inquiries (full_name, parent_name, parent_phone, interested_courses, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.FullName, i.ParentName, i.ParentPhone, i.InterestedCourses, i.Status, i.Notes,
		i.CreatedAt.Format(timeFormat), i.UpdatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create inquiry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	i.ID = center.InquiryID(id)
	return nil
}

func (q *queries) GetInquiry(ctx context.Context, id center.InquiryID) (*center.Inquiry, error) {
	row := q.db.QueryRowContext(ctx, inquirySelect+` WHERE id = ?`, id)
	i, err := scanInquiry(row)
	if err != nil {
		return nil, notFound("Inquiry", int64(id), err)
	}
	return i, nil
}

func (q *queries) ListInquiries(ctx context.Context) ([]center.Inquiry, error) {
	return q.queryInquiries(ctx, inquirySelect+` ORDER BY id`)
}

func (q *queries) ListInquiriesByStatus(ctx context.Context, status center.InquiryStatus) ([]center.Inquiry, error) {
	return q.queryInquiries(ctx, inquirySelect+` WHERE status = ? ORDER BY id`, status)
}

func (q *queries) UpdateInquiry(ctx context.Context, i *center.Inquiry) error {
	i.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`UPDATE inquiries SET full_name = ?, parent_name = ?, parent_phone = ?, interested_courses = ?,
		 status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		i.FullName, i.ParentName, i.ParentPhone, i.InterestedCourses, i.Status, i.Notes,
		i.UpdatedAt.Format(timeFormat), i.ID)
	if err != nil {
		return fmt.Errorf("update inquiry: %w", err)
	}
	return requireRow(res, "Inquiry", int64(i.ID))
}

func (q *queries) DeleteInquiry(ctx context.Context, id center.InquiryID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM inquiries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete inquiry: %w", err)
	}
	return requireRow(res, "Inquiry", int64(id))
}

func scanInquiry(r rowScanner) (*center.Inquiry, error) {
	var i center.Inquiry
	var createdAt, updatedAt string
	if err := r.Scan(&i.ID, &i.FullName, &i.ParentName, &i.ParentPhone, &i.InterestedCourses,
		&i.Status, &i.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return &i, nil
}

func (q *queries) queryInquiries(ctx context.Context, query string, args ...any) ([]center.Inquiry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inquiries []center.Inquiry
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, *i)
	}
	return inquiries, rows.Err()
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func (q *queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// requireRow converts a zero-row UPDATE/DELETE into a NotFound error.
func requireRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &center.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
