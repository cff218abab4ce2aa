/*
ledger.go - Enrollment, attendance, and payment queries

PURPOSE:
  The query surface the lifecycle manager and reporting engine run on:
  point lookups, date/month range filters, aggregate totals, and the bulk
  deletes used by the purge and group-delete cascades.

DATE COLUMNS:
  Day-granular columns (enrollments.enrolled_at, attendance.date) hold
  YYYY-MM-DD strings. Timestamps (payments.paid_at) hold RFC3339. Daily
  payment reports filter on the RFC3339 date prefix; monthly and yearly
  revenue filters on the paid_for_month token instead.

JOINS:
  Read models LEFT JOIN names in so a missing parent row degrades to an
  empty name instead of dropping the record. Report code substitutes
  placeholder labels for empty names.
*/
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// =============================================================================
// ENROLLMENTS
// =============================================================================

const enrollmentViewSelect = `
	SELECT e.id, e.student_id, e.group_id, e.active, e.enrolled_at, e.left_at, e.created_at,
	       COALESCE(s.full_name, '') AS student_name,
	       COALESCE(s.parent_name, '') AS parent_name,
	       COALESCE(s.parent_phone, '') AS parent_phone,
	       COALESCE(g.name, '') AS group_name,
	       COALESCE(t.full_name, '') AS teacher_name,
	       COALESCE(g.monthly_fee, '0') AS monthly_fee
	FROM enrollments e
	LEFT JOIN students s ON s.id = e.student_id
	LEFT JOIN groups g ON g.id = e.group_id
	LEFT JOIN teachers t ON t.id = g.teacher_id`

func (q *queries) CreateEnrollment(ctx context.Context, e *center.Enrollment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO enrollments (student_id, group_id, active, enrolled_at, left_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.StudentID, e.GroupID, e.Active, e.EnrolledAt.Format(dateFormat),
		nullableDate(e.LeftAt), e.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = center.EnrollmentID(id)
	return nil
}

func (q *queries) UpdateEnrollment(ctx context.Context, e *center.Enrollment) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE enrollments SET active = ?, enrolled_at = ?, left_at = ? WHERE id = ?`,
		e.Active, e.EnrolledAt.Format(dateFormat), nullableDate(e.LeftAt), e.ID)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return requireRow(res, "Enrollment", int64(e.ID))
}

func (q *queries) FindEnrollment(ctx context.Context, studentID center.StudentID, groupID center.GroupID) (*center.Enrollment, error) {
	var e center.Enrollment
	var enrolledAt, createdAt string
	var leftAt *string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, student_id, group_id, active, enrolled_at, left_at, created_at
		 FROM enrollments WHERE student_id = ? AND group_id = ?`, studentID, groupID).
		Scan(&e.ID, &e.StudentID, &e.GroupID, &e.Active, &enrolledAt, &leftAt, &createdAt)
	if err != nil {
		return nil, notFound("Enrollment", 0, err)
	}
	e.EnrolledAt = parseDate(enrolledAt)
	e.CreatedAt = parseTime(createdAt)
	if leftAt != nil {
		d := parseDate(*leftAt)
		e.LeftAt = &d
	}
	return &e, nil
}

func (q *queries) GetEnrollmentView(ctx context.Context, id center.EnrollmentID) (*center.EnrollmentView, error) {
	row := q.db.QueryRowContext(ctx, enrollmentViewSelect+` WHERE e.id = ?`, id)
	ev, err := scanEnrollmentView(row)
	if err != nil {
		return nil, notFound("Enrollment", int64(id), err)
	}
	return ev, nil
}

func (q *queries) EnrollmentsByStudent(ctx context.Context, studentID center.StudentID, activeOnly bool) ([]center.EnrollmentView, error) {
	query := enrollmentViewSelect + ` WHERE e.student_id = ?`
	if activeOnly {
		query += ` AND e.active = 1`
	}
	return q.queryEnrollmentViews(ctx, query+` ORDER BY e.id`, studentID)
}

func (q *queries) EnrollmentsByGroup(ctx context.Context, groupID center.GroupID, activeOnly bool) ([]center.EnrollmentView, error) {
	query := enrollmentViewSelect + ` WHERE e.group_id = ?`
	if activeOnly {
		query += ` AND e.active = 1`
	}
	return q.queryEnrollmentViews(ctx, query+` ORDER BY e.id`, groupID)
}

func (q *queries) CountActiveEnrollmentsByStudent(ctx context.Context, studentID center.StudentID) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND active = 1`, studentID).Scan(&n)
	return n, err
}

func (q *queries) CountActiveEnrollmentsByGroup(ctx context.Context, groupID center.GroupID) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE group_id = ? AND active = 1`, groupID).Scan(&n)
	return n, err
}

func scanEnrollmentView(r rowScanner) (*center.EnrollmentView, error) {
	var ev center.EnrollmentView
	var enrolledAt, createdAt, fee string
	var leftAt *string
	if err := r.Scan(&ev.ID, &ev.StudentID, &ev.GroupID, &ev.Active, &enrolledAt, &leftAt, &createdAt,
		&ev.StudentName, &ev.ParentName, &ev.ParentPhone, &ev.GroupName, &ev.TeacherName, &fee); err != nil {
		return nil, err
	}
	ev.EnrolledAt = parseDate(enrolledAt)
	ev.CreatedAt = parseTime(createdAt)
	if leftAt != nil {
		d := parseDate(*leftAt)
		ev.LeftAt = &d
	}
	ev.MonthlyFee = parseDecimal(fee)
	return &ev, nil
}

func (q *queries) queryEnrollmentViews(ctx context.Context, query string, args ...any) ([]center.EnrollmentView, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []center.EnrollmentView
	for rows.Next() {
		ev, err := scanEnrollmentView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *ev)
	}
	return views, rows.Err()
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateFormat)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

const attendanceViewSelect = `
	SELECT a.id, a.student_id, a.group_id, a.date, a.status, a.created_at,
	       COALESCE(s.full_name, '') AS student_name,
	       COALESCE(g.name, '') AS group_name,
	       COALESCE(t.full_name, '') AS teacher_name
	FROM attendance a
	LEFT JOIN students s ON s.id = a.student_id
	LEFT JOIN groups g ON g.id = a.group_id
	LEFT JOIN teachers t ON t.id = g.teacher_id`

func (q *queries) CreateAttendances(ctx context.Context, records []center.Attendance) ([]center.Attendance, error) {
	out := make([]center.Attendance, 0, len(records))
	for _, a := range records {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		res, err := q.db.ExecContext(ctx,
			`INSERT INTO attendance (student_id, group_id, date, status, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			a.StudentID, a.GroupID, a.Date.Format(dateFormat), a.Status, a.CreatedAt.Format(timeFormat))
		if err != nil {
			return nil, fmt.Errorf("create attendance: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		a.ID = center.AttendanceID(id)
		out = append(out, a)
	}
	return out, nil
}

func (q *queries) GetAttendance(ctx context.Context, id center.AttendanceID) (*center.AttendanceView, error) {
	row := q.db.QueryRowContext(ctx, attendanceViewSelect+` WHERE a.id = ?`, id)
	av, err := scanAttendanceView(row)
	if err != nil {
		return nil, notFound("Attendance", int64(id), err)
	}
	return av, nil
}

func (q *queries) UpdateAttendanceStatus(ctx context.Context, id center.AttendanceID, status center.AttendanceStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE attendance SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return requireRow(res, "Attendance", int64(id))
}

func (q *queries) AttendanceByDate(ctx context.Context, date time.Time) ([]center.AttendanceView, error) {
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.date = ? ORDER BY a.id`, date.Format(dateFormat))
}

func (q *queries) AttendanceByGroupAndDate(ctx context.Context, groupID center.GroupID, date time.Time) ([]center.AttendanceView, error) {
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.group_id = ? AND a.date = ? ORDER BY a.id`,
		groupID, date.Format(dateFormat))
}

func (q *queries) AttendanceByMonth(ctx context.Context, year, month int) ([]center.AttendanceView, error) {
	start, end := center.MonthBounds(year, month)
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.date >= ? AND a.date < ? ORDER BY a.date, a.id`,
		start.Format(dateFormat), end.Format(dateFormat))
}

func (q *queries) AttendanceByGroupAndMonth(ctx context.Context, groupID center.GroupID, year, month int) ([]center.AttendanceView, error) {
	start, end := center.MonthBounds(year, month)
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.group_id = ? AND a.date >= ? AND a.date < ? ORDER BY a.date, a.id`,
		groupID, start.Format(dateFormat), end.Format(dateFormat))
}

func (q *queries) AttendanceByStudentAndMonth(ctx context.Context, studentID center.StudentID, year, month int) ([]center.AttendanceView, error) {
	start, end := center.MonthBounds(year, month)
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.student_id = ? AND a.date >= ? AND a.date < ? ORDER BY a.date, a.id`,
		studentID, start.Format(dateFormat), end.Format(dateFormat))
}

func (q *queries) AttendanceByStudentGroupAndMonth(ctx context.Context, studentID center.StudentID, groupID center.GroupID, year, month int) ([]center.AttendanceView, error) {
	start, end := center.MonthBounds(year, month)
	return q.queryAttendanceViews(ctx,
		attendanceViewSelect+` WHERE a.student_id = ? AND a.group_id = ? AND a.date >= ? AND a.date < ? ORDER BY a.date, a.id`,
		studentID, groupID, start.Format(dateFormat), end.Format(dateFormat))
}

func (q *queries) AttendanceExists(ctx context.Context, groupID center.GroupID, date time.Time) (bool, error) {
	return q.exists(ctx,
		`SELECT 1 FROM attendance WHERE group_id = ? AND date = ? LIMIT 1`,
		groupID, date.Format(dateFormat))
}

func scanAttendanceView(r rowScanner) (*center.AttendanceView, error) {
	var av center.AttendanceView
	var date, createdAt string
	if err := r.Scan(&av.ID, &av.StudentID, &av.GroupID, &date, &av.Status, &createdAt,
		&av.StudentName, &av.GroupName, &av.TeacherName); err != nil {
		return nil, err
	}
	av.Date = parseDate(date)
	av.CreatedAt = parseTime(createdAt)
	return &av, nil
}

func (q *queries) queryAttendanceViews(ctx context.Context, query string, args ...any) ([]center.AttendanceView, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []center.AttendanceView
	for rows.Next() {
		av, err := scanAttendanceView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *av)
	}
	return views, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentViewSelect = `
	SELECT p.id, p.student_id, p.group_id, p.amount, p.paid_for_month, p.paid_at,
	       COALESCE(s.full_name, '') AS student_name,
	       COALESCE(g.name, '') AS group_name
	FROM payments p
	LEFT JOIN students s ON s.id = p.student_id
	LEFT JOIN groups g ON g.id = p.group_id`

func (q *queries) CreatePayment(ctx context.Context, p *center.Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO payments (student_id, group_id, amount, paid_for_month, paid_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.StudentID, p.GroupID, p.Amount.String(), p.PaidForMonth.String(), p.PaidAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = center.PaymentID(id)
	return nil
}

func (q *queries) GetPayment(ctx context.Context, id center.PaymentID) (*center.PaymentView, error) {
	row := q.db.QueryRowContext(ctx, paymentViewSelect+` WHERE p.id = ?`, id)
	pv, err := scanPaymentView(row)
	if err != nil {
		return nil, notFound("Payment", int64(id), err)
	}
	return pv, nil
}

func (q *queries) ListPayments(ctx context.Context) ([]center.PaymentView, error) {
	return q.queryPaymentViews(ctx, paymentViewSelect+` ORDER BY p.id`)
}

func (q *queries) UpdatePayment(ctx context.Context, p *center.Payment) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE payments SET student_id = ?, group_id = ?, amount = ?, paid_for_month = ? WHERE id = ?`,
		p.StudentID, p.GroupID, p.Amount.String(), p.PaidForMonth.String(), p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return requireRow(res, "Payment", int64(p.ID))
}

func (q *queries) DeletePayment(ctx context.Context, id center.PaymentID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return requireRow(res, "Payment", int64(id))
}

func (q *queries) PaymentsByStudent(ctx context.Context, studentID center.StudentID) ([]center.PaymentView, error) {
	return q.queryPaymentViews(ctx, paymentViewSelect+` WHERE p.student_id = ? ORDER BY p.id`, studentID)
}

func (q *queries) PaymentsByGroup(ctx context.Context, groupID center.GroupID) ([]center.PaymentView, error) {
	return q.queryPaymentViews(ctx, paymentViewSelect+` WHERE p.group_id = ? ORDER BY p.id`, groupID)
}

func (q *queries) PaymentsByDay(ctx context.Context, date time.Time) ([]center.PaymentView, error) {
	// paid_at is RFC3339; the first ten characters are the calendar date.
	return q.queryPaymentViews(ctx,
		paymentViewSelect+` WHERE substr(p.paid_at, 1, 10) = ? ORDER BY p.id`,
		date.Format(dateFormat))
}

func (q *queries) PaymentsByMonthKey(ctx context.Context, key center.MonthKey) ([]center.PaymentView, error) {
	return q.queryPaymentViews(ctx,
		paymentViewSelect+` WHERE p.paid_for_month = ? ORDER BY p.id`, key.String())
}

func (q *queries) PaymentsByYear(ctx context.Context, year int) ([]center.PaymentView, error) {
	return q.queryPaymentViews(ctx,
		paymentViewSelect+` WHERE p.paid_for_month LIKE ? ORDER BY p.id`,
		fmt.Sprintf("%d-%%", year))
}

func (q *queries) TotalPaidByStudent(ctx context.Context, studentID center.StudentID) (decimal.Decimal, error) {
	return q.sumAmounts(ctx, `SELECT amount FROM payments WHERE student_id = ?`, studentID)
}

func (q *queries) TotalPaidByGroup(ctx context.Context, groupID center.GroupID) (decimal.Decimal, error) {
	return q.sumAmounts(ctx, `SELECT amount FROM payments WHERE group_id = ?`, groupID)
}

func (q *queries) TotalPaidByGroupAndMonth(ctx context.Context, groupID center.GroupID, key center.MonthKey) (decimal.Decimal, error) {
	return q.sumAmounts(ctx,
		`SELECT amount FROM payments WHERE group_id = ? AND paid_for_month = ?`, groupID, key.String())
}

func (q *queries) TotalPaidByTeacher(ctx context.Context, teacherID center.TeacherID) (decimal.Decimal, error) {
	return q.sumAmounts(ctx, `
		SELECT p.amount FROM payments p
		JOIN groups g ON g.id = p.group_id
		WHERE g.teacher_id = ?`, teacherID)
}

// sumAmounts adds TEXT amounts with decimal arithmetic. SQLite's SUM would
// coerce to floating point.
func (q *queries) sumAmounts(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDecimal(amount))
	}
	return total, rows.Err()
}

func scanPaymentView(r rowScanner) (*center.PaymentView, error) {
	var pv center.PaymentView
	var amount, month, paidAt string
	if err := r.Scan(&pv.ID, &pv.StudentID, &pv.GroupID, &amount, &month, &paidAt,
		&pv.StudentName, &pv.GroupName); err != nil {
		return nil, err
	}
	pv.Amount = parseDecimal(amount)
	pv.PaidForMonth = center.MonthKey(month)
	pv.PaidAt = parseTime(paidAt)
	return &pv, nil
}

func (q *queries) queryPaymentViews(ctx context.Context, query string, args ...any) ([]center.PaymentView, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []center.PaymentView
	for rows.Next() {
		pv, err := scanPaymentView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *pv)
	}
	return views, rows.Err()
}

// =============================================================================
// BULK DELETES - children before parents
// =============================================================================

func (q *queries) DeleteAttendanceByStudent(ctx context.Context, studentID center.StudentID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM attendance WHERE student_id = ?`, studentID)
}

func (q *queries) DeleteAttendanceByGroup(ctx context.Context, groupID center.GroupID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM attendance WHERE group_id = ?`, groupID)
}

func (q *queries) DeletePaymentsByStudent(ctx context.Context, studentID center.StudentID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM payments WHERE student_id = ?`, studentID)
}

func (q *queries) DeletePaymentsByGroup(ctx context.Context, groupID center.GroupID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM payments WHERE group_id = ?`, groupID)
}

func (q *queries) DeleteEnrollmentsByStudent(ctx context.Context, studentID center.StudentID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM enrollments WHERE student_id = ?`, studentID)
}

func (q *queries) DeleteEnrollmentsByGroup(ctx context.Context, groupID center.GroupID) (int64, error) {
	return q.execCount(ctx, `DELETE FROM enrollments WHERE group_id = ?`, groupID)
}

func (q *queries) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
