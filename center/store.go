/*
store.go - The Ledger persistence interface

PURPOSE:
  Defines the interface between the domain logic and durable storage. The
  Ledger persists the center's entities and answers the point, range, and
  aggregate queries the lifecycle manager and the reporting engine need.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Ledger:   Full query/write surface, grouped per entity below
  TxLedger: Ledger plus WithTx for atomic multi-step mutations

ATOMICITY:
  Enroll, Withdraw, and the purge cascade each run inside one WithTx call.
  The four-stage purge (attendance -> payments -> enrollments -> student)
  must never be observably partial.

READ CONSISTENCY:
  Reports read whatever the store's default consistency provides. There is
  no snapshot isolation stronger than a single query; concurrent writers may
  be visible mid-report. That is accepted (best-effort reporting).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite

SEE ALSO:
  - enrollment/manager.go: Lifecycle mutations over TxLedger
  - reports/engine.go: Read-only aggregation over Ledger
*/
package center

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PER-ENTITY STORE SURFACES
// =============================================================================

type TeacherStore interface {
	CreateTeacher(ctx context.Context, t *Teacher) error
	GetTeacher(ctx context.Context, id TeacherID) (*Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	UpdateTeacher(ctx context.Context, t *Teacher) error
	DeleteTeacher(ctx context.Context, id TeacherID) error
	TeacherExists(ctx context.Context, id TeacherID) (bool, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id GroupID) (*GroupView, error)
	ListGroups(ctx context.Context) ([]GroupView, error)
	ListGroupsByTeacher(ctx context.Context, teacherID TeacherID) ([]GroupView, error)
	UpdateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, id GroupID) error
	GroupExists(ctx context.Context, id GroupID) (bool, error)
}

type StudentStore interface {
	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id StudentID) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s *Student) error
	DeleteStudent(ctx context.Context, id StudentID) error
	StudentExists(ctx context.Context, id StudentID) (bool, error)
}

type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	UpdateEnrollment(ctx context.Context, e *Enrollment) error

	// FindEnrollment returns the single row for (student, group), active or
	// not. Returns NotFound when no row exists.
	FindEnrollment(ctx context.Context, studentID StudentID, groupID GroupID) (*Enrollment, error)
	GetEnrollmentView(ctx context.Context, id EnrollmentID) (*EnrollmentView, error)

	EnrollmentsByStudent(ctx context.Context, studentID StudentID, activeOnly bool) ([]EnrollmentView, error)
	EnrollmentsByGroup(ctx context.Context, groupID GroupID, activeOnly bool) ([]EnrollmentView, error)
	CountActiveEnrollmentsByStudent(ctx context.Context, studentID StudentID) (int, error)
	CountActiveEnrollmentsByGroup(ctx context.Context, groupID GroupID) (int, error)
}

type AttendanceStore interface {
	CreateAttendances(ctx context.Context, records []Attendance) ([]Attendance, error)
	GetAttendance(ctx context.Context, id AttendanceID) (*AttendanceView, error)
	UpdateAttendanceStatus(ctx context.Context, id AttendanceID, status AttendanceStatus) error

	AttendanceByDate(ctx context.Context, date time.Time) ([]AttendanceView, error)
	AttendanceByGroupAndDate(ctx context.Context, groupID GroupID, date time.Time) ([]AttendanceView, error)
	AttendanceByMonth(ctx context.Context, year, month int) ([]AttendanceView, error)
	AttendanceByGroupAndMonth(ctx context.Context, groupID GroupID, year, month int) ([]AttendanceView, error)
	AttendanceByStudentAndMonth(ctx context.Context, studentID StudentID, year, month int) ([]AttendanceView, error)
	AttendanceByStudentGroupAndMonth(ctx context.Context, studentID StudentID, groupID GroupID, year, month int) ([]AttendanceView, error)
	AttendanceExists(ctx context.Context, groupID GroupID, date time.Time) (bool, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id PaymentID) (*PaymentView, error)
	ListPayments(ctx context.Context) ([]PaymentView, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	DeletePayment(ctx context.Context, id PaymentID) error

	PaymentsByStudent(ctx context.Context, studentID StudentID) ([]PaymentView, error)
	PaymentsByGroup(ctx context.Context, groupID GroupID) ([]PaymentView, error)
	// PaymentsByDay selects by the recorded PaidAt timestamp, not the token.
	PaymentsByDay(ctx context.Context, date time.Time) ([]PaymentView, error)
	// PaymentsByMonthKey selects by the paid-for-month token.
	PaymentsByMonthKey(ctx context.Context, key MonthKey) ([]PaymentView, error)
	// PaymentsByYear selects by the year component of the token.
	PaymentsByYear(ctx context.Context, year int) ([]PaymentView, error)

	TotalPaidByStudent(ctx context.Context, studentID StudentID) (decimal.Decimal, error)
	TotalPaidByGroup(ctx context.Context, groupID GroupID) (decimal.Decimal, error)
	TotalPaidByGroupAndMonth(ctx context.Context, groupID GroupID, key MonthKey) (decimal.Decimal, error)
	TotalPaidByTeacher(ctx context.Context, teacherID TeacherID) (decimal.Decimal, error)
}

type InquiryStore interface {
	CreateInquiry(ctx context.Context, i *Inquiry) error
	GetInquiry(ctx context.Context, id InquiryID) (*Inquiry, error)
	ListInquiries(ctx context.Context) ([]Inquiry, error)
	ListInquiriesByStatus(ctx context.Context, status InquiryStatus) ([]Inquiry, error)
	UpdateInquiry(ctx context.Context, i *Inquiry) error
	DeleteInquiry(ctx context.Context, id InquiryID) error
}

// BulkDeleteStore removes all child rows referencing a parent. Used by the
// purge cascade and by group deletion; both run children-before-parents.
type BulkDeleteStore interface {
	DeleteAttendanceByStudent(ctx context.Context, studentID StudentID) (int64, error)
	DeleteAttendanceByGroup(ctx context.Context, groupID GroupID) (int64, error)
	DeletePaymentsByStudent(ctx context.Context, studentID StudentID) (int64, error)
	DeletePaymentsByGroup(ctx context.Context, groupID GroupID) (int64, error)
	DeleteEnrollmentsByStudent(ctx context.Context, studentID StudentID) (int64, error)
	DeleteEnrollmentsByGroup(ctx context.Context, groupID GroupID) (int64, error)
}

// =============================================================================
// LEDGER - the full storage surface
// =============================================================================

// Ledger is everything the core consumes from durable storage.
type Ledger interface {
	TeacherStore
	GroupStore
	StudentStore
	EnrollmentStore
	AttendanceStore
	PaymentStore
	InquiryStore
	BulkDeleteStore
}

// TxLedger wraps Ledger with transaction support.
// Use this when a mutation must be atomic across multiple writes.
type TxLedger interface {
	Ledger

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Ledger) error) error
}
