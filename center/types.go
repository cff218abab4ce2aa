/*
Package center provides the core domain model for the learning center.

PURPOSE:
  This package contains the entities, identifiers, and shared math used by
  the enrollment lifecycle manager and the reporting engine: teachers, groups,
  students, enrollments, attendance records, and tuition payments.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers: StudentID, GroupID, ... prevent mixing entity IDs
  - Entities: plain structs, storage-agnostic (the Ledger persists them)
  - Views: read models with denormalized names/fees joined in by the Ledger

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every fee, amount, and rate
  2. Type Safety: strong typing for IDs
  3. Temporal state: an Enrollment carries its own enrolledAt/leftAt dates
     and survives independently of its parents' other enrollments

SEE ALSO:
  - errors.go: Error taxonomy (NotFound, Conflict, InvalidArgument)
  - monthkey.go: Canonical YYYY-MM billing month tokens
  - rates.go: Collection and attendance rate math
  - store.go: Ledger interface consumed by the core components
*/
package center

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TeacherID int64
type GroupID int64
type StudentID int64
type EnrollmentID int64
type AttendanceID int64
type PaymentID int64
type InquiryID int64

// =============================================================================
// ENTITIES
// =============================================================================

// Teacher owns zero or more groups. A teacher cannot be deleted while it
// still owns a group.
type Teacher struct {
	ID          TeacherID
	FullName    string
	PhoneNumber string
	CreatedAt   time.Time
}

// Group is a class taught by exactly one teacher, billed monthly.
type Group struct {
	ID         GroupID
	Name       string
	TeacherID  TeacherID
	MonthlyFee decimal.Decimal
	CreatedAt  time.Time
}

// Student is a member of the center. ReferenceCode is a unique code of the
// form STU-XXXXXXXX handed to parents for payment references.
type Student struct {
	ID            StudentID
	FullName      string
	ParentName    string
	ParentPhone   string
	ReferenceCode string
	CreatedAt     time.Time
}

// Enrollment is the student<->group membership. At most one row exists per
// (student, group) pair: deactivation sets Active=false and LeftAt, and a
// later re-enrollment reactivates the same row instead of inserting a new one.
type Enrollment struct {
	ID         EnrollmentID
	StudentID  StudentID
	GroupID    GroupID
	Active     bool
	EnrolledAt time.Time
	LeftAt     *time.Time
	CreatedAt  time.Time
}

// AttendanceStatus is the recorded state of one student on one class day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
)

// Attendance is one student's status in one group on one calendar date.
// The creation workflow guarantees at most one record per (student, group,
// date); the database does not enforce it.
type Attendance struct {
	ID        AttendanceID
	StudentID StudentID
	GroupID   GroupID
	Date      time.Time
	Status    AttendanceStatus
	CreatedAt time.Time
}

// Payment records tuition paid by a student for a group. PaidForMonth is the
// billing month token (YYYY-MM) and is logically distinct from PaidAt, the
// timestamp the payment was recorded. A payment may reference an inactive
// enrollment (historical back-payments are allowed).
type Payment struct {
	ID           PaymentID
	StudentID    StudentID
	GroupID      GroupID
	Amount       decimal.Decimal
	PaidForMonth MonthKey
	PaidAt       time.Time
}

// InquiryStatus tracks how far a prospective student has come.
type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "NEW"
	InquiryContacted InquiryStatus = "CONTACTED"
	InquiryEnrolled  InquiryStatus = "ENROLLED"
	InquiryRejected  InquiryStatus = "REJECTED"
)

// Inquiry is a prospective student who has not enrolled yet.
type Inquiry struct {
	ID                InquiryID
	FullName          string
	ParentName        string
	ParentPhone       string
	InterestedCourses string
	Status            InquiryStatus
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// =============================================================================
// READ MODELS - denormalized views joined in by the Ledger
// =============================================================================

// EnrollmentView is an Enrollment with the names and fee a caller wants to
// show without further lookups.
type EnrollmentView struct {
	Enrollment
	StudentName string
	ParentName  string
	ParentPhone string
	GroupName   string
	TeacherName string
	MonthlyFee  decimal.Decimal
}

// AttendanceView is an Attendance record with student/group/teacher names.
type AttendanceView struct {
	Attendance
	StudentName string
	GroupName   string
	TeacherName string
}

// PaymentView is a Payment with student/group names. Names may be empty when
// the referenced row was deleted after the payment was recorded; report code
// substitutes placeholders rather than failing.
type PaymentView struct {
	Payment
	StudentName string
	GroupName   string
}

// GroupView is a Group with its teacher's name joined in. TeacherName is
// empty when the teacher row is missing.
type GroupView struct {
	Group
	TeacherName string
}
