/*
Package reports derives financial and attendance summaries from the Ledger.

PURPOSE:
  Pure read-side computation. The engine reconstructs daily, monthly, and
  yearly pictures from raw attendance and payment records; nothing here
  mutates stored state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Report value objects: always fully populated - absent data renders as
    zero values and empty (non-nil) lists, never as null fields
  - Month keys group monthly/yearly revenue; daily reports group by the
    recorded payment timestamp instead

SEE ALSO:
  - engine.go: the computations that fill these in
  - center/rates.go: collection and attendance rate math
*/
package reports

import (
	"github.com/shopspring/decimal"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// DailyReport summarizes one calendar day: attendance counts, payments
// recorded that day (by timestamp, not billing month), and a per-group
// attendance breakdown.
type DailyReport struct {
	Date                  string                   `json:"date"`
	TotalStudentsPresent  int                      `json:"total_students_present"`
	TotalStudentsAbsent   int                      `json:"total_students_absent"`
	TotalPaymentsReceived decimal.Decimal          `json:"total_payments_received"`
	PaymentCount          int                      `json:"payment_count"`
	GroupAttendances      []GroupAttendanceSummary `json:"group_attendances"`
	Payments              []PaymentSummary         `json:"payments"`
}

// GroupAttendanceSummary is one group's attendance on one day.
type GroupAttendanceSummary struct {
	GroupID       center.GroupID `json:"group_id"`
	GroupName     string         `json:"group_name"`
	TeacherName   string         `json:"teacher_name"`
	PresentCount  int            `json:"present_count"`
	AbsentCount   int            `json:"absent_count"`
	TotalStudents int            `json:"total_students"`
}

// PaymentSummary is one payment flattened for report listings.
type PaymentSummary struct {
	PaymentID    center.PaymentID `json:"payment_id"`
	StudentName  string           `json:"student_name"`
	GroupName    string           `json:"group_name"`
	Amount       decimal.Decimal  `json:"amount"`
	PaidForMonth center.MonthKey  `json:"paid_for_month"`
}

// MonthlyReport summarizes one billing month: expected versus actual revenue
// per group and overall, who paid and who did not, and the month's
// attendance rate.
type MonthlyReport struct {
	Year                int                    `json:"year"`
	Month               int                    `json:"month"`
	MonthName           string                 `json:"month_name"`
	TotalActiveStudents int                    `json:"total_active_students"`
	TotalGroups         int                    `json:"total_groups"`
	ExpectedRevenue     decimal.Decimal        `json:"expected_revenue"`
	ActualRevenue       decimal.Decimal        `json:"actual_revenue"`
	CollectionRate      decimal.Decimal        `json:"collection_rate"`
	TotalPayments       int                    `json:"total_payments"`
	StudentsWhoPaid     int                    `json:"students_who_paid"`
	StudentsWhoDidNotPay int                   `json:"students_who_did_not_pay"`
	GroupStats          []GroupMonthlyStats    `json:"group_stats"`
	UnpaidStudents      []StudentPaymentStatus `json:"unpaid_students"`
	AttendanceStats     AttendanceStats        `json:"attendance_stats"`
}

// GroupMonthlyStats is one group's collection picture for the month. Only
// groups with at least one active enrollment appear.
type GroupMonthlyStats struct {
	GroupID         center.GroupID  `json:"group_id"`
	GroupName       string          `json:"group_name"`
	TeacherName     string          `json:"teacher_name"`
	ActiveStudents  int             `json:"active_students"`
	ExpectedRevenue decimal.Decimal `json:"expected_revenue"`
	ActualRevenue   decimal.Decimal `json:"actual_revenue"`
	PaidStudents    int             `json:"paid_students"`
	UnpaidStudents  int             `json:"unpaid_students"`
	CollectionRate  decimal.Decimal `json:"collection_rate"`
}

// StudentPaymentStatus is one (student, group) pair that owes for the month,
// with the contact details outreach needs.
type StudentPaymentStatus struct {
	StudentID   center.StudentID `json:"student_id"`
	StudentName string           `json:"student_name"`
	ParentName  string           `json:"parent_name"`
	ParentPhone string           `json:"parent_phone"`
	GroupID     center.GroupID   `json:"group_id"`
	GroupName   string           `json:"group_name"`
	AmountDue   decimal.Decimal  `json:"amount_due"`
	HasPaid     bool             `json:"has_paid"`
}

// YearlyReport summarizes one calendar year of revenue (grouped by the
// billing month token) and attendance.
type YearlyReport struct {
	Year             int                     `json:"year"`
	TotalRevenue     decimal.Decimal         `json:"total_revenue"`
	TotalPayments    int                     `json:"total_payments"`
	MonthlyBreakdown []MonthlyRevenueSummary `json:"monthly_breakdown"`
	TeacherStats     []TeacherYearlyStats    `json:"teacher_stats"`
	TopGroups        []GroupYearlyStats      `json:"top_groups"`
	AttendanceStats  AttendanceStats         `json:"attendance_stats"`
}

// MonthlyRevenueSummary is one month's slice of the yearly breakdown. The
// breakdown always has exactly twelve entries, zero-filled where no payment
// carried that month's token.
type MonthlyRevenueSummary struct {
	Month        int             `json:"month"`
	MonthName    string          `json:"month_name"`
	Revenue      decimal.Decimal `json:"revenue"`
	PaymentCount int             `json:"payment_count"`
}

// TeacherYearlyStats aggregates a teacher's groups for the year.
type TeacherYearlyStats struct {
	TeacherID     center.TeacherID `json:"teacher_id"`
	TeacherName   string           `json:"teacher_name"`
	GroupCount    int              `json:"group_count"`
	TotalStudents int              `json:"total_students"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
}

// GroupYearlyStats is one group's revenue for the year.
type GroupYearlyStats struct {
	GroupID       center.GroupID  `json:"group_id"`
	GroupName     string          `json:"group_name"`
	TeacherName   string          `json:"teacher_name"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalPayments int             `json:"total_payments"`
}

// AttendanceStats is a present/absent tally with its rate.
type AttendanceStats struct {
	TotalPresent   int             `json:"total_present"`
	TotalAbsent    int             `json:"total_absent"`
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
}
