/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATE FORMATS:
  Calendar dates are "YYYY-MM-DD" strings. Timestamps are RFC3339.
  Billing months are "YYYY-MM" tokens (center.MonthKey).

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - reports/types.go: Report responses are serialized as-is, no DTO layer
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// =============================================================================
// TEACHER
// =============================================================================

// TeacherDTO represents a teacher in API responses. TotalIncome is the sum
// of all payments across the teacher's groups.
type TeacherDTO struct {
	ID          center.TeacherID `json:"id"`
	FullName    string           `json:"full_name"`
	PhoneNumber string           `json:"phone_number"`
	TotalIncome decimal.Decimal  `json:"total_income"`
	CreatedAt   string           `json:"created_at,omitempty"`
}

// TeacherRequest is the request to create or update a teacher.
type TeacherRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// =============================================================================
// GROUP
// =============================================================================

// GroupDTO represents a group in API responses. TotalPaid covers the whole
// payment history unless the request narrows it to one billing month.
type GroupDTO struct {
	ID            center.GroupID   `json:"id"`
	Name          string           `json:"name"`
	TeacherID     center.TeacherID `json:"teacher_id"`
	TeacherName   string           `json:"teacher_name"`
	MonthlyFee    decimal.Decimal  `json:"monthly_fee"`
	StudentsCount int              `json:"students_count"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	CreatedAt     string           `json:"created_at,omitempty"`
}

// GroupRequest is the request to create or update a group.
type GroupRequest struct {
	Name       string           `json:"name"`
	TeacherID  center.TeacherID `json:"teacher_id"`
	MonthlyFee decimal.Decimal  `json:"monthly_fee"`
}

// =============================================================================
// STUDENT
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID                center.StudentID `json:"id"`
	FullName          string           `json:"full_name"`
	ParentName        string           `json:"parent_name"`
	ParentPhone       string           `json:"parent_phone"`
	ReferenceCode     string           `json:"reference_code"`
	TotalPaid         decimal.Decimal  `json:"total_paid"`
	ActiveEnrollments int              `json:"active_enrollments"`
	CreatedAt         string           `json:"created_at,omitempty"`
}

// StudentRequest is the request to create or update a student. The reference
// code is server-generated and cannot be supplied.
type StudentRequest struct {
	FullName    string `json:"full_name"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
}

// =============================================================================
// ENROLLMENT
// =============================================================================

// EnrollmentDTO represents an enrollment with joined names.
type EnrollmentDTO struct {
	ID          center.EnrollmentID `json:"id"`
	StudentID   center.StudentID    `json:"student_id"`
	StudentName string              `json:"student_name"`
	GroupID     center.GroupID      `json:"group_id"`
	GroupName   string              `json:"group_name"`
	TeacherName string              `json:"teacher_name"`
	MonthlyFee  decimal.Decimal     `json:"monthly_fee"`
	Active      bool                `json:"active"`
	EnrolledAt  string              `json:"enrolled_at"`
	LeftAt      *string             `json:"left_at,omitempty"`
}

// EnrollRequest is the request to enroll a student into a group.
type EnrollRequest struct {
	StudentID center.StudentID `json:"student_id"`
	GroupID   center.GroupID   `json:"group_id"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceDTO represents one attendance record with joined names.
type AttendanceDTO struct {
	ID          center.AttendanceID     `json:"id"`
	StudentID   center.StudentID        `json:"student_id"`
	StudentName string                  `json:"student_name"`
	GroupID     center.GroupID          `json:"group_id"`
	GroupName   string                  `json:"group_name"`
	Date        string                  `json:"date"`
	Status      center.AttendanceStatus `json:"status"`
}

// CreateAttendanceRequest takes attendance for a whole group on one date.
// Every active student is marked PRESENT unless listed in absent_student_ids.
type CreateAttendanceRequest struct {
	GroupID          center.GroupID     `json:"group_id"`
	Date             string             `json:"date"`
	AbsentStudentIDs []center.StudentID `json:"absent_student_ids"`
}

// UpdateAttendanceRequest flips one record's status.
type UpdateAttendanceRequest struct {
	Status center.AttendanceStatus `json:"status"`
}

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID           center.PaymentID `json:"id"`
	StudentID    center.StudentID `json:"student_id"`
	StudentName  string           `json:"student_name"`
	GroupID      center.GroupID   `json:"group_id"`
	GroupName    string           `json:"group_name"`
	Amount       decimal.Decimal  `json:"amount"`
	PaidForMonth center.MonthKey  `json:"paid_for_month"`
	PaidAt       string           `json:"paid_at"`
}

// PaymentRequest is the request to record or correct a payment.
type PaymentRequest struct {
	StudentID    center.StudentID `json:"student_id"`
	GroupID      center.GroupID   `json:"group_id"`
	Amount       decimal.Decimal  `json:"amount"`
	PaidForMonth center.MonthKey  `json:"paid_for_month"`
}

// =============================================================================
// INQUIRY
// =============================================================================

// InquiryDTO represents a prospective student in API responses.
type InquiryDTO struct {
	ID                center.InquiryID     `json:"id"`
	FullName          string               `json:"full_name"`
	ParentName        string               `json:"parent_name"`
	ParentPhone       string               `json:"parent_phone"`
	InterestedCourses string               `json:"interested_courses"`
	Status            center.InquiryStatus `json:"status"`
	Notes             string               `json:"notes"`
	CreatedAt         string               `json:"created_at,omitempty"`
	UpdatedAt         string               `json:"updated_at,omitempty"`
}

// InquiryRequest is the request to create or update an inquiry.
type InquiryRequest struct {
	FullName          string               `json:"full_name"`
	ParentName        string               `json:"parent_name"`
	ParentPhone       string               `json:"parent_phone"`
	InterestedCourses string               `json:"interested_courses"`
	Status            center.InquiryStatus `json:"status"`
	Notes             string               `json:"notes"`
}

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toTeacherDTO(t *center.Teacher) TeacherDTO {
	return TeacherDTO{
		ID:          t.ID,
		FullName:    t.FullName,
		PhoneNumber: t.PhoneNumber,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toGroupDTO(g *center.GroupView) GroupDTO {
	return GroupDTO{
		ID:          g.ID,
		Name:        g.Name,
		TeacherID:   g.TeacherID,
		TeacherName: g.TeacherName,
		MonthlyFee:  g.MonthlyFee,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

func toStudentDTO(s *center.Student) StudentDTO {
	return StudentDTO{
		ID:            s.ID,
		FullName:      s.FullName,
		ParentName:    s.ParentName,
		ParentPhone:   s.ParentPhone,
		ReferenceCode: s.ReferenceCode,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

func toEnrollmentDTO(e *center.EnrollmentView) EnrollmentDTO {
	dto := EnrollmentDTO{
		ID:          e.ID,
		StudentID:   e.StudentID,
		StudentName: e.StudentName,
		GroupID:     e.GroupID,
		GroupName:   e.GroupName,
		TeacherName: e.TeacherName,
		MonthlyFee:  e.MonthlyFee,
		Active:      e.Active,
		EnrolledAt:  e.EnrolledAt.Format("2006-01-02"),
	}
	if e.LeftAt != nil {
		left := e.LeftAt.Format("2006-01-02")
		dto.LeftAt = &left
	}
	return dto
}

func toAttendanceDTO(a *center.AttendanceView) AttendanceDTO {
	return AttendanceDTO{
		ID:          a.ID,
		StudentID:   a.StudentID,
		StudentName: a.StudentName,
		GroupID:     a.GroupID,
		GroupName:   a.GroupName,
		Date:        a.Date.Format("2006-01-02"),
		Status:      a.Status,
	}
}

func toPaymentDTO(p *center.PaymentView) PaymentDTO {
	return PaymentDTO{
		ID:           p.ID,
		StudentID:    p.StudentID,
		StudentName:  p.StudentName,
		GroupID:      p.GroupID,
		GroupName:    p.GroupName,
		Amount:       p.Amount,
		PaidForMonth: p.PaidForMonth,
		PaidAt:       p.PaidAt.Format(time.RFC3339),
	}
}

func toInquiryDTO(i *center.Inquiry) InquiryDTO {
	return InquiryDTO{
		ID:                i.ID,
		FullName:          i.FullName,
		ParentName:        i.ParentName,
		ParentPhone:       i.ParentPhone,
		InterestedCourses: i.InterestedCourses,
		Status:            i.Status,
		Notes:             i.Notes,
		CreatedAt:         i.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         i.UpdatedAt.Format(time.RFC3339),
	}
}

func toEnrollmentDTOs(views []center.EnrollmentView) []EnrollmentDTO {
	dtos := make([]EnrollmentDTO, len(views))
	for i := range views {
		dtos[i] = toEnrollmentDTO(&views[i])
	}
	return dtos
}

func toAttendanceDTOs(views []center.AttendanceView) []AttendanceDTO {
	dtos := make([]AttendanceDTO, len(views))
	for i := range views {
		dtos[i] = toAttendanceDTO(&views[i])
	}
	return dtos
}

func toPaymentDTOs(views []center.PaymentView) []PaymentDTO {
	dtos := make([]PaymentDTO, len(views))
	for i := range views {
		dtos[i] = toPaymentDTO(&views[i])
	}
	return dtos
}
