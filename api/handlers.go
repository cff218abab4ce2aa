/*
handlers.go - HTTP API handlers for the learning center

PURPOSE:
  Exposes the learning center via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Teachers:
    GET    /api/teachers                List all teachers
    POST   /api/teachers                Create teacher
    GET    /api/teachers/{id}           Get teacher
    PUT    /api/teachers/{id}           Update teacher
    DELETE /api/teachers/{id}           Delete teacher (409 while owning groups)

  Groups:
    GET    /api/groups                  List all groups (?month= narrows totals)
    POST   /api/groups                  Create group
    GET    /api/groups/{id}             Get group (?month= narrows totals)
    GET    /api/groups/teacher/{id}     Groups of one teacher
    PUT    /api/groups/{id}             Update group
    DELETE /api/groups/{id}             Cascade delete group and its records

  Students:
    GET    /api/students                List all students
    POST   /api/students                Create student (reference code generated)
    GET    /api/students/{id}           Get student
    PUT    /api/students/{id}           Update student
    DELETE /api/students/{id}           Cascade delete student and its records

  Enrollments:
    POST   /api/enrollments                               Enroll (or reactivate)
    DELETE /api/enrollments/student/{sid}/group/{gid}     Withdraw (may purge)
    GET    /api/enrollments/student/{sid}[?active=true]   Enrollments of a student
    GET    /api/enrollments/group/{gid}                   Active roster of a group

  Attendance:
    POST   /api/attendance                                Take a group's attendance
    GET    /api/attendance/{id}                           Get one record
    PUT    /api/attendance/{id}                           Flip one record's status
    GET    /api/attendance/date/{date}                    All records on a date
    GET    /api/attendance/month                          All records, ?year=&month=
    GET    /api/attendance/group/{gid}/date/{date}        One group on a date
    GET    /api/attendance/group/{gid}/month              One group, ?year=&month=
    GET    /api/attendance/student/{sid}/month            One student, ?year=&month=
    GET    /api/attendance/student/{sid}/group/{gid}/month  One pair, ?year=&month=

  Payments:
    GET    /api/payments                List all payments
    POST   /api/payments                Record payment (enrollment row required)
    GET    /api/payments/{id}           Get payment
    PUT    /api/payments/{id}           Correct payment
    DELETE /api/payments/{id}           Delete payment
    GET    /api/payments/student/{id}   Payments of a student
    GET    /api/payments/group/{id}     Payments of a group

  Inquiries:
    GET    /api/inquiries[?status=]     List inquiries
    POST   /api/inquiries               Create inquiry
    GET    /api/inquiries/{id}          Get inquiry
    PUT    /api/inquiries/{id}          Update inquiry
    DELETE /api/inquiries/{id}          Delete inquiry

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: Conflict (duplicate attendance, active enrollment, owned groups)
  - 500: Internal errors
  Report endpoints are the exception: see reports.go.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report facade
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
	"github.com/NorpulatovDev/CreativeLearningCenter/enrollment"
	"github.com/NorpulatovDev/CreativeLearningCenter/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       center.TxLedger
	Enrollments *enrollment.Manager
	Reports     *reports.Engine
	Log         *zap.Logger
}

// NewHandler creates a handler and wires the lifecycle manager and report
// engine over the given store.
func NewHandler(store center.TxLedger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		Enrollments: enrollment.NewManager(store, log),
		Reports:     reports.NewEngine(store, log),
		Log:         log,
	}
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// teacherDTO attaches the teacher's total income, summed across the
// payments of every group they teach.
func (h *Handler) teacherDTO(ctx context.Context, t *center.Teacher) (TeacherDTO, error) {
	dto := toTeacherDTO(t)
	total, err := h.Store.TotalPaidByTeacher(ctx, t.ID)
	if err != nil {
		return dto, err
	}
	dto.TotalIncome = total
	return dto, nil
}

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teachers, err := h.Store.ListTeachers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i := range teachers {
		if dtos[i], err = h.teacherDTO(ctx, &teachers[i]); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTeacher returns a single teacher.
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	t, err := h.Store.GetTeacher(ctx, center.TeacherID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.teacherDTO(ctx, t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load teacher", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateTeacher creates a new teacher.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req TeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}

	t := &center.Teacher{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	}
	if err := h.Store.CreateTeacher(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(t))
}

// UpdateTeacher updates an existing teacher.
func (h *Handler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req TeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}

	ctx := r.Context()
	t, err := h.Store.GetTeacher(ctx, center.TeacherID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	t.FullName = req.FullName
	t.PhoneNumber = req.PhoneNumber
	if err := h.Store.UpdateTeacher(ctx, t); err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.teacherDTO(ctx, t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load teacher", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteTeacher deletes a teacher. Refused while the teacher still owns
// groups: groups carry the billing history, so the caller must delete or
// reassign them first.
func (h *Handler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	groups, err := h.Store.ListGroupsByTeacher(ctx, center.TeacherID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check groups", err)
		return
	}
	if len(groups) > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("Teacher still owns %d group(s); delete or reassign them first", len(groups)), nil)
		return
	}

	if err := h.Store.DeleteTeacher(ctx, center.TeacherID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GROUP HANDLERS
// =============================================================================

// groupDTO attaches the active-student count and the paid total. A non-empty
// month narrows the total to that billing month.
func (h *Handler) groupDTO(ctx context.Context, g *center.GroupView, month center.MonthKey) (GroupDTO, error) {
	dto := toGroupDTO(g)
	count, err := h.Store.CountActiveEnrollmentsByGroup(ctx, g.ID)
	if err != nil {
		return dto, err
	}
	dto.StudentsCount = count

	var total decimal.Decimal
	if month != "" {
		total, err = h.Store.TotalPaidByGroupAndMonth(ctx, g.ID, month)
	} else {
		total, err = h.Store.TotalPaidByGroup(ctx, g.ID)
	}
	if err != nil {
		return dto, err
	}
	dto.TotalPaid = total
	return dto, nil
}

// monthKeyQuery reads an optional ?month=YYYY-MM filter. Returns "" when the
// parameter is absent.
func monthKeyQuery(w http.ResponseWriter, r *http.Request) (center.MonthKey, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return "", true
	}
	key := center.MonthKey(raw)
	if !key.Valid() {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM", nil)
		return "", false
	}
	return key, true
}

func (h *Handler) writeGroupDTOs(w http.ResponseWriter, r *http.Request, groups []center.GroupView) {
	month, ok := monthKeyQuery(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	dtos := make([]GroupDTO, len(groups))
	var err error
	for i := range groups {
		if dtos[i], err = h.groupDTO(ctx, &groups[i], month); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load groups", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListGroups returns all groups with teacher names. ?month=YYYY-MM narrows
// each group's paid total to one billing month.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.ListGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list groups", err)
		return
	}
	h.writeGroupDTOs(w, r, groups)
}

// GetGroup returns a single group. ?month=YYYY-MM narrows the paid total to
// one billing month.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	month, ok := monthKeyQuery(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	g, err := h.Store.GetGroup(ctx, center.GroupID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.groupDTO(ctx, g, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load group", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListGroupsByTeacher returns all groups taught by one teacher.
func (h *Handler) ListGroupsByTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	groups, err := h.Store.ListGroupsByTeacher(r.Context(), center.TeacherID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list groups", err)
		return
	}
	h.writeGroupDTOs(w, r, groups)
}

func validateGroupRequest(req *GroupRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &center.InvalidArgumentError{Reason: "name is required"}
	}
	if req.MonthlyFee.IsNegative() {
		return &center.InvalidArgumentError{Reason: "monthly_fee must not be negative"}
	}
	return nil
}

// CreateGroup creates a new group under an existing teacher.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateGroupRequest(&req); err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	exists, err := h.Store.TeacherExists(ctx, req.TeacherID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check teacher", err)
		return
	}
	if !exists {
		writeDomainError(w, &center.NotFoundError{Entity: "teacher", ID: int64(req.TeacherID)})
		return
	}

	g := &center.Group{
		Name:       req.Name,
		TeacherID:  req.TeacherID,
		MonthlyFee: req.MonthlyFee,
	}
	if err := h.Store.CreateGroup(ctx, g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create group", err)
		return
	}

	view, err := h.Store.GetGroup(ctx, g.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.groupDTO(ctx, view, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load group", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// UpdateGroup updates a group's name, fee, or teacher.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateGroupRequest(&req); err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	view, err := h.Store.GetGroup(ctx, center.GroupID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	exists, err := h.Store.TeacherExists(ctx, req.TeacherID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check teacher", err)
		return
	}
	if !exists {
		writeDomainError(w, &center.NotFoundError{Entity: "teacher", ID: int64(req.TeacherID)})
		return
	}

	g := view.Group
	g.Name = req.Name
	g.TeacherID = req.TeacherID
	g.MonthlyFee = req.MonthlyFee
	if err := h.Store.UpdateGroup(ctx, &g); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Store.GetGroup(ctx, g.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.groupDTO(ctx, updated, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load group", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteGroup deletes a group and every record hanging off it, atomically.
// Children go first: enrollments, attendance, payments, then the group row.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	groupID := center.GroupID(id)

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx center.Ledger) error {
		exists, err := tx.GroupExists(ctx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return &center.NotFoundError{Entity: "group", ID: int64(groupID)}
		}
		if _, err := tx.DeleteEnrollmentsByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := tx.DeleteAttendanceByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := tx.DeletePaymentsByGroup(ctx, groupID); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx, groupID)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// newReferenceCode generates a parent-facing payment reference, STU-XXXXXXXX.
func newReferenceCode() string {
	return "STU-" + strings.ToUpper(uuid.NewString()[:8])
}

// studentDTO attaches the student's lifetime paid total and active
// enrollment count.
func (h *Handler) studentDTO(ctx context.Context, s *center.Student) (StudentDTO, error) {
	dto := toStudentDTO(s)
	total, err := h.Store.TotalPaidByStudent(ctx, s.ID)
	if err != nil {
		return dto, err
	}
	dto.TotalPaid = total

	count, err := h.Store.CountActiveEnrollmentsByStudent(ctx, s.ID)
	if err != nil {
		return dto, err
	}
	dto.ActiveEnrollments = count
	return dto, nil
}

// ListStudents returns all students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	students, err := h.Store.ListStudents(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i := range students {
		if dtos[i], err = h.studentDTO(ctx, &students[i]); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list students", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	s, err := h.Store.GetStudent(ctx, center.StudentID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.studentDTO(ctx, s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load student", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateStudent creates a new student with a generated reference code.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}

	s := &center.Student{
		FullName:      req.FullName,
		ParentName:    req.ParentName,
		ParentPhone:   req.ParentPhone,
		ReferenceCode: newReferenceCode(),
	}
	if err := h.Store.CreateStudent(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(s))
}

// UpdateStudent updates a student's contact details. The reference code is
// immutable.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}

	ctx := r.Context()
	s, err := h.Store.GetStudent(ctx, center.StudentID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.FullName = req.FullName
	s.ParentName = req.ParentName
	s.ParentPhone = req.ParentPhone
	if err := h.Store.UpdateStudent(ctx, s); err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.studentDTO(ctx, s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load student", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteStudent removes a student and all of their records, atomically.
// Same ordering as the lifecycle purge: attendance, payments, enrollments,
// then the student row.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	studentID := center.StudentID(id)

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx center.Ledger) error {
		exists, err := tx.StudentExists(ctx, studentID)
		if err != nil {
			return err
		}
		if !exists {
			return &center.NotFoundError{Entity: "student", ID: int64(studentID)}
		}
		if _, err := tx.DeleteAttendanceByStudent(ctx, studentID); err != nil {
			return err
		}
		if _, err := tx.DeletePaymentsByStudent(ctx, studentID); err != nil {
			return err
		}
		if _, err := tx.DeleteEnrollmentsByStudent(ctx, studentID); err != nil {
			return err
		}
		return tx.DeleteStudent(ctx, studentID)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

// Enroll enrolls a student into a group, reactivating a previous enrollment
// when one exists.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Enrollments.Enroll(r.Context(), req.StudentID, req.GroupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnrollmentDTO(view))
}

// Withdraw deactivates an enrollment. When it was the student's last active
// enrollment the student and all their records are purged.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	sid, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.Enrollments.Withdraw(r.Context(), center.StudentID(sid), center.GroupID(gid)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEnrollmentsByStudent returns a student's enrollments, all of them or
// only the active ones with ?active=true.
func (h *Handler) ListEnrollmentsByStudent(w http.ResponseWriter, r *http.Request) {
	sid, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}

	var (
		views []center.EnrollmentView
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		views, err = h.Enrollments.ListActiveByStudent(r.Context(), center.StudentID(sid))
	} else {
		views, err = h.Enrollments.ListByStudent(r.Context(), center.StudentID(sid))
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentDTOs(views))
}

// ListEnrollmentsByGroup returns a group's active roster.
func (h *Handler) ListEnrollmentsByGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	views, err := h.Enrollments.ListByGroup(r.Context(), center.GroupID(gid))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentDTOs(views))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CreateAttendance takes attendance for a whole group on one date. Exactly
// one sheet per (group, date): a second attempt is a conflict. Every active
// student is PRESENT unless listed in absent_student_ids.
func (h *Handler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	var req CreateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	ctx := r.Context()
	var (
		created []center.Attendance
		views   []center.AttendanceView
	)
	err = h.Store.WithTx(ctx, func(tx center.Ledger) error {
		exists, err := tx.GroupExists(ctx, req.GroupID)
		if err != nil {
			return err
		}
		if !exists {
			return &center.NotFoundError{Entity: "group", ID: int64(req.GroupID)}
		}

		taken, err := tx.AttendanceExists(ctx, req.GroupID, date)
		if err != nil {
			return err
		}
		if taken {
			return &center.ConflictError{Reason: "Attendance already taken for this group and date"}
		}

		roster, err := tx.EnrollmentsByGroup(ctx, req.GroupID, true)
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			return &center.InvalidArgumentError{Reason: "Group has no active students"}
		}

		absent := make(map[center.StudentID]struct{}, len(req.AbsentStudentIDs))
		for _, id := range req.AbsentStudentIDs {
			absent[id] = struct{}{}
		}

		records := make([]center.Attendance, len(roster))
		for i, en := range roster {
			status := center.StatusPresent
			if _, isAbsent := absent[en.StudentID]; isAbsent {
				status = center.StatusAbsent
			}
			records[i] = center.Attendance{
				StudentID: en.StudentID,
				GroupID:   req.GroupID,
				Date:      date,
				Status:    status,
			}
		}

		if created, err = tx.CreateAttendances(ctx, records); err != nil {
			return err
		}

		// Read the sheet back inside the transaction so the response cannot
		// be distorted by a concurrent writer.
		views, err = tx.AttendanceByGroupAndDate(ctx, req.GroupID, date)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.Log.Info("attendance taken",
		zap.Int64("group_id", int64(req.GroupID)),
		zap.String("date", req.Date),
		zap.Int("records", len(created)))
	writeJSON(w, http.StatusCreated, toAttendanceDTOs(views))
}

// UpdateAttendance flips one record between PRESENT and ABSENT.
func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Status != center.StatusPresent && req.Status != center.StatusAbsent {
		writeError(w, http.StatusBadRequest, "status must be PRESENT or ABSENT", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.UpdateAttendanceStatus(ctx, center.AttendanceID(id), req.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	view, err := h.Store.GetAttendance(ctx, center.AttendanceID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(view))
}

// GetAttendance returns a single attendance record.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	view, err := h.Store.GetAttendance(r.Context(), center.AttendanceID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(view))
}

// AttendanceByMonth returns every record across a month, all groups.
func (h *Handler) AttendanceByMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// AttendanceByDate returns every record on one date.
func (h *Handler) AttendanceByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r, "date")
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// AttendanceByGroupAndDate returns one group's sheet on one date.
func (h *Handler) AttendanceByGroupAndDate(w http.ResponseWriter, r *http.Request) {
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	date, ok := dateParam(w, r, "date")
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByGroupAndDate(r.Context(), center.GroupID(gid), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// AttendanceByGroupAndMonth returns one group's records across a month.
func (h *Handler) AttendanceByGroupAndMonth(w http.ResponseWriter, r *http.Request) {
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByGroupAndMonth(r.Context(), center.GroupID(gid), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// AttendanceByStudentAndMonth returns one student's records across a month.
func (h *Handler) AttendanceByStudentAndMonth(w http.ResponseWriter, r *http.Request) {
	sid, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByStudentAndMonth(r.Context(), center.StudentID(sid), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// AttendanceByStudentGroupAndMonth returns one student's records in one
// group across a month.
func (h *Handler) AttendanceByStudentGroupAndMonth(w http.ResponseWriter, r *http.Request) {
	sid, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}

	views, err := h.Store.AttendanceByStudentGroupAndMonth(r.Context(),
		center.StudentID(sid), center.GroupID(gid), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(views))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns all payments.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	views, err := h.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(views))
}

// GetPayment returns a single payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	view, err := h.Store.GetPayment(r.Context(), center.PaymentID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(view))
}

func validatePaymentRequest(req *PaymentRequest) error {
	if !req.Amount.IsPositive() {
		return &center.InvalidArgumentError{Reason: "amount must be positive"}
	}
	if !req.PaidForMonth.Valid() {
		return &center.InvalidArgumentError{Reason: "paid_for_month must be YYYY-MM"}
	}
	return nil
}

// CreatePayment records a tuition payment. An enrollment row for (student,
// group) must exist but need not be active: back-payments after withdrawal
// are legitimate.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validatePaymentRequest(&req); err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.FindEnrollment(ctx, req.StudentID, req.GroupID); err != nil {
		if center.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "Student has never been enrolled in this group", nil)
			return
		}
		writeDomainError(w, err)
		return
	}

	p := &center.Payment{
		StudentID:    req.StudentID,
		GroupID:      req.GroupID,
		Amount:       req.Amount,
		PaidForMonth: req.PaidForMonth,
		PaidAt:       time.Now().UTC(),
	}
	if err := h.Store.CreatePayment(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record payment", err)
		return
	}

	view, err := h.Store.GetPayment(ctx, p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.Log.Info("payment recorded",
		zap.Int64("payment_id", int64(p.ID)),
		zap.Int64("student_id", int64(p.StudentID)),
		zap.Int64("group_id", int64(p.GroupID)),
		zap.String("amount", p.Amount.String()),
		zap.String("paid_for_month", p.PaidForMonth.String()))
	writeJSON(w, http.StatusCreated, toPaymentDTO(view))
}

// UpdatePayment corrects a recorded payment's amount or billing month.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validatePaymentRequest(&req); err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	view, err := h.Store.GetPayment(ctx, center.PaymentID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p := view.Payment
	p.Amount = req.Amount
	p.PaidForMonth = req.PaidForMonth
	if err := h.Store.UpdatePayment(ctx, &p); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Store.GetPayment(ctx, p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(updated))
}

// DeletePayment removes a payment record.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.Store.DeletePayment(r.Context(), center.PaymentID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentsByStudent returns a student's payment history.
func (h *Handler) PaymentsByStudent(w http.ResponseWriter, r *http.Request) {
	sid, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}

	views, err := h.Store.PaymentsByStudent(r.Context(), center.StudentID(sid))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(views))
}

// PaymentsByGroup returns a group's payment history.
func (h *Handler) PaymentsByGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}

	views, err := h.Store.PaymentsByGroup(r.Context(), center.GroupID(gid))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(views))
}

// =============================================================================
// INQUIRY HANDLERS
// =============================================================================

func validInquiryStatus(s center.InquiryStatus) bool {
	switch s {
	case center.InquiryNew, center.InquiryContacted, center.InquiryEnrolled, center.InquiryRejected:
		return true
	}
	return false
}

// ListInquiries returns all inquiries, filtered by ?status= when given.
func (h *Handler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		inquiries []center.Inquiry
		err       error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := center.InquiryStatus(strings.ToUpper(raw))
		if !validInquiryStatus(status) {
			writeError(w, http.StatusBadRequest, "status must be NEW, CONTACTED, ENROLLED or REJECTED", nil)
			return
		}
		inquiries, err = h.Store.ListInquiriesByStatus(ctx, status)
	} else {
		inquiries, err = h.Store.ListInquiries(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list inquiries", err)
		return
	}

	dtos := make([]InquiryDTO, len(inquiries))
	for i := range inquiries {
		dtos[i] = toInquiryDTO(&inquiries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInquiry returns a single inquiry.
func (h *Handler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	inq, err := h.Store.GetInquiry(r.Context(), center.InquiryID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInquiryDTO(inq))
}

// CreateInquiry registers a prospective student. Status defaults to NEW.
func (h *Handler) CreateInquiry(w http.ResponseWriter, r *http.Request) {
	var req InquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", nil)
		return
	}
	if req.Status == "" {
		req.Status = center.InquiryNew
	}
	if !validInquiryStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be NEW, CONTACTED, ENROLLED or REJECTED", nil)
		return
	}

	inq := &center.Inquiry{
		FullName:          req.FullName,
		ParentName:        req.ParentName,
		ParentPhone:       req.ParentPhone,
		InterestedCourses: req.InterestedCourses,
		Status:            req.Status,
		Notes:             req.Notes,
	}
	if err := h.Store.CreateInquiry(r.Context(), inq); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create inquiry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInquiryDTO(inq))
}

// UpdateInquiry updates an inquiry, typically moving its status forward.
func (h *Handler) UpdateInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req InquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !validInquiryStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be NEW, CONTACTED, ENROLLED or REJECTED", nil)
		return
	}

	ctx := r.Context()
	inq, err := h.Store.GetInquiry(ctx, center.InquiryID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.FullName) != "" {
		inq.FullName = req.FullName
	}
	inq.ParentName = req.ParentName
	inq.ParentPhone = req.ParentPhone
	inq.InterestedCourses = req.InterestedCourses
	inq.Status = req.Status
	inq.Notes = req.Notes
	if err := h.Store.UpdateInquiry(ctx, inq); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInquiryDTO(inq))
}

// DeleteInquiry removes an inquiry.
func (h *Handler) DeleteInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.Store.DeleteInquiry(r.Context(), center.InquiryID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case center.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case center.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case center.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// idParam parses a numeric URL parameter, writing 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %q", name, raw), nil)
		return 0, false
	}
	return id, true
}

// dateParam parses a YYYY-MM-DD URL parameter, writing 400 on failure.
func dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := chi.URLParam(r, name)
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %q (use YYYY-MM-DD)", name, raw), nil)
		return time.Time{}, false
	}
	return date, true
}

// yearMonthParams parses ?year= and ?month= query parameters.
func yearMonthParams(w http.ResponseWriter, r *http.Request) (year, month int, ok bool) {
	var err error
	year, err = strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year query parameter is required", nil)
		return 0, 0, false
	}
	month, err = strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month query parameter must be 1-12", nil)
		return 0, 0, false
	}
	return year, month, true
}
