/*
handlers_test.go - HTTP-level tests through the full router

Tests exercise the real chi router over an in-memory SQLite store:
- Teacher delete guard (409 while owning groups)
- Student creation with generated reference code
- Attendance sheet rules (one per group per date, absent list, empty roster)
- Payment rules (enrollment row required, active or not)
- Report facade downgrade (invalid dates answer 200 with a zero report)
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorpulatovDev/CreativeLearningCenter/api"
	"github.com/NorpulatovDev/CreativeLearningCenter/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return api.NewRouter(api.NewHandler(store, nil))
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func createTeacher(t *testing.T, router http.Handler, name string) int64 {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/teachers", map[string]any{
		"full_name":    name,
		"phone_number": "+998901234567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &dto)
	return dto.ID
}

func createGroup(t *testing.T, router http.Handler, teacherID int64, name string, fee string) int64 {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/groups", map[string]any{
		"name":        name,
		"teacher_id":  teacherID,
		"monthly_fee": fee,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &dto)
	return dto.ID
}

func createStudent(t *testing.T, router http.Handler, name string) int64 {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/students", map[string]any{
		"full_name":    name,
		"parent_name":  name + " parent",
		"parent_phone": "+998909999999",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &dto)
	return dto.ID
}

func enroll(t *testing.T, router http.Handler, studentID, groupID int64) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/enrollments", map[string]any{
		"student_id": studentID,
		"group_id":   groupID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// TEACHER TESTS
// =============================================================================

func TestDeleteTeacher_GuardedWhileOwningGroups(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Dilnoza Karimova")
	groupID := createGroup(t, router, teacherID, "English", "300000")

	// Owns a group: refused.
	rec := do(t, router, http.MethodDelete, fmt.Sprintf("/api/teachers/%d", teacherID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Drop the group, then deletion goes through.
	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/api/groups/%d", groupID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/api/teachers/%d", teacherID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/teachers/%d", teacherID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTeacher_RequiresName(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/teachers", map[string]any{
		"full_name": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STUDENT TESTS
// =============================================================================

func TestCreateStudent_GeneratesReferenceCode(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/students", map[string]any{
		"full_name": "Akmal Tursunov",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dto struct {
		ReferenceCode string `json:"reference_code"`
	}
	decode(t, rec, &dto)
	assert.True(t, strings.HasPrefix(dto.ReferenceCode, "STU-"), "got %q", dto.ReferenceCode)
	assert.Len(t, dto.ReferenceCode, len("STU-")+8)
	assert.Equal(t, strings.ToUpper(dto.ReferenceCode), dto.ReferenceCode)
}

func TestEntityResponses_CarryTotals(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Gulnora")
	groupID := createGroup(t, router, teacherID, "English", "300000")
	otherGroup := createGroup(t, router, teacherID, "Math", "400000")
	studentID := createStudent(t, router, "Jasur")
	enroll(t, router, studentID, groupID)

	rec := do(t, router, http.MethodPost, "/api/payments", map[string]any{
		"student_id":     studentID,
		"group_id":       groupID,
		"amount":         "300000",
		"paid_for_month": "2024-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Teacher income sums payments across every group they teach.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/teachers/%d", teacherID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var teacher struct {
		TotalIncome string `json:"total_income"`
	}
	decode(t, rec, &teacher)
	assert.Equal(t, "300000", teacher.TotalIncome)

	// Group responses carry roster size and paid total.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var group struct {
		StudentsCount int    `json:"students_count"`
		TotalPaid     string `json:"total_paid"`
	}
	decode(t, rec, &group)
	assert.Equal(t, 1, group.StudentsCount)
	assert.Equal(t, "300000", group.TotalPaid)

	// ?month= narrows the paid total to one billing month.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/groups/%d?month=2024-04", groupID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &group)
	assert.Equal(t, "0", group.TotalPaid)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/groups/%d?month=2024-4", groupID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unpadded month filter")

	// A group nobody has joined or paid into stays at zero.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/groups/%d", otherGroup), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &group)
	assert.Equal(t, 0, group.StudentsCount)
	assert.Equal(t, "0", group.TotalPaid)

	// Student responses carry the lifetime paid total and active enrollments.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/students/%d", studentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var student struct {
		TotalPaid         string `json:"total_paid"`
		ActiveEnrollments int    `json:"active_enrollments"`
	}
	decode(t, rec, &student)
	assert.Equal(t, "300000", student.TotalPaid)
	assert.Equal(t, 1, student.ActiveEnrollments)
}

// =============================================================================
// ENROLLMENT TESTS
// =============================================================================

func TestEnrollWithdraw_Lifecycle(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Aziz")
	groupID := createGroup(t, router, teacherID, "Math", "400000")
	studentID := createStudent(t, router, "Zarina")

	enroll(t, router, studentID, groupID)

	// Double enroll is a conflict.
	rec := do(t, router, http.MethodPost, "/api/enrollments", map[string]any{
		"student_id": studentID,
		"group_id":   groupID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Group roster shows the student.
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/enrollments/group/%d", groupID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []struct {
		StudentName string `json:"student_name"`
		Active      bool   `json:"active"`
	}
	decode(t, rec, &roster)
	require.Len(t, roster, 1)
	assert.Equal(t, "Zarina", roster[0].StudentName)
	assert.True(t, roster[0].Active)

	// Withdrawing the only enrollment purges the student.
	rec = do(t, router, http.MethodDelete,
		fmt.Sprintf("/api/enrollments/student/%d/group/%d", studentID, groupID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/students/%d", studentID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ATTENDANCE TESTS
// =============================================================================

func TestCreateAttendance_Rules(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Malika")
	groupID := createGroup(t, router, teacherID, "IT", "250000")
	present := createStudent(t, router, "Sardor")
	absent := createStudent(t, router, "Nigora")
	enroll(t, router, present, groupID)
	enroll(t, router, absent, groupID)

	// First sheet: everyone PRESENT except the absent list.
	rec := do(t, router, http.MethodPost, "/api/attendance", map[string]any{
		"group_id":           groupID,
		"date":               "2024-03-04",
		"absent_student_ids": []int64{absent},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var records []struct {
		StudentID int64  `json:"student_id"`
		Status    string `json:"status"`
	}
	decode(t, rec, &records)
	require.Len(t, records, 2)
	statuses := map[int64]string{}
	for _, r := range records {
		statuses[r.StudentID] = r.Status
	}
	assert.Equal(t, "PRESENT", statuses[present])
	assert.Equal(t, "ABSENT", statuses[absent])

	// Second sheet for the same group and date is a conflict.
	rec = do(t, router, http.MethodPost, "/api/attendance", map[string]any{
		"group_id": groupID,
		"date":     "2024-03-04",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A group with no active students cannot take attendance.
	emptyGroup := createGroup(t, router, teacherID, "Empty", "100000")
	rec = do(t, router, http.MethodPost, "/api/attendance", map[string]any{
		"group_id": emptyGroup,
		"date":     "2024-03-04",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceQueries_ByRecordAndMonth(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Malika")
	groupID := createGroup(t, router, teacherID, "IT", "250000")
	otherGroup := createGroup(t, router, teacherID, "Robotics", "200000")
	studentID := createStudent(t, router, "Sardor")
	enroll(t, router, studentID, groupID)
	enroll(t, router, studentID, otherGroup)

	var records []struct {
		ID      int64  `json:"id"`
		GroupID int64  `json:"group_id"`
		Status  string `json:"status"`
	}
	for _, g := range []int64{groupID, otherGroup} {
		rec := do(t, router, http.MethodPost, "/api/attendance", map[string]any{
			"group_id": g,
			"date":     "2024-03-04",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &records)
		require.Len(t, records, 1)
	}
	recordID := records[0].ID

	// One record by id.
	rec := do(t, router, http.MethodGet, fmt.Sprintf("/api/attendance/%d", recordID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var one struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &one)
	assert.Equal(t, recordID, one.ID)
	assert.Equal(t, "PRESENT", one.Status)

	rec = do(t, router, http.MethodGet, "/api/attendance/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The global month query spans every group.
	rec = do(t, router, http.MethodGet, "/api/attendance/month?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &records)
	assert.Len(t, records, 2)

	// The (student, group) month query narrows to one group.
	rec = do(t, router, http.MethodGet,
		fmt.Sprintf("/api/attendance/student/%d/group/%d/month?year=2024&month=3", studentID, groupID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, groupID, records[0].GroupID)
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestCreatePayment_RequiresEnrollmentRow(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Dilnoza")
	groupID := createGroup(t, router, teacherID, "English", "300000")
	studentID := createStudent(t, router, "Timur")

	payload := map[string]any{
		"student_id":     studentID,
		"group_id":       groupID,
		"amount":         "300000",
		"paid_for_month": "2024-03",
	}

	// Never enrolled: rejected.
	rec := do(t, router, http.MethodPost, "/api/payments", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Enrolled: accepted.
	enroll(t, router, studentID, groupID)
	rec = do(t, router, http.MethodPost, "/api/payments", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto struct {
		StudentName  string `json:"student_name"`
		PaidForMonth string `json:"paid_for_month"`
	}
	decode(t, rec, &dto)
	assert.Equal(t, "Timur", dto.StudentName)
	assert.Equal(t, "2024-03", dto.PaidForMonth)
}

func TestCreatePayment_Validation(t *testing.T) {
	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Aziz")
	groupID := createGroup(t, router, teacherID, "Math", "400000")
	studentID := createStudent(t, router, "Kamila")
	enroll(t, router, studentID, groupID)

	rec := do(t, router, http.MethodPost, "/api/payments", map[string]any{
		"student_id":     studentID,
		"group_id":       groupID,
		"amount":         "0",
		"paid_for_month": "2024-03",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "zero amount")

	rec = do(t, router, http.MethodPost, "/api/payments", map[string]any{
		"student_id":     studentID,
		"group_id":       groupID,
		"amount":         "300000",
		"paid_for_month": "2024-13",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad month token")

	// Unpadded months parse numerically but would be stored under a token
	// the monthly revenue query can never match.
	rec = do(t, router, http.MethodPost, "/api/payments", map[string]any{
		"student_id":     studentID,
		"group_id":       groupID,
		"amount":         "300000",
		"paid_for_month": "2024-3",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unpadded month token")
}

// =============================================================================
// REPORT FACADE TESTS
// =============================================================================

func TestReports_InvalidInputAnswers200WithZeroReport(t *testing.T) {
	router := newTestRouter(t)

	// February 30 does not exist; the facade downgrades to a zero report.
	rec := do(t, router, http.MethodGet, "/api/reports/daily?year=2024&month=2&day=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var daily struct {
		TotalStudentsPresent  int    `json:"total_students_present"`
		TotalPaymentsReceived string `json:"total_payments_received"`
		GroupAttendances      []any  `json:"group_attendances"`
	}
	decode(t, rec, &daily)
	assert.Equal(t, 0, daily.TotalStudentsPresent)
	assert.Equal(t, "0", daily.TotalPaymentsReceived)
	assert.NotNil(t, daily.GroupAttendances)

	// Month 13 and missing parameters get the same treatment.
	rec = do(t, router, http.MethodGet, "/api/reports/monthly?year=2024&month=13", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/reports/yearly", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReports_MonthlyEndToEnd(t *testing.T) {
	// GIVEN: Fee 300000, two students, one pays
	// WHEN: Fetching the monthly report over HTTP
	// THEN: Expected 600000, actual 300000, rate 50

	router := newTestRouter(t)

	teacherID := createTeacher(t, router, "Dilnoza")
	groupID := createGroup(t, router, teacherID, "English", "300000")
	payer := createStudent(t, router, "Akmal")
	debtor := createStudent(t, router, "Zarina")
	enroll(t, router, payer, groupID)
	enroll(t, router, debtor, groupID)

	rec := do(t, router, http.MethodPost, "/api/payments", map[string]any{
		"student_id":     payer,
		"group_id":       groupID,
		"amount":         "300000",
		"paid_for_month": "2024-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/reports/monthly?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		ExpectedRevenue string `json:"expected_revenue"`
		ActualRevenue   string `json:"actual_revenue"`
		CollectionRate  string `json:"collection_rate"`
		UnpaidStudents  []struct {
			StudentName string `json:"student_name"`
		} `json:"unpaid_students"`
	}
	decode(t, rec, &report)
	assert.Equal(t, "600000", report.ExpectedRevenue)
	assert.Equal(t, "300000", report.ActualRevenue)
	assert.Equal(t, "50", report.CollectionRate)
	require.Len(t, report.UnpaidStudents, 1)
	assert.Equal(t, "Zarina", report.UnpaidStudents[0].StudentName)
}

// =============================================================================
// SEED TESTS
// =============================================================================

func TestSeed_OnceOnly(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/seed", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var counts map[string]int
	decode(t, rec, &counts)
	assert.Equal(t, 3, counts["teachers"])
	assert.Equal(t, 5, counts["groups"])
	assert.Equal(t, 12, counts["students"])
	assert.Greater(t, counts["payments"], 0)

	// Second run refuses.
	rec = do(t, router, http.MethodPost, "/api/seed", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
