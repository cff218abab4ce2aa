package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
	"github.com/NorpulatovDev/CreativeLearningCenter/enrollment"
	"github.com/NorpulatovDev/CreativeLearningCenter/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestManager(t *testing.T) (*enrollment.Manager, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return enrollment.NewManager(store, nil), store
}

func seedGroup(t *testing.T, store *sqlite.Store, name string, fee int64) center.GroupID {
	t.Helper()
	ctx := context.Background()

	teacher := &center.Teacher{FullName: name + " teacher", PhoneNumber: "+998900000000"}
	require.NoError(t, store.CreateTeacher(ctx, teacher))

	group := &center.Group{
		Name:       name,
		TeacherID:  teacher.ID,
		MonthlyFee: decimal.NewFromInt(fee),
	}
	require.NoError(t, store.CreateGroup(ctx, group))
	return group.ID
}

func seedStudent(t *testing.T, store *sqlite.Store, name string) center.StudentID {
	t.Helper()
	student := &center.Student{
		FullName:      name,
		ParentName:    name + " parent",
		ParentPhone:   "+998911111111",
		ReferenceCode: "STU-" + name,
	}
	require.NoError(t, store.CreateStudent(context.Background(), student))
	return student.ID
}

// =============================================================================
// ENROLL TESTS
// =============================================================================

func TestEnroll_NewStudent(t *testing.T) {
	// GIVEN: A student and a group with no prior history
	// WHEN: Enrolling
	// THEN: An active enrollment with today's date and joined names

	mgr, store := newTestManager(t)
	ctx := context.Background()

	groupID := seedGroup(t, store, "English", 300000)
	studentID := seedStudent(t, store, "Akmal")

	view, err := mgr.Enroll(ctx, studentID, groupID)
	require.NoError(t, err)

	assert.True(t, view.Active)
	assert.Nil(t, view.LeftAt)
	assert.Equal(t, studentID, view.StudentID)
	assert.Equal(t, "Akmal", view.StudentName)
	assert.Equal(t, "English", view.GroupName)
	today := time.Now().UTC()
	assert.Equal(t, center.DateOf(today.Year(), today.Month(), today.Day()), view.EnrolledAt)
}

func TestEnroll_AlreadyActive_Conflict(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	groupID := seedGroup(t, store, "Math", 400000)
	studentID := seedStudent(t, store, "Zarina")

	_, err := mgr.Enroll(ctx, studentID, groupID)
	require.NoError(t, err)

	_, err = mgr.Enroll(ctx, studentID, groupID)
	assert.Error(t, err)
	assert.True(t, center.IsConflict(err), "second enroll should be a conflict, got %v", err)
}

func TestEnroll_MissingStudentOrGroup_NotFound(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	groupID := seedGroup(t, store, "IT", 250000)
	studentID := seedStudent(t, store, "Jasur")

	_, err := mgr.Enroll(ctx, center.StudentID(9999), groupID)
	assert.True(t, center.IsNotFound(err))

	_, err = mgr.Enroll(ctx, studentID, center.GroupID(9999))
	assert.True(t, center.IsNotFound(err))
}

func TestEnroll_AfterWithdraw_ReusesRow(t *testing.T) {
	// GIVEN: A student who left a group but stayed active in another
	// WHEN: Re-enrolling into the first group
	// THEN: The same enrollment row is reactivated, not duplicated

	mgr, store := newTestManager(t)
	ctx := context.Background()

	english := seedGroup(t, store, "English", 300000)
	math := seedGroup(t, store, "Math", 400000)
	studentID := seedStudent(t, store, "Madina")

	first, err := mgr.Enroll(ctx, studentID, english)
	require.NoError(t, err)
	_, err = mgr.Enroll(ctx, studentID, math)
	require.NoError(t, err)

	// Leave English; Math keeps the student alive.
	require.NoError(t, mgr.Withdraw(ctx, studentID, english))

	left, err := store.FindEnrollment(ctx, studentID, english)
	require.NoError(t, err)
	assert.False(t, left.Active)
	require.NotNil(t, left.LeftAt)

	// Come back.
	again, err := mgr.Enroll(ctx, studentID, english)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "reactivation must reuse the original row")
	assert.True(t, again.Active)
	assert.Nil(t, again.LeftAt)

	// Still exactly two rows for the student.
	all, err := mgr.ListByStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// WITHDRAW / PURGE TESTS
// =============================================================================

func TestWithdraw_OtherActiveEnrollment_KeepsStudent(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	english := seedGroup(t, store, "English", 300000)
	math := seedGroup(t, store, "Math", 400000)
	studentID := seedStudent(t, store, "Timur")

	_, err := mgr.Enroll(ctx, studentID, english)
	require.NoError(t, err)
	_, err = mgr.Enroll(ctx, studentID, math)
	require.NoError(t, err)

	require.NoError(t, mgr.Withdraw(ctx, studentID, english))

	// Student survives with one active enrollment.
	student, err := store.GetStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, "Timur", student.FullName)

	active, err := mgr.ListActiveByStudent(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, math, active[0].GroupID)
}

func TestWithdraw_LastEnrollment_PurgesEverything(t *testing.T) {
	// GIVEN: A student with one active enrollment, attendance, and payments
	// WHEN: Withdrawing from that last group
	// THEN: Attendance, payments, enrollments, and the student row are all gone

	mgr, store := newTestManager(t)
	ctx := context.Background()

	groupID := seedGroup(t, store, "English", 300000)
	studentID := seedStudent(t, store, "Kamila")
	bystander := seedStudent(t, store, "Sardor")

	_, err := mgr.Enroll(ctx, studentID, groupID)
	require.NoError(t, err)
	_, err = mgr.Enroll(ctx, bystander, groupID)
	require.NoError(t, err)

	date := center.DateOf(2024, time.March, 4)
	_, err = store.CreateAttendances(ctx, []center.Attendance{
		{StudentID: studentID, GroupID: groupID, Date: date, Status: center.StatusPresent},
		{StudentID: bystander, GroupID: groupID, Date: date, Status: center.StatusAbsent},
	})
	require.NoError(t, err)

	payment := &center.Payment{
		StudentID:    studentID,
		GroupID:      groupID,
		Amount:       decimal.NewFromInt(300000),
		PaidForMonth: center.NewMonthKey(2024, 3),
		PaidAt:       time.Now().UTC(),
	}
	require.NoError(t, store.CreatePayment(ctx, payment))

	require.NoError(t, mgr.Withdraw(ctx, studentID, groupID))

	// Student row is gone.
	_, err = store.GetStudent(ctx, studentID)
	assert.True(t, center.IsNotFound(err))

	// Payments are gone.
	payments, err := store.PaymentsByStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	// Enrollment row is gone, not just deactivated.
	_, err = store.FindEnrollment(ctx, studentID, groupID)
	assert.True(t, center.IsNotFound(err))

	// Attendance is gone.
	records, err := store.AttendanceByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, records, 1, "only the bystander's record should remain")
	assert.Equal(t, bystander, records[0].StudentID)

	// The bystander is untouched.
	_, err = store.GetStudent(ctx, bystander)
	assert.NoError(t, err)
}

func TestWithdraw_NoEnrollmentRow_NotFound(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	groupID := seedGroup(t, store, "English", 300000)
	studentID := seedStudent(t, store, "Nigora")

	err := mgr.Withdraw(ctx, studentID, groupID)
	assert.True(t, center.IsNotFound(err), "got %v", err)
}
