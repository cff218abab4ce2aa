package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
	"github.com/NorpulatovDev/CreativeLearningCenter/enrollment"
	"github.com/NorpulatovDev/CreativeLearningCenter/reports"
	"github.com/NorpulatovDev/CreativeLearningCenter/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store *sqlite.Store
	mgr   *enrollment.Manager
	eng   *reports.Engine
}

func newFixture(t *testing.T) *fixture {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		store: store,
		mgr:   enrollment.NewManager(store, nil),
		eng:   reports.NewEngine(store, nil),
	}
}

func (f *fixture) group(t *testing.T, teacherName, groupName string, fee int64) center.GroupID {
	t.Helper()
	ctx := context.Background()

	teacher := &center.Teacher{FullName: teacherName, PhoneNumber: "+998900000000"}
	require.NoError(t, f.store.CreateTeacher(ctx, teacher))

	group := &center.Group{
		Name:       groupName,
		TeacherID:  teacher.ID,
		MonthlyFee: decimal.NewFromInt(fee),
	}
	require.NoError(t, f.store.CreateGroup(ctx, group))
	return group.ID
}

func (f *fixture) groupFor(t *testing.T, teacherID center.TeacherID, groupName string, fee int64) center.GroupID {
	t.Helper()
	group := &center.Group{
		Name:       groupName,
		TeacherID:  teacherID,
		MonthlyFee: decimal.NewFromInt(fee),
	}
	require.NoError(t, f.store.CreateGroup(context.Background(), group))
	return group.ID
}

func (f *fixture) enrolled(t *testing.T, name string, groups ...center.GroupID) center.StudentID {
	t.Helper()
	ctx := context.Background()

	student := &center.Student{FullName: name, ReferenceCode: "STU-" + name}
	require.NoError(t, f.store.CreateStudent(ctx, student))
	for _, gid := range groups {
		_, err := f.mgr.Enroll(ctx, student.ID, gid)
		require.NoError(t, err)
	}
	return student.ID
}

func (f *fixture) pay(t *testing.T, sid center.StudentID, gid center.GroupID, amount int64, key center.MonthKey, paidAt time.Time) {
	t.Helper()
	p := &center.Payment{
		StudentID:    sid,
		GroupID:      gid,
		Amount:       decimal.NewFromInt(amount),
		PaidForMonth: key,
		PaidAt:       paidAt,
	}
	require.NoError(t, f.store.CreatePayment(context.Background(), p))
}

func (f *fixture) attend(t *testing.T, gid center.GroupID, date time.Time, present []center.StudentID, absent []center.StudentID) {
	t.Helper()
	var records []center.Attendance
	for _, sid := range present {
		records = append(records, center.Attendance{StudentID: sid, GroupID: gid, Date: date, Status: center.StatusPresent})
	}
	for _, sid := range absent {
		records = append(records, center.Attendance{StudentID: sid, GroupID: gid, Date: date, Status: center.StatusAbsent})
	}
	_, err := f.store.CreateAttendances(context.Background(), records)
	require.NoError(t, err)
}

func eq(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual),
		"expected %s, got %s %v", expected, actual, msgAndArgs)
}

// =============================================================================
// MONTHLY REPORT TESTS
// =============================================================================

func TestMonthly_HalfCollected(t *testing.T) {
	// GIVEN: One group, fee 300000, two active students, one has paid March
	// WHEN: Running the March monthly report
	// THEN: Expected 600000, actual 300000, rate exactly 50.00, and the
	//       non-payer is listed with the fee as amount due

	f := newFixture(t)
	ctx := context.Background()

	gid := f.group(t, "Dilnoza", "English", 300000)
	payer := f.enrolled(t, "Akmal", gid)
	debtor := f.enrolled(t, "Zarina", gid)

	march := center.NewMonthKey(2024, 3)
	f.pay(t, payer, gid, 300000, march, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))

	report, err := f.eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)

	eq(t, "600000", report.ExpectedRevenue)
	eq(t, "300000", report.ActualRevenue)
	eq(t, "50", report.CollectionRate)
	assert.Equal(t, 2, report.TotalActiveStudents)
	assert.Equal(t, 1, report.TotalGroups)
	assert.Equal(t, 1, report.TotalPayments)
	assert.Equal(t, 1, report.StudentsWhoPaid)
	assert.Equal(t, 1, report.StudentsWhoDidNotPay)
	assert.Equal(t, "March", report.MonthName)

	require.Len(t, report.GroupStats, 1)
	gs := report.GroupStats[0]
	assert.Equal(t, "English", gs.GroupName)
	assert.Equal(t, "Dilnoza", gs.TeacherName)
	assert.Equal(t, 2, gs.ActiveStudents)
	assert.Equal(t, 1, gs.PaidStudents)
	assert.Equal(t, 1, gs.UnpaidStudents)
	eq(t, "50", gs.CollectionRate)

	require.Len(t, report.UnpaidStudents, 1)
	unpaid := report.UnpaidStudents[0]
	assert.Equal(t, debtor, unpaid.StudentID)
	assert.Equal(t, "Zarina", unpaid.StudentName)
	assert.Equal(t, gid, unpaid.GroupID)
	eq(t, "300000", unpaid.AmountDue)
	assert.False(t, unpaid.HasPaid)
}

func TestMonthly_UnpaidIsPerGroup(t *testing.T) {
	// GIVEN: A student in two groups who paid only the first
	// WHEN: Running the monthly report
	// THEN: The student is unpaid only for the second group, and counts once
	//       in both the paid and unpaid tallies

	f := newFixture(t)
	ctx := context.Background()

	english := f.group(t, "Dilnoza", "English", 300000)
	math := f.group(t, "Aziz", "Math", 400000)
	sid := f.enrolled(t, "Timur", english, math)

	march := center.NewMonthKey(2024, 3)
	f.pay(t, sid, english, 300000, march, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	report, err := f.eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalActiveStudents)
	assert.Equal(t, 1, report.StudentsWhoPaid)
	assert.Equal(t, 1, report.StudentsWhoDidNotPay)

	require.Len(t, report.UnpaidStudents, 1)
	assert.Equal(t, math, report.UnpaidStudents[0].GroupID)
	eq(t, "400000", report.UnpaidStudents[0].AmountDue)
}

func TestMonthly_BackPaymentDoesNotCountAPaidHead(t *testing.T) {
	// GIVEN: A student who paid March for English, then withdrew from it
	//        (staying active in Math so the withdrawal does not purge them)
	// WHEN: Running the March monthly report
	// THEN: The payment still counts as English revenue, but paid and unpaid
	//       heads sum to the active roster in every group

	f := newFixture(t)
	ctx := context.Background()

	english := f.group(t, "Dilnoza", "English", 300000)
	math := f.group(t, "Aziz", "Math", 400000)
	payer := f.enrolled(t, "Timur", english, math)
	f.enrolled(t, "Zarina", english)

	march := center.NewMonthKey(2024, 3)
	f.pay(t, payer, english, 300000, march, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, f.mgr.Withdraw(ctx, payer, english))

	report, err := f.eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)

	var eng reports.GroupMonthlyStats
	for _, gs := range report.GroupStats {
		if gs.GroupID == english {
			eng = gs
		}
	}
	require.Equal(t, english, eng.GroupID)

	// Revenue keeps the back-payment; heads are counted over the roster.
	assert.Equal(t, 1, eng.ActiveStudents)
	eq(t, "300000", eng.ActualRevenue)
	assert.Equal(t, 0, eng.PaidStudents)
	assert.Equal(t, 1, eng.UnpaidStudents)
	assert.Equal(t, eng.ActiveStudents, eng.PaidStudents+eng.UnpaidStudents)

	assert.Equal(t, 2, report.TotalActiveStudents)
	assert.Equal(t, 0, report.StudentsWhoPaid)
	assert.Equal(t, 2, report.StudentsWhoDidNotPay)
}

func TestMonthly_PaymentTokenNotTimestamp(t *testing.T) {
	// GIVEN: A payment recorded in April for the March billing month
	// WHEN: Running both monthly reports
	// THEN: Revenue lands in March, not April

	f := newFixture(t)
	ctx := context.Background()

	gid := f.group(t, "Dilnoza", "English", 300000)
	sid := f.enrolled(t, "Akmal", gid)

	march := center.NewMonthKey(2024, 3)
	f.pay(t, sid, gid, 300000, march, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))

	marchReport, err := f.eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)
	eq(t, "300000", marchReport.ActualRevenue)

	aprilReport, err := f.eng.Monthly(ctx, 2024, 4)
	require.NoError(t, err)
	eq(t, "0", aprilReport.ActualRevenue)
}

func TestMonthly_SkipsGroupsWithoutActiveStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.group(t, "Malika", "Empty Group", 250000)

	report, err := f.eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalGroups)
	eq(t, "0", report.ExpectedRevenue)
	assert.NotNil(t, report.GroupStats)
	assert.NotNil(t, report.UnpaidStudents)
}

func TestMonthly_InvalidMonth(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Monthly(context.Background(), 2024, 13)
	assert.True(t, center.IsInvalidArgument(err), "got %v", err)

	_, err = f.eng.Monthly(context.Background(), 2024, 0)
	assert.True(t, center.IsInvalidArgument(err), "got %v", err)
}

// =============================================================================
// DAILY REPORT TESTS
// =============================================================================

func TestDaily_AttendanceAndPayments(t *testing.T) {
	// GIVEN: Two groups with attendance on March 4 and one payment that day
	// WHEN: Running the daily report
	// THEN: Totals are tallied and group breakdown is sorted by group name

	f := newFixture(t)
	ctx := context.Background()

	zebra := f.group(t, "Dilnoza", "Zebra Class", 300000)
	alpha := f.group(t, "Aziz", "Alpha Class", 400000)
	s1 := f.enrolled(t, "Akmal", zebra)
	s2 := f.enrolled(t, "Zarina", zebra)
	s3 := f.enrolled(t, "Timur", alpha)

	date := center.DateOf(2024, time.March, 4)
	f.attend(t, zebra, date, []center.StudentID{s1}, []center.StudentID{s2})
	f.attend(t, alpha, date, []center.StudentID{s3}, nil)

	f.pay(t, s1, zebra, 300000, center.NewMonthKey(2024, 3),
		time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC))

	report, err := f.eng.Daily(ctx, 2024, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", report.Date)
	assert.Equal(t, 2, report.TotalStudentsPresent)
	assert.Equal(t, 1, report.TotalStudentsAbsent)
	eq(t, "300000", report.TotalPaymentsReceived)
	assert.Equal(t, 1, report.PaymentCount)

	require.Len(t, report.GroupAttendances, 2)
	assert.Equal(t, "Alpha Class", report.GroupAttendances[0].GroupName)
	assert.Equal(t, "Zebra Class", report.GroupAttendances[1].GroupName)
	assert.Equal(t, 1, report.GroupAttendances[1].PresentCount)
	assert.Equal(t, 1, report.GroupAttendances[1].AbsentCount)
	assert.Equal(t, 2, report.GroupAttendances[1].TotalStudents)

	require.Len(t, report.Payments, 1)
	assert.Equal(t, "Akmal", report.Payments[0].StudentName)
}

func TestDaily_EmptyDayIsNotAnError(t *testing.T) {
	f := newFixture(t)

	report, err := f.eng.Daily(context.Background(), 2024, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalStudentsPresent)
	eq(t, "0", report.TotalPaymentsReceived)
	assert.NotNil(t, report.GroupAttendances)
	assert.NotNil(t, report.Payments)
}

func TestDaily_ImpossibleDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Daily(context.Background(), 2024, 2, 30)
	assert.True(t, center.IsInvalidArgument(err), "got %v", err)
}

// =============================================================================
// YEARLY REPORT TESTS
// =============================================================================

func TestYearly_TwelveMonthBreakdown(t *testing.T) {
	// GIVEN: Payments for March and November 2024
	// WHEN: Running the yearly report
	// THEN: Exactly 12 entries, zero-filled except the two paid months

	f := newFixture(t)
	ctx := context.Background()

	gid := f.group(t, "Dilnoza", "English", 300000)
	sid := f.enrolled(t, "Akmal", gid)

	f.pay(t, sid, gid, 300000, center.NewMonthKey(2024, 3), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	f.pay(t, sid, gid, 300000, center.NewMonthKey(2024, 11), time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC))
	// A 2025 payment must not leak into 2024.
	f.pay(t, sid, gid, 300000, center.NewMonthKey(2025, 1), time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC))

	report, err := f.eng.Yearly(ctx, 2024)
	require.NoError(t, err)

	eq(t, "600000", report.TotalRevenue)
	assert.Equal(t, 2, report.TotalPayments)

	require.Len(t, report.MonthlyBreakdown, 12)
	for i, entry := range report.MonthlyBreakdown {
		assert.Equal(t, i+1, entry.Month)
		assert.Equal(t, time.Month(i+1).String(), entry.MonthName)
		switch entry.Month {
		case 3, 11:
			eq(t, "300000", entry.Revenue, entry.MonthName)
			assert.Equal(t, 1, entry.PaymentCount)
		default:
			eq(t, "0", entry.Revenue, entry.MonthName)
			assert.Equal(t, 0, entry.PaymentCount)
		}
	}
}

func TestYearly_TopGroupsAndTeacherStats(t *testing.T) {
	// GIVEN: Two teachers; Aziz's group out-earns both of Dilnoza's
	// WHEN: Running the yearly report
	// THEN: Groups and teachers come back sorted by revenue, descending

	f := newFixture(t)
	ctx := context.Background()

	english := f.group(t, "Dilnoza", "English", 300000)
	dilnoza := mustTeacherID(t, f, english)
	advanced := f.groupFor(t, dilnoza, "English Advanced", 350000)
	math := f.group(t, "Aziz", "Math", 400000)

	s1 := f.enrolled(t, "Akmal", english, math)
	s2 := f.enrolled(t, "Zarina", advanced)

	jan := center.NewMonthKey(2024, 1)
	f.pay(t, s1, math, 400000, jan, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	f.pay(t, s1, math, 400000, center.NewMonthKey(2024, 2), time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))
	f.pay(t, s1, english, 300000, jan, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	f.pay(t, s2, advanced, 350000, jan, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	report, err := f.eng.Yearly(ctx, 2024)
	require.NoError(t, err)

	require.Len(t, report.TopGroups, 3)
	assert.Equal(t, "Math", report.TopGroups[0].GroupName)
	eq(t, "800000", report.TopGroups[0].TotalRevenue)
	assert.Equal(t, 2, report.TopGroups[0].TotalPayments)
	assert.Equal(t, "English Advanced", report.TopGroups[1].GroupName)
	assert.Equal(t, "English", report.TopGroups[2].GroupName)

	require.Len(t, report.TeacherStats, 2)
	assert.Equal(t, "Aziz", report.TeacherStats[0].TeacherName)
	eq(t, "800000", report.TeacherStats[0].TotalRevenue)
	assert.Equal(t, 1, report.TeacherStats[0].GroupCount)
	assert.Equal(t, 1, report.TeacherStats[0].TotalStudents)

	assert.Equal(t, "Dilnoza", report.TeacherStats[1].TeacherName)
	eq(t, "650000", report.TeacherStats[1].TotalRevenue)
	assert.Equal(t, 2, report.TeacherStats[1].GroupCount)
	assert.Equal(t, 2, report.TeacherStats[1].TotalStudents)
}

func mustTeacherID(t *testing.T, f *fixture, gid center.GroupID) center.TeacherID {
	t.Helper()
	view, err := f.store.GetGroup(context.Background(), gid)
	require.NoError(t, err)
	return view.TeacherID
}

func TestYearly_AttendanceSummedAcrossMonths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gid := f.group(t, "Dilnoza", "English", 300000)
	s1 := f.enrolled(t, "Akmal", gid)
	s2 := f.enrolled(t, "Zarina", gid)

	f.attend(t, gid, center.DateOf(2024, time.February, 5), []center.StudentID{s1, s2}, nil)
	f.attend(t, gid, center.DateOf(2024, time.October, 7), []center.StudentID{s1}, []center.StudentID{s2})

	report, err := f.eng.Yearly(ctx, 2024)
	require.NoError(t, err)

	assert.Equal(t, 3, report.AttendanceStats.TotalPresent)
	assert.Equal(t, 1, report.AttendanceStats.TotalAbsent)
	eq(t, "75", report.AttendanceStats.AttendanceRate)
}

// =============================================================================
// BEST-EFFORT TESTS
// =============================================================================

// brokenLedger fails every collection read it overrides. The embedded Ledger
// is nil: a call to anything else panics, proving the engine touched only
// what the test expects.
type brokenLedger struct {
	center.Ledger
}

var errStorage = errors.New("storage offline")

func (brokenLedger) AttendanceByDate(context.Context, time.Time) ([]center.AttendanceView, error) {
	return nil, errStorage
}

func (brokenLedger) PaymentsByDay(context.Context, time.Time) ([]center.PaymentView, error) {
	return nil, errStorage
}

func (brokenLedger) ListGroups(context.Context) ([]center.GroupView, error) {
	return nil, errStorage
}

func (brokenLedger) PaymentsByMonthKey(context.Context, center.MonthKey) ([]center.PaymentView, error) {
	return nil, errStorage
}

func (brokenLedger) PaymentsByYear(context.Context, int) ([]center.PaymentView, error) {
	return nil, errStorage
}

func (brokenLedger) AttendanceByMonth(context.Context, int, int) ([]center.AttendanceView, error) {
	return nil, errStorage
}

func TestReports_SubFetchFailuresYieldEmptyReports(t *testing.T) {
	// GIVEN: Storage that fails every collection read
	// WHEN: Running each report
	// THEN: Fully-shaped zero reports, no error surfaced

	eng := reports.NewEngine(brokenLedger{}, nil)
	ctx := context.Background()

	daily, err := eng.Daily(ctx, 2024, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, daily.TotalStudentsPresent)
	eq(t, "0", daily.TotalPaymentsReceived)
	assert.NotNil(t, daily.GroupAttendances)
	assert.NotNil(t, daily.Payments)

	monthly, err := eng.Monthly(ctx, 2024, 3)
	require.NoError(t, err)
	eq(t, "0", monthly.ExpectedRevenue)
	eq(t, "0", monthly.CollectionRate)
	assert.NotNil(t, monthly.GroupStats)
	assert.NotNil(t, monthly.UnpaidStudents)

	yearly, err := eng.Yearly(ctx, 2024)
	require.NoError(t, err)
	eq(t, "0", yearly.TotalRevenue)
	assert.Len(t, yearly.MonthlyBreakdown, 12)
	assert.NotNil(t, yearly.TeacherStats)
	assert.NotNil(t, yearly.TopGroups)
}
