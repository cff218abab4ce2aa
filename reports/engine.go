/*
engine.go - Daily/monthly/yearly report computation

PURPOSE:
  Reconstructs financial and attendance summaries from raw Ledger records.
  Read-only: nothing here writes.

BEST-EFFORT CONTRACT:
  A failed sub-fetch (one group's enrollments, one month's attendance) must
  not abort the whole report. Every collection read goes through fetch(),
  which logs the failure and substitutes an empty list. Reports therefore
  always come back fully shaped; callers cannot observe partial failures.
  Invalid input is different: an impossible date or an out-of-range month
  raises InvalidArgument here, and the HTTP facade decides whether to
  downgrade that to a zero-filled report.

MONTH KEYS vs TIMESTAMPS:
  Daily reports select payments by the recorded paid_at timestamp. Monthly
  and yearly revenue group by the paid_for_month token. A payment recorded
  on April 2 for "2024-03" belongs to April 2's daily report and March's
  monthly revenue.

SEE ALSO:
  - types.go: the report value objects
  - center/rates.go: rate math (round half-up, two decimal places)
*/
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// unknownTeacher labels groups whose teacher row is missing.
const unknownTeacher = "Noma'lum"

// Engine computes reports over a Ledger snapshot.
type Engine struct {
	store center.Ledger
	log   *zap.Logger
}

// NewEngine creates a report engine over the given store.
func NewEngine(store center.Ledger, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// fetch is the single best-effort boundary for collection reads: on error it
// logs and returns an empty list so the report can continue.
func fetch[T any](log *zap.Logger, what string, fn func() ([]T, error)) []T {
	items, err := fn()
	if err != nil {
		log.Warn("report sub-fetch failed, continuing with empty result",
			zap.String("fetch", what), zap.Error(err))
		return nil
	}
	return items
}

func teacherName(name string) string {
	if name == "" {
		return unknownTeacher
	}
	return name
}

// =============================================================================
// DAILY
// =============================================================================

// Daily reports one calendar day. Returns InvalidArgument for an impossible
// date (e.g. February 30).
func (e *Engine) Daily(ctx context.Context, year, month, day int) (*DailyReport, error) {
	if !center.ValidDate(year, month, day) {
		return nil, &center.InvalidArgumentError{Reason: "invalid calendar date"}
	}
	date := center.DateOf(year, time.Month(month), day)

	attendance := fetch(e.log, "attendance_by_date", func() ([]center.AttendanceView, error) {
		return e.store.AttendanceByDate(ctx, date)
	})
	payments := fetch(e.log, "payments_by_day", func() ([]center.PaymentView, error) {
		return e.store.PaymentsByDay(ctx, date)
	})

	report := &DailyReport{
		Date:                  date.Format("2006-01-02"),
		TotalPaymentsReceived: decimal.Zero,
		PaymentCount:          len(payments),
		GroupAttendances:      []GroupAttendanceSummary{},
		Payments:              []PaymentSummary{},
	}

	byGroup := make(map[center.GroupID]*GroupAttendanceSummary)
	for _, a := range attendance {
		switch a.Status {
		case center.StatusPresent:
			report.TotalStudentsPresent++
		case center.StatusAbsent:
			report.TotalStudentsAbsent++
		}

		g, ok := byGroup[a.GroupID]
		if !ok {
			g = &GroupAttendanceSummary{
				GroupID:     a.GroupID,
				GroupName:   a.GroupName,
				TeacherName: teacherName(a.TeacherName),
			}
			byGroup[a.GroupID] = g
		}
		if a.Status == center.StatusPresent {
			g.PresentCount++
		} else {
			g.AbsentCount++
		}
		g.TotalStudents++
	}
	for _, g := range byGroup {
		report.GroupAttendances = append(report.GroupAttendances, *g)
	}
	sort.Slice(report.GroupAttendances, func(i, j int) bool {
		return report.GroupAttendances[i].GroupName < report.GroupAttendances[j].GroupName
	})

	for _, p := range payments {
		report.TotalPaymentsReceived = report.TotalPaymentsReceived.Add(p.Amount)
		report.Payments = append(report.Payments, PaymentSummary{
			PaymentID:    p.ID,
			StudentName:  p.StudentName,
			GroupName:    p.GroupName,
			Amount:       p.Amount,
			PaidForMonth: p.PaidForMonth,
		})
	}

	return report, nil
}

// =============================================================================
// MONTHLY
// =============================================================================

// Monthly reports one billing month. Returns InvalidArgument when month is
// outside 1-12.
func (e *Engine) Monthly(ctx context.Context, year, month int) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, &center.InvalidArgumentError{Reason: "month must be between 1 and 12"}
	}
	key := center.NewMonthKey(year, month)

	groups := fetch(e.log, "groups", func() ([]center.GroupView, error) {
		return e.store.ListGroups(ctx)
	})
	payments := fetch(e.log, "payments_by_month_key", func() ([]center.PaymentView, error) {
		return e.store.PaymentsByMonthKey(ctx, key)
	})

	paymentsByGroup := make(map[center.GroupID][]center.PaymentView)
	for _, p := range payments {
		paymentsByGroup[p.GroupID] = append(paymentsByGroup[p.GroupID], p)
	}

	report := &MonthlyReport{
		Year:            year,
		Month:           month,
		MonthName:       time.Month(month).String(),
		ExpectedRevenue: decimal.Zero,
		ActualRevenue:   decimal.Zero,
		CollectionRate:  decimal.Zero,
		GroupStats:      []GroupMonthlyStats{},
		UnpaidStudents:  []StudentPaymentStatus{},
	}

	allActive := make(map[center.StudentID]struct{})
	paidOverall := make(map[center.StudentID]struct{})
	unpaidOverall := make(map[center.StudentID]struct{})

	for _, g := range groups {
		gid := g.ID
		active := fetch(e.log, "active_enrollments", func() ([]center.EnrollmentView, error) {
			return e.store.EnrollmentsByGroup(ctx, gid, true)
		})
		if len(active) == 0 {
			continue
		}

		groupExpected := g.MonthlyFee.Mul(decimal.NewFromInt(int64(len(active))))
		report.ExpectedRevenue = report.ExpectedRevenue.Add(groupExpected)

		groupPayments := paymentsByGroup[g.ID]
		groupActual := decimal.Zero
		paidInGroup := make(map[center.StudentID]struct{})
		for _, p := range groupPayments {
			groupActual = groupActual.Add(p.Amount)
			paidInGroup[p.StudentID] = struct{}{}
		}
		report.ActualRevenue = report.ActualRevenue.Add(groupActual)
		report.TotalPayments += len(groupPayments)

		// Paid and unpaid are both counted over the active roster, so they
		// always sum to ActiveStudents. A withdrawn student's back-payment
		// still contributes revenue above but does not count a head here.
		paidInRoster := 0
		unpaidInGroup := 0
		for _, en := range active {
			allActive[en.StudentID] = struct{}{}
			if _, ok := paidInGroup[en.StudentID]; ok {
				paidInRoster++
				paidOverall[en.StudentID] = struct{}{}
				continue
			}
			// Unpaid in this group, even if the same student paid elsewhere.
			unpaidInGroup++
			unpaidOverall[en.StudentID] = struct{}{}
			report.UnpaidStudents = append(report.UnpaidStudents, StudentPaymentStatus{
				StudentID:   en.StudentID,
				StudentName: en.StudentName,
				ParentName:  en.ParentName,
				ParentPhone: en.ParentPhone,
				GroupID:     g.ID,
				GroupName:   g.Name,
				AmountDue:   g.MonthlyFee,
				HasPaid:     false,
			})
		}

		report.GroupStats = append(report.GroupStats, GroupMonthlyStats{
			GroupID:         g.ID,
			GroupName:       g.Name,
			TeacherName:     teacherName(g.TeacherName),
			ActiveStudents:  len(active),
			ExpectedRevenue: groupExpected,
			ActualRevenue:   groupActual,
			PaidStudents:    paidInRoster,
			UnpaidStudents:  unpaidInGroup,
			CollectionRate:  center.CollectionRate(groupActual, groupExpected),
		})
	}

	report.TotalGroups = len(report.GroupStats)
	report.TotalActiveStudents = len(allActive)
	report.StudentsWhoPaid = len(paidOverall)
	report.StudentsWhoDidNotPay = len(unpaidOverall)
	report.CollectionRate = center.CollectionRate(report.ActualRevenue, report.ExpectedRevenue)

	monthAttendance := fetch(e.log, "attendance_by_month", func() ([]center.AttendanceView, error) {
		return e.store.AttendanceByMonth(ctx, year, month)
	})
	report.AttendanceStats = tallyAttendance(monthAttendance)

	return report, nil
}

// =============================================================================
// YEARLY
// =============================================================================

// Yearly reports one calendar year, grouped by the billing month token.
func (e *Engine) Yearly(ctx context.Context, year int) (*YearlyReport, error) {
	payments := fetch(e.log, "payments_by_year", func() ([]center.PaymentView, error) {
		return e.store.PaymentsByYear(ctx, year)
	})
	groups := fetch(e.log, "groups", func() ([]center.GroupView, error) {
		return e.store.ListGroups(ctx)
	})

	report := &YearlyReport{
		Year:          year,
		TotalRevenue:  decimal.Zero,
		TotalPayments: len(payments),
		TeacherStats:  []TeacherYearlyStats{},
		TopGroups:     []GroupYearlyStats{},
	}

	// Twelve entries, one per calendar month, zero-filled.
	report.MonthlyBreakdown = make([]MonthlyRevenueSummary, 12)
	for m := 1; m <= 12; m++ {
		report.MonthlyBreakdown[m-1] = MonthlyRevenueSummary{
			Month:     m,
			MonthName: time.Month(m).String(),
			Revenue:   decimal.Zero,
		}
	}

	groupViews := make(map[center.GroupID]center.GroupView, len(groups))
	for _, g := range groups {
		groupViews[g.ID] = g
	}
	tallies := make(map[center.GroupID]*groupTally)
	var groupOrder []center.GroupID

	for _, p := range payments {
		report.TotalRevenue = report.TotalRevenue.Add(p.Amount)

		if m := p.PaidForMonth.Month(); m >= 1 && m <= 12 {
			report.MonthlyBreakdown[m-1].Revenue = report.MonthlyBreakdown[m-1].Revenue.Add(p.Amount)
			report.MonthlyBreakdown[m-1].PaymentCount++
		}

		t, ok := tallies[p.GroupID]
		if !ok {
			name := p.GroupName
			tn := ""
			if gv, found := groupViews[p.GroupID]; found {
				name = gv.Name
				tn = gv.TeacherName
			}
			t = &groupTally{
				stats: GroupYearlyStats{
					GroupID:      p.GroupID,
					GroupName:    name,
					TeacherName:  teacherName(tn),
					TotalRevenue: decimal.Zero,
				},
			}
			tallies[p.GroupID] = t
			groupOrder = append(groupOrder, p.GroupID)
		}
		t.stats.TotalRevenue = t.stats.TotalRevenue.Add(p.Amount)
		t.stats.TotalPayments++
	}

	topGroups := make([]GroupYearlyStats, 0, len(groupOrder))
	for _, gid := range groupOrder {
		topGroups = append(topGroups, tallies[gid].stats)
	}
	sort.SliceStable(topGroups, func(i, j int) bool {
		return topGroups[i].TotalRevenue.GreaterThan(topGroups[j].TotalRevenue)
	})
	if len(topGroups) > 10 {
		topGroups = topGroups[:10]
	}
	report.TopGroups = topGroups

	report.TeacherStats = e.teacherStats(ctx, groups, tallies)

	// Yearly attendance is the sum of the twelve monthly queries.
	present, absent := 0, 0
	for m := 1; m <= 12; m++ {
		mm := m
		monthly := fetch(e.log, "attendance_by_month", func() ([]center.AttendanceView, error) {
			return e.store.AttendanceByMonth(ctx, year, mm)
		})
		for _, a := range monthly {
			switch a.Status {
			case center.StatusPresent:
				present++
			case center.StatusAbsent:
				absent++
			}
		}
	}
	report.AttendanceStats = AttendanceStats{
		TotalPresent:   present,
		TotalAbsent:    absent,
		AttendanceRate: center.AttendanceRate(present, absent),
	}

	return report, nil
}

// groupTally accumulates one group's payment totals during a yearly pass.
type groupTally struct {
	stats GroupYearlyStats
}

// teacherStats aggregates the year's revenue per teacher across their
// groups, with a distinct count of currently active students. Payments for
// groups deleted since have no surviving teacher link and are not
// attributed.
func (e *Engine) teacherStats(ctx context.Context, groups []center.GroupView, tallies map[center.GroupID]*groupTally) []TeacherYearlyStats {
	type teacherAgg struct {
		stats    TeacherYearlyStats
		students map[center.StudentID]struct{}
	}
	byTeacher := make(map[center.TeacherID]*teacherAgg)
	var order []center.TeacherID

	for _, g := range groups {
		agg, ok := byTeacher[g.TeacherID]
		if !ok {
			agg = &teacherAgg{
				stats: TeacherYearlyStats{
					TeacherID:    g.TeacherID,
					TeacherName:  teacherName(g.TeacherName),
					TotalRevenue: decimal.Zero,
				},
				students: make(map[center.StudentID]struct{}),
			}
			byTeacher[g.TeacherID] = agg
			order = append(order, g.TeacherID)
		}
		agg.stats.GroupCount++
		if t, found := tallies[g.ID]; found {
			agg.stats.TotalRevenue = agg.stats.TotalRevenue.Add(t.stats.TotalRevenue)
		}

		gid := g.ID
		active := fetch(e.log, "active_enrollments", func() ([]center.EnrollmentView, error) {
			return e.store.EnrollmentsByGroup(ctx, gid, true)
		})
		for _, en := range active {
			agg.students[en.StudentID] = struct{}{}
		}
	}

	stats := make([]TeacherYearlyStats, 0, len(order))
	for _, id := range order {
		agg := byTeacher[id]
		agg.stats.TotalStudents = len(agg.students)
		stats = append(stats, agg.stats)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalRevenue.GreaterThan(stats[j].TotalRevenue)
	})
	return stats
}

func tallyAttendance(records []center.AttendanceView) AttendanceStats {
	present, absent := 0, 0
	for _, a := range records {
		switch a.Status {
		case center.StatusPresent:
			present++
		case center.StatusAbsent:
			absent++
		}
	}
	return AttendanceStats{
		TotalPresent:   present,
		TotalAbsent:    absent,
		AttendanceRate: center.AttendanceRate(present, absent),
	}
}
