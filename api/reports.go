/*
reports.go - Report endpoints

PURPOSE:
  Exposes the reporting engine. These endpoints never fail: dashboards poll
  them on a timer, and a transient 4xx/5xx would blank the whole screen.

ENDPOINTS:
  GET /api/reports/daily?year=&month=&day=   One calendar day
  GET /api/reports/monthly?year=&month=      One billing month
  GET /api/reports/yearly?year=              One calendar year

DOWNGRADE CONTRACT:
  The engine raises InvalidArgument for impossible input (February 30,
  month 13). This facade downgrades that to a zero-filled report with HTTP
  200. Missing or non-numeric query parameters get the same treatment.
  Partial storage failures never surface at all: the engine already
  substitutes empty collections for failed sub-fetches.

SEE ALSO:
  - reports/engine.go: The computation and its best-effort boundary
*/
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/reports"
)

// DailyReport returns the report for one calendar day.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	year, okY := intQuery(r, "year")
	month, okM := intQuery(r, "month")
	day, okD := intQuery(r, "day")
	if !okY || !okM || !okD {
		writeJSON(w, http.StatusOK, zeroDailyReport(year, month, day))
		return
	}

	report, err := h.Reports.Daily(r.Context(), year, month, day)
	if err != nil {
		h.Log.Warn("daily report downgraded to zero",
			zap.Int("year", year), zap.Int("month", month), zap.Int("day", day), zap.Error(err))
		writeJSON(w, http.StatusOK, zeroDailyReport(year, month, day))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MonthlyReport returns the report for one billing month.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, okY := intQuery(r, "year")
	month, okM := intQuery(r, "month")
	if !okY || !okM {
		writeJSON(w, http.StatusOK, zeroMonthlyReport(year, month))
		return
	}

	report, err := h.Reports.Monthly(r.Context(), year, month)
	if err != nil {
		h.Log.Warn("monthly report downgraded to zero",
			zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		writeJSON(w, http.StatusOK, zeroMonthlyReport(year, month))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// YearlyReport returns the report for one calendar year.
func (h *Handler) YearlyReport(w http.ResponseWriter, r *http.Request) {
	year, ok := intQuery(r, "year")
	if !ok {
		writeJSON(w, http.StatusOK, zeroYearlyReport(year))
		return
	}

	report, err := h.Reports.Yearly(r.Context(), year)
	if err != nil {
		h.Log.Warn("yearly report downgraded to zero", zap.Int("year", year), zap.Error(err))
		writeJSON(w, http.StatusOK, zeroYearlyReport(year))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func intQuery(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0, false
	}
	return v, true
}

// =============================================================================
// ZERO-FILLED REPORTS
// =============================================================================

func zeroDailyReport(year, month, day int) *reports.DailyReport {
	return &reports.DailyReport{
		Date:                  fmt.Sprintf("%04d-%02d-%02d", year, month, day),
		TotalPaymentsReceived: decimal.Zero,
		GroupAttendances:      []reports.GroupAttendanceSummary{},
		Payments:              []reports.PaymentSummary{},
	}
}

func zeroMonthlyReport(year, month int) *reports.MonthlyReport {
	name := ""
	if month >= 1 && month <= 12 {
		name = time.Month(month).String()
	}
	return &reports.MonthlyReport{
		Year:            year,
		Month:           month,
		MonthName:       name,
		ExpectedRevenue: decimal.Zero,
		ActualRevenue:   decimal.Zero,
		CollectionRate:  decimal.Zero,
		GroupStats:      []reports.GroupMonthlyStats{},
		UnpaidStudents:  []reports.StudentPaymentStatus{},
		AttendanceStats: reports.AttendanceStats{AttendanceRate: decimal.Zero},
	}
}

func zeroYearlyReport(year int) *reports.YearlyReport {
	breakdown := make([]reports.MonthlyRevenueSummary, 12)
	for m := 1; m <= 12; m++ {
		breakdown[m-1] = reports.MonthlyRevenueSummary{
			Month:     m,
			MonthName: time.Month(m).String(),
			Revenue:   decimal.Zero,
		}
	}
	return &reports.YearlyReport{
		Year:             year,
		TotalRevenue:     decimal.Zero,
		MonthlyBreakdown: breakdown,
		TeacherStats:     []reports.TeacherYearlyStats{},
		TopGroups:        []reports.GroupYearlyStats{},
		AttendanceStats:  reports.AttendanceStats{AttendanceRate: decimal.Zero},
	}
}
