/*
seed.go - Deterministic demo data

PURPOSE:
  POST /api/seed populates an empty database with a small, reproducible
  learning center: teachers, groups, students, enrollments, a few weeks of
  attendance, and a partially-collected month of payments. Every run
  produces the same data, so screenshots and manual walkthroughs match.

GUARDS:
  Refuses to seed a non-empty database (409). Wipe the database file and
  restart to reseed.
*/
package api

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// seedRandSource fixes the RNG so every seed run is identical.
const seedRandSource = 20240901

type seedGroup struct {
	name string
	fee  int64
}

var seedTeachers = []center.Teacher{
	{FullName: "Dilnoza Karimova", PhoneNumber: "+998901234501"},
	{FullName: "Aziz Rustamov", PhoneNumber: "+998901234502"},
	{FullName: "Malika Yusupova", PhoneNumber: "+998901234503"},
}

var seedGroups = [][]seedGroup{
	{{"English Beginners", 300000}, {"English Advanced", 350000}},
	{{"Math Olympiad", 400000}, {"Math Foundations", 300000}},
	{{"IT: Scratch", 250000}},
}

var seedStudents = []center.Student{
	{FullName: "Akmal Tursunov", ParentName: "Bobur Tursunov", ParentPhone: "+998909000001"},
	{FullName: "Zarina Alimova", ParentName: "Nilufar Alimova", ParentPhone: "+998909000002"},
	{FullName: "Jasur Nazarov", ParentName: "Sherzod Nazarov", ParentPhone: "+998909000003"},
	{FullName: "Madina Saidova", ParentName: "Gulnora Saidova", ParentPhone: "+998909000004"},
	{FullName: "Timur Rakhimov", ParentName: "Rustam Rakhimov", ParentPhone: "+998909000005"},
	{FullName: "Kamila Ergasheva", ParentName: "Dilshod Ergashev", ParentPhone: "+998909000006"},
	{FullName: "Sardor Mirzaev", ParentName: "Otabek Mirzaev", ParentPhone: "+998909000007"},
	{FullName: "Nigora Khamidova", ParentName: "Feruza Khamidova", ParentPhone: "+998909000008"},
	{FullName: "Ulugbek Sattorov", ParentName: "Alisher Sattorov", ParentPhone: "+998909000009"},
	{FullName: "Shahlo Ibragimova", ParentName: "Munisa Ibragimova", ParentPhone: "+998909000010"},
	{FullName: "Bekzod Yuldashev", ParentName: "Karim Yuldashev", ParentPhone: "+998909000011"},
	{FullName: "Lola Abdullaeva", ParentName: "Ravshan Abdullaev", ParentPhone: "+998909000012"},
}

// Seed populates an empty database with the demo center.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, err := h.Store.ListTeachers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check database", err)
		return
	}
	if len(existing) > 0 {
		writeError(w, http.StatusConflict, "Database already contains data; refusing to seed", nil)
		return
	}

	counts, err := h.seed(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Seeding failed", err)
		return
	}

	h.Log.Info("demo data seeded",
		zap.Int("teachers", counts["teachers"]),
		zap.Int("groups", counts["groups"]),
		zap.Int("students", counts["students"]))
	writeJSON(w, http.StatusCreated, counts)
}

func (h *Handler) seed(ctx context.Context) (map[string]int, error) {
	rng := rand.New(rand.NewSource(seedRandSource))
	now := time.Now().UTC()

	var groupIDs []center.GroupID
	groupFees := make(map[center.GroupID]decimal.Decimal)

	for i := range seedTeachers {
		t := seedTeachers[i]
		if err := h.Store.CreateTeacher(ctx, &t); err != nil {
			return nil, fmt.Errorf("seed teacher: %w", err)
		}
		for _, sg := range seedGroups[i] {
			g := center.Group{
				Name:       sg.name,
				TeacherID:  t.ID,
				MonthlyFee: decimal.NewFromInt(sg.fee),
			}
			if err := h.Store.CreateGroup(ctx, &g); err != nil {
				return nil, fmt.Errorf("seed group: %w", err)
			}
			groupIDs = append(groupIDs, g.ID)
			groupFees[g.ID] = g.MonthlyFee
		}
	}

	// Reference codes come from the fixed RNG, not uuid, so runs repeat.
	var studentIDs []center.StudentID
	for i := range seedStudents {
		s := seedStudents[i]
		s.ReferenceCode = fmt.Sprintf("STU-%08X", rng.Uint32())
		if err := h.Store.CreateStudent(ctx, &s); err != nil {
			return nil, fmt.Errorf("seed student: %w", err)
		}
		studentIDs = append(studentIDs, s.ID)
	}

	// Every student joins one group round-robin; every third student joins a
	// second one.
	members := make(map[center.GroupID][]center.StudentID)
	for i, sid := range studentIDs {
		gid := groupIDs[i%len(groupIDs)]
		if _, err := h.Enrollments.Enroll(ctx, sid, gid); err != nil {
			return nil, fmt.Errorf("seed enrollment: %w", err)
		}
		members[gid] = append(members[gid], sid)
		if i%3 == 0 {
			second := groupIDs[(i+1)%len(groupIDs)]
			if _, err := h.Enrollments.Enroll(ctx, sid, second); err != nil {
				return nil, fmt.Errorf("seed enrollment: %w", err)
			}
			members[second] = append(members[second], sid)
		}
	}

	// Two weeks of attendance on weekdays, roughly one absence in eight.
	// Groups are walked in creation order so the fixed RNG always lands on
	// the same students.
	attendanceDays := 0
	for back := 14; back >= 1; back-- {
		day := now.AddDate(0, 0, -back)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		date := center.DateOf(day.Year(), day.Month(), day.Day())
		attendanceDays++
		for _, gid := range groupIDs {
			roster := members[gid]
			records := make([]center.Attendance, len(roster))
			for i, sid := range roster {
				status := center.StatusPresent
				if rng.Intn(8) == 0 {
					status = center.StatusAbsent
				}
				records[i] = center.Attendance{
					StudentID: sid,
					GroupID:   gid,
					Date:      date,
					Status:    status,
				}
			}
			if _, err := h.Store.CreateAttendances(ctx, records); err != nil {
				return nil, fmt.Errorf("seed attendance: %w", err)
			}
		}
	}

	// Current month's tuition: about three quarters of the roster has paid.
	key := center.MonthKeyOf(now)
	paymentCount := 0
	for _, gid := range groupIDs {
		for _, sid := range members[gid] {
			if rng.Intn(4) == 0 {
				continue
			}
			p := center.Payment{
				StudentID:    sid,
				GroupID:      gid,
				Amount:       groupFees[gid],
				PaidForMonth: key,
				PaidAt:       now,
			}
			if err := h.Store.CreatePayment(ctx, &p); err != nil {
				return nil, fmt.Errorf("seed payment: %w", err)
			}
			paymentCount++
		}
	}

	return map[string]int{
		"teachers":        len(seedTeachers),
		"groups":          len(groupIDs),
		"students":        len(studentIDs),
		"attendance_days": attendanceDays,
		"payments":        paymentCount,
	}, nil
}
