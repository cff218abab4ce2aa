/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/teachers/*      Teacher management
  /api/groups/*        Group management
  /api/students/*      Student management
  /api/enrollments/*   Enrollment lifecycle
  /api/attendance/*    Attendance sheets
  /api/payments/*      Tuition payments
  /api/inquiries/*     Prospective students
  /api/reports/*       Daily/monthly/yearly reports
  /api/seed            Demo data (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Teacher routes
		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", h.ListTeachers)
			r.Post("/", h.CreateTeacher)
			r.Get("/{id}", h.GetTeacher)
			r.Put("/{id}", h.UpdateTeacher)
			r.Delete("/{id}", h.DeleteTeacher)
		})

		// Group routes
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/teacher/{id}", h.ListGroupsByTeacher)
			r.Get("/{id}", h.GetGroup)
			r.Put("/{id}", h.UpdateGroup)
			r.Delete("/{id}", h.DeleteGroup)
		})

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
		})

		// Enrollment routes
		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", h.Enroll)
			r.Delete("/student/{studentID}/group/{groupID}", h.Withdraw)
			r.Get("/student/{studentID}", h.ListEnrollmentsByStudent)
			r.Get("/group/{groupID}", h.ListEnrollmentsByGroup)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.CreateAttendance)
			r.Get("/{id}", h.GetAttendance)
			r.Put("/{id}", h.UpdateAttendance)
			r.Get("/date/{date}", h.AttendanceByDate)
			r.Get("/month", h.AttendanceByMonth)
			r.Get("/group/{groupID}/date/{date}", h.AttendanceByGroupAndDate)
			r.Get("/group/{groupID}/month", h.AttendanceByGroupAndMonth)
			r.Get("/student/{studentID}/month", h.AttendanceByStudentAndMonth)
			r.Get("/student/{studentID}/group/{groupID}/month", h.AttendanceByStudentGroupAndMonth)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/student/{studentID}", h.PaymentsByStudent)
			r.Get("/group/{groupID}", h.PaymentsByGroup)
			r.Get("/{id}", h.GetPayment)
			r.Put("/{id}", h.UpdatePayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Inquiry routes
		r.Route("/inquiries", func(r chi.Router) {
			r.Get("/", h.ListInquiries)
			r.Post("/", h.CreateInquiry)
			r.Get("/{id}", h.GetInquiry)
			r.Put("/{id}", h.UpdateInquiry)
			r.Delete("/{id}", h.DeleteInquiry)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/daily", h.DailyReport)
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/yearly", h.YearlyReport)
		})

		// Demo data
		r.Post("/seed", h.Seed)
	})

	return r
}
