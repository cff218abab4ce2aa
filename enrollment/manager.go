/*
Package enrollment owns the student<->group membership lifecycle.

PURPOSE:
  Mediates every transition of an enrollment between its two states and
  enforces the center's no-orphaned-student policy.

STATE MACHINE (one enrollment row):

    (first Enroll)
         |
         v
      ACTIVE  --Withdraw-->  INACTIVE
         ^                      |
         +------Enroll----------+   (reactivation reuses the row)

  There is no deleted state for the row itself; rows disappear only as a
  side effect of purging their student.

PURGE POLICY:
  Withdrawing a student's last active enrollment deletes the student and
  ALL dependent records - attendance, payments, every enrollment row, then
  the student - in that order, inside one transaction. This is
  irreversible and destroys payment history. It is the center's documented
  policy, not an accident; see DESIGN.md before changing it.

SEE ALSO:
  - center/store.go: TxLedger consumed here
  - reports/engine.go: reads the state this package writes
*/
package enrollment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/center"
)

// Manager performs enrollment lifecycle transitions. Every mutation runs
// inside one store transaction.
type Manager struct {
	store center.TxLedger
	log   *zap.Logger

	// now is replaceable in tests; enrollment and leave dates are
	// day-granular.
	now func() time.Time
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store center.TxLedger, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, now: time.Now}
}

func (m *Manager) today() time.Time {
	t := m.now().UTC()
	return center.DateOf(t.Year(), t.Month(), t.Day())
}

// Enroll adds a student to a group. If an inactive enrollment already exists
// for the pair it is reactivated (active=true, leftAt cleared) instead of
// inserting a second row. An already-active enrollment is a Conflict.
func (m *Manager) Enroll(ctx context.Context, studentID center.StudentID, groupID center.GroupID) (*center.EnrollmentView, error) {
	m.log.Info("enrolling student",
		zap.Int64("student_id", int64(studentID)),
		zap.Int64("group_id", int64(groupID)))

	var enrollmentID center.EnrollmentID
	err := m.store.WithTx(ctx, func(tx center.Ledger) error {
		if err := requireStudent(ctx, tx, studentID); err != nil {
			return err
		}
		if err := requireGroup(ctx, tx, groupID); err != nil {
			return err
		}

		existing, err := tx.FindEnrollment(ctx, studentID, groupID)
		switch {
		case err == nil && existing.Active:
			return &center.ConflictError{Reason: "student is already enrolled in this group"}
		case err == nil:
			// Reactivate the existing row rather than inserting a duplicate.
			existing.Active = true
			existing.LeftAt = nil
			if err := tx.UpdateEnrollment(ctx, existing); err != nil {
				return err
			}
			enrollmentID = existing.ID
			m.log.Info("reactivated enrollment",
				zap.Int64("enrollment_id", int64(existing.ID)),
				zap.Int64("student_id", int64(studentID)),
				zap.Int64("group_id", int64(groupID)))
			return nil
		case center.IsNotFound(err):
			e := &center.Enrollment{
				StudentID:  studentID,
				GroupID:    groupID,
				Active:     true,
				EnrolledAt: m.today(),
			}
			if err := tx.CreateEnrollment(ctx, e); err != nil {
				return err
			}
			enrollmentID = e.ID
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return m.store.GetEnrollmentView(ctx, enrollmentID)
}

// Withdraw deactivates the enrollment for (student, group). If the student
// has no active enrollments left afterwards, the student is purged entirely.
// Returns NotFound when no enrollment row exists for the pair.
func (m *Manager) Withdraw(ctx context.Context, studentID center.StudentID, groupID center.GroupID) error {
	m.log.Info("withdrawing student",
		zap.Int64("student_id", int64(studentID)),
		zap.Int64("group_id", int64(groupID)))

	return m.store.WithTx(ctx, func(tx center.Ledger) error {
		e, err := tx.FindEnrollment(ctx, studentID, groupID)
		if err != nil {
			return err
		}

		left := m.today()
		e.Active = false
		e.LeftAt = &left
		if err := tx.UpdateEnrollment(ctx, e); err != nil {
			return err
		}

		remaining, err := tx.CountActiveEnrollmentsByStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		m.log.Warn("student has no active enrollments left, purging",
			zap.Int64("student_id", int64(studentID)))
		return m.purge(ctx, tx, studentID)
	})
}

// purge deletes a student and every dependent record. The ordering -
// attendance, then payments, then enrollments, then the student - respects
// referential integrity and is a documented invariant of this system.
func (m *Manager) purge(ctx context.Context, tx center.Ledger, studentID center.StudentID) error {
	attendance, err := tx.DeleteAttendanceByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	payments, err := tx.DeletePaymentsByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	enrollments, err := tx.DeleteEnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := tx.DeleteStudent(ctx, studentID); err != nil {
		return err
	}

	m.log.Info("student purged",
		zap.Int64("student_id", int64(studentID)),
		zap.Int64("attendance_deleted", attendance),
		zap.Int64("payments_deleted", payments),
		zap.Int64("enrollments_deleted", enrollments))
	return nil
}

// ListByStudent returns every enrollment of the student, active or not.
func (m *Manager) ListByStudent(ctx context.Context, studentID center.StudentID) ([]center.EnrollmentView, error) {
	if err := requireStudent(ctx, m.store, studentID); err != nil {
		return nil, err
	}
	return m.store.EnrollmentsByStudent(ctx, studentID, false)
}

// ListActiveByStudent returns the student's active enrollments.
func (m *Manager) ListActiveByStudent(ctx context.Context, studentID center.StudentID) ([]center.EnrollmentView, error) {
	if err := requireStudent(ctx, m.store, studentID); err != nil {
		return nil, err
	}
	return m.store.EnrollmentsByStudent(ctx, studentID, true)
}

// ListByGroup returns the group's active enrollments.
func (m *Manager) ListByGroup(ctx context.Context, groupID center.GroupID) ([]center.EnrollmentView, error) {
	if err := requireGroup(ctx, m.store, groupID); err != nil {
		return nil, err
	}
	return m.store.EnrollmentsByGroup(ctx, groupID, true)
}

func requireStudent(ctx context.Context, store center.Ledger, id center.StudentID) error {
	ok, err := store.StudentExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &center.NotFoundError{Entity: "Student", ID: int64(id)}
	}
	return nil
}

func requireGroup(ctx context.Context, store center.Ledger, id center.GroupID) error {
	ok, err := store.GroupExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &center.NotFoundError{Entity: "Group", ID: int64(id)}
	}
	return nil
}
