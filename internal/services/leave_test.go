package services

import (
	"sync"
	"testing"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLeaveStandardTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	assert.Equal(t, models.LeaveProcessing, app.Status)
	assert.Equal(t, e.student.Email, app.Email)
	assert.Equal(t, e.student.Name, app.StudentName)

	app, err = e.leaves.Approve(ctx, e.admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, app.Status)
	require.NotNil(t, app.DecidedBy)
	assert.Equal(t, e.admin.ID, *app.DecidedBy)

	e.clock.Set(at("2025-01-10 08:00"))
	app, err = e.leaves.Depart(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveOutOfCampus, app.Status)
	require.NotNil(t, app.ActualExit)

	e.clock.Set(at("2025-01-15 18:00"))
	app, err = e.leaves.Return(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveCompleted, app.Status)
	require.NotNil(t, app.ActualReturn)
	assert.False(t, app.EarlyReturn)
	assert.False(t, app.ReturnedLate())

	active, err := e.leaves.Active(ctx, e.student.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	logs, err := e.leaves.History(ctx, app.ID)
	require.NoError(t, err)
	var path []string
	for _, l := range logs {
		path = append(path, l.ToStatus)
	}
	assert.Equal(t, []string{"processing", "approved", "out_of_campus", "completed"}, path)

	// a closed application frees the slot for the next one
	_, err = e.leaves.Submit(ctx, e.student, validLeave())
	assert.NoError(t, err)
}

func TestLeaveEarlyReturn(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Approve(ctx, e.admin, app.ID)
	require.NoError(t, err)

	_, err = e.leaves.Return(ctx, e.student, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "return needs a logged exit")

	app, err = e.leaves.MarkReturn(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveCompleted, app.Status)
	assert.True(t, app.EarlyReturn)
	assert.Nil(t, app.ActualExit)
}

func TestLeaveOneActivePerStudent(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	_, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Submit(ctx, e.student, validLeave())
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = e.leaves.Submit(ctx, e.other, validLeave())
	assert.NoError(t, err)
}

func TestLeaveConcurrentSubmit(t *testing.T) {
	e := newTestEnv(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.leaves.Submit(t.Context(), e.student, validLeave())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.KindConflict):
				clash++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, clash)
}

func TestLeaveSubmitLosesRaceOnActiveKey(t *testing.T) {
	e := newTestEnv(t)
	key := models.LeaveActiveKey(e.student.ID)
	e.beforeInsertOnce(t, "leave_applications", func(tx *gorm.DB) error {
		in := validLeave()
		return tx.Omit("User").Create(&models.LeaveApplication{
			UserID:        e.student.ID,
			StudentName:   e.student.Name,
			Phone:         in.Phone,
			ParentPhone:   in.ParentPhone,
			HostelName:    in.HostelName,
			RoomNumber:    in.RoomNumber,
			Reason:        in.Reason,
			DepartureDate: in.DepartureDate,
			ReturnDate:    in.ReturnDate,
			Status:        models.LeaveProcessing,
			ActiveKey:     &key,
		}).Error
	})

	_, err := e.leaves.Submit(t.Context(), e.student, validLeave())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	assert.Equal(t, "you already have an active leave application", apperr.Message(err))

	// the whole transaction rolled back, so a later submit goes through
	_, err = e.leaves.Submit(t.Context(), e.student, validLeave())
	require.NoError(t, err)
	var n int64
	require.NoError(t, e.db.Model(&models.LeaveApplication{}).Where("active_key = ?", key).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLeaveTransitionsAreMonotonic(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)

	_, err = e.leaves.Depart(ctx, e.student, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "cannot leave before approval")

	_, err = e.leaves.Reject(ctx, e.admin, app.ID, "exams next week")
	require.NoError(t, err)

	_, err = e.leaves.Approve(ctx, e.admin, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "rejected is terminal")
	_, err = e.leaves.Depart(ctx, e.student, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	got, err := e.leaves.Get(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, got.Status)
	assert.Equal(t, "exams next week", got.RejectReason)
}

func TestLeaveGuards(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	_, err := e.leaves.Submit(ctx, nil, validLeave())
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	_, err = e.leaves.Submit(ctx, e.public, validLeave())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)

	_, err = e.leaves.Approve(ctx, e.student, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "students cannot approve")
	_, err = e.leaves.Approve(ctx, e.club, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = e.leaves.Approve(ctx, e.admin, 4242)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = e.leaves.Approve(ctx, e.admin, app.ID)
	require.NoError(t, err)
	_, err = e.leaves.Depart(ctx, e.other, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "only the owner logs their exit")

	_, err = e.leaves.Get(ctx, e.other, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = e.leaves.Get(ctx, e.admin, app.ID)
	assert.NoError(t, err)
}

func TestLeaveInputValidation(t *testing.T) {
	e := newTestEnv(t)

	cases := map[string]func(in *LeaveInput){
		"missing reason":        func(in *LeaveInput) { in.Reason = "  " },
		"return before leaving": func(in *LeaveInput) { in.ReturnDate = "2025-01-09" },
		"bad date":              func(in *LeaveInput) { in.DepartureDate = "10/01/2025" },
		"short phone":           func(in *LeaveInput) { in.Phone = "98765" },
		"letters in parent":     func(in *LeaveInput) { in.ParentPhone = "98765abcde12" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validLeave()
			mutate(&in)
			_, err := e.leaves.Submit(t.Context(), e.student, in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	in := validLeave()
	in.ReturnDate = in.DepartureDate
	_, err := e.leaves.Submit(t.Context(), e.student, in)
	assert.NoError(t, err, "same-day return is allowed")
}

func TestLeaveOverdueIsDerived(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Approve(ctx, e.admin, app.ID)
	require.NoError(t, err)
	e.clock.Set(at("2025-01-10 07:30"))
	_, err = e.leaves.Depart(ctx, e.student, app.ID)
	require.NoError(t, err)

	e.clock.Set(at("2025-01-15 23:00"))
	active, err := e.leaves.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.False(t, active[0].Overdue, "still the return day")

	e.clock.Set(at("2025-01-16 10:00"))
	active, err = e.leaves.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Overdue)

	var stored models.LeaveApplication
	require.NoError(t, e.db.First(&stored, app.ID).Error)
	assert.Equal(t, models.LeaveOutOfCampus, stored.Status, "overdue is never persisted")

	stats, err := e.leaves.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Outside)
	assert.EqualValues(t, 1, stats.Overdue)

	app, err = e.leaves.Return(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.True(t, app.ReturnedLate())

	history, err := e.leaves.ListHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Late)
	assert.False(t, history[0].Overdue)
}

func TestLeaveReturnNotBeforeExit(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Approve(ctx, e.admin, app.ID)
	require.NoError(t, err)
	e.clock.Set(at("2025-01-10 12:00"))
	_, err = e.leaves.Depart(ctx, e.student, app.ID)
	require.NoError(t, err)

	e.clock.Set(at("2025-01-10 11:00"))
	app, err = e.leaves.Return(ctx, e.student, app.ID)
	require.NoError(t, err)
	assert.False(t, app.ActualReturn.Before(*app.ActualExit))
}

func TestLeaveDecisionNotifiesStudent(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	app, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Reject(ctx, e.admin, app.ID, "<b>clash</b> with mid-sems")
	require.NoError(t, err)
	e.mail.Wait()

	inbox, err := e.notify.List(ctx, e.student.ID, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationLeaveRejected, inbox[0].Type)
	assert.Contains(t, inbox[0].Message, "clash with mid-sems")

	sent := e.sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, e.student.Email, sent[0].to)
	assert.Contains(t, sent[0].subject, "rejected")
}

func TestLeaveQueues(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	a, err := e.leaves.Submit(ctx, e.student, validLeave())
	require.NoError(t, err)
	b, err := e.leaves.Submit(ctx, e.other, validLeave())
	require.NoError(t, err)
	_, err = e.leaves.Approve(ctx, e.admin, b.ID)
	require.NoError(t, err)

	pending, err := e.leaves.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	active, err := e.leaves.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	mine, err := e.leaves.ListMine(ctx, e.other.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	stats, err := e.leaves.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Approved)
	assert.Len(t, stats.Recent, 2)
}
