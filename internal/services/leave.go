package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/metrics"
	"campusdesk/internal/models"
	"campusdesk/internal/realtime"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

type LeaveInput struct {
	StudentName   string `json:"student_name"`
	Phone         string `json:"phone"`
	ParentPhone   string `json:"parent_phone"`
	HostelName    string `json:"hostel_name"`
	RoomNumber    string `json:"room_number"`
	Reason        string `json:"reason"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
}

func (in *LeaveInput) normalize(actor *models.User) error {
	for _, f := range []*string{&in.StudentName, &in.Phone, &in.ParentPhone, &in.HostelName, &in.RoomNumber, &in.Reason, &in.DepartureDate, &in.ReturnDate} {
		*f = strings.TrimSpace(*f)
	}
	if in.StudentName == "" {
		in.StudentName = actor.Name
	}

	required := []struct{ name, val string }{
		{"student_name", in.StudentName},
		{"phone", in.Phone},
		{"parent_phone", in.ParentPhone},
		{"hostel_name", in.HostelName},
		{"room_number", in.RoomNumber},
		{"reason", in.Reason},
		{"departure_date", in.DepartureDate},
		{"return_date", in.ReturnDate},
	}
	for _, r := range required {
		if r.val == "" {
			return apperr.Validationf("%s is required", r.name)
		}
	}

	dep, err := time.Parse(models.DateLayout, in.DepartureDate)
	if err != nil {
		return apperr.Validation("departure_date must be YYYY-MM-DD")
	}
	ret, err := time.Parse(models.DateLayout, in.ReturnDate)
	if err != nil {
		return apperr.Validation("return_date must be YYYY-MM-DD")
	}
	if ret.Before(dep) {
		return apperr.Validation("return date cannot be before departure date")
	}
	if !utils.ValidPhone(in.Phone) {
		return apperr.Validation("phone must have at least 10 digits")
	}
	if !utils.ValidPhone(in.ParentPhone) {
		return apperr.Validation("parent_phone must have at least 10 digits")
	}
	return nil
}

// LeaveStats feeds the admin dashboard counters.
type LeaveStats struct {
	Pending  int64                     `json:"pending"`
	Approved int64                     `json:"approved"`
	Outside  int64                     `json:"outside"`
	Overdue  int64                     `json:"overdue"`
	Recent   []models.LeaveApplication `json:"recent"`
}

// LeaveService runs the hostel leave lifecycle. Every transition locks the
// application row, checks the state table and appends a StatusLog entry in
// the same transaction.
type LeaveService struct {
	db     *gorm.DB
	notify *NotificationService
	mail   *MailService
	pub    *realtime.Publisher
	now    Clock
}

func NewLeaveService(db *gorm.DB, notify *NotificationService, mail *MailService, pub *realtime.Publisher) *LeaveService {
	return &LeaveService{db: db, notify: notify, mail: mail, pub: pub, now: systemClock}
}

var errActiveLeave = apperr.Conflict("you already have an active leave application")

// Submit opens a new application in processing.
func (s *LeaveService) Submit(ctx context.Context, actor *models.User, in LeaveInput) (*models.LeaveApplication, error) {
	if err := authorize(actor, authz.ActionApplyLeave); err != nil {
		return nil, err
	}
	if err := in.normalize(actor); err != nil {
		return nil, err
	}

	key := models.LeaveActiveKey(actor.ID)
	app := models.LeaveApplication{
		UserID:        actor.ID,
		StudentName:   in.StudentName,
		Email:         actor.Email,
		Phone:         in.Phone,
		ParentPhone:   in.ParentPhone,
		HostelName:    in.HostelName,
		RoomNumber:    in.RoomNumber,
		Reason:        in.Reason,
		DepartureDate: in.DepartureDate,
		ReturnDate:    in.ReturnDate,
		Status:        models.LeaveProcessing,
		ActiveKey:     &key,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.LeaveApplication{}).
			Where("user_id = ? AND status IN ?", actor.ID, models.ActiveLeaveStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return errActiveLeave
		}
		if err := tx.Omit("User").Create(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errActiveLeave
			}
			return err
		}
		return tx.Create(&models.StatusLog{
			EntityKind: models.EntityLeave,
			EntityID:   app.ID,
			ActorID:    actor.ID,
			ToStatus:   string(models.LeaveProcessing),
		}).Error
	})
	if err != nil {
		return nil, storageErr("submit leave", err)
	}

	metrics.LeaveTransitions.WithLabelValues("", string(app.Status)).Inc()
	s.pub.Notify(ctx, realtime.TopicLeaves, realtime.Event{Type: "leave.created", ID: app.ID, UserID: app.UserID, Status: string(app.Status)})
	return &app, nil
}

type leaveStep struct {
	to     models.LeaveStatus
	action authz.Action
	owner  bool
	// from narrows the states the step starts from, on top of the state table
	from  []models.LeaveStatus
	note  string
	apply func(app *models.LeaveApplication, now time.Time)
}

func (s *LeaveService) transition(ctx context.Context, actor *models.User, id uint, step leaveStep) (*models.LeaveApplication, error) {
	if err := authorize(actor, step.action); err != nil {
		return nil, err
	}

	var app models.LeaveApplication
	var from models.LeaveStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).First(&app, id).Error; err != nil {
			return notFoundOr(err, "leave application")
		}
		if step.owner && app.UserID != actor.ID {
			return apperr.Unauthorized("this leave application belongs to someone else")
		}
		from = app.Status
		if !from.CanTransition(step.to) || (len(step.from) > 0 && !slices.Contains(step.from, from)) {
			return apperr.Conflict(fmt.Sprintf("application is %s and cannot become %s", from, step.to))
		}

		app.Status = step.to
		if step.apply != nil {
			step.apply(&app, s.now())
		}
		if step.to.Terminal() {
			app.ActiveKey = nil
		}
		if err := tx.Omit("User").Save(&app).Error; err != nil {
			return err
		}
		return tx.Create(&models.StatusLog{
			EntityKind: models.EntityLeave,
			EntityID:   app.ID,
			ActorID:    actor.ID,
			FromStatus: string(from),
			ToStatus:   string(step.to),
			Note:       step.note,
		}).Error
	})
	if err != nil {
		return nil, storageErr("update leave", err)
	}

	metrics.LeaveTransitions.WithLabelValues(string(from), string(step.to)).Inc()
	s.pub.Notify(ctx, realtime.TopicLeaves, realtime.Event{Type: "leave.updated", ID: app.ID, UserID: app.UserID, Status: string(app.Status)})
	app.Overdue = app.IsOverdue(s.now())
	return &app, nil
}

func (s *LeaveService) Approve(ctx context.Context, admin *models.User, id uint) (*models.LeaveApplication, error) {
	app, err := s.transition(ctx, admin, id, leaveStep{
		to:     models.LeaveApproved,
		action: authz.ActionDecideLeave,
		apply: func(app *models.LeaveApplication, now time.Time) {
			app.DecidedBy, app.DecidedAt = &admin.ID, &now
		},
	})
	if err != nil {
		return nil, err
	}
	s.announceDecision(ctx, admin, app)
	return app, nil
}

func (s *LeaveService) Reject(ctx context.Context, admin *models.User, id uint, reason string) (*models.LeaveApplication, error) {
	reason = utils.StripTags(reason)
	if len(reason) > 255 {
		return nil, apperr.Validation("reason must be at most 255 characters")
	}
	app, err := s.transition(ctx, admin, id, leaveStep{
		to:     models.LeaveRejected,
		action: authz.ActionDecideLeave,
		note:   reason,
		apply: func(app *models.LeaveApplication, now time.Time) {
			app.DecidedBy, app.DecidedAt = &admin.ID, &now
			app.RejectReason = reason
		},
	})
	if err != nil {
		return nil, err
	}
	s.announceDecision(ctx, admin, app)
	return app, nil
}

// Depart logs the student leaving campus on an approved application.
func (s *LeaveService) Depart(ctx context.Context, actor *models.User, id uint) (*models.LeaveApplication, error) {
	return s.transition(ctx, actor, id, leaveStep{
		to:     models.LeaveOutOfCampus,
		action: authz.ActionApplyLeave,
		owner:  true,
		apply: func(app *models.LeaveApplication, now time.Time) {
			app.ActualExit = &now
		},
	})
}

// MarkReturn closes an approved application whose exit was never logged.
func (s *LeaveService) MarkReturn(ctx context.Context, actor *models.User, id uint) (*models.LeaveApplication, error) {
	return s.transition(ctx, actor, id, leaveStep{
		to:     models.LeaveCompleted,
		action: authz.ActionApplyLeave,
		owner:  true,
		from:   []models.LeaveStatus{models.LeaveApproved},
		note:   "early return",
		apply: func(app *models.LeaveApplication, now time.Time) {
			app.ActualReturn = &now
			app.EarlyReturn = true
		},
	})
}

// Return logs the student back on campus after a recorded exit.
func (s *LeaveService) Return(ctx context.Context, actor *models.User, id uint) (*models.LeaveApplication, error) {
	return s.transition(ctx, actor, id, leaveStep{
		to:     models.LeaveCompleted,
		action: authz.ActionApplyLeave,
		owner:  true,
		from:   []models.LeaveStatus{models.LeaveOutOfCampus},
		apply: func(app *models.LeaveApplication, now time.Time) {
			ret := now
			if app.ActualExit != nil && ret.Before(*app.ActualExit) {
				ret = *app.ActualExit
			}
			app.ActualReturn = &ret
		},
	})
}

func (s *LeaveService) announceDecision(ctx context.Context, admin *models.User, app *models.LeaveApplication) {
	approved := app.Status == models.LeaveApproved
	typ, verb := models.NotificationLeaveRejected, "rejected"
	if approved {
		typ, verb = models.NotificationLeaveApproved, "approved"
	}
	msg := fmt.Sprintf("Your leave from %s to %s was %s", app.DepartureDate, app.ReturnDate, verb)
	if app.RejectReason != "" {
		msg += ": " + app.RejectReason
	}
	s.notify.Push(ctx, app.UserID, &admin.ID, typ, msg, "/gate-pass/hostel")
	s.mail.SendLeaveDecision(app.Email, app.StudentName, approved, app.DepartureDate, app.ReturnDate, app.RejectReason)
}

// Active returns userID's open application, or nil when there is none.
func (s *LeaveService) Active(ctx context.Context, userID uint) (*models.LeaveApplication, error) {
	var app models.LeaveApplication
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, models.ActiveLeaveStatuses).
		Order("created_at DESC").Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load active leave", err)
	}
	app.Overdue = app.IsOverdue(s.now())
	return &app, nil
}

// Get returns an application to its owner or to anyone who decides leaves.
func (s *LeaveService) Get(ctx context.Context, actor *models.User, id uint) (*models.LeaveApplication, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated("login required")
	}
	var app models.LeaveApplication
	if err := s.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, storageErr("load leave", notFoundOr(err, "leave application"))
	}
	if app.UserID != actor.ID && !authz.AllowedActions(actor.Role)[authz.ActionDecideLeave] {
		return nil, apperr.Unauthorized("this leave application belongs to someone else")
	}
	app.Overdue, app.Late = app.IsOverdue(s.now()), app.ReturnedLate()
	return &app, nil
}

func (s *LeaveService) ListMine(ctx context.Context, userID uint) ([]models.LeaveApplication, error) {
	return s.list(ctx, "list my leaves", func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID).Order("created_at DESC")
	})
}

// ListPending is the admin decision queue, oldest first.
func (s *LeaveService) ListPending(ctx context.Context) ([]models.LeaveApplication, error) {
	return s.list(ctx, "list pending leaves", func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", models.LeaveProcessing).Order("created_at ASC")
	})
}

// ListActive lists approved and out-of-campus applications, flagging overdue ones.
func (s *LeaveService) ListActive(ctx context.Context) ([]models.LeaveApplication, error) {
	return s.list(ctx, "list active leaves", func(q *gorm.DB) *gorm.DB {
		return q.Where("status IN ?", []models.LeaveStatus{models.LeaveApproved, models.LeaveOutOfCampus}).
			Order("return_date ASC").Order("id ASC")
	})
}

// ListHistory lists closed applications, flagging late returns.
func (s *LeaveService) ListHistory(ctx context.Context, limit int) ([]models.LeaveApplication, error) {
	return s.list(ctx, "list leave history", func(q *gorm.DB) *gorm.DB {
		return q.Where("status IN ?", []models.LeaveStatus{models.LeaveCompleted, models.LeaveRejected}).
			Order("updated_at DESC").Order("id DESC").Limit(limit)
	})
}

func (s *LeaveService) list(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]models.LeaveApplication, error) {
	var apps []models.LeaveApplication
	if err := scope(s.db.WithContext(ctx)).Find(&apps).Error; err != nil {
		return nil, storageErr(op, err)
	}
	s.decorate(apps)
	return apps, nil
}

// decorate fills the read-time flags. Nothing is written back.
func (s *LeaveService) decorate(apps []models.LeaveApplication) {
	now := s.now()
	for i := range apps {
		apps[i].Overdue = apps[i].IsOverdue(now)
		apps[i].Late = apps[i].ReturnedLate()
	}
}

// History returns the transition log of one application.
func (s *LeaveService) History(ctx context.Context, id uint) ([]models.StatusLog, error) {
	var logs []models.StatusLog
	err := s.db.WithContext(ctx).Where("entity_kind = ? AND entity_id = ?", models.EntityLeave, id).
		Order("id ASC").Find(&logs).Error
	return logs, storageErr("load leave history", err)
}

func (s *LeaveService) Stats(ctx context.Context) (*LeaveStats, error) {
	st := &LeaveStats{}
	count := func(dst *int64, where string, args ...any) error {
		return s.db.WithContext(ctx).Model(&models.LeaveApplication{}).Where(where, args...).Count(dst).Error
	}
	today := s.now().Format(models.DateLayout)

	if err := count(&st.Pending, "status = ?", models.LeaveProcessing); err != nil {
		return nil, storageErr("leave stats", err)
	}
	if err := count(&st.Approved, "status = ?", models.LeaveApproved); err != nil {
		return nil, storageErr("leave stats", err)
	}
	if err := count(&st.Outside, "status = ?", models.LeaveOutOfCampus); err != nil {
		return nil, storageErr("leave stats", err)
	}
	// YYYY-MM-DD strings order the same as the dates they encode
	if err := count(&st.Overdue, "status = ? AND return_date < ?", models.LeaveOutOfCampus, today); err != nil {
		return nil, storageErr("leave stats", err)
	}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(3).Find(&st.Recent).Error; err != nil {
		return nil, storageErr("leave stats", err)
	}
	s.decorate(st.Recent)
	return st, nil
}
