package services

import (
	"context"
	"errors"
	"fmt"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/metrics"
	"campusdesk/internal/models"
	"campusdesk/internal/realtime"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

// Location is the caller's reported position.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence limits gate actions to a radius around the campus gate.
type Geofence struct {
	Lat, Lng     float64
	RadiusMeters float64
}

// Check passes when the fence is disabled or loc lies inside it.
func (g *Geofence) Check(loc *Location) error {
	if g == nil || g.RadiusMeters <= 0 {
		return nil
	}
	if loc == nil {
		return apperr.Validation("location is required at the campus gate")
	}
	d := utils.DistanceMeters(g.Lat, g.Lng, loc.Lat, loc.Lng)
	if d > g.RadiusMeters {
		return apperr.Validationf("you are %.0fm from campus; gate passes work within %.0fm", d, g.RadiusMeters)
	}
	return nil
}

// GatePassService tracks market trips: at most one pass per user is out.
type GatePassService struct {
	db    *gorm.DB
	fence *Geofence
	pub   *realtime.Publisher
	now   Clock
}

func NewGatePassService(db *gorm.DB, fence *Geofence, pub *realtime.Publisher) *GatePassService {
	return &GatePassService{db: db, fence: fence, pub: pub, now: systemClock}
}

var errAlreadyOut = apperr.Conflict("you are already out on a market pass")

// Leave records the caller leaving campus.
func (s *GatePassService) Leave(ctx context.Context, actor *models.User, loc *Location) (*models.GatePass, error) {
	if err := authorize(actor, authz.ActionUseGatePass); err != nil {
		return nil, err
	}
	if err := s.fence.Check(loc); err != nil {
		return nil, err
	}

	key := models.GatePassActiveKey(actor.ID, models.GatePassMarket)
	pass := models.GatePass{
		UserID:     actor.ID,
		Name:       orNA(actor.Name, "Unknown Student"),
		RollNumber: actor.Roll(),
		Phone:      orNA(actor.Phone, "N/A"),
		Email:      actor.Email,
		Type:       models.GatePassMarket,
		Status:     models.GatePassOut,
		LeaveTime:  s.now(),
		ActiveKey:  &key,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var out int64
		if err := tx.Model(&models.GatePass{}).
			Where("user_id = ? AND type = ? AND status = ?", actor.ID, models.GatePassMarket, models.GatePassOut).
			Count(&out).Error; err != nil {
			return err
		}
		if out > 0 {
			return errAlreadyOut
		}
		if err := tx.Omit("User").Create(&pass).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyOut
			}
			return err
		}
		return tx.Create(&models.StatusLog{
			EntityKind: models.EntityGatePass,
			EntityID:   pass.ID,
			ActorID:    actor.ID,
			ToStatus:   string(models.GatePassOut),
		}).Error
	})
	if err != nil {
		return nil, storageErr("record exit", err)
	}

	metrics.GatePassEvents.WithLabelValues("exit").Inc()
	s.pub.Notify(ctx, realtime.TopicGatePasses, realtime.Event{Type: "gatepass.out", ID: pass.ID, UserID: actor.ID, Status: string(pass.Status)})
	return &pass, nil
}

// Enter closes the caller's open pass. The record is never reopened.
func (s *GatePassService) Enter(ctx context.Context, actor *models.User, loc *Location) (*models.GatePass, error) {
	if err := authorize(actor, authz.ActionUseGatePass); err != nil {
		return nil, err
	}
	if err := s.fence.Check(loc); err != nil {
		return nil, err
	}

	var pass models.GatePass
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(forUpdate).
			Where("user_id = ? AND type = ? AND status = ?", actor.ID, models.GatePassMarket, models.GatePassOut).
			Order("leave_time DESC").Take(&pass).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no active market pass")
		}
		if err != nil {
			return err
		}

		now := s.now()
		if now.Before(pass.LeaveTime) {
			now = pass.LeaveTime
		}
		pass.Status, pass.ReturnTime, pass.ActiveKey = models.GatePassReturned, &now, nil
		if err := tx.Omit("User").Save(&pass).Error; err != nil {
			return err
		}
		return tx.Create(&models.StatusLog{
			EntityKind: models.EntityGatePass,
			EntityID:   pass.ID,
			ActorID:    actor.ID,
			FromStatus: string(models.GatePassOut),
			ToStatus:   string(models.GatePassReturned),
		}).Error
	})
	if err != nil {
		return nil, storageErr("record entry", err)
	}

	metrics.GatePassEvents.WithLabelValues("entry").Inc()
	s.pub.Notify(ctx, realtime.TopicGatePasses, realtime.Event{Type: "gatepass.returned", ID: pass.ID, UserID: actor.ID, Status: string(pass.Status)})
	return &pass, nil
}

// Active returns the caller's open pass, or nil.
func (s *GatePassService) Active(ctx context.Context, userID uint) (*models.GatePass, error) {
	var pass models.GatePass
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND status = ?", userID, models.GatePassMarket, models.GatePassOut).
		Take(&pass).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load active pass", err)
	}
	return &pass, nil
}

// ListOut lists everyone currently out, longest out first.
func (s *GatePassService) ListOut(ctx context.Context) ([]models.GatePass, error) {
	var passes []models.GatePass
	err := s.db.WithContext(ctx).Where("status = ?", models.GatePassOut).Order("leave_time ASC").Find(&passes).Error
	return passes, storageErr("list passes out", err)
}

// History is the gate log, newest first.
func (s *GatePassService) History(ctx context.Context, limit int) ([]models.GatePass, error) {
	var passes []models.GatePass
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&passes).Error
	return passes, storageErr("list gate history", err)
}

func (s *GatePassService) ListMine(ctx context.Context, userID uint, limit int) ([]models.GatePass, error) {
	var passes []models.GatePass
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&passes).Error
	return passes, storageErr("list my passes", err)
}

func orNA(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (g *Geofence) String() string {
	if g == nil || g.RadiusMeters <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("%.0fm around %.6f,%.6f", g.RadiusMeters, g.Lat, g.Lng)
}
