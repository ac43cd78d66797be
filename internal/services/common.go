package services

import (
	"errors"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clock is swapped out in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// forUpdate locks the selected rows for the rest of the transaction.
// SQLite ignores the clause; its writers are serialised anyway.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// authorize checks actor may perform action.
func authorize(actor *models.User, action authz.Action) error {
	if actor == nil || actor.ID == 0 {
		return apperr.Unauthenticated("login required")
	}
	if !authz.AllowedActions(actor.Role)[action] {
		return apperr.Unauthorized("your role cannot perform this action")
	}
	return nil
}

// storageErr passes classified errors through and wraps the rest as transient.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Transient(op, err)
}

// notFoundOr maps gorm's missing-row error onto NotFound.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return err
}
