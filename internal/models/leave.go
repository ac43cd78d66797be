package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of leave dates.
const DateLayout = "2006-01-02"

type LeaveStatus string

const (
	LeaveProcessing  LeaveStatus = "processing"
	LeaveApproved    LeaveStatus = "approved"
	LeaveRejected    LeaveStatus = "rejected"
	LeaveOutOfCampus LeaveStatus = "out_of_campus"
	LeaveCompleted   LeaveStatus = "completed"
)

var leaveTransitions = map[LeaveStatus][]LeaveStatus{
	LeaveProcessing:  {LeaveApproved, LeaveRejected},
	LeaveApproved:    {LeaveOutOfCampus, LeaveCompleted},
	LeaveOutOfCampus: {LeaveCompleted},
}

// ActiveLeaveStatuses hold the single application a user may have open.
var ActiveLeaveStatuses = []LeaveStatus{LeaveProcessing, LeaveApproved, LeaveOutOfCampus}

func (s LeaveStatus) CanTransition(to LeaveStatus) bool {
	for _, next := range leaveTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s LeaveStatus) Active() bool {
	return s == LeaveProcessing || s == LeaveApproved || s == LeaveOutOfCampus
}

func (s LeaveStatus) Terminal() bool {
	return s == LeaveRejected || s == LeaveCompleted
}

// LeaveApplication is a hostel leave request. ActiveKey is set while the
// application is active and cleared once it reaches a terminal state; its
// unique index keeps a user to one active application.
type LeaveApplication struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	User          User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	StudentName   string      `gorm:"not null" json:"student_name"`
	Email         string      `json:"email"`
	Phone         string      `gorm:"size:20;not null" json:"phone"`
	ParentPhone   string      `gorm:"size:20;not null" json:"parent_phone"`
	HostelName    string      `gorm:"not null" json:"hostel_name"`
	RoomNumber    string      `gorm:"size:20;not null" json:"room_number"`
	Reason        string      `gorm:"type:text;not null" json:"reason"`
	DepartureDate string      `gorm:"size:10;not null" json:"departure_date"`
	ReturnDate    string      `gorm:"size:10;not null" json:"return_date"`
	Status        LeaveStatus `gorm:"size:20;default:'processing';not null;index" json:"status"`
	ActualExit    *time.Time  `json:"actual_exit_time"`
	ActualReturn  *time.Time  `json:"actual_return_time"`
	EarlyReturn   bool        `gorm:"default:false" json:"early_return"`
	DecidedBy     *uint       `json:"decided_by"`
	DecidedAt     *time.Time  `json:"decided_at"`
	RejectReason  string      `gorm:"size:255" json:"reject_reason,omitempty"`
	ActiveKey     *string     `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// derived on read
	Overdue bool `gorm:"-" json:"overdue"`
	Late    bool `gorm:"-" json:"late"`
}

// LeaveActiveKey is the dedupe key an active application holds.
func LeaveActiveKey(userID uint) string {
	return fmt.Sprintf("active:%d:hostel", userID)
}

// IsOverdue reports whether the student is still out after the return date.
// The return date is compared as a calendar day in now's location.
func (a *LeaveApplication) IsOverdue(now time.Time) bool {
	if a.Status != LeaveOutOfCampus {
		return false
	}
	ret, err := time.ParseInLocation(DateLayout, a.ReturnDate, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.After(ret)
}

// ReturnedLate reports whether the recorded return came after 23:59:59 of
// the planned return date.
func (a *LeaveApplication) ReturnedLate() bool {
	if a.ActualReturn == nil {
		return false
	}
	loc := a.ActualReturn.Location()
	ret, err := time.ParseInLocation(DateLayout, a.ReturnDate, loc)
	if err != nil {
		return false
	}
	deadline := ret.Add(24*time.Hour - time.Second)
	return a.ActualReturn.After(deadline)
}
