package models

import (
	"time"

	"gorm.io/gorm"
)

type IssueCategory string

const (
	CategoryHostel IssueCategory = "hostel"
	CategoryCampus IssueCategory = "campus"
)

func (c IssueCategory) Valid() bool {
	return c == CategoryHostel || c == CategoryCampus
}

type IssueStatus string

const (
	IssuePending  IssueStatus = "pending"
	IssueResolved IssueStatus = "resolved"
)

// Post is an issue report. Upvotes and Downvotes always equal the number of
// vote records in each direction.
type Post struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;index" json:"user_id"`
	User        User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Category    IssueCategory `gorm:"size:20;not null;index" json:"category"`
	ImageURL    string        `json:"image_url"`
	Status      IssueStatus   `gorm:"size:20;default:'pending';not null;index" json:"status"`
	Upvotes     int           `gorm:"default:0;not null" json:"upvotes"`
	Downvotes   int           `gorm:"default:0;not null" json:"downvotes"`
	TriageScore int           `gorm:"default:0;index" json:"triage_score"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// filled per request, not stored
	ReporterName    string        `gorm:"-" json:"reporter_name,omitempty"`
	DescriptionHTML string        `gorm:"-" json:"description_html,omitempty"`
	MyVote          VoteDirection `gorm:"-" json:"my_vote,omitempty"`
}

// AfterFind exposes the reporter's display name when User was preloaded.
func (p *Post) AfterFind(tx *gorm.DB) error {
	if p.User.ID != 0 {
		p.ReporterName = p.User.Name
	}
	return nil
}
