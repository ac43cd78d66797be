package models

import (
	"time"
)

type Club struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;unique" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	President    string    `json:"president"`
	Email        string    `json:"email"`
	Image        string    `json:"image"`
	Achievements string    `gorm:"type:text" json:"achievements"`
	Website      string    `json:"website"`
	Social       string    `json:"social"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ClubEvent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ClubID           *uint     `gorm:"index" json:"club_id"`
	Club             *Club     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"club,omitempty"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	EventDate        string    `gorm:"size:10;not null;index" json:"event_date"` // YYYY-MM-DD
	RegistrationLink string    `json:"registration_link"`
	ImageURL         string    `gorm:"not null" json:"image_url"`
	CreatedBy        uint      `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}
