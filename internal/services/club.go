package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

type EventInput struct {
	ClubID           *uint  `json:"club_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EventDate        string `json:"event_date"`
	RegistrationLink string `json:"registration_link"`
	ImageURL         string `json:"image_url"`
}

type ClubService struct {
	db  *gorm.DB
	now Clock
}

func NewClubService(db *gorm.DB) *ClubService {
	return &ClubService{db: db, now: systemClock}
}

func (s *ClubService) ListClubs(ctx context.Context) ([]models.Club, error) {
	var clubs []models.Club
	err := s.db.WithContext(ctx).Order("id ASC").Find(&clubs).Error
	return clubs, storageErr("list clubs", err)
}

func (s *ClubService) GetClub(ctx context.Context, id uint) (*models.Club, error) {
	var club models.Club
	if err := s.db.WithContext(ctx).First(&club, id).Error; err != nil {
		return nil, storageErr("load club", notFoundOr(err, "club"))
	}
	return &club, nil
}

// ListEvents lists events by date. upcoming hides events before today.
func (s *ClubService) ListEvents(ctx context.Context, upcoming bool) ([]models.ClubEvent, error) {
	q := s.db.WithContext(ctx).Preload("Club").Order("event_date ASC").Order("id ASC")
	if upcoming {
		q = q.Where("event_date >= ?", s.now().Format(models.DateLayout))
	}
	var events []models.ClubEvent
	err := q.Find(&events).Error
	return events, storageErr("list events", err)
}

func (s *ClubService) PublishEvent(ctx context.Context, actor *models.User, in EventInput) (*models.ClubEvent, error) {
	if err := authorize(actor, authz.ActionPublishEvent); err != nil {
		return nil, err
	}
	in.Title = utils.StripTags(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.EventDate = strings.TrimSpace(in.EventDate)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.RegistrationLink = strings.TrimSpace(in.RegistrationLink)

	switch {
	case in.Title == "":
		return nil, apperr.Validation("title is required")
	case in.Description == "":
		return nil, apperr.Validation("description is required")
	case in.ImageURL == "":
		return nil, apperr.Validation("an event poster is required")
	}
	if _, err := time.Parse(models.DateLayout, in.EventDate); err != nil {
		return nil, apperr.Validation("event_date must be YYYY-MM-DD")
	}
	if in.RegistrationLink != "" && !isHTTPURL(in.RegistrationLink) {
		return nil, apperr.Validation("registration_link must be an http(s) URL")
	}
	if !isHTTPURL(in.ImageURL) {
		return nil, apperr.Validation("image_url must be an http(s) URL")
	}
	if in.ClubID != nil {
		if _, err := s.GetClub(ctx, *in.ClubID); err != nil {
			return nil, err
		}
	}

	ev := models.ClubEvent{
		ClubID:           in.ClubID,
		Title:            in.Title,
		Description:      in.Description,
		EventDate:        in.EventDate,
		RegistrationLink: in.RegistrationLink,
		ImageURL:         in.ImageURL,
		CreatedBy:        actor.ID,
	}
	if err := s.db.WithContext(ctx).Omit("Club").Create(&ev).Error; err != nil {
		return nil, storageErr("publish event", err)
	}
	return &ev, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
