package services

import (
	"testing"

	"campusdesk/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(title, date string) EventInput {
	return EventInput{
		Title:       title,
		Description: "Open to all years",
		EventDate:   date,
		ImageURL:    "https://img.example.org/poster.png",
	}
}

func TestPublishEventRoles(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	_, err := e.clubs.PublishEvent(ctx, e.student, event("Hack Night", "2025-02-01"))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = e.clubs.PublishEvent(ctx, nil, event("Hack Night", "2025-02-01"))
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	ev, err := e.clubs.PublishEvent(ctx, e.club, event("Hack Night", "2025-02-01"))
	require.NoError(t, err)
	assert.Equal(t, e.club.ID, ev.CreatedBy)

	_, err = e.clubs.PublishEvent(ctx, e.admin, event("Convocation", "2025-03-01"))
	assert.NoError(t, err)
}

func TestPublishEventValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	noPoster := event("Quiz", "2025-02-01")
	noPoster.ImageURL = ""
	_, err := e.clubs.PublishEvent(ctx, e.club, noPoster)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	badDate := event("Quiz", "Feb 1")
	_, err = e.clubs.PublishEvent(ctx, e.club, badDate)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	badLink := event("Quiz", "2025-02-01")
	badLink.RegistrationLink = "ftp://forms"
	_, err = e.clubs.PublishEvent(ctx, e.club, badLink)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missingClub := event("Quiz", "2025-02-01")
	id := uint(999)
	missingClub.ClubID = &id
	_, err = e.clubs.PublishEvent(ctx, e.club, missingClub)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListEventsOrdering(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()

	clubs, err := e.clubs.ListClubs(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, clubs)

	withClub := event("Robowars", "2025-01-20")
	withClub.ClubID = &clubs[0].ID
	for _, in := range []EventInput{event("Past talk", "2025-01-02"), withClub, event("Fest", "2025-01-12")} {
		_, err := e.clubs.PublishEvent(ctx, e.club, in)
		require.NoError(t, err)
	}

	all, err := e.clubs.ListEvents(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Past talk", all[0].Title)

	upcoming, err := e.clubs.ListEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Fest", upcoming[0].Title)
	assert.Equal(t, "Robowars", upcoming[1].Title)
	require.NotNil(t, upcoming[1].Club)
	assert.Equal(t, clubs[0].Name, upcoming[1].Club.Name)

	_, err = e.clubs.GetClub(ctx, 12345)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
