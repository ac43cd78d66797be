package services

import (
	"context"
	"testing"
	"time"

	"campusdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriageRecompute(t *testing.T) {
	e := newTestEnv(t)
	ctx := t.Context()
	p := e.post(t, e.student)
	_, err := e.votes.CastVote(ctx, p.ID, e.other.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = e.votes.CastVote(ctx, p.ID, e.admin.ID, models.VoteUp)
	require.NoError(t, err)

	triage := NewTriageService(e.db)
	require.NoError(t, triage.Recompute(ctx, p.ID))

	var stored models.Post
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	assert.Positive(t, stored.TriageScore)

	n, err := triage.RefreshOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTriageWorkerDrainsQueue(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, e.student)
	_, err := e.votes.CastVote(t.Context(), p.ID, e.other.ID, models.VoteUp)
	require.NoError(t, err)

	triage := NewTriageService(e.db)
	triage.interval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	triage.Start(ctx)

	triage.ScheduleUpdate(p.ID)
	triage.ScheduleUpdate(p.ID)

	assert.Eventually(t, func() bool {
		var stored models.Post
		if err := e.db.Select("triage_score").First(&stored, p.ID).Error; err != nil {
			return false
		}
		return stored.TriageScore > 0
	}, 2*time.Second, 20*time.Millisecond)

	var nilSvc *TriageService
	nilSvc.ScheduleUpdate(p.ID)
}
