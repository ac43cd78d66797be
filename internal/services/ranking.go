package services

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"campusdesk/internal/metrics"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

// TriageService recomputes Post.TriageScore off the request path. Updates
// for the same post are coalesced while queued.
type TriageService struct {
	db       *gorm.DB
	queue    chan uint
	pending  map[uint]bool
	mu       sync.Mutex
	now      Clock
	interval time.Duration
}

func NewTriageService(db *gorm.DB) *TriageService {
	return &TriageService{
		db:       db,
		queue:    make(chan uint, 1000),
		pending:  make(map[uint]bool),
		now:      systemClock,
		interval: 500 * time.Millisecond,
	}
}

// ScheduleUpdate queues postID without blocking. A nil service ignores it.
func (s *TriageService) ScheduleUpdate(postID uint) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		metrics.TriageQueueDropped.Inc()
		slog.Warn("triage queue full, skipping post", "post_id", postID)
	}
}

// Start runs the batch worker and an hourly refresh of recent open issues
// until ctx is cancelled.
func (s *TriageService) Start(ctx context.Context) {
	go s.worker(ctx)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.RefreshOpen(ctx)
				if err != nil {
					slog.Error("triage refresh failed", "error", err)
					continue
				}
				slog.Info("triage scores refreshed", "posts", n)
			}
		}
	}()
}

func (s *TriageService) worker(ctx context.Context) {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= 50 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *TriageService) processBatch(ctx context.Context, postIDs []uint) {
	for _, postID := range postIDs {
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()

		if err := s.Recompute(ctx, postID); err != nil {
			slog.Warn("failed to update triage score", "post_id", postID, "error", err)
		}
	}
}

// Recompute updates one post's score from its current counters.
func (s *TriageService) Recompute(ctx context.Context, postID uint) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "upvotes", "downvotes", "created_at").First(&post, postID).Error; err != nil {
		return err
	}
	score := utils.TriageScore(post.CreatedAt, s.now(), post.Upvotes, post.Downvotes)
	return s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("triage_score", int(math.Round(score))).Error
}

// RefreshOpen rescores pending issues from the last seven days, whose
// scores decay with age even without new votes.
func (s *TriageService) RefreshOpen(ctx context.Context) (int, error) {
	var ids []uint
	since := s.now().AddDate(0, 0, -7)
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ? AND created_at >= ?", models.IssuePending, since).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Recompute(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
