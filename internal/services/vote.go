package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/metrics"
	"campusdesk/internal/models"
	"campusdesk/internal/realtime"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type VoteOutcome string

const (
	VoteCreated   VoteOutcome = "created"
	VoteUnchanged VoteOutcome = "unchanged"
	VoteFlipped   VoteOutcome = "flipped"
)

type VoteResult struct {
	PostID    uint                 `json:"post_id"`
	Direction models.VoteDirection `json:"direction"`
	Outcome   VoteOutcome          `json:"outcome"`
	Upvotes   int                  `json:"upvotes"`
	Downvotes int                  `json:"downvotes"`
}

// VoteService owns the vote ledger: one Vote per (post, user) and post
// counters that always match the vote records.
type VoteService struct {
	db       *gorm.DB
	triage   *TriageService
	pub      *realtime.Publisher
	now      Clock
	maxTries uint
}

func NewVoteService(db *gorm.DB, triage *TriageService, pub *realtime.Publisher) *VoteService {
	return &VoteService{db: db, triage: triage, pub: pub, now: systemClock, maxTries: 5}
}

// CastVote records userID's vote on postID. Re-casting the same direction
// is a no-op; the opposite direction flips the existing record.
func (s *VoteService) CastVote(ctx context.Context, postID, userID uint, dir models.VoteDirection) (*VoteResult, error) {
	if userID == 0 {
		return nil, apperr.Unauthenticated("login required to vote")
	}
	if !dir.Valid() {
		return nil, apperr.Validationf("direction must be %q or %q", models.VoteUp, models.VoteDown)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	res, err := backoff.Retry(ctx, func() (*VoteResult, error) {
		r, err := s.castOnce(ctx, postID, userID, dir)
		if err == nil {
			return r, nil
		}
		if isWriteConflict(err) {
			metrics.VoteRetries.Inc()
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return nil, storageErr("cast vote", err)
	}

	metrics.VotesTotal.WithLabelValues(string(dir), string(res.Outcome)).Inc()
	if res.Outcome != VoteUnchanged {
		s.triage.ScheduleUpdate(postID)
		s.pub.Notify(ctx, realtime.TopicPosts, realtime.Event{Type: "post.voted", ID: postID})
	}
	return res, nil
}

func (s *VoteService) castOnce(ctx context.Context, postID, userID uint, dir models.VoteDirection) (*VoteResult, error) {
	res := &VoteResult{PostID: postID, Direction: dir}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(forUpdate).Select("id").First(&post, postID).Error; err != nil {
			return notFoundOr(err, "post")
		}

		var existing models.Vote
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{PostID: postID, UserID: userID, Direction: dir, VotedAt: s.now()}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			if err := adjustCounter(tx, postID, dir, 1); err != nil {
				return err
			}
			res.Outcome = VoteCreated
		case err != nil:
			return err
		case existing.Direction == dir:
			res.Outcome = VoteUnchanged
		default:
			if err := tx.Model(&existing).Updates(map[string]any{"direction": dir, "voted_at": s.now()}).Error; err != nil {
				return err
			}
			if err := adjustCounter(tx, postID, existing.Direction, -1); err != nil {
				return err
			}
			if err := adjustCounter(tx, postID, dir, 1); err != nil {
				return err
			}
			res.Outcome = VoteFlipped
		}

		var counts models.Post
		if err := tx.Select("upvotes", "downvotes").First(&counts, postID).Error; err != nil {
			return err
		}
		res.Upvotes, res.Downvotes = counts.Upvotes, counts.Downvotes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// adjustCounter moves one post counter by delta. A decrement that would go
// below zero means the ledger is corrupt and aborts the transaction.
func adjustCounter(tx *gorm.DB, postID uint, dir models.VoteDirection, delta int) error {
	col := dir.Column()
	q := tx.Model(&models.Post{}).Where("id = ?", postID)
	if delta < 0 {
		q = q.Where(col+" >= ?", -delta)
	}
	result := q.UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("vote ledger out of sync: %s on post %d", col, postID)
	}
	return nil
}

// isWriteConflict reports errors a fresh attempt can succeed after: a racing
// first vote on the unique (post, user) index, or a Postgres serialization
// failure or deadlock.
func isWriteConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// MyVotes returns the caller's direction for each of postIDs they voted on.
func (s *VoteService) MyVotes(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.VoteDirection, error) {
	out := make(map[uint]models.VoteDirection)
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	var votes []models.Vote
	if err := s.db.WithContext(ctx).Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&votes).Error; err != nil {
		return nil, storageErr("load votes", err)
	}
	for _, v := range votes {
		out[v.PostID] = v.Direction
	}
	return out, nil
}
