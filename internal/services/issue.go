package services

import (
	"context"
	"strings"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/models"
	"campusdesk/internal/realtime"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

type IssueInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    models.IssueCategory `json:"category"`
	ImageURL    string               `json:"image_url"`
}

func (in *IssueInput) normalize() error {
	in.Title = utils.StripTags(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Category = models.IssueCategory(strings.ToLower(strings.TrimSpace(string(in.Category))))

	switch {
	case in.Title == "":
		return apperr.Validation("title is required")
	case len(in.Title) > 200:
		return apperr.Validation("title must be at most 200 characters")
	case in.Description == "":
		return apperr.Validation("description is required")
	case !in.Category.Valid():
		return apperr.Validationf("category must be %q or %q", models.CategoryHostel, models.CategoryCampus)
	}
	if in.ImageURL != "" && !isHTTPURL(in.ImageURL) {
		return apperr.Validation("image_url must be an http(s) URL")
	}
	return nil
}

const (
	SortNew = "new"
	SortHot = "hot"
)

type IssueFilter struct {
	Category models.IssueCategory
	Sort     string
	Limit    int
	Offset   int
}

type IssueService struct {
	db     *gorm.DB
	votes  *VoteService
	triage *TriageService
	notify *NotificationService
	mail   *MailService
	pub    *realtime.Publisher
	now    Clock
}

func NewIssueService(db *gorm.DB, votes *VoteService, triage *TriageService, notify *NotificationService, mail *MailService, pub *realtime.Publisher) *IssueService {
	return &IssueService{db: db, votes: votes, triage: triage, notify: notify, mail: mail, pub: pub, now: systemClock}
}

func (s *IssueService) Create(ctx context.Context, actor *models.User, in IssueInput) (*models.Post, error) {
	if err := authorize(actor, authz.ActionReportIssue); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	post := models.Post{
		UserID:      actor.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Status:      models.IssuePending,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&post).Error; err != nil {
		return nil, storageErr("create issue", err)
	}
	s.triage.ScheduleUpdate(post.ID)
	s.pub.Notify(ctx, realtime.TopicPosts, realtime.Event{Type: "post.created", ID: post.ID, UserID: actor.ID})
	return &post, nil
}

// loadOwned fetches a post the actor created.
func (s *IssueService) loadOwned(tx *gorm.DB, actor *models.User, id uint) (*models.Post, error) {
	var post models.Post
	if err := tx.Clauses(forUpdate).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "issue")
	}
	if post.UserID != actor.ID {
		return nil, apperr.Unauthorized("only the reporter can change this issue")
	}
	return &post, nil
}

func (s *IssueService) Update(ctx context.Context, actor *models.User, id uint, in IssueInput) (*models.Post, error) {
	if err := authorize(actor, authz.ActionReportIssue); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = s.loadOwned(tx, actor, id); err != nil {
			return err
		}
		post.Title, post.Description, post.Category, post.ImageURL = in.Title, in.Description, in.Category, in.ImageURL
		return tx.Model(post).Select("title", "description", "category", "image_url", "updated_at").Updates(post).Error
	})
	if err != nil {
		return nil, storageErr("update issue", err)
	}
	s.pub.Notify(ctx, realtime.TopicPosts, realtime.Event{Type: "post.updated", ID: id})
	return post, nil
}

// Delete removes the issue and its vote records.
func (s *IssueService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := authorize(actor, authz.ActionReportIssue); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.loadOwned(tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		return storageErr("delete issue", err)
	}
	s.pub.Notify(ctx, realtime.TopicPosts, realtime.Event{Type: "post.deleted", ID: id})
	return nil
}

// Resolve closes an issue. Resolution is final; resolving twice is a no-op.
func (s *IssueService) Resolve(ctx context.Context, admin *models.User, id uint) (*models.Post, error) {
	if err := authorize(admin, authz.ActionResolveIssue); err != nil {
		return nil, err
	}
	var post models.Post
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).First(&post, id).Error; err != nil {
			return notFoundOr(err, "issue")
		}
		if post.Status == models.IssueResolved {
			return nil
		}
		now := s.now()
		post.Status, post.ResolvedAt = models.IssueResolved, &now
		changed = true
		if err := tx.Model(&post).Select("status", "resolved_at", "updated_at").Updates(&post).Error; err != nil {
			return err
		}
		return tx.Create(&models.StatusLog{
			EntityKind: models.EntityIssue,
			EntityID:   post.ID,
			ActorID:    admin.ID,
			FromStatus: string(models.IssuePending),
			ToStatus:   string(models.IssueResolved),
		}).Error
	})
	if err != nil {
		return nil, storageErr("resolve issue", err)
	}
	if changed {
		s.pub.Notify(ctx, realtime.TopicPosts, realtime.Event{Type: "post.resolved", ID: post.ID, Status: string(post.Status)})
		s.notifyResolved(ctx, admin, &post)
	}
	return &post, nil
}

func (s *IssueService) notifyResolved(ctx context.Context, admin *models.User, post *models.Post) {
	var reporter models.User
	if err := s.db.WithContext(ctx).First(&reporter, post.UserID).Error; err != nil {
		return
	}
	s.notify.Push(ctx, reporter.ID, &admin.ID, models.NotificationIssueResolved,
		"Your issue \""+post.Title+"\" was resolved", "/issues/"+utils.FormatID(post.ID))
	s.mail.SendIssueResolved(reporter.Email, reporter.Name, post.Title)
}

// Get loads one issue with rendered description and the viewer's vote.
func (s *IssueService) Get(ctx context.Context, id uint, viewer *models.User) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, storageErr("load issue", notFoundOr(err, "issue"))
	}
	post.DescriptionHTML = utils.RenderMarkdown(post.Description)
	if err := s.attachVotes(ctx, viewer, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListOpen lists unresolved issues for the student dashboards.
func (s *IssueService) ListOpen(ctx context.Context, f IssueFilter, viewer *models.User) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Preload("User").Where("status = ?", models.IssuePending)
	if f.Category != "" {
		if !f.Category.Valid() {
			return nil, apperr.Validation("unknown category")
		}
		q = q.Where("category = ?", f.Category)
	}
	switch f.Sort {
	case "", SortNew:
		q = q.Order("created_at DESC").Order("id DESC")
	case SortHot:
		q = q.Order("triage_score DESC").Order("upvotes DESC").Order("created_at DESC")
	default:
		return nil, apperr.Validationf("sort must be %q or %q", SortNew, SortHot)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, storageErr("list issues", err)
	}
	ptrs := make([]*models.Post, len(posts))
	for i := range posts {
		ptrs[i] = &posts[i]
	}
	if err := s.attachVotes(ctx, viewer, ptrs); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListMine lists every issue userID reported, newest first.
func (s *IssueService) ListMine(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&posts).Error
	return posts, storageErr("list my issues", err)
}

// ListAll is the admin report view. status may be empty for all issues.
func (s *IssueService) ListAll(ctx context.Context, status models.IssueStatus, limit int) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var posts []models.Post
	err := q.Find(&posts).Error
	return posts, storageErr("list all issues", err)
}

func (s *IssueService) attachVotes(ctx context.Context, viewer *models.User, posts []*models.Post) error {
	if viewer == nil || s.votes == nil || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	mine, err := s.votes.MyVotes(ctx, viewer.ID, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.MyVote = mine[p.ID]
	}
	return nil
}

// ResolvedSince counts issues closed after t, for the admin dashboard.
func (s *IssueService) ResolvedSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("status = ? AND resolved_at >= ?", models.IssueResolved, t).Count(&n).Error
	return n, storageErr("count resolved issues", err)
}

// OpenCount counts pending issues.
func (s *IssueService) OpenCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("status = ?", models.IssuePending).Count(&n).Error
	return n, storageErr("count issues", err)
}
