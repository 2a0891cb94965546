package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neveleren/thewire/pkg/db/models"
)

const (
	topLevelFeedLimit  = 50
	inlineRepliesLimit = 10
)

// PostView is a post enriched with its author, derived counters, and
// optionally its direct replies. Counters are computed at read time.
type PostView struct {
	models.Post
	LikesCount   int64      `json:"likes_count"`
	RepliesCount int64      `json:"replies_count"`
	RepostsCount int64      `json:"reposts_count"`
	Replies      []PostView `json:"replies,omitempty"`
}

type PostStore struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	db     *gorm.DB
}

func NewPostStore(logger *logrus.Logger, db *gorm.DB) *PostStore {
	return &PostStore{logger: logger, db: db}
}

// Create inserts a new post for the given user.
func (s *PostStore) Create(ctx context.Context, userID, content string, replyToID *string) (*models.Post, error) {
	post := models.Post{
		UserID:    userID,
		Content:   content,
		ReplyToID: replyToID,
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"user_id":  userID,
		"is_reply": replyToID != nil,
	}).Info("Post created")

	return &post, nil
}

// Get fetches a post with its author preloaded.
func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %s: %w", id, err)
	}
	return &post, nil
}

// ListTopLevel returns the newest top-level posts with counters and up to
// ten direct replies each.
func (s *PostStore) ListTopLevel(ctx context.Context) ([]PostView, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("reply_to_id IS NULL").
		Order("created_at DESC").
		Limit(topLevelFeedLimit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		view, err := s.enrich(ctx, p, true)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Thread returns a single post with counters and its direct replies.
func (s *PostStore) Thread(ctx context.Context, id string) (*PostView, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.enrich(ctx, *post, true)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *PostStore) enrich(ctx context.Context, post models.Post, withReplies bool) (PostView, error) {
	view := PostView{Post: post}

	counts := []struct {
		dest  *int64
		model interface{}
		where string
	}{
		{&view.LikesCount, &models.Like{}, "post_id = ?"},
		{&view.RepliesCount, &models.Post{}, "reply_to_id = ?"},
		{&view.RepostsCount, &models.Post{}, "repost_of_id = ?"},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Where(c.where, post.ID).Count(c.dest).Error; err != nil {
			return view, fmt.Errorf("failed to count for post %s: %w", post.ID, err)
		}
	}

	if !withReplies {
		return view, nil
	}

	var replies []models.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("reply_to_id = ?", post.ID).
		Order("created_at ASC").
		Limit(inlineRepliesLimit).
		Find(&replies).Error
	if err != nil {
		return view, fmt.Errorf("failed to fetch replies for post %s: %w", post.ID, err)
	}

	for _, r := range replies {
		rv := PostView{Post: r}
		if err := s.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", r.ID).Count(&rv.LikesCount).Error; err != nil {
			return view, fmt.Errorf("failed to count reply likes: %w", err)
		}
		view.Replies = append(view.Replies, rv)
	}
	return view, nil
}

// UpdateContent edits a post's content and bumps updated_at.
func (s *PostStore) UpdateContent(ctx context.Context, id, content string) (*models.Post, error) {
	result := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update post %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Delete removes a post. The reply subtree and all affected likes go with
// it via the ON DELETE CASCADE foreign keys.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}

	s.logger.WithField("post_id", id).Info("Post deleted")
	return nil
}

// ToggleLike removes an existing like or inserts a new one. The composite
// unique index on (user_id, post_id) makes concurrent toggles converge.
// A missing post is ErrNotFound, not a constraint violation from the
// insert pass.
func (s *PostStore) ToggleLike(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Count(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to resolve post %s: %w", postID, err)
	}
	if exists == 0 {
		return false, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove like: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return false, nil
	}

	like := models.Like{UserID: userID, PostID: postID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(&like).Error
	if err != nil {
		return false, fmt.Errorf("failed to add like: %w", err)
	}
	return true, nil
}

// LikeAs registers a like by username, ignoring duplicates. Used for the
// bots' automatic likes on fresh posts.
func (s *PostStore) LikeAs(ctx context.Context, username, postID string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return fmt.Errorf("failed to resolve liker %s: %w", username, err)
	}

	like := models.Like{UserID: user.ID, PostID: postID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(&like).Error
	if err != nil {
		return fmt.Errorf("failed to like post %s as %s: %w", postID, username, err)
	}
	return nil
}

// HasReplyBy reports whether the named user has a reply under the parent.
func (s *PostStore) HasReplyBy(ctx context.Context, parentID, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.reply_to_id = ? AND users.username = ?", parentID, username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check replies under %s: %w", parentID, err)
	}
	return count > 0, nil
}

// ClaimDialogueStart atomically flips the parent post's dialogue flag.
// Exactly one caller per parent ever sees true.
func (s *PostStore) ClaimDialogueStart(ctx context.Context, parentID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND dialogue_started = ?", parentID, false).
		Update("dialogue_started", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim dialogue start on %s: %w", parentID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RecentContentsByUsername returns the latest post contents by a user,
// newest first. Used for repetition avoidance in bot payloads.
func (s *PostStore) RecentContentsByUsername(ctx context.Context, username string, limit int) ([]string, error) {
	var contents []string
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("users.username = ?", username).
		Order("posts.created_at DESC").
		Limit(limit).
		Pluck("posts.content", &contents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent posts for %s: %w", username, err)
	}
	return contents, nil
}

// Truncate caps a string at max runes. Used when folding message content
// into memory records.
func Truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}
