package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imis/database"
	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.TaskComment) error
	GetByID(ctx context.Context, commentID string) (*models.TaskComment, error)
	// ToggleLike flips who's presence in the liked-by list under a row lock.
	// Returns the updated comment and whether the toggle was a like.
	ToggleLike(ctx context.Context, commentID string, who models.LikedBy) (*models.TaskComment, bool, error)
}

type commentRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewCommentRepository(db *gorm.DB, lockTimeout time.Duration) CommentRepository {
	return &commentRepository{db: db, lockTimeout: lockTimeout}
}

// Create a new comment
func (r *commentRepository) Create(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetByID retrieves a comment by its ID
func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*models.TaskComment, error) {
	var comment models.TaskComment
	if err := r.db.WithContext(ctx).First(&comment, "comment_id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ToggleLike(ctx context.Context, commentID string, who models.LikedBy) (*models.TaskComment, bool, error) {
	var (
		comment models.TaskComment
		liked   bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			// SET LOCAL does not take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "comment_id = ?", commentID).Error
		if err != nil {
			return err
		}

		liked = comment.ToggleLike(who)
		return tx.Model(&comment).Update("liked_by", comment.LikedBy).Error
	})

	switch {
	case err == nil:
		return &comment, liked, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, ErrNotFound
	case database.IsContention(err):
		return nil, false, fmt.Errorf("%w: %v", ErrLikeContention, err)
	default:
		return nil, false, err
	}
}
