package repositories

import (
	"context"

	"github.com/anonto42/yatube/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByPostID(ctx context.Context, postID uint) ([]models.Comment, error)
	CountByPostID(ctx context.Context, postID uint) (int64, error)
	ListComments(ctx context.Context, search string, offset, limit int) ([]models.Comment, error)
	CountComments(ctx context.Context, search string) (int64, error)
	DeleteComment(ctx context.Context, id uint) error
}

// GormCommentRepository implements CommentRepository on top of GORM
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GormCommentRepository
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

// GetCommentsByPostID returns the post's comments newest first
func (r *GormCommentRepository) GetCommentsByPostID(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) CountByPostID(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *GormCommentRepository) search(tx *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return tx
	}
	return tx.Where(`LOWER(comments.text) LIKE LOWER(?) ESCAPE '\'`, containsPattern(search))
}

func (r *GormCommentRepository) ListComments(ctx context.Context, search string, offset, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.search(r.db.WithContext(ctx), search).
		Preload("Author").
		Preload("Post").
		Order("created DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) CountComments(ctx context.Context, search string) (int64, error) {
	var count int64
	err := r.search(r.db.WithContext(ctx).Model(&models.Comment{}), search).Count(&count).Error
	return count, err
}

func (r *GormCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
