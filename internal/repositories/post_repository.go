package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/yatube/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post listing. Zero fields do not filter.
type PostFilter struct {
	GroupID    uint      // posts in one group
	AuthorID   uint      // posts by one author
	FollowerID uint      // posts by authors this user follows
	Search     string    // case-insensitive substring of the text
	Since      time.Time // pub_date lower bound
}

func (f PostFilter) apply(db, tx *gorm.DB) *gorm.DB {
	if f.GroupID != 0 {
		tx = tx.Where("posts.group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		tx = tx.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		followed := db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", f.FollowerID)
		tx = tx.Where("posts.author_id IN (?)", followed)
	}
	if f.Search != "" {
		tx = tx.Where(`LOWER(posts.text) LIKE LOWER(?) ESCAPE '\'`, containsPattern(f.Search))
	}
	if !f.Since.IsZero() {
		tx = tx.Where("posts.pub_date >= ?", f.Since)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in a LIKE ... ESCAPE '\' test.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetPostByAuthor(ctx context.Context, username string, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	ListImagesByAuthor(ctx context.Context, authorID uint) ([]string, error)
	DeletePost(ctx context.Context, id uint) error
}

// GormPostRepository implements PostRepository on top of GORM
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

func (r *GormPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *GormPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPostByAuthor loads a post only when it was written by the named user.
func (r *GormPostRepository) GetPostByAuthor(ctx context.Context, username string, id uint) (*models.Post, error) {
	author := r.db.Model(&models.User{}).Select("id").Where("username = ?", username)

	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("posts.id = ? AND posts.author_id IN (?)", id, author).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns posts newest first with author and group preloaded.
func (r *GormPostRepository) ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	tx := filter.apply(r.db, r.db.WithContext(ctx).Model(&models.Post{}))
	err := tx.
		Preload("Author").
		Preload("Group").
		Order("posts.pub_date DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *GormPostRepository) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	var count int64
	err := filter.apply(r.db, r.db.WithContext(ctx).Model(&models.Post{})).Count(&count).Error
	return count, err
}

// UpdatePost writes the editable columns of an existing post.
func (r *GormPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(post).
		Select("Text", "GroupID", "Image").
		Updates(post).Error
}

// ListImagesByAuthor returns the image names of every post by authorID that
// has one.
func (r *GormPostRepository) ListImagesByAuthor(ctx context.Context, authorID uint) ([]string, error) {
	var images []string
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_id = ? AND image <> ''", authorID).
		Pluck("image", &images).Error
	return images, err
}

// DeletePost removes the post and its comments.
func (r *GormPostRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
