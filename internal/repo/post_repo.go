// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file provides repository functions for the sample
// Post entity and an EntityWriter that persists source-locale writes made by
// the resolution engine.
//
// Functions follow the thin-repository approach: no business logic, only
// CRUD and query composition. Missing rows surface as ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// PostInput carries the source-locale values of a new post.
type PostInput struct {
	Title               *string
	Slug                *string
	Content             *string
	TranslationExcluded bool
}

// CreatePost inserts a post with a fresh UUID and UTC timestamps.
func CreatePost(ctx context.Context, db *gorm.DB, in PostInput) (*domain.Post, error) {
	now := time.Now().UTC()
	p := &domain.Post{
		ID:                  uuid.NewString(),
		Title:               in.Title,
		Slug:                in.Slug,
		Content:             in.Content,
		TranslationExcluded: in.TranslationExcluded,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPost fetches a post by id, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes a post row and its comments in one transaction.
// Translation rows are the caller's responsibility.
func DeletePost(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListComments returns the comments of postID, oldest first.
func ListComments(ctx context.Context, db *gorm.DB, postID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// CountPosts counts posts matching the given scopes.
func CountPosts(ctx context.Context, db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Scopes(scopes...).Count(&total).Error
	return total, err
}

// ListPostsPage returns a page of posts matching the given scopes ordered by
// creation time descending.
func ListPostsPage(ctx context.Context, db *gorm.DB, offset, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Scopes(scopes...).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateComment inserts a comment on postID.
func CreateComment(ctx context.Context, db *gorm.DB, postID string, body *string) (*domain.Comment, error) {
	now := time.Now().UTC()
	c := &domain.Comment{ID: uuid.NewString(), PostID: postID, Body: body, CreatedAt: now, UpdatedAt: now}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// EntityWriter saves translatable entities through GORM.
type EntityWriter struct {
	DB *gorm.DB
}

// Save persists every column of ent, which must be a pointer to a GORM model.
func (w EntityWriter) Save(ctx context.Context, ent domain.Translatable) error {
	return w.DB.WithContext(ctx).Save(ent).Error
}
