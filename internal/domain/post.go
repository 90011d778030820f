package domain

import (
	"fmt"
	"time"
)

// Type tags of the sample translatable entities.
const (
	PostType    = "post"
	CommentType = "comment"
)

// UnknownFieldError is returned by SetSourceValue for a field the entity
// does not carry.
type UnknownFieldError struct {
	Entity string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Entity, e.Field)
}

// Post is a blog-style article with translatable title, slug and content.
// Title and slug are required for a locale to count as complete.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Title / Slug / Content: source-locale values; nil means unset.
//   - TranslationExcluded: when true, every read returns the source value.
//   - Comments: reader comments, cascade-deleted with the post.
type Post struct {
	ID                  string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Title               *string   `json:"title"       gorm:"type:varchar(255)"`
	Slug                *string   `json:"slug"        gorm:"type:varchar(255);index"`
	Content             *string   `json:"content"     gorm:"type:text"`
	TranslationExcluded bool      `json:"translation_excluded" gorm:"not null;default:false"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	Comments []Comment `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// TranslationType returns the registered type tag.
func (p *Post) TranslationType() string { return PostType }

// TranslationKey returns the post id, empty until the post is persisted.
func (p *Post) TranslationKey() string { return p.ID }

// TranslatableFields lists the attributes eligible for overrides.
func (p *Post) TranslatableFields() []string { return []string{"title", "slug", "content"} }

// RequiredTranslatableFields lists the fields checked for completeness.
func (p *Post) RequiredTranslatableFields() []string { return []string{"title", "slug"} }

// IsTranslationExcluded reports whether override logic is bypassed.
func (p *Post) IsTranslationExcluded() bool { return p.TranslationExcluded }

// SourceValue returns the source-locale value stored on the post. The id is
// exposed as a copy; attributes that are not strings return nil.
func (p *Post) SourceValue(field string) *string {
	switch field {
	case "id":
		return strCopy(p.ID)
	case "title":
		return p.Title
	case "slug":
		return p.Slug
	case "content":
		return p.Content
	}
	return nil
}

// SetSourceValue writes a source-locale value onto the post.
func (p *Post) SetSourceValue(field string, v *string) error {
	switch field {
	case "title":
		p.Title = v
	case "slug":
		p.Slug = v
	case "content":
		p.Content = v
	default:
		return &UnknownFieldError{Entity: PostType, Field: field}
	}
	return nil
}

// Comment is a reader comment on a post. Its body is translatable and it
// declares no required fields, so every translatable field counts.
type Comment struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id" gorm:"type:char(36);not null;index"`
	Body      *string   `json:"body"    gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

func (c *Comment) TranslationType() string              { return CommentType }
func (c *Comment) TranslationKey() string               { return c.ID }
func (c *Comment) TranslatableFields() []string         { return []string{"body"} }
func (c *Comment) RequiredTranslatableFields() []string { return nil }
func (c *Comment) IsTranslationExcluded() bool          { return false }

func (c *Comment) SourceValue(field string) *string {
	switch field {
	case "id":
		return strCopy(c.ID)
	case "post_id":
		return strCopy(c.PostID)
	case "body":
		return c.Body
	}
	return nil
}

func strCopy(s string) *string { return &s }

func (c *Comment) SetSourceValue(field string, v *string) error {
	if field != "body" {
		return &UnknownFieldError{Entity: CommentType, Field: field}
	}
	c.Body = v
	return nil
}
