package store

import (
	"context"
	"errors"
	"time"

	"github.com/user/vidnest/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateVideo is returned when the user already saved the same canonical URL
	ErrDuplicateVideo = errors.New("video already saved")
	// ErrDuplicateCategory is returned when a category name is taken
	ErrDuplicateCategory = errors.New("category already exists")
	// ErrDuplicateEmail is returned when an email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateChat is returned when a Telegram chat is already linked to another user
	ErrDuplicateChat = errors.New("telegram chat already linked")
)

// Sort orders accepted by VideoFilter.Sort
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortTitle  = "title"
	SortViews  = "views"
)

// VideoFilter narrows a video listing. Zero values mean no constraint.
type VideoFilter struct {
	Search        string
	Platform      model.Platform
	CategoryID    *uint
	Uncategorized bool
	Tag           string
	Sort          string
	Limit         int
	Offset        int
}

// TagCount is a tag with the number of videos carrying it
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// CategoryCount is the number of a user's videos in one category; a nil
// CategoryID counts uncategorized videos
type CategoryCount struct {
	CategoryID *uint
	Total      int64
}

// Store defines the interface for data persistence operations
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	GetUserByLinkCode(ctx context.Context, code string, now time.Time) (*model.User, error)
	GetUserByTelegramChat(ctx context.Context, chatID int64) (*model.User, error)
	LinkTelegram(ctx context.Context, userID uint, chatID int64) error
	UnlinkTelegram(ctx context.Context, userID uint) error
	// PurgeExpiredTokens clears reset tokens and link codes that expired before now
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
	GetCategory(ctx context.Context, id uint) (*model.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uint) error

	// Video operations, scoped to the owning user
	CreateVideo(ctx context.Context, video *model.Video) error
	GetVideo(ctx context.Context, userID, id uint) (*model.Video, error)
	FindVideoByURLKey(ctx context.Context, userID uint, urlKey string) (*model.Video, error)
	UpdateVideo(ctx context.Context, video *model.Video) error
	DeleteVideo(ctx context.Context, userID, id uint) error
	IncrementViews(ctx context.Context, userID, id uint) error
	ListVideos(ctx context.Context, userID uint, filter VideoFilter) ([]*model.Video, int64, error)
	ListTags(ctx context.Context, userID uint) ([]TagCount, error)
	CountByCategory(ctx context.Context, userID uint) ([]CategoryCount, error)
	CountVideos(ctx context.Context) (int64, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
