package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var sortOrders = map[string]string{
	SortNewest: "created_at DESC, id DESC",
	SortOldest: "created_at ASC, id ASC",
	SortTitle:  "title ASC, id ASC",
	SortViews:  "views DESC, id DESC",
}

// GormStore implements Store on MySQL, PostgreSQL or SQLite through gorm
type GormStore struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema
func Open(cfg *config.DBConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == "sqlite" {
		// one connection keeps an in-memory database alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// Auto migrate tables
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Video{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &GormStore{db: db}, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// CreateUser inserts a new user; the email must be unused
func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser saves profile, password and token fields of an existing user
func (s *GormStore) UpdateUser(ctx context.Context, user *model.User) error {
	result := s.db.WithContext(ctx).
		Model(user).
		Select("name", "email", "password", "role", "reset_token_hash", "reset_token_expiry",
			"telegram_link_code", "telegram_link_expiry").
		Updates(user)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	return nil
}

func (s *GormStore) firstUser(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by id
func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.firstUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by lowercased email
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.firstUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByResetToken finds the user holding an unexpired reset token hash
func (s *GormStore) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	return s.firstUser(ctx, "reset_token_hash = ? AND reset_token_expiry > ?", tokenHash, now)
}

// GetUserByLinkCode finds the user holding an unexpired Telegram link code
func (s *GormStore) GetUserByLinkCode(ctx context.Context, code string, now time.Time) (*model.User, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return s.firstUser(ctx, "telegram_link_code = ? AND telegram_link_expiry > ?", code, now)
}

// GetUserByTelegramChat finds the user linked to a Telegram chat
func (s *GormStore) GetUserByTelegramChat(ctx context.Context, chatID int64) (*model.User, error) {
	return s.firstUser(ctx, "telegram_chat_id = ?", chatID)
}

// LinkTelegram binds a chat to the user and consumes the pending link code
func (s *GormStore) LinkTelegram(ctx context.Context, userID uint, chatID int64) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"telegram_chat_id":     chatID,
			"telegram_link_code":   "",
			"telegram_link_expiry": nil,
		})
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicateChat
		}
		return fmt.Errorf("failed to link telegram chat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UnlinkTelegram removes the chat binding of a user
func (s *GormStore) UnlinkTelegram(ctx context.Context, userID uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("telegram_chat_id", nil)
	if result.Error != nil {
		return fmt.Errorf("failed to unlink telegram chat: %w", result.Error)
	}
	return nil
}

// PurgeExpiredTokens clears expired reset tokens and Telegram link codes
// and returns the number of users touched
func (s *GormStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset := tx.Model(&model.User{}).
			Where("reset_token_expiry IS NOT NULL AND reset_token_expiry < ?", now).
			Updates(map[string]interface{}{
				"reset_token_hash":   "",
				"reset_token_expiry": nil,
			})
		if reset.Error != nil {
			return reset.Error
		}

		link := tx.Model(&model.User{}).
			Where("telegram_link_expiry IS NOT NULL AND telegram_link_expiry < ?", now).
			Updates(map[string]interface{}{
				"telegram_link_code":   "",
				"telegram_link_expiry": nil,
			})
		if link.Error != nil {
			return link.Error
		}

		purged = reset.RowsAffected + link.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	return purged, nil
}

// CreateCategory inserts a category; names are unique
func (s *GormStore) CreateCategory(ctx context.Context, category *model.Category) error {
	if existing, err := s.FindCategoryByName(ctx, category.Name); err == nil && existing != nil {
		return ErrDuplicateCategory
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// ListCategories returns all categories ordered by name
func (s *GormStore) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by id
func (s *GormStore) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// FindCategoryByName matches a category name case-insensitively
func (s *GormStore) FindCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	var category model.Category
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&category).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

// DeleteCategory removes a category and detaches it from every video
func (s *GormStore) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Video{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach videos: %w", err)
		}
		result := tx.Delete(&model.Category{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete category: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateVideo inserts a video. A second save of the same canonical URL by
// the same user fails with ErrDuplicateVideo.
func (s *GormStore) CreateVideo(ctx context.Context, video *model.Video) error {
	if err := s.db.WithContext(ctx).Omit("Category").Create(video).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateVideo
		}
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

// GetVideo retrieves a video owned by userID
func (s *GormStore) GetVideo(ctx context.Context, userID, id uint) (*model.Video, error) {
	var video model.Video
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&video).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// FindVideoByURLKey retrieves the user's video with the given canonical URL
func (s *GormStore) FindVideoByURLKey(ctx context.Context, userID uint, urlKey string) (*model.Video, error) {
	var video model.Video
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND url_key = ?", userID, urlKey).
		First(&video).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find video: %w", err)
	}
	return &video, nil
}

// UpdateVideo saves the owner-editable fields of a video
func (s *GormStore) UpdateVideo(ctx context.Context, video *model.Video) error {
	result := s.db.WithContext(ctx).
		Model(video).
		Where("user_id = ?", video.UserID).
		Select("title", "description", "tags", "category_id").
		Updates(video)
	if result.Error != nil {
		return fmt.Errorf("failed to update video: %w", result.Error)
	}
	return nil
}

// DeleteVideo removes a video owned by userID
func (s *GormStore) DeleteVideo(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Video{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews atomically bumps the view counter of a video owned by userID
func (s *GormStore) IncrementViews(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to increment views: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) filtered(ctx context.Context, userID uint, f VideoFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Video{}).Where("user_id = ?", userID)

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR tags LIKE ?)",
			pattern, pattern, pattern)
	}
	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	if f.Uncategorized {
		q = q.Where("category_id IS NULL")
	} else if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if tag := model.NormalizeTag(f.Tag); tag != "" {
		q = q.Where("tags LIKE ?", model.TagPattern(tag))
	}
	return q
}

// ListVideos returns one page of the user's videos and the total match count
func (s *GormStore) ListVideos(ctx context.Context, userID uint, f VideoFilter) ([]*model.Video, int64, error) {
	var total int64
	if err := s.filtered(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count videos: %w", err)
	}

	order, ok := sortOrders[f.Sort]
	if !ok {
		order = sortOrders[SortNewest]
	}

	q := s.filtered(ctx, userID, f).Preload("Category").Order(order)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var videos []*model.Video
	if err := q.Find(&videos).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, total, nil
}

// ListTags counts tag usage across the user's videos, most used first
func (s *GormStore) ListTags(ctx context.Context, userID uint) ([]TagCount, error) {
	var rows []string
	err := s.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("user_id = ? AND tags <> ''", userID).
		Pluck("tags", &rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		var tags model.Tags
		if err := tags.Scan(row); err != nil {
			return nil, err
		}
		for _, tag := range tags {
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		result = append(result, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result, nil
}

// CountByCategory counts the user's videos per category, including uncategorized
func (s *GormStore) CountByCategory(ctx context.Context, userID uint) ([]CategoryCount, error) {
	var counts []CategoryCount
	err := s.db.WithContext(ctx).
		Model(&model.Video{}).
		Select("category_id, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count videos by category: %w", err)
	}
	return counts, nil
}

// CountVideos returns the total count of videos
func (s *GormStore) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Video{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count videos: %w", result.Error)
	}
	return count, nil
}

// Ping checks database connectivity
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm.DB instance (for testing purposes)
func (s *GormStore) DB() *gorm.DB {
	return s.db
}
