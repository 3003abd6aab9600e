package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/model"
)

// setupTestStore opens an in-memory SQLite store with the full schema
func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := Open(&config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newVideo(userID uint, key string) *model.Video {
	return &model.Video{
		UserID:   userID,
		Title:    "Video " + key,
		URL:      "https://example.com/" + key,
		URLKey:   "https://example.com/" + key,
		Platform: model.PlatformOther,
		Tags:     model.Tags{},
	}
}

func mustCreateVideo(t *testing.T, s *GormStore, v *model.Video) *model.Video {
	t.Helper()
	if err := s.CreateVideo(context.Background(), v); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
	return v
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(&config.DBConfig{Driver: "oracle"}); err == nil {
		t.Error("Open() expected error for unknown driver")
	}
}

func TestCreateVideo_DuplicatePerUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreateVideo(t, s, newVideo(1, "a"))

	if err := s.CreateVideo(ctx, newVideo(1, "a")); !errors.Is(err, ErrDuplicateVideo) {
		t.Errorf("second save by same user error = %v, want ErrDuplicateVideo", err)
	}
	if err := s.CreateVideo(ctx, newVideo(2, "a")); err != nil {
		t.Errorf("save by another user error = %v, want nil", err)
	}

	existing, err := s.FindVideoByURLKey(ctx, 1, "https://example.com/a")
	if err != nil || existing.UserID != 1 {
		t.Errorf("FindVideoByURLKey() = %v, %v", existing, err)
	}
	if _, err := s.FindVideoByURLKey(ctx, 3, "https://example.com/a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindVideoByURLKey() for other user error = %v, want ErrNotFound", err)
	}
}

// Property: Per-user URL uniqueness
// For any sequence of (user, url) saves, exactly one save succeeds per distinct pair.
func TestProperty_PerUserURLUniqueness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	run := 0

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	pairGen := gen.SliceOf(gen.IntRange(0, 8))

	properties.Property("one success per distinct (user, url) pair", prop.ForAll(
		func(pairs []int) bool {
			run++
			distinct := make(map[int]bool)
			saved := 0
			for _, p := range pairs {
				userID := uint(p%3 + 1)
				key := fmt.Sprintf("run%d-%d", run, p/3)
				err := s.CreateVideo(ctx, newVideo(userID, key))
				switch {
				case err == nil:
					saved++
				case !errors.Is(err, ErrDuplicateVideo):
					return false
				}
				distinct[p] = true
			}
			return saved == len(distinct)
		},
		pairGen,
	))

	properties.TestingRun(t)
}

func TestGetVideo_OwnerScoped(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	v := mustCreateVideo(t, s, newVideo(1, "a"))

	if _, err := s.GetVideo(ctx, 2, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo() by non-owner error = %v, want ErrNotFound", err)
	}
	if err := s.IncrementViews(ctx, 2, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementViews() by non-owner error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteVideo(ctx, 2, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteVideo() by non-owner error = %v, want ErrNotFound", err)
	}

	if err := s.IncrementViews(ctx, 1, v.ID); err != nil {
		t.Fatalf("IncrementViews() error = %v", err)
	}
	if err := s.IncrementViews(ctx, 1, v.ID); err != nil {
		t.Fatalf("IncrementViews() error = %v", err)
	}
	got, err := s.GetVideo(ctx, 1, v.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Views != 2 {
		t.Errorf("Views = %d, want 2", got.Views)
	}

	if err := s.DeleteVideo(ctx, 1, v.ID); err != nil {
		t.Errorf("DeleteVideo() error = %v", err)
	}
	if _, err := s.GetVideo(ctx, 1, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo() after delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateVideo(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := &model.Category{Name: "Music"}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	v := mustCreateVideo(t, s, newVideo(1, "a"))

	v.Title = "Renamed"
	v.Description = ""
	v.Tags = model.Tags{"lofi", "chill"}
	v.CategoryID = &cat.ID
	if err := s.UpdateVideo(ctx, v); err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}

	got, err := s.GetVideo(ctx, 1, v.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Title != "Renamed" || !got.Tags.Contains("chill") {
		t.Errorf("updated video = %+v", got)
	}
	if got.Category == nil || got.Category.Name != "Music" {
		t.Errorf("Category = %v, want Music", got.Category)
	}
}

func TestCategories(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	music := &model.Category{Name: "Music"}
	if err := s.CreateCategory(ctx, music); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if err := s.CreateCategory(ctx, &model.Category{Name: "music"}); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("CreateCategory() duplicate error = %v, want ErrDuplicateCategory", err)
	}

	found, err := s.FindCategoryByName(ctx, "  MUSIC ")
	if err != nil || found.ID != music.ID {
		t.Errorf("FindCategoryByName() = %v, %v", found, err)
	}
	if _, err := s.FindCategoryByName(ctx, "Gaming"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindCategoryByName() missing error = %v, want ErrNotFound", err)
	}

	v := newVideo(1, "a")
	v.CategoryID = &music.ID
	mustCreateVideo(t, s, v)

	if err := s.DeleteCategory(ctx, music.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	got, err := s.GetVideo(ctx, 1, v.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.CategoryID != nil || got.Category != nil {
		t.Errorf("CategoryID = %v after category delete, want nil", got.CategoryID)
	}
	if err := s.DeleteCategory(ctx, music.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCategory() twice error = %v, want ErrNotFound", err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil || len(categories) != 0 {
		t.Errorf("ListCategories() = %v, %v", categories, err)
	}
}

func TestListVideos_Filters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := &model.Category{Name: "Cooking"}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	a := newVideo(1, "a")
	a.Title = "Pasta Recipe"
	a.Platform = model.PlatformYouTube
	a.Tags = model.Tags{"cooking", "italian"}
	a.CategoryID = &cat.ID
	a.Views = 5
	mustCreateVideo(t, s, a)

	b := newVideo(1, "b")
	b.Title = "Workout"
	b.Platform = model.PlatformTikTok
	b.Tags = model.Tags{"fitness"}
	mustCreateVideo(t, s, b)

	c := newVideo(1, "c")
	c.Title = "Another pasta"
	c.Platform = model.PlatformYouTube
	mustCreateVideo(t, s, c)

	mustCreateVideo(t, s, newVideo(2, "other-user"))

	tests := []struct {
		name    string
		filter  VideoFilter
		wantIDs []uint
		total   int64
	}{
		{"all newest first", VideoFilter{}, []uint{c.ID, b.ID, a.ID}, 3},
		{"oldest", VideoFilter{Sort: SortOldest}, []uint{a.ID, b.ID, c.ID}, 3},
		{"views", VideoFilter{Sort: SortViews}, []uint{a.ID, c.ID, b.ID}, 3},
		{"search case-insensitive", VideoFilter{Search: "PASTA"}, []uint{c.ID, a.ID}, 2},
		{"platform", VideoFilter{Platform: model.PlatformTikTok}, []uint{b.ID}, 1},
		{"tag exact", VideoFilter{Tag: "Cooking"}, []uint{a.ID}, 1},
		{"tag prefix does not match", VideoFilter{Tag: "cook"}, nil, 0},
		{"category", VideoFilter{CategoryID: &cat.ID}, []uint{a.ID}, 1},
		{"uncategorized", VideoFilter{Uncategorized: true}, []uint{c.ID, b.ID}, 2},
		{"pagination", VideoFilter{Limit: 1, Offset: 1}, []uint{b.ID}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos, total, err := s.ListVideos(ctx, 1, tt.filter)
			if err != nil {
				t.Fatalf("ListVideos() error = %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if len(videos) != len(tt.wantIDs) {
				t.Fatalf("got %d videos, want %d", len(videos), len(tt.wantIDs))
			}
			for i, v := range videos {
				if v.ID != tt.wantIDs[i] {
					t.Errorf("videos[%d].ID = %d, want %d", i, v.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestListTagsAndCounts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i, tags := range []model.Tags{{"music", "lofi"}, {"music"}, {}} {
		v := newVideo(1, fmt.Sprint(i))
		v.Tags = tags
		mustCreateVideo(t, s, v)
	}

	tags, err := s.ListTags(ctx, 1)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	want := []TagCount{{"music", 2}, {"lofi", 1}}
	if len(tags) != len(want) {
		t.Fatalf("ListTags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %v, want %v", i, tags[i], want[i])
		}
	}

	counts, err := s.CountByCategory(ctx, 1)
	if err != nil {
		t.Fatalf("CountByCategory() error = %v", err)
	}
	if len(counts) != 1 || counts[0].CategoryID != nil || counts[0].Total != 3 {
		t.Errorf("CountByCategory() = %+v, want one uncategorized group of 3", counts)
	}

	total, err := s.CountVideos(ctx)
	if err != nil || total != 3 {
		t.Errorf("CountVideos() = %d, %v, want 3", total, err)
	}
}

func TestUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	alice := &model.User{Name: "Alice", Email: "alice@example.com", Password: "hash", Role: model.RoleUser}
	if err := s.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	dup := &model.User{Name: "Alice 2", Email: "alice@example.com", Password: "hash"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrDuplicateEmail", err)
	}

	got, err := s.GetUserByEmail(ctx, " Alice@Example.com ")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByEmail() = %v, %v", got, err)
	}

	expiry := now.Add(time.Hour)
	alice.ResetTokenHash = "abc"
	alice.ResetTokenExpiry = &expiry
	if err := s.UpdateUser(ctx, alice); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got, err := s.GetUserByResetToken(ctx, "abc", now); err != nil || got.ID != alice.ID {
		t.Errorf("GetUserByResetToken() = %v, %v", got, err)
	}
	if _, err := s.GetUserByResetToken(ctx, "abc", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByResetToken() expired error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByResetToken(ctx, "", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByResetToken() empty error = %v, want ErrNotFound", err)
	}
}

func TestTelegramLinking(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	expiry := now.Add(15 * time.Minute)
	alice := &model.User{Name: "Alice", Email: "a@example.com", Password: "x", TelegramLinkCode: "CODE1", TelegramLinkExpiry: &expiry}
	bob := &model.User{Name: "Bob", Email: "b@example.com", Password: "x"}
	for _, u := range []*model.User{alice, bob} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	got, err := s.GetUserByLinkCode(ctx, "CODE1", now)
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByLinkCode() = %v, %v", got, err)
	}
	if err := s.LinkTelegram(ctx, alice.ID, 777); err != nil {
		t.Fatalf("LinkTelegram() error = %v", err)
	}
	if _, err := s.GetUserByLinkCode(ctx, "CODE1", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("link code should be consumed, got err = %v", err)
	}
	if got, err := s.GetUserByTelegramChat(ctx, 777); err != nil || got.ID != alice.ID {
		t.Errorf("GetUserByTelegramChat() = %v, %v", got, err)
	}
	if err := s.LinkTelegram(ctx, bob.ID, 777); !errors.Is(err, ErrDuplicateChat) {
		t.Errorf("LinkTelegram() duplicate error = %v, want ErrDuplicateChat", err)
	}

	if err := s.UnlinkTelegram(ctx, alice.ID); err != nil {
		t.Fatalf("UnlinkTelegram() error = %v", err)
	}
	if _, err := s.GetUserByTelegramChat(ctx, 777); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByTelegramChat() after unlink error = %v, want ErrNotFound", err)
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	users := []*model.User{
		{Name: "Expired reset", Email: "r@example.com", Password: "x", ResetTokenHash: "h1", ResetTokenExpiry: &past},
		{Name: "Expired code", Email: "c@example.com", Password: "x", TelegramLinkCode: "OLD", TelegramLinkExpiry: &past},
		{Name: "Valid", Email: "v@example.com", Password: "x", ResetTokenHash: "h2", ResetTokenExpiry: &future},
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	purged, err := s.PurgeExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens() error = %v", err)
	}
	if purged != 2 {
		t.Errorf("PurgeExpiredTokens() = %d, want 2", purged)
	}

	got, err := s.GetUserByID(ctx, users[0].ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.ResetTokenHash != "" || got.ResetTokenExpiry != nil {
		t.Errorf("expired reset token not cleared: %q %v", got.ResetTokenHash, got.ResetTokenExpiry)
	}
	if _, err := s.GetUserByResetToken(ctx, "h2", now); err != nil {
		t.Errorf("valid reset token should survive, got err = %v", err)
	}
}
