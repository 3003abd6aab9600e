package library

import (
	"context"
	"sort"

	"github.com/user/vidnest/internal/model"
	"github.com/user/vidnest/internal/store"
)

// DefaultFeedGroupSize is the number of videos per feed group
const DefaultFeedGroupSize = 10

// FeedGroup is the latest videos of one category. Category is nil for
// uncategorized videos.
type FeedGroup struct {
	Category *model.Category `json:"category"`
	Name     string          `json:"name"`
	Total    int64           `json:"total"`
	Videos   []*model.Video  `json:"videos"`
}

// Feed groups the user's newest videos by category, named categories in
// alphabetical order and uncategorized videos last
func (s *Service) Feed(ctx context.Context, userID uint, perGroup int) ([]FeedGroup, error) {
	if perGroup <= 0 {
		perGroup = DefaultFeedGroupSize
	}
	if perGroup > MaxPageSize {
		perGroup = MaxPageSize
	}

	counts, err := s.store.CountByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	groups := make([]FeedGroup, 0, len(counts))
	var uncategorized *FeedGroup

	for _, count := range counts {
		filter := store.VideoFilter{Sort: store.SortNewest, Limit: perGroup}
		group := FeedGroup{Total: count.Total}

		if count.CategoryID == nil {
			filter.Uncategorized = true
			group.Name = "Uncategorized"
		} else {
			c, ok := byID[*count.CategoryID]
			if !ok {
				continue
			}
			filter.CategoryID = count.CategoryID
			group.Category = c
			group.Name = c.Name
		}

		videos, _, err := s.store.ListVideos(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		group.Videos = videos

		if group.Category == nil {
			uncategorized = &group
			continue
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	if uncategorized != nil {
		groups = append(groups, *uncategorized)
	}
	return groups, nil
}
