package repository

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/models"
)

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var friendships []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user_a = ? OR user_b = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Find(&friendships).Error
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}

	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.Other(userID))
	}
	return ids, nil
}

func (s *GormStore) ListFeedPosts(ctx context.Context, authorIDs []string, before *time.Time, limit int) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).
		Where("author_id IN ?", authorIDs).
		Where("visibility IN ?", []models.PostVisibility{models.VisibilityFriends, models.VisibilityPrivate}).
		Where("deleted_at IS NULL")
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	var posts []models.Post
	if err := q.Order("created_at desc").Limit(limit).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list feed posts: %w", err)
	}
	return posts, nil
}
