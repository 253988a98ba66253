package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"social-hub/models"
)

type FollowResult struct {
	Following bool `json:"following"`
}

// ToggleFollow 关注或取消关注，计数器与关注关系在同一事务中更新
func (s *Store) ToggleFollow(ctx context.Context, followerID, followingID uint) (FollowResult, error) {
	if followerID == followingID {
		return FollowResult{}, invalidf("cannot follow yourself")
	}
	if _, err := s.GetUser(ctx, followingID); err != nil {
		return FollowResult{}, err
	}

	var result FollowResult
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var existing models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return adjustFollowCounts(tx, followerID, followingID, -1)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error; err != nil {
				return err
			}
			result.Following = true
			return adjustFollowCounts(tx, followerID, followingID, 1)
		default:
			return err
		}
	})
	return result, err
}

func adjustFollowCounts(tx *gorm.DB, followerID, followingID uint, delta int) error {
	if err := bump(tx, &models.User{}, followerID, "following_count", delta); err != nil {
		return err
	}
	return bump(tx, &models.User{}, followingID, "followers_count", delta)
}

// Followers lists users following userID, most recent first.
func (s *Store) Followers(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	return s.followEdge(ctx, "follows.follower_id", "follows.following_id", userID)
}

// Following lists users that userID follows.
func (s *Store) Following(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	return s.followEdge(ctx, "follows.following_id", "follows.follower_id", userID)
}

func (s *Store) followEdge(ctx context.Context, joinCol, filterCol string, userID uint) ([]models.UserSummary, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.conn(ctx).
		Joins("JOIN follows ON "+joinCol+" = users.id").
		Where(filterCol+" = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, persistence(err)
	}
	return summaries(users), nil
}
