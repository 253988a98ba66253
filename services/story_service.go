package services

import (
	"context"
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"

	"social-hub/models"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type StoryInput struct {
	MediaInput
	BackgroundColor *string `json:"backgroundColor"`
}

// CreateStory 发布快拍，24 小时后过期
func (s *Store) CreateStory(ctx context.Context, userID uint, in StoryInput) (*models.Story, error) {
	media, err := in.MediaInput.normalize()
	if err != nil {
		return nil, err
	}
	color := trimmed(in.BackgroundColor)
	if color != nil && !hexColor.MatchString(*color) {
		return nil, invalidf("backgroundColor must look like #RRGGBB")
	}
	story := &models.Story{
		UserID:          userID,
		Content:         media.Content,
		MediaURL:        media.MediaURL,
		MediaType:       media.MediaType,
		BackgroundColor: color,
		IsActive:        true,
		ExpiresAt:       s.now().Add(models.StoryLifetime),
	}
	if err := s.conn(ctx).Create(story).Error; err != nil {
		return nil, persistence(err)
	}
	return story, nil
}

// ActiveStories returns unexpired stories, newest first.
func (s *Store) ActiveStories(ctx context.Context) ([]models.Story, error) {
	var stories []models.Story
	err := s.conn(ctx).Where("is_active = ? AND expires_at > ?", true, s.now()).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, persistence(err)
	}
	return stories, nil
}

// ViewStory records a unique view. It reports whether this was the viewer's first view.
func (s *Store) ViewStory(ctx context.Context, storyID, viewerID uint) (bool, error) {
	var story models.Story
	err := s.conn(ctx).Where("id = ? AND is_active = ? AND expires_at > ?", storyID, true, s.now()).
		First(&story).Error
	if err != nil {
		return false, lookupErr(err, "story")
	}

	first := false
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var seen models.StoryView
		err := tx.Where("story_id = ? AND viewer_id = ?", storyID, viewerID).First(&seen).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&models.StoryView{StoryID: storyID, ViewerID: viewerID}).Error; err != nil {
			return err
		}
		first = true
		return bump(tx, &models.Story{}, storyID, "views_count", 1)
	})
	return first, err
}

// ExpireStories deactivates every story whose lifetime has ended.
func (s *Store) ExpireStories(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Story{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, persistence(res.Error)
	}
	return res.RowsAffected, nil
}
