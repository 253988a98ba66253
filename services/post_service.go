package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"social-hub/models"
)

const maxCommentLength = 2000

// MediaInput is shared by posts, stories and chat messages.
type MediaInput struct {
	Content   *string `json:"content"`
	MediaURL  *string `json:"mediaUrl"`
	MediaType *string `json:"mediaType"`
}

func (m MediaInput) normalize() (MediaInput, error) {
	out := MediaInput{
		Content:   trimmed(m.Content),
		MediaURL:  trimmed(m.MediaURL),
		MediaType: trimmed(m.MediaType),
	}
	if out.Content == nil && out.MediaURL == nil {
		return out, invalidf("content or media is required")
	}
	return out, nil
}

// LikeResult reports the state after a toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
}

func (s *Store) CreatePost(ctx context.Context, userID uint, in MediaInput) (*models.Post, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		UserID:    userID,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
		IsActive:  true,
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return bump(tx, &models.User{}, userID, "posts_count", 1)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.conn(ctx).Where("id = ? AND is_active = ?", id, true).First(&post).Error; err != nil {
		return nil, lookupErr(err, "post")
	}
	return &post, nil
}

// FeedPosts 首页动态：所有有效帖子，按时间倒序
func (s *Store) FeedPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	limit, offset = page(limit, offset)
	var posts []models.Post
	err := s.conn(ctx).Where("is_active = ?", true).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, persistence(err)
	}
	return posts, nil
}

func (s *Store) UserPosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	limit, offset = page(limit, offset)
	var posts []models.Post
	err := s.conn(ctx).Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, persistence(err)
	}
	return posts, nil
}

// DeletePost soft-deletes a post owned by userID.
func (s *Store) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}
	return s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Update("is_active", false).Error; err != nil {
			return err
		}
		return bump(tx, &models.User{}, userID, "posts_count", -1)
	})
}

func (s *Store) SearchPosts(ctx context.Context, q string) ([]models.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalidf("query is required")
	}
	var posts []models.Post
	err := s.conn(ctx).Where("is_active = ? AND content LIKE ?", true, likePattern(q)).
		Order("created_at DESC").Limit(searchLimit).
		Find(&posts).Error
	if err != nil {
		return nil, persistence(err)
	}
	return posts, nil
}

func (s *Store) CreateComment(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidf("content is required")
	}
	if len(content) > maxCommentLength {
		return nil, invalidf("content must be at most %d characters", maxCommentLength)
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, UserID: userID, Content: content, IsActive: true}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return bump(tx, &models.Post{}, postID, "comments_count", 1)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// PostComments lists a post's active comments, oldest first.
func (s *Store) PostComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := s.conn(ctx).Where("post_id = ? AND is_active = ?", postID, true).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, persistence(err)
	}
	return comments, nil
}

func (s *Store) TogglePostLike(ctx context.Context, userID, postID uint) (LikeResult, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return LikeResult{}, err
	}
	return s.toggleLike(ctx, userID, "post_id", postID, &models.Post{}, func(l *models.Like) { l.PostID = &postID })
}

func (s *Store) ToggleCommentLike(ctx context.Context, userID, commentID uint) (LikeResult, error) {
	var comment models.Comment
	if err := s.conn(ctx).Where("id = ? AND is_active = ?", commentID, true).First(&comment).Error; err != nil {
		return LikeResult{}, lookupErr(err, "comment")
	}
	return s.toggleLike(ctx, userID, "comment_id", commentID, &models.Comment{}, func(l *models.Like) { l.CommentID = &commentID })
}

// toggleLike 点赞/取消点赞，目标计数在同一事务中维护
func (s *Store) toggleLike(ctx context.Context, userID uint, column string, targetID uint, target interface{}, setTarget func(*models.Like)) (LikeResult, error) {
	var result LikeResult
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND "+column+" = ?", userID, targetID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return bump(tx, target, targetID, "likes_count", -1)
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := &models.Like{UserID: userID}
			setTarget(like)
			if err := tx.Create(like).Error; err != nil {
				return err
			}
			result.Liked = true
			return bump(tx, target, targetID, "likes_count", 1)
		default:
			return err
		}
	})
	return result, err
}
