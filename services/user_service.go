package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"social-hub/models"
)

const minPasswordLength = 6

type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// ProfilePatch carries the editable profile fields; nil means unchanged.
type ProfilePatch struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	Avatar      *string `json:"avatar"`
}

// Register 注册新用户，用户名和邮箱都必须唯一
func (s *Store) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if l := len(in.Username); l < 3 || l > 50 {
		return nil, invalidf("username must be 3-50 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalidf("email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}

	var taken int64
	if err := s.conn(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&taken).Error; err != nil {
		return nil, persistence(err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("%w: username or email is taken", ErrConflict)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    string(hashed),
		DisplayName: in.DisplayName,
		IsActive:    true,
	}
	if err := s.conn(ctx).Create(user).Error; err != nil {
		return nil, persistence(err)
	}
	return user, nil
}

// Authenticate 校验用户名密码
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, persistence(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	if user.IsBanned && (user.BannedUntil == nil || user.BannedUntil.After(s.now())) {
		return nil, fmt.Errorf("%w: account is banned", ErrForbidden)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uint, patch ProfilePatch) (*models.User, error) {
	updates := map[string]interface{}{}
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if len(name) > 100 {
			return nil, invalidf("displayName must be at most 100 characters")
		}
		updates["display_name"] = name
	}
	if patch.Bio != nil {
		updates["bio"] = strings.TrimSpace(*patch.Bio)
	}
	if patch.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*patch.Avatar)
	}
	if len(updates) > 0 {
		res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, persistence(res.Error)
		}
	}
	return s.GetUser(ctx, id)
}

// SearchUsers 按用户名或昵称模糊搜索
func (s *Store) SearchUsers(ctx context.Context, q string) ([]models.UserSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalidf("query is required")
	}
	var users []models.User
	pattern := likePattern(q)
	err := s.conn(ctx).
		Where("is_active = ? AND (username LIKE ? OR display_name LIKE ?)", true, pattern, pattern).
		Order("followers_count DESC").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, persistence(err)
	}
	return summaries(users), nil
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
