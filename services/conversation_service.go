package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"social-hub/models"
)

const (
	maxGroupName     = 100
	maxMessageLength = 4000
)

// ConversationView is a conversation plus its current members' public cards.
type ConversationView struct {
	models.Conversation
	Members []models.UserSummary `json:"members"`
}

type SendMessageInput struct {
	ConversationID uint
	SenderID       uint
	MediaInput
}

func activeParticipants(db *gorm.DB) *gorm.DB {
	return db.Where("left_at IS NULL")
}

// GetOrCreateDirectConversation 获取或创建两人私聊会话，created 表示是否新建
func (s *Store) GetOrCreateDirectConversation(ctx context.Context, userID, otherID uint) (conv *ConversationView, created bool, err error) {
	if userID == otherID {
		return nil, false, invalidf("cannot start a conversation with yourself")
	}
	if _, err := s.GetUser(ctx, otherID); err != nil {
		return nil, false, err
	}

	var existing models.Conversation
	err = s.conn(ctx).
		Joins("JOIN conversation_participants pa ON pa.conversation_id = conversations.id AND pa.user_id = ? AND pa.left_at IS NULL", userID).
		Joins("JOIN conversation_participants pb ON pb.conversation_id = conversations.id AND pb.user_id = ? AND pb.left_at IS NULL", otherID).
		Where("conversations.is_group = ?", false).
		First(&existing).Error
	switch {
	case err == nil:
		conv, err = s.conversationView(ctx, existing.ID)
		return conv, false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, persistence(err)
	}

	id, err := s.createConversation(ctx, false, nil, []uint{userID, otherID})
	if err != nil {
		return nil, false, err
	}
	conv, err = s.conversationView(ctx, id)
	return conv, true, err
}

// CreateGroupConversation creates a group holding the creator and memberIDs.
func (s *Store) CreateGroupConversation(ctx context.Context, creatorID uint, name string, memberIDs []uint) (*ConversationView, error) {
	name = strings.TrimSpace(name)
	if len(name) > maxGroupName {
		return nil, invalidf("name must be at most %d characters", maxGroupName)
	}
	ids := uniqueIDs(append([]uint{creatorID}, memberIDs...))
	if len(ids) < 2 {
		return nil, invalidf("a group needs at least one other member")
	}

	var found int64
	if err := s.conn(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return nil, persistence(err)
	}
	if int(found) != len(ids) {
		return nil, invalidf("unknown member in participant list")
	}

	var groupName *string
	if name != "" {
		groupName = &name
	}
	id, err := s.createConversation(ctx, true, groupName, ids)
	if err != nil {
		return nil, err
	}
	return s.conversationView(ctx, id)
}

func (s *Store) createConversation(ctx context.Context, group bool, name *string, userIDs []uint) (uint, error) {
	conv := models.Conversation{IsGroup: group, Name: name, LastActivity: s.now()}
	for _, id := range userIDs {
		conv.Participants = append(conv.Participants, models.ConversationParticipant{UserID: id})
	}
	if err := s.conn(ctx).Create(&conv).Error; err != nil {
		return 0, persistence(err)
	}
	return conv.ID, nil
}

func (s *Store) conversationView(ctx context.Context, id uint) (*ConversationView, error) {
	var conv models.Conversation
	err := s.conn(ctx).Preload("Participants", activeParticipants).First(&conv, id).Error
	if err != nil {
		return nil, lookupErr(err, "conversation")
	}
	views, err := s.withMembers(ctx, []models.Conversation{conv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UserConversations 当前用户参与中的会话，按最近活跃排序
func (s *Store) UserConversations(ctx context.Context, userID uint) ([]ConversationView, error) {
	var convs []models.Conversation
	err := s.conn(ctx).
		Joins("JOIN conversation_participants me ON me.conversation_id = conversations.id AND me.user_id = ? AND me.left_at IS NULL", userID).
		Preload("Participants", activeParticipants).
		Order("conversations.last_activity DESC").
		Find(&convs).Error
	if err != nil {
		return nil, persistence(err)
	}
	return s.withMembers(ctx, convs)
}

func (s *Store) withMembers(ctx context.Context, convs []models.Conversation) ([]ConversationView, error) {
	var ids []uint
	for _, c := range convs {
		for _, p := range c.Participants {
			ids = append(ids, p.UserID)
		}
	}
	cards := map[uint]models.UserSummary{}
	if ids = uniqueIDs(ids); len(ids) > 0 {
		var users []models.User
		if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, persistence(err)
		}
		for i := range users {
			cards[users[i].ID] = users[i].Summary()
		}
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		v := ConversationView{Conversation: c, Members: []models.UserSummary{}}
		for _, p := range c.Participants {
			if card, ok := cards[p.UserID]; ok {
				v.Members = append(v.Members, card)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// IsParticipant reports whether userID currently belongs to the conversation.
func (s *Store) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	return isParticipant(s.conn(ctx), conversationID, userID)
}

func isParticipant(db *gorm.DB, conversationID, userID uint) (bool, error) {
	var n int64
	err := db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Count(&n).Error
	if err != nil {
		return false, persistence(err)
	}
	return n > 0, nil
}

// ParticipantIDs lists the current members of a conversation.
func (s *Store) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND left_at IS NULL", conversationID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, persistence(err)
	}
	return ids, nil
}

// SendMessage 持久化一条消息并更新会话的 lastMessageId / lastActivity（同一事务）
func (s *Store) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	media, err := in.MediaInput.normalize()
	if err != nil {
		return nil, err
	}
	if media.Content != nil && utf8.RuneCountInString(*media.Content) > maxMessageLength {
		return nil, invalidf("message content must be at most %d characters", maxMessageLength)
	}
	msg := &models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        media.Content,
		MediaURL:       media.MediaURL,
		MediaType:      media.MediaType,
		CreatedAt:      s.now(),
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		ok, err := isParticipant(tx, in.ConversationID, in.SenderID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotParticipant
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", in.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"last_activity":   msg.CreatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ConversationMessages returns a page of messages, oldest first.
func (s *Store) ConversationMessages(ctx context.Context, userID, conversationID uint, limit, offset int) ([]models.Message, error) {
	ok, err := s.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	limit, offset = page(limit, offset)
	var msgs []models.Message
	err = s.conn(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").Limit(limit).Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, persistence(err)
	}
	return msgs, nil
}

// MarkConversationRead marks everyone else's unread messages as read.
func (s *Store) MarkConversationRead(ctx context.Context, userID, conversationID uint) (int64, error) {
	ok, err := s.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotParticipant
	}
	res := s.conn(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return 0, persistence(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) LeaveConversation(ctx context.Context, userID, conversationID uint) error {
	res := s.conn(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Update("left_at", s.now())
	if res.Error != nil {
		return persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotParticipant
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
