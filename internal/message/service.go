package message

import (
	"errors"

	"gorm.io/gorm"

	. "go-board/pkg/board"
)

type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// SaveMessage writes the durable copy of a relayed chat message. The relay
// calls it off the broadcast path; broadcast never waits on this insert.
func (s *MessageService) SaveMessage(userID, boardID uint, content, instanceID string) (*ChatMessage, error) {
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}

	msg := ChatMessage{
		BoardID:    boardID,
		UserID:     userID,
		Content:    content,
		InstanceID: instanceID,
	}

	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("User").First(&msg, msg.ID).Error; err != nil {
		return nil, err
	}

	return &msg, nil
}

func (s *MessageService) GetBoardMessages(userID, boardID uint, limit, offset int) ([]ChatMessage, int64, error) {
	var member BoardMember
	if err := s.db.Where("user_id = ? AND board_id = ?", userID, boardID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, errors.New("you are not a member of this board")
		}
		return nil, 0, err
	}

	query := s.db.Model(&ChatMessage{}).Where("board_id = ?", boardID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []ChatMessage
	err := s.db.Preload("User").Where("board_id = ?", boardID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	// Oldest first for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, total, nil
}
