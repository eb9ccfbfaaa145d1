package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	m "go-board/internal/message"
)

type MessageHandlers struct {
	messageService *m.MessageService
}

func NewMessageHandlers(db *gorm.DB) *MessageHandlers {
	return &MessageHandlers{
		messageService: m.NewMessageService(db),
	}
}

// GetBoardMessagesHandler pages through the durable chat history. This is
// where the persisted message id becomes visible; live broadcasts omit it.
func (h *MessageHandlers) GetBoardMessagesHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := h.messageService.GetBoardMessages(currentUserID(c), boardID, limit, offset)
	if err != nil {
		c.JSON(403, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		out = append(out, gin.H{
			"id":          msg.ID,
			"boardId":     msg.BoardID,
			"content":     msg.Content,
			"instanceId":  msg.InstanceID,
			"senderEmail": msg.User.Email,
			"senderName":  msg.User.Name,
			"timestamp":   msg.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(200, gin.H{"messages": out, "total": total})
}
