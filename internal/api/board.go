package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	b "go-board/internal/board"
)

type BoardHandlers struct {
	boardService *b.BoardService
}

func NewBoardHandlers(db *gorm.DB) *BoardHandlers {
	return &BoardHandlers{
		boardService: b.NewBoardService(db),
	}
}

type CreateBoardInput struct {
	Name string `json:"name" binding:"required"`
}

type JoinBoardInput struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func boardIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(400, gin.H{"error": "invalid board id"})
		return 0, false
	}
	return uint(id), true
}

func (h *BoardHandlers) CreateBoardHandler(c *gin.Context) {
	var input CreateBoardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	board, err := h.boardService.CreateBoard(currentUserID(c), input.Name)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(201, gin.H{
		"id":          board.ID,
		"name":        board.Name,
		"invite_code": board.InviteCode,
	})
}

func (h *BoardHandlers) GetBoardsHandler(c *gin.Context) {
	boards, err := h.boardService.GetUserBoards(currentUserID(c))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"boards": boards})
}

func (h *BoardHandlers) JoinBoardHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	var input JoinBoardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := h.boardService.JoinBoard(currentUserID(c), boardID, input.InviteCode); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"message": "Joined board"})
}

func (h *BoardHandlers) LeaveBoardHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	if err := h.boardService.LeaveBoard(currentUserID(c), boardID); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"message": "Left board"})
}

func (h *BoardHandlers) RemoveMemberHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.boardService.RemoveMember(currentUserID(c), boardID, uint(targetID)); err != nil {
		c.JSON(403, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"message": "Member removed"})
}

func (h *BoardHandlers) GetBoardMembersHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	members, err := h.boardService.GetBoardMembers(boardID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		out = append(out, gin.H{
			"user_id":  m.UserID,
			"email":    m.User.Email,
			"name":     m.User.Name,
			"is_admin": m.IsAdmin,
		})
	}

	c.JSON(200, gin.H{"members": out})
}

func (h *BoardHandlers) DeleteBoardHandler(c *gin.Context) {
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}

	if err := h.boardService.DeleteBoard(currentUserID(c), boardID); err != nil {
		c.JSON(403, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"message": "Board deleted"})
}
