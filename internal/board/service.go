package board

import (
	"errors"

	"gorm.io/gorm"

	. "go-board/pkg/board"
)

type BoardService struct {
	db *gorm.DB
}

func NewBoardService(db *gorm.DB) *BoardService {
	return &BoardService{db: db}
}

func (s *BoardService) CreateBoard(ownerID uint, name string) (*Board, error) {
	if name == "" {
		return nil, errors.New("board name cannot be empty")
	}

	b := Board{
		Name:    name,
		OwnerID: ownerID,
	}

	if err := s.db.Create(&b).Error; err != nil {
		return nil, err
	}

	// Owner is an admin member from the start.
	member := BoardMember{
		UserID:  ownerID,
		BoardID: b.ID,
		IsAdmin: true,
	}

	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}

	return &b, nil
}

func (s *BoardService) GetBoard(boardID uint) (*Board, error) {
	var b Board
	err := s.db.Preload("Owner").First(&b, boardID).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BoardService) GetUserBoards(userID uint) ([]Board, error) {
	var boards []Board
	err := s.db.Joins("JOIN board_members ON boards.id = board_members.board_id").
		Where("board_members.user_id = ? AND board_members.deleted_at IS NULL", userID).
		Preload("Owner").
		Find(&boards).Error
	return boards, err
}

func (s *BoardService) JoinBoard(userID, boardID uint, inviteCode string) error {
	b, err := s.GetBoard(boardID)
	if err != nil {
		return err
	}

	var existing BoardMember
	err = s.db.Where("user_id = ? AND board_id = ?", userID, boardID).First(&existing).Error
	if err == nil {
		return errors.New("user already a member of this board")
	}

	if b.InviteCode != inviteCode {
		return errors.New("invalid invite code")
	}

	member := BoardMember{
		UserID:  userID,
		BoardID: boardID,
	}

	return s.db.Create(&member).Error
}

func (s *BoardService) LeaveBoard(userID, boardID uint) error {
	b, err := s.GetBoard(boardID)
	if err != nil {
		return err
	}
	if b.OwnerID == userID {
		return errors.New("board owner cannot leave board")
	}

	return s.db.Where("user_id = ? AND board_id = ?", userID, boardID).Delete(&BoardMember{}).Error
}

// RemoveMember revokes a membership on behalf of an admin. The gate re-checks
// membership per action, so the removed user's next frame is rejected even if
// their socket stays up.
func (s *BoardService) RemoveMember(actorID, boardID, targetID uint) error {
	var actor BoardMember
	err := s.db.Where("user_id = ? AND board_id = ?", actorID, boardID).First(&actor).Error
	if err != nil {
		return errors.New("you are not a member of this board")
	}
	if !actor.IsAdmin {
		return errors.New("only board admins can remove members")
	}

	b, err := s.GetBoard(boardID)
	if err != nil {
		return err
	}
	if b.OwnerID == targetID {
		return errors.New("board owner cannot be removed")
	}

	return s.db.Where("user_id = ? AND board_id = ?", targetID, boardID).Delete(&BoardMember{}).Error
}

func (s *BoardService) GetBoardMembers(boardID uint) ([]BoardMember, error) {
	var members []BoardMember
	err := s.db.Where("board_id = ?", boardID).Preload("User").Find(&members).Error
	return members, err
}

func (s *BoardService) DeleteBoard(userID, boardID uint) error {
	b, err := s.GetBoard(boardID)
	if err != nil {
		return err
	}

	if b.OwnerID != userID {
		return errors.New("only board owner can delete board")
	}

	if err := s.db.Where("board_id = ?", boardID).Delete(&BoardMember{}).Error; err != nil {
		return err
	}

	return s.db.Delete(&Board{}, boardID).Error
}
