package services

import (
	"errors"
	"fmt"

	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSelfRequest           = errors.New("cannot send a friend request to yourself")
	ErrFriendExists          = errors.New("friend request already exists")
	ErrFriendRequestNotFound = errors.New("friend request not found")
)

// FriendService maintains the friend-request graph. An edge is directed
// while PENDING (requester -> recipient) and mutual once ACCEPTED; the
// unordered pair holds at most one edge either way.
type FriendService struct {
	db *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{db: db}
}

// Request creates a PENDING edge from requester to recipient. The unique
// index on the unordered pair is the arbiter: two concurrent requests in
// either direction leave exactly one edge.
func (s *FriendService) Request(requesterID, recipientID uint) (*models.Friend, error) {
	// Existence first: a self-request naming an unknown id is a not-found,
	// not a self-request.
	if err := s.checkUsersExist(requesterID, recipientID); err != nil {
		return nil, err
	}
	if requesterID == recipientID {
		return nil, ErrSelfRequest
	}

	lo, hi := models.PairKey(requesterID, recipientID)

	// Fast path only; the unique index still decides under races.
	var count int64
	s.db.Model(&models.Friend{}).Where("pair_lo = ? AND pair_hi = ?", lo, hi).Count(&count)
	if count > 0 {
		return nil, ErrFriendExists
	}

	edge := models.Friend{
		RequesterID: requesterID,
		RecipientID: recipientID,
		PairLo:      lo,
		PairHi:      hi,
		Status:      models.FriendPending,
	}
	if err := s.db.Create(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrFriendExists
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return &edge, nil
}

// Approve flips a PENDING edge to ACCEPTED. Only the recipient of the
// original request may approve, so the lookup is direction-exact: a
// requester approving their own request sees not-found.
func (s *FriendService) Approve(recipientID, requesterID uint) error {
	if err := s.checkUsersExist(recipientID, requesterID); err != nil {
		return err
	}

	result := s.db.Model(&models.Friend{}).
		Where("requester_id = ? AND recipient_id = ? AND status = ?",
			requesterID, recipientID, models.FriendPending).
		Update("status", models.FriendAccepted)
	if result.Error != nil {
		return fmt.Errorf("failed to approve friend request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFriendRequestNotFound
	}
	return nil
}

// Deny deletes a PENDING edge entirely. Denial leaves no trace, so the
// requester may ask again later.
func (s *FriendService) Deny(recipientID, requesterID uint) error {
	if err := s.checkUsersExist(recipientID, requesterID); err != nil {
		return err
	}

	result := s.db.
		Where("requester_id = ? AND recipient_id = ? AND status = ?",
			requesterID, recipientID, models.FriendPending).
		Delete(&models.Friend{})
	if result.Error != nil {
		return fmt.Errorf("failed to deny friend request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFriendRequestNotFound
	}
	return nil
}

// ListAccepted returns the other party of every ACCEPTED edge touching
// userID, ordered by edge creation (id ascending, stable under timestamp
// collisions), paginated.
func (s *FriendService) ListAccepted(userID uint, page, pageSize int) ([]dto.FriendSummary, int64, error) {
	if err := s.checkUsersExist(userID); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Friend{}).
		Where("(requester_id = ? OR recipient_id = ?) AND status = ?",
			userID, userID, models.FriendAccepted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count friends: %w", err)
	}

	var edges []models.Friend
	err := s.db.
		Preload("Requester").
		Preload("Recipient").
		Where("(requester_id = ? OR recipient_id = ?) AND status = ?",
			userID, userID, models.FriendAccepted).
		Order("id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&edges).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list friends: %w", err)
	}

	summaries := make([]dto.FriendSummary, 0, len(edges))
	for i := range edges {
		other := edges[i].Requester
		if edges[i].RequesterID == userID {
			other = edges[i].Recipient
		}
		summaries = append(summaries, dto.FriendSummary{
			UserID:   other.ID,
			Username: other.Username,
			Image:    other.ImageOrDefault(),
		})
	}
	return summaries, total, nil
}

// ListPending returns requests awaiting userID's own decision: edges where
// userID is the recipient. Outgoing pending requests are never listed.
func (s *FriendService) ListPending(userID uint, page, pageSize int) ([]dto.FriendSummary, int64, error) {
	if err := s.checkUsersExist(userID); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Friend{}).
		Where("recipient_id = ? AND status = ?", userID, models.FriendPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending requests: %w", err)
	}

	var edges []models.Friend
	err := s.db.
		Preload("Requester").
		Where("recipient_id = ? AND status = ?", userID, models.FriendPending).
		Order("id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&edges).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending requests: %w", err)
	}

	summaries := make([]dto.FriendSummary, 0, len(edges))
	for i := range edges {
		summaries = append(summaries, dto.FriendSummary{
			UserID:   edges[i].Requester.ID,
			Username: edges[i].Requester.Username,
			Image:    edges[i].Requester.ImageOrDefault(),
		})
	}
	return summaries, total, nil
}

func (s *FriendService) checkUsersExist(ids ...uint) error {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id IN ?", ids).
		Distinct("id").Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up users: %w", err)
	}
	if count != int64(len(unique)) {
		return ErrUserNotFound
	}
	return nil
}
