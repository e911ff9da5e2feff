package models

import (
	"time"
)

// Friend edge states.
const (
	FriendPending  = "PENDING"
	FriendAccepted = "ACCEPTED"
)

// Friend is a directed friend request that becomes a mutual friendship once
// accepted. RequesterID sent the request, RecipientID is the only side that
// may approve or deny it.
//
// PairLo/PairHi store the unordered pair (lower id first); their composite
// unique index is the source of truth that at most one edge exists between
// two accounts regardless of direction. The auto-increment ID doubles as the
// stable pagination cursor: listings always order by it, never by timestamp.
type Friend struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequesterID uint      `gorm:"not null;index" json:"requester_id"`
	RecipientID uint      `gorm:"not null;index" json:"recipient_id"`
	PairLo      uint      `gorm:"not null;uniqueIndex:idx_friends_pair" json:"-"`
	PairHi      uint      `gorm:"not null;uniqueIndex:idx_friends_pair" json:"-"`
	Status      string    `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Requester   User      `gorm:"foreignKey:RequesterID" json:"-"`
	Recipient   User      `gorm:"foreignKey:RecipientID" json:"-"`
}

func (Friend) TableName() string {
	return "friends"
}

// PairKey returns the unordered pair for two user ids, lower id first.
func PairKey(a, b uint) (lo, hi uint) {
	if a < b {
		return a, b
	}
	return b, a
}
