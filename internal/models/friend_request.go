package models

import "time"

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "Pending"
	FriendRequestStatusAccepted FriendRequestStatus = "Accepted"
	FriendRequestStatusRejected FriendRequestStatus = "Rejected"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s FriendRequestStatus) IsTerminal() bool {
	return s == FriendRequestStatusAccepted || s == FriendRequestStatusRejected
}

// Valid reports whether s is one of the known states.
func (s FriendRequestStatus) Valid() bool {
	switch s {
	case FriendRequestStatusPending, FriendRequestStatusAccepted, FriendRequestStatusRejected:
		return true
	}
	return false
}

// FriendRequest is a ledger record of one user asking another to be friends.
// SenderID and ReceiverID never change after creation; only Status moves,
// and only out of Pending.
type FriendRequest struct {
	BaseModel
	SenderID   uint                `gorm:"not null;index:idx_friend_request_users" json:"sender"`
	ReceiverID uint                `gorm:"not null;index:idx_friend_request_users;index" json:"receiver"`
	Status     FriendRequestStatus `gorm:"type:varchar(10);not null;default:'Pending';index" json:"status"`

	Sender   User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for FriendRequest.
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// FriendRequestView is the list projection of a request: who sent it, who
// received it and where it stands, by username.
type FriendRequestView struct {
	SenderName   string              `json:"sender_name"`
	ReceiverName string              `json:"receiver_name"`
	Status       FriendRequestStatus `json:"status"`
}

// FriendRequestEventType names a ledger mutation on the event stream.
type FriendRequestEventType string

const (
	FriendRequestCreated  FriendRequestEventType = "friend_request.created"
	FriendRequestAccepted FriendRequestEventType = "friend_request.accepted"
	FriendRequestRejected FriendRequestEventType = "friend_request.rejected"
)

// FriendRequestEvent is published after every successful ledger write.
type FriendRequestEvent struct {
	Type       FriendRequestEventType `json:"type"`
	RequestID  uint                   `json:"request_id"`
	SenderID   uint                   `json:"sender_id"`
	ReceiverID uint                   `json:"receiver_id"`
	Status     FriendRequestStatus    `json:"status"`
	ActorID    uint                   `json:"actor_id"`
	Timestamp  time.Time              `json:"timestamp"`
}
