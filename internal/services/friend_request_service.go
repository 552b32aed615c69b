package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"friendnet/internal/logger"
	"friendnet/internal/models"
	"friendnet/internal/storage"
)

// Direction selects which side of a request a listing is scoped to.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ParseDirection reads a query value; empty means DirectionSent.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", DirectionSent:
		return DirectionSent, nil
	case DirectionReceived:
		return DirectionReceived, nil
	}
	return "", ErrInvalidDirection
}

// EventPublisher receives an event after each successful ledger write.
type EventPublisher interface {
	PublishFriendRequestEvent(ctx context.Context, event models.FriendRequestEvent) error
}

// FriendRequestService is the friend request ledger and its read projections.
type FriendRequestService interface {
	CreateRequest(ctx context.Context, senderID, receiverID uint) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, callerID, requestID uint) (*models.FriendRequest, error)
	RejectRequest(ctx context.Context, callerID, requestID uint) (*models.FriendRequest, error)
	ListPending(ctx context.Context, userID uint, dir Direction) ([]models.FriendRequestView, error)
	ListAccepted(ctx context.Context, userID uint, dir Direction) ([]models.FriendRequestView, error)
}

type friendRequestService struct {
	userRepo   storage.UserRepository
	friendRepo storage.FriendRequestRepository
	publisher  EventPublisher
	now        func() time.Time
}

// NewFriendRequestService creates a new FriendRequestService. publisher may
// be nil, in which case no events are emitted.
func NewFriendRequestService(
	userRepo storage.UserRepository,
	friendRepo storage.FriendRequestRepository,
	publisher EventPublisher,
) FriendRequestService {
	return &friendRequestService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (s *friendRequestService) CreateRequest(ctx context.Context, senderID, receiverID uint) (*models.FriendRequest, error) {
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("look up receiver %d: %w", receiverID, err)
	}
	if senderID == receiverID {
		return nil, ErrFriendRequestSelf
	}

	existing, err := s.friendRepo.FindPendingRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("check pending request %d -> %d: %w", senderID, receiverID, err)
	}
	if existing != nil {
		return nil, ErrFriendRequestExists
	}

	request := &models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestStatusPending,
	}
	if err := s.friendRepo.Create(ctx, request); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// a concurrent create won the pending-pair index
			return nil, ErrFriendRequestExists
		}
		return nil, fmt.Errorf("create friend request %d -> %d: %w", senderID, receiverID, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"request_id":  request.ID,
		"sender_id":   senderID,
		"receiver_id": receiverID,
	}).Info("friend request created")
	s.publish(ctx, models.FriendRequestCreated, request, senderID)
	return request, nil
}

func (s *friendRequestService) AcceptRequest(ctx context.Context, callerID, requestID uint) (*models.FriendRequest, error) {
	return s.transition(ctx, callerID, requestID, models.FriendRequestStatusAccepted)
}

func (s *friendRequestService) RejectRequest(ctx context.Context, callerID, requestID uint) (*models.FriendRequest, error) {
	return s.transition(ctx, callerID, requestID, models.FriendRequestStatusRejected)
}

// transition moves a Pending request to a terminal status on behalf of its
// receiver. The storage update is conditional on the row still being
// Pending, so two racing callers cannot both succeed.
func (s *friendRequestService) transition(ctx context.Context, callerID, requestID uint, to models.FriendRequestStatus) (*models.FriendRequest, error) {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("load friend request %d: %w", requestID, err)
	}

	if request.ReceiverID != callerID {
		return nil, ErrNotReceiver
	}
	if request.Status.IsTerminal() {
		return nil, ErrRequestNotPending
	}

	changed, err := s.friendRepo.UpdateStatusIfPending(ctx, requestID, to)
	if err != nil {
		return nil, fmt.Errorf("update friend request %d to %s: %w", requestID, to, err)
	}
	if !changed {
		return nil, ErrRequestNotPending
	}
	request.Status = to

	logger.Log.WithFields(logrus.Fields{
		"request_id": requestID,
		"caller_id":  callerID,
		"status":     to,
	}).Info("friend request answered")

	eventType := models.FriendRequestAccepted
	if to == models.FriendRequestStatusRejected {
		eventType = models.FriendRequestRejected
	}
	s.publish(ctx, eventType, request, callerID)
	return request, nil
}

func (s *friendRequestService) ListPending(ctx context.Context, userID uint, dir Direction) ([]models.FriendRequestView, error) {
	return s.list(ctx, userID, dir, models.FriendRequestStatusPending)
}

func (s *friendRequestService) ListAccepted(ctx context.Context, userID uint, dir Direction) ([]models.FriendRequestView, error) {
	return s.list(ctx, userID, dir, models.FriendRequestStatusAccepted)
}

func (s *friendRequestService) list(ctx context.Context, userID uint, dir Direction, status models.FriendRequestStatus) ([]models.FriendRequestView, error) {
	filter := storage.FriendRequestFilter{Status: status}
	switch dir {
	case DirectionSent:
		filter.SenderID = userID
	case DirectionReceived:
		filter.ReceiverID = userID
	default:
		return nil, ErrInvalidDirection
	}

	requests, err := s.friendRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s friend requests for user %d: %w", status, userID, err)
	}

	views := make([]models.FriendRequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, models.FriendRequestView{
			SenderName:   req.Sender.Username,
			ReceiverName: req.Receiver.Username,
			Status:       req.Status,
		})
	}
	return views, nil
}

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 5 * time.Second

// publish emits an event after the write committed. A failure is logged
// only; the ledger row stays authoritative.
func (s *friendRequestService) publish(ctx context.Context, typ models.FriendRequestEventType, request *models.FriendRequest, actorID uint) {
	if s.publisher == nil {
		return
	}
	event := models.FriendRequestEvent{
		Type:       typ,
		RequestID:  request.ID,
		SenderID:   request.SenderID,
		ReceiverID: request.ReceiverID,
		Status:     request.Status,
		ActorID:    actorID,
		Timestamp:  s.now(),
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.PublishFriendRequestEvent(ctx, event); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"request_id": request.ID,
			"event":      typ,
		}).Warn("failed to publish friend request event")
	}
}
