package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"friendnet/internal/models"
)

// FriendRequestFilter narrows List. Zero values match anything.
type FriendRequestFilter struct {
	SenderID   uint
	ReceiverID uint
	Status     models.FriendRequestStatus
}

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	// Create inserts a Pending request. A second pending request for the
	// same ordered pair fails with ErrDuplicateKey.
	Create(ctx context.Context, request *models.FriendRequest) error
	// FindPendingRequest returns the pending sender -> receiver request, or
	// nil when there is none.
	FindPendingRequest(ctx context.Context, senderID, receiverID uint) (*models.FriendRequest, error)
	GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	// UpdateStatusIfPending moves the request to status only while it is
	// still Pending. It reports whether a row changed.
	UpdateStatusIfPending(ctx context.Context, requestID uint, status models.FriendRequestStatus) (bool, error)
	// List returns matching requests oldest first with Sender and Receiver loaded.
	List(ctx context.Context, filter FriendRequestFilter) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Omit("Sender", "Receiver").Create(request).Error
}

func (r *gormFriendRequestRepository) FindPendingRequest(ctx context.Context, senderID, receiverID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No pending request found is not an error in this context
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	if err := r.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) UpdateStatusIfPending(ctx context.Context, requestID uint, status models.FriendRequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, models.FriendRequestStatusPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormFriendRequestRepository) List(ctx context.Context, filter FriendRequestFilter) ([]models.FriendRequest, error) {
	requests := []models.FriendRequest{}
	q := r.db.WithContext(ctx).Preload("Sender").Preload("Receiver")
	if filter.SenderID != 0 {
		q = q.Where("sender_id = ?", filter.SenderID)
	}
	if filter.ReceiverID != 0 {
		q = q.Where("receiver_id = ?", filter.ReceiverID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Order("created_at, id").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
