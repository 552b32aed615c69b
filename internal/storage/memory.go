package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"friendnet/internal/models"
)

// MemoryStore keeps users and friend requests in process. It applies the
// same uniqueness and precondition rules as the postgres schema, so it can
// stand in for it in local runs (DATABASE.TYPE=memory) and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uint]models.User
	requests map[uint]models.FriendRequest
	nextUser uint
	nextReq  uint
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]models.User),
		requests: make(map[uint]models.FriendRequest),
		now:      time.Now,
	}
}

// Users returns a UserRepository over the store.
func (s *MemoryStore) Users() UserRepository {
	return memoryUserRepository{s}
}

// FriendRequests returns a FriendRequestRepository over the store.
func (s *MemoryStore) FriendRequests() FriendRequestRepository {
	return memoryFriendRequestRepository{s}
}

type memoryUserRepository struct{ s *MemoryStore }

func (r memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateKey
		}
	}
	r.s.nextUser++
	now := r.s.now()
	user.ID = r.s.nextUser
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r memoryUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.Username == username })
}

func (r memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memoryUserRepository) find(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUserRepository) Search(ctx context.Context, keyword string) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(keyword)
	users := []models.User{}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, keyword) || strings.Contains(strings.ToLower(u.Username), needle) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type memoryFriendRequestRepository struct{ s *MemoryStore }

func (r memoryFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if request.Status == models.FriendRequestStatusPending {
		if r.s.pendingLocked(request.SenderID, request.ReceiverID) != nil {
			return ErrDuplicateKey
		}
	}
	r.s.nextReq++
	now := r.s.now()
	request.ID = r.s.nextReq
	request.CreatedAt = now
	request.UpdatedAt = now
	stored := *request
	stored.Sender, stored.Receiver = models.User{}, models.User{}
	r.s.requests[request.ID] = stored
	return nil
}

func (s *MemoryStore) pendingLocked(senderID, receiverID uint) *models.FriendRequest {
	for _, fr := range s.requests {
		if fr.SenderID == senderID && fr.ReceiverID == receiverID && fr.Status == models.FriendRequestStatusPending {
			return &fr
		}
	}
	return nil
}

func (r memoryFriendRequestRepository) FindPendingRequest(ctx context.Context, senderID, receiverID uint) (*models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.pendingLocked(senderID, receiverID), nil
}

func (r memoryFriendRequestRepository) GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	fr, ok := r.s.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &fr, nil
}

func (r memoryFriendRequestRepository) UpdateStatusIfPending(ctx context.Context, requestID uint, status models.FriendRequestStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	fr, ok := r.s.requests[requestID]
	if !ok || fr.Status != models.FriendRequestStatusPending {
		return false, nil
	}
	fr.Status = status
	fr.UpdatedAt = r.s.now()
	r.s.requests[requestID] = fr
	return true, nil
}

func (r memoryFriendRequestRepository) List(ctx context.Context, filter FriendRequestFilter) ([]models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	requests := []models.FriendRequest{}
	for _, fr := range r.s.requests {
		if filter.SenderID != 0 && fr.SenderID != filter.SenderID {
			continue
		}
		if filter.ReceiverID != 0 && fr.ReceiverID != filter.ReceiverID {
			continue
		}
		if filter.Status != "" && fr.Status != filter.Status {
			continue
		}
		fr.Sender = r.s.users[fr.SenderID]
		fr.Receiver = r.s.users[fr.ReceiverID]
		requests = append(requests, fr)
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}
