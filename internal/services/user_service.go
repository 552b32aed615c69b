package services

import (
	"context"
	"fmt"
	"strings"

	"friendnet/internal/models"
	"friendnet/internal/storage"
)

// UserService is the read side over the identity store.
type UserService interface {
	// SearchUsers matches keyword exactly against email or as a substring
	// of username, ignoring case. A blank keyword matches nobody.
	SearchUsers(ctx context.Context, keyword string) ([]models.UserSummary, error)
}

type userService struct {
	userRepo storage.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) SearchUsers(ctx context.Context, keyword string) ([]models.UserSummary, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []models.UserSummary{}, nil
	}

	users, err := s.userRepo.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	results := make([]models.UserSummary, 0, len(users))
	for i := range users {
		results = append(results, users[i].Summary())
	}
	return results, nil
}
