package storage

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"friendnet/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByEmail matches the address case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Search returns users whose email equals keyword or whose username
	// contains it, both ignoring case. keyword must be non-empty.
	Search(ctx context.Context, keyword string) ([]models.User, error)
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create inserts user. Unique violations surface as ErrDuplicateKey.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err // Handles gorm.ErrRecordNotFound as well
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username.
func (r *gormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) Search(ctx context.Context, keyword string) ([]models.User, error) {
	users := []models.User{}
	pattern := "%" + EscapeLike(strings.ToLower(keyword)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) OR LOWER(username) LIKE ?", keyword, pattern).
		Select("id", "username", "email", "created_at").
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// EscapeLike escapes the LIKE wildcards in s using postgres' default
// backslash escape character.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
