package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neveleren/thewire/pkg/db/models"
)

// ErrNotFound is returned for missing rows across the store types.
var ErrNotFound = errors.New("not found")

// UserStore resolves usernames. Users are seed data; there is no create
// path here.
type UserStore struct {
	logger *logrus.Logger
	db     *gorm.DB
}

func NewUserStore(logger *logrus.Logger, db *gorm.DB) *UserStore {
	return &UserStore{logger: logger, db: db}
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	return &user, nil
}
