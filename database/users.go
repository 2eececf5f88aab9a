package database

import (
	"context"
	"errors"

	"equiherds-backend/models"

	"gorm.io/gorm"
)

// UserStore is the persistence the auth routes need.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, updates map[string]any) (*models.User, error)
}

// GormUserStore keeps users in the store behind a Manager.
type GormUserStore struct {
	mgr *Manager
}

func NewGormUserStore(mgr *Manager) *GormUserStore {
	return &GormUserStore{mgr: mgr}
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	db, err := s.mgr.Handle(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	db, err := s.mgr.Handle(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	db, err := s.mgr.Handle(ctx)
	if err != nil {
		return err
	}
	return mapError(db.Create(user).Error)
}

// Update applies a partial column update and returns the stored row.
func (s *GormUserStore) Update(ctx context.Context, id string, updates map[string]any) (*models.User, error) {
	db, err := s.mgr.Handle(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
