package database

import (
	"context"

	"gorm.io/gorm"
)

type handleKey struct{}

// WithHandle stores the request's store handle (or transaction) in ctx.
func WithHandle(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, handleKey{}, db)
}

// HandleFrom returns the handle stored by WithHandle.
func HandleFrom(ctx context.Context) (*gorm.DB, bool) {
	db, ok := ctx.Value(handleKey{}).(*gorm.DB)
	return db, ok && db != nil
}

// Handle prefers the handle already bound to the request, else acquires the
// shared one.
func (m *Manager) Handle(ctx context.Context) (*gorm.DB, error) {
	if db, ok := HandleFrom(ctx); ok {
		return db.WithContext(ctx), nil
	}
	db, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}
