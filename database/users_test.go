package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "first_name", "last_name", "email", "password_hash", "role", "created_at", "updated_at"}

func unreachableManager() *Manager {
	return newTestManager(DialFunc(func(ctx context.Context) (Conn, error) {
		return nil, errors.New("dial should not be needed")
	}), testOptions())
}

func TestGormUserStore_FindByEmail(t *testing.T) {
	db, mock := newMockGorm(t, false)
	store := NewGormUserStore(unreachableManager())
	ctx := WithHandle(context.Background(), db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "Ada", "Rider", "ada@example.com", "$2a$10$hash", "seller", now, now))

	user, err := store.FindByEmail(ctx, "  Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.Id)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "seller", user.Role)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserStore_FindByIDNotFound(t *testing.T) {
	db, mock := newMockGorm(t, false)
	store := NewGormUserStore(unreachableManager())
	ctx := WithHandle(context.Background(), db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserStore_QueryError(t *testing.T) {
	db, mock := newMockGorm(t, false)
	store := NewGormUserStore(unreachableManager())
	ctx := WithHandle(context.Background(), db)

	boom := errors.New("boom")
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(boom)

	_, err := store.FindByEmail(ctx, "x@example.com")
	require.ErrorIs(t, err, boom)
}

func TestGormUserStore_AcquiresWithoutRequestHandle(t *testing.T) {
	store := NewGormUserStore(unreachableManager())

	_, err := store.FindByID(context.Background(), "u-1")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestHandleFrom(t *testing.T) {
	_, ok := HandleFrom(context.Background())
	assert.False(t, ok)

	db := new(gorm.DB)
	got, ok := HandleFrom(WithHandle(context.Background(), db))
	require.True(t, ok)
	assert.Same(t, db, got)

	_, ok = HandleFrom(WithHandle(context.Background(), nil))
	assert.False(t, ok)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)), ErrDuplicate)

	other := errors.New("other")
	assert.Same(t, other, mapError(other))
}
