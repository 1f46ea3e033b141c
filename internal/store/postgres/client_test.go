package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://x@y/z", Host: "ignored"},
			want: "postgres://x@y/z",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "db", Database: "pms", User: "u", Password: "p"},
			want: "postgres://u:p@db:5432/pms?sslmode=disable",
		},
		{
			name: "custom port and sslmode",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "pms", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/pms?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestWrapNoRows(t *testing.T) {
	assert.ErrorIs(t, wrapNoRows(pgx.ErrNoRows, "postgres: get %d", 1), domain.ErrNotFound)

	boom := errors.New("boom")
	err := wrapNoRows(fmt.Errorf("conn: %w", boom), "postgres: get %d", 7)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "postgres: get 7: conn: boom", err.Error())
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}
