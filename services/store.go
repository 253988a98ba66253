package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	searchLimit     = 20
)

// Store wraps the relational store. Every operation takes a context so
// request deadlines reach the database driver.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying handle, mainly for tests and migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := s.conn(ctx).Transaction(fn); err != nil {
		return passthrough(err)
	}
	return nil
}

// bump adjusts a counter column in place; decrements never go below zero.
func bump(tx *gorm.DB, model interface{}, id uint, column string, delta int) error {
	q := tx.Model(model).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(column + " > 0")
	}
	return q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
