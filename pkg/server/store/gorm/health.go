package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

var _ store.HealthStore = (*HealthStore)(nil)

// HealthStore pings the connection pool behind the lock tables
type HealthStore struct {
	db *gorm.DB
}

func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

// CheckConnectivity pings the pool and then touches item_locks, so a
// database without the schema is reported as unhealthy too.
func (s *HealthStore) CheckConnectivity(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("connection pool: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return s.db.WithContext(ctx).Exec("SELECT 1 FROM item_locks LIMIT 1").Error
}
