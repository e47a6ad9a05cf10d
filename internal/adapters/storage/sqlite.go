// Package storage implements ports.AuditRepository with GORM over SQLite,
// adapted from the teacher's device-inventory SQLiteAdapter (same
// WAL/busy-timeout pragmas and otel tracing plugin), repurposed to record
// route swaps and rate applications instead of scanned devices.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// RouteSwapModel records one default-route transition.
type RouteSwapModel struct {
	ID        uint `gorm:"primaryKey"`
	FromIP    string
	ToIP      string
	Reason    string
	CreatedAt time.Time `gorm:"index"`
}

// RateApplyModel records one traffic-shaper rate application, with the
// per-class breakdown flattened to JSON rather than four extra tables.
type RateApplyModel struct {
	ID             uint `gorm:"primaryKey"`
	AllocTotalKbps int
	ClassesJSON    string
	CreatedAt      time.Time `gorm:"index"`
}

// AuditRepository implements ports.AuditRepository.
type AuditRepository struct {
	db *gorm.DB
}

// New opens (creating if absent) the SQLite audit log at path and
// migrates its schema.
func New(path string) (*AuditRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RouteSwapModel{}, &RateApplyModel{}); err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_route_swaps_created_at ON route_swap_models(created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_rate_applies_created_at ON rate_apply_models(created_at)")

	return &AuditRepository{db: db}, nil
}

func (a *AuditRepository) RecordRouteSwap(ctx context.Context, fromIP, toIP, reason string) error {
	m := RouteSwapModel{FromIP: fromIP, ToIP: toIP, Reason: reason, CreatedAt: time.Now()}
	if err := a.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("storage: record route swap: %w", err)
	}
	return nil
}

func (a *AuditRepository) RecordRateApply(ctx context.Context, r domain.Rates) error {
	classesJSON, err := json.Marshal(r.Classes())
	if err != nil {
		return fmt.Errorf("storage: marshal rates: %w", err)
	}
	m := RateApplyModel{
		AllocTotalKbps: r.AllocTotalKbps,
		ClassesJSON:    string(classesJSON),
		CreatedAt:      time.Now(),
	}
	if err := a.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("storage: record rate apply: %w", err)
	}
	return nil
}

// RecentRouteSwaps returns the most recent n route-swap records, newest
// first.
func (a *AuditRepository) RecentRouteSwaps(ctx context.Context, n int) ([]RouteSwapModel, error) {
	var out []RouteSwapModel
	if err := a.db.WithContext(ctx).Order("created_at desc").Limit(n).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuditRepository) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("[storage] close: %v", err)
		return err
	}
	return nil
}
