package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"scalp_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ActiveOrderRecord is the durable row for PENDING and OPEN orders.
type ActiveOrderRecord struct {
	ID               string `gorm:"primaryKey"`
	Symbol           string `gorm:"index"`
	Direction        string
	EntryPrice       float64
	TakeProfitPrice  float64
	StopLossPrice    float64
	EstimatedWinRate float64
	CreatedTime      int64
	OpenTime         int64
	Status           string
	ExpirationTime   int64
}

func (ActiveOrderRecord) TableName() string { return "active_orders" }

// ClosedOrderRecord is the durable row for terminal (CLOSED/CANCELED) orders.
// Closed rows are never deleted; the in-memory history cap does not apply here.
type ClosedOrderRecord struct {
	ID               string `gorm:"primaryKey"`
	Symbol           string `gorm:"index"`
	Direction        string
	EntryPrice       float64
	TakeProfitPrice  float64
	StopLossPrice    float64
	EstimatedWinRate float64
	CreatedTime      int64
	OpenTime         int64
	Status           string
	CloseReason      string
	ClosePrice       float64
	FinalPnL         float64
	CloseTime        int64 `gorm:"index"`
	ExpirationTime   int64
}

func (ClosedOrderRecord) TableName() string { return "closed_orders" }

// Storage persists order state in SQLite (pure Go driver).
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the order database at path and migrates the
// schema. AutoMigrate adds new columns without touching existing rows.
func NewStorage(path string) (*Storage, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&ActiveOrderRecord{}, &ClosedOrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// InsertActive persists a freshly-created PENDING order.
func (s *Storage) InsertActive(o *domain.Order) error {
	return s.db.Create(toActiveRecord(o)).Error
}

// MarkOpen records the PENDING -> OPEN transition.
func (s *Storage) MarkOpen(id string, openTime int64) error {
	res := s.db.Model(&ActiveOrderRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": domain.OrderStatusOpen, "open_time": openTime})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s not found in active set", id)
	}
	return nil
}

// MoveToClosed atomically removes the order from the active set and appends
// its terminal row. The order must already carry its close fields.
func (s *Storage) MoveToClosed(o *domain.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", o.ID).Delete(&ActiveOrderRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(toClosedRecord(o)).Error
	})
}

// LoadActive returns every PENDING/OPEN order for restart reconstruction.
func (s *Storage) LoadActive() ([]*domain.Order, error) {
	var records []ActiveOrderRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Order, 0, len(records))
	for i := range records {
		out = append(out, fromActiveRecord(&records[i]))
	}
	return out, nil
}

// LoadClosed returns the most recent terminal orders, newest first.
func (s *Storage) LoadClosed(limit int) ([]*domain.Order, error) {
	var records []ClosedOrderRecord
	q := s.db.Order("close_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Order, 0, len(records))
	for i := range records {
		out = append(out, fromClosedRecord(&records[i]))
	}
	return out, nil
}

func toActiveRecord(o *domain.Order) *ActiveOrderRecord {
	return &ActiveOrderRecord{
		ID:               o.ID,
		Symbol:           o.Symbol,
		Direction:        o.Direction,
		EntryPrice:       o.EntryPrice.InexactFloat64(),
		TakeProfitPrice:  o.TakeProfitPrice.InexactFloat64(),
		StopLossPrice:    o.StopLossPrice.InexactFloat64(),
		EstimatedWinRate: o.EstimatedWinRate.InexactFloat64(),
		CreatedTime:      o.CreatedTime,
		OpenTime:         o.OpenTime,
		Status:           o.Status,
		ExpirationTime:   o.ExpirationTime,
	}
}

func fromActiveRecord(r *ActiveOrderRecord) *domain.Order {
	return &domain.Order{
		ID:               r.ID,
		Symbol:           r.Symbol,
		Direction:        r.Direction,
		EntryPrice:       decimal.NewFromFloat(r.EntryPrice),
		TakeProfitPrice:  decimal.NewFromFloat(r.TakeProfitPrice),
		StopLossPrice:    decimal.NewFromFloat(r.StopLossPrice),
		EstimatedWinRate: decimal.NewFromFloat(r.EstimatedWinRate),
		CreatedTime:      r.CreatedTime,
		OpenTime:         r.OpenTime,
		Status:           r.Status,
		ExpirationTime:   r.ExpirationTime,
	}
}

func toClosedRecord(o *domain.Order) *ClosedOrderRecord {
	return &ClosedOrderRecord{
		ID:               o.ID,
		Symbol:           o.Symbol,
		Direction:        o.Direction,
		EntryPrice:       o.EntryPrice.InexactFloat64(),
		TakeProfitPrice:  o.TakeProfitPrice.InexactFloat64(),
		StopLossPrice:    o.StopLossPrice.InexactFloat64(),
		EstimatedWinRate: o.EstimatedWinRate.InexactFloat64(),
		CreatedTime:      o.CreatedTime,
		OpenTime:         o.OpenTime,
		Status:           o.Status,
		CloseReason:      o.CloseReason,
		ClosePrice:       o.ClosePrice.InexactFloat64(),
		FinalPnL:         o.FinalPnL.InexactFloat64(),
		CloseTime:        o.CloseTime,
		ExpirationTime:   o.ExpirationTime,
	}
}

func fromClosedRecord(r *ClosedOrderRecord) *domain.Order {
	return &domain.Order{
		ID:               r.ID,
		Symbol:           r.Symbol,
		Direction:        r.Direction,
		EntryPrice:       decimal.NewFromFloat(r.EntryPrice),
		TakeProfitPrice:  decimal.NewFromFloat(r.TakeProfitPrice),
		StopLossPrice:    decimal.NewFromFloat(r.StopLossPrice),
		EstimatedWinRate: decimal.NewFromFloat(r.EstimatedWinRate),
		CreatedTime:      r.CreatedTime,
		OpenTime:         r.OpenTime,
		Status:           r.Status,
		CloseReason:      r.CloseReason,
		ClosePrice:       decimal.NewFromFloat(r.ClosePrice),
		FinalPnL:         decimal.NewFromFloat(r.FinalPnL),
		CloseTime:        r.CloseTime,
		ExpirationTime:   r.ExpirationTime,
	}
}
