package database

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TRADE JOURNAL
// ═══════════════════════════════════════════════════════════════════════════════
//
// Audit log of every straddle placed and how its race resolved. Nothing is
// ever read back into the trading path; a restart starts clean.
//
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// Cycle records one straddle: the signal candle and the racing pair.
type Cycle struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Symbol       string `gorm:"index"`
	CandleStart  time.Time
	CandleHigh   decimal.Decimal `gorm:"type:decimal(20,8)"`
	CandleLow    decimal.Decimal `gorm:"type:decimal(20,8)"`
	LongOrderID  string          `gorm:"index"`
	ShortOrderID string          `gorm:"index"`
	Outcome      string          // "racing", "long_filled", "short_filled", "double_fill"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLeg records the conformed parameters of one placed leg.
type OrderLeg struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	CycleID    uint   `gorm:"index"`
	OrderID    string `gorm:"index"`
	Side       string
	Entry      decimal.Decimal `gorm:"type:decimal(20,8)"`
	StopLoss   decimal.Decimal `gorm:"type:decimal(20,8)"`
	TakeProfit decimal.Decimal `gorm:"type:decimal(20,8)"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,8)"`
	Leverage   decimal.Decimal `gorm:"type:decimal(10,2)"`
	CreatedAt  time.Time
}

// New opens the journal. A postgres:// DSN selects PostgreSQL, anything else
// is treated as a SQLite file path.
func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Journal connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Journal initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Cycle{}, &OrderLeg{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// SaveCycle inserts a new cycle row and fills in its ID.
func (d *Database) SaveCycle(cycle *Cycle) error {
	return d.db.Create(cycle).Error
}

// SaveOrderLeg inserts one leg row.
func (d *Database) SaveOrderLeg(leg *OrderLeg) error {
	return d.db.Create(leg).Error
}

// ResolveCycle records the race outcome for a cycle.
func (d *Database) ResolveCycle(cycleID uint, outcome string) error {
	return d.db.Model(&Cycle{}).Where("id = ?", cycleID).Update("outcome", outcome).Error
}

// RecentCycles returns the latest cycles, newest first.
func (d *Database) RecentCycles(limit int) ([]Cycle, error) {
	var cycles []Cycle
	err := d.db.Order("created_at DESC").Limit(limit).Find(&cycles).Error
	return cycles, err
}
