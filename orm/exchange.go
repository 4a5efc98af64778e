package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/va6996/tokenagent/chat"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ExchangeRecord is one answered text item
type ExchangeRecord struct {
	ID         uint      `gorm:"primaryKey"`
	MsgID      string    `gorm:"index"`
	Sender     string    `gorm:"index"`
	Query      string    `gorm:"type:text"`
	Reply      string    `gorm:"type:text"`
	ReceivedAt time.Time
	RepliedAt  time.Time `gorm:"index"`
}

func ExchangeRecordFromChat(ex chat.Exchange) *ExchangeRecord {
	return &ExchangeRecord{
		MsgID:      ex.MsgID,
		Sender:     ex.Sender,
		Query:      ex.Query,
		Reply:      ex.Reply,
		ReceivedAt: ex.ReceivedAt,
		RepliedAt:  ex.RepliedAt,
	}
}

func (r *ExchangeRecord) ToChat() chat.Exchange {
	return chat.Exchange{
		MsgID:      r.MsgID,
		Sender:     r.Sender,
		Query:      r.Query,
		Reply:      r.Reply,
		ReceivedAt: r.ReceivedAt,
		RepliedAt:  r.RepliedAt,
	}
}

// Open connects with driver "sqlite" or "postgres" and migrates the schema
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "exchanges.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres requires a dsn")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.AutoMigrate(&ExchangeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

// ExchangeStore persists exchanges
type ExchangeStore struct {
	db *gorm.DB
}

var _ chat.Recorder = (*ExchangeStore)(nil)

func NewExchangeStore(db *gorm.DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

func (s *ExchangeStore) Record(ctx context.Context, ex chat.Exchange) error {
	return s.db.WithContext(ctx).Create(ExchangeRecordFromChat(ex)).Error
}

// ListExchanges returns the latest exchanges, newest first. An empty sender
// lists every sender; limit <= 0 means no limit.
func ListExchanges(db *gorm.DB, sender string, limit int) ([]ExchangeRecord, error) {
	q := db.Order("replied_at desc").Order("id desc")
	if sender != "" {
		q = q.Where("sender = ?", sender)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []ExchangeRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
