package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evergreen/internal/decision"
	"evergreen/internal/store"
	"evergreen/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	db *gorm.DB
}

// NewSqliteStore opens path through the pure-Go sqlite driver and migrates it.
func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", Conn: sqlDB}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return newSqliteStore(db)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	return newSqliteStore(db)
}

func newSqliteStore(db *gorm.DB) (*SqliteStore, error) {
	if err := db.AutoMigrate(&model.DecisionModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Save(ctx context.Context, rec store.DecisionRecord) error {
	m, err := toModel(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("sqlite: insert decision %s: %w", rec.DecisionID, err)
	}
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, id string) (store.DecisionRecord, error) {
	var m model.DecisionModel
	err := s.db.WithContext(ctx).Where("decision_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.DecisionRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.DecisionRecord{}, fmt.Errorf("sqlite: get decision %s: %w", id, err)
	}
	return fromModel(m)
}

func (s *SqliteStore) ListRecent(ctx context.Context, limit int) ([]store.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.DecisionModel
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite: list decisions: %w", err)
	}
	out := make([]store.DecisionRecord, 0, len(rows))
	for _, m := range rows {
		rec, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(rec store.DecisionRecord) (model.DecisionModel, error) {
	agents, err := json.Marshal(rec.AgentDecisions)
	if err != nil {
		return model.DecisionModel{}, fmt.Errorf("sqlite: marshal agent decisions: %w", err)
	}
	logs, err := json.Marshal(rec.ConversationLogs)
	if err != nil {
		return model.DecisionModel{}, fmt.Errorf("sqlite: marshal conversation logs: %w", err)
	}
	var selection datatypes.JSON
	if rec.MarketSelection != nil {
		raw, err := json.Marshal(rec.MarketSelection)
		if err != nil {
			return model.DecisionModel{}, fmt.Errorf("sqlite: marshal market selection: %w", err)
		}
		selection = datatypes.JSON(raw)
	}
	return model.DecisionModel{
		DecisionID:          rec.DecisionID,
		Timestamp:           rec.Timestamp.UTC(),
		MarketSymbol:        rec.MarketSymbol,
		MarketQuestion:      rec.MarketQuestion,
		MarketPrice:         rec.MarketPrice,
		MarketVolume24h:     rec.MarketVolume24h,
		MarketCap:           rec.MarketCap,
		ConsensusDirection:  string(rec.ConsensusDirection),
		ConsensusSize:       rec.ConsensusSize,
		ConsensusReasoning:  rec.ConsensusReasoning,
		ConsensusConfidence: rec.ConsensusConfidence,
		AgentDecisions:      datatypes.JSON(agents),
		ConversationLogs:    datatypes.JSON(logs),
		MarketSelection:     selection,
		RawJSON:             rec.RawJSON,
		CreatedAtUnix:       time.Now().Unix(),
	}, nil
}

func fromModel(m model.DecisionModel) (store.DecisionRecord, error) {
	rec := store.DecisionRecord{
		DecisionID:          m.DecisionID,
		Timestamp:           m.Timestamp.UTC(),
		MarketSymbol:        m.MarketSymbol,
		MarketQuestion:      m.MarketQuestion,
		MarketPrice:         m.MarketPrice,
		MarketVolume24h:     m.MarketVolume24h,
		MarketCap:           m.MarketCap,
		ConsensusDirection:  decision.Direction(m.ConsensusDirection),
		ConsensusSize:       m.ConsensusSize,
		ConsensusReasoning:  m.ConsensusReasoning,
		ConsensusConfidence: m.ConsensusConfidence,
		RawJSON:             m.RawJSON,
	}
	if len(m.AgentDecisions) > 0 {
		if err := json.Unmarshal(m.AgentDecisions, &rec.AgentDecisions); err != nil {
			return rec, fmt.Errorf("sqlite: decode agent decisions: %w", err)
		}
	}
	if len(m.ConversationLogs) > 0 {
		if err := json.Unmarshal(m.ConversationLogs, &rec.ConversationLogs); err != nil {
			return rec, fmt.Errorf("sqlite: decode conversation logs: %w", err)
		}
	}
	if len(m.MarketSelection) > 0 && string(m.MarketSelection) != "null" {
		var sel store.MarketSelection
		if err := json.Unmarshal(m.MarketSelection, &sel); err != nil {
			return rec, fmt.Errorf("sqlite: decode market selection: %w", err)
		}
		rec.MarketSelection = &sel
	}
	return rec, nil
}
