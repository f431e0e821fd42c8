package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"evergreen/internal/decision"
	"evergreen/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DecisionStore implements store.DecisionStore on the investment_decisions table.
type DecisionStore struct {
	client *Client
	pool   *pgxpool.Pool
}

func NewDecisionStore(client *Client) *DecisionStore {
	return &DecisionStore{client: client, pool: client.Pool()}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, cfg ClientConfig) (*DecisionStore, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := client.RunMigrations(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return NewDecisionStore(client), nil
}

const insertDecision = `INSERT INTO investment_decisions (
	decision_id, timestamp, market_symbol, market_question, market_price, market_volume24h, market_cap,
	consensus_direction, consensus_size, consensus_reasoning, consensus_confidence,
	agent_decisions, conversation_logs, market_selection, raw_json
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const selectDecision = `SELECT decision_id, timestamp, market_symbol, COALESCE(market_question, ''), market_price,
	COALESCE(market_volume24h, 0), COALESCE(market_cap, 0), consensus_direction, consensus_size,
	COALESCE(consensus_reasoning, ''), consensus_confidence, agent_decisions, conversation_logs,
	market_selection, COALESCE(raw_json, '')
FROM investment_decisions`

func (s *DecisionStore) Save(ctx context.Context, rec store.DecisionRecord) error {
	agents, err := json.Marshal(rec.AgentDecisions)
	if err != nil {
		return fmt.Errorf("postgres: marshal agent decisions: %w", err)
	}
	logs, err := json.Marshal(rec.ConversationLogs)
	if err != nil {
		return fmt.Errorf("postgres: marshal conversation logs: %w", err)
	}
	var selection []byte
	if rec.MarketSelection != nil {
		if selection, err = json.Marshal(rec.MarketSelection); err != nil {
			return fmt.Errorf("postgres: marshal market selection: %w", err)
		}
	}
	_, err = s.pool.Exec(ctx, insertDecision,
		rec.DecisionID, rec.Timestamp, rec.MarketSymbol, rec.MarketQuestion, rec.MarketPrice,
		rec.MarketVolume24h, rec.MarketCap, string(rec.ConsensusDirection), rec.ConsensusSize,
		rec.ConsensusReasoning, rec.ConsensusConfidence, agents, logs, selection, rec.RawJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", rec.DecisionID, err)
	}
	return nil
}

func (s *DecisionStore) Get(ctx context.Context, id string) (store.DecisionRecord, error) {
	row := s.pool.QueryRow(ctx, selectDecision+" WHERE decision_id = $1", id)
	rec, err := scanDecision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.DecisionRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.DecisionRecord{}, fmt.Errorf("postgres: get decision %s: %w", id, err)
	}
	return rec, nil
}

func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]store.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, selectDecision+" ORDER BY timestamp DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	var out []store.DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list decisions rows: %w", err)
	}
	return out, nil
}

func (s *DecisionStore) Close() error {
	s.client.Close()
	return nil
}

func scanDecision(row pgx.Row) (store.DecisionRecord, error) {
	var rec store.DecisionRecord
	var direction string
	var agents, logs, selection []byte
	err := row.Scan(
		&rec.DecisionID, &rec.Timestamp, &rec.MarketSymbol, &rec.MarketQuestion, &rec.MarketPrice,
		&rec.MarketVolume24h, &rec.MarketCap, &direction, &rec.ConsensusSize,
		&rec.ConsensusReasoning, &rec.ConsensusConfidence, &agents, &logs, &selection, &rec.RawJSON,
	)
	if err != nil {
		return rec, err
	}
	rec.ConsensusDirection = decision.Direction(direction)
	if err := json.Unmarshal(agents, &rec.AgentDecisions); err != nil {
		return rec, fmt.Errorf("unmarshal agent decisions: %w", err)
	}
	if err := json.Unmarshal(logs, &rec.ConversationLogs); err != nil {
		return rec, fmt.Errorf("unmarshal conversation logs: %w", err)
	}
	if len(selection) > 0 {
		var sel store.MarketSelection
		if err := json.Unmarshal(selection, &sel); err != nil {
			return rec, fmt.Errorf("unmarshal market selection: %w", err)
		}
		rec.MarketSelection = &sel
	}
	return rec, nil
}
