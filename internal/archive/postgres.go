package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists session history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lfg_history (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			game TEXT NOT NULL,
			host_id TEXT NOT NULL,
			participants TEXT[] NOT NULL,
			capacity INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expired_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lfg_history_expired ON lfg_history (expired_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveExpired(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ExpiredAt.IsZero() {
		record.ExpiredAt = time.Now().UTC()
	}
	if record.Participants == nil {
		record.Participants = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO lfg_history (id, session_id, channel_id, game, host_id, participants, capacity, created_at, expired_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID,
		record.SessionID,
		record.ChannelID,
		record.Game,
		record.HostID,
		record.Participants,
		record.Capacity,
		record.CreatedAt,
		record.ExpiredAt,
	)
	if err != nil {
		return fmt.Errorf("save expired session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, channel_id, game, host_id, participants, capacity, created_at, expired_at
		 FROM lfg_history ORDER BY expired_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ChannelID, &r.Game, &r.HostID, &r.Participants, &r.Capacity, &r.CreatedAt, &r.ExpiredAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
