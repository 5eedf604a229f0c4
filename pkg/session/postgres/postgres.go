// Package postgres provides a PostgreSQL implementation of session.Store.
// It uses pgx/v5 for connection pooling so history survives restarts and
// can be shared across replicas.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhuber/dozent/pkg/session"
)

// Store is a PostgreSQL-backed session store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements session.Store at compile time.
var _ session.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// AppendExchange records one completed exchange.
func (s *Store) AppendExchange(ctx context.Context, sessionID string, ex session.Exchange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_exchanges (session_id, user_message, assistant_message, created_at)
		VALUES ($1, $2, $3, $4)
	`, sessionID, ex.UserMessage, ex.AssistantMessage, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}
	return nil
}

// RecentExchanges returns up to limit exchanges for the session, oldest
// first.
func (s *Store) RecentExchanges(ctx context.Context, sessionID string, limit int) ([]session.Exchange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_message, assistant_message, created_at
		FROM session_exchanges
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []session.Exchange
	for rows.Next() {
		var ex session.Exchange
		if err := rows.Scan(&ex.UserMessage, &ex.AssistantMessage, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading exchanges: %w", err)
	}

	// The query returns newest first; flip to chronological order.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// DeleteSession removes all exchanges of the session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM session_exchanges WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
