package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
)

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	timeArg:     func(t time.Time) any { return t },
	contains:    "strpos(lower(text), lower(%s)) > 0",
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS messages (
	message_id  TEXT PRIMARY KEY,
	sender      TEXT NOT NULL,
	recipient   TEXT,
	ts          TIMESTAMPTZ NOT NULL,
	text        TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages (ts, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and makes sure the messages table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, unavailable("connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("ping", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, unavailable("schema", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// InsertIfAbsent inserts msg, leaving any existing row with the same id untouched.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, msg *models.Message) (InsertOutcome, error) {
	defer observe("insert", time.Now())

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	var recipient *string
	if msg.To != "" {
		recipient = &msg.To
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (message_id, sender, recipient, ts, text, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`, msg.MessageID, msg.From, recipient, msg.Timestamp.UTC(), msg.Text, msg.ReceivedAt.UTC())
	if err != nil {
		return 0, unavailable("insert", err)
	}

	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// Query lists messages matching filter inside one read-only snapshot.
func (s *PostgresStore) Query(ctx context.Context, filter models.MessageFilter, limit, offset int) ([]models.Message, int, error) {
	defer observe("query", time.Now())

	limit, offset = max(limit, 0), max(offset, 0)
	where, args := whereClause(filter, postgresDialect)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, unavailable("query", err)
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM messages `+where, args...).Scan(&total); err != nil {
		return nil, 0, unavailable("count", err)
	}

	messages := []models.Message{}
	if limit > 0 && offset < total {
		n := len(args)
		rows, err := tx.Query(ctx, fmt.Sprintf(`
			SELECT message_id, sender, recipient, ts, text, received_at
			FROM messages
			%s
			ORDER BY ts ASC, message_id COLLATE "C" ASC
			LIMIT $%d OFFSET $%d
		`, where, n+1, n+2), append(args, limit, offset)...)
		if err != nil {
			return nil, 0, unavailable("query", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				msg       models.Message
				recipient *string
			)
			if err := rows.Scan(&msg.MessageID, &msg.From, &recipient, &msg.Timestamp, &msg.Text, &msg.ReceivedAt); err != nil {
				return nil, 0, unavailable("scan", err)
			}
			if recipient != nil {
				msg.To = *recipient
			}
			msg.Timestamp = msg.Timestamp.UTC()
			msg.ReceivedAt = msg.ReceivedAt.UTC()
			messages = append(messages, msg)
		}
		if err := rows.Err(); err != nil {
			return nil, 0, unavailable("query", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, unavailable("query", err)
	}
	return messages, total, nil
}

// Aggregate returns counts, the top senders and the ts range.
func (s *PostgresStore) Aggregate(ctx context.Context) (*models.Stats, error) {
	defer observe("aggregate", time.Now())

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, unavailable("aggregate", err)
	}
	defer tx.Rollback(ctx)

	stats := &models.Stats{MessagesPerSender: []models.SenderCount{}}
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT sender), MIN(ts), MAX(ts) FROM messages
	`).Scan(&stats.TotalMessages, &stats.SendersCount, &stats.FirstMessageTS, &stats.LastMessageTS)
	if err != nil {
		return nil, unavailable("aggregate", err)
	}
	for _, t := range []*time.Time{stats.FirstMessageTS, stats.LastMessageTS} {
		if t != nil {
			*t = t.UTC()
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT sender, COUNT(*) AS n
		FROM messages
		GROUP BY sender
		ORDER BY n DESC, sender COLLATE "C" ASC
		LIMIT $1
	`, TopSendersLimit)
	if err != nil {
		return nil, unavailable("aggregate", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc models.SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return nil, unavailable("aggregate", err)
		}
		stats.MessagesPerSender = append(stats.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("aggregate", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("aggregate", err)
	}
	return stats, nil
}
