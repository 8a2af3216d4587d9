package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
)

// tsLayout is fixed-width UTC so lexical order equals chronological order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteDriver is go-sqlite3 with a Unicode-aware unicode_lower(); the
// built-in lower() only folds ASCII.
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	timeArg:     func(t time.Time) any { return t.Format(tsLayout) },
	contains:    "instr(unicode_lower(text), unicode_lower(%s)) > 0",
}

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/app.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/app.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, unavailable("mkdir", err)
	}

	db, err := sql.Open(sqliteDriver, dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, unavailable("open", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("ping", err)
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, unavailable("schema", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id  TEXT PRIMARY KEY,
		sender      TEXT NOT NULL,
		recipient   TEXT,
		ts          TEXT NOT NULL,
		text        TEXT NOT NULL,
		received_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts, message_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks that the database file is open and the messages table readable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM messages LIMIT 1`).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return unavailable("ping", err)
	}
	return nil
}

// InsertIfAbsent inserts msg, leaving any existing row with the same id untouched.
func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, msg *models.Message) (InsertOutcome, error) {
	defer observe("insert", time.Now())

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, sender, recipient, ts, text, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`,
		msg.MessageID,
		msg.From,
		sql.NullString{String: msg.To, Valid: msg.To != ""},
		msg.Timestamp.UTC().Format(tsLayout),
		msg.Text,
		msg.ReceivedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return 0, unavailable("insert", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("insert", err)
	}
	if n == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// Query lists messages matching filter. Count and page are read in one
// transaction so total is consistent with the page.
func (s *SQLiteStore) Query(ctx context.Context, filter models.MessageFilter, limit, offset int) ([]models.Message, int, error) {
	defer observe("query", time.Now())

	limit, offset = max(limit, 0), max(offset, 0)
	where, args := whereClause(filter, sqliteDialect)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, unavailable("query", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages `+where, args...).Scan(&total); err != nil {
		return nil, 0, unavailable("count", err)
	}

	messages := []models.Message{}
	if limit > 0 && offset < total {
		rows, err := tx.QueryContext(ctx, `
			SELECT message_id, sender, recipient, ts, text, received_at
			FROM messages
			`+where+`
			ORDER BY ts ASC, message_id ASC
			LIMIT ? OFFSET ?
		`, append(args, limit, offset)...)
		if err != nil {
			return nil, 0, unavailable("query", err)
		}
		defer rows.Close()

		for rows.Next() {
			msg, err := scanSQLiteMessage(rows)
			if err != nil {
				return nil, 0, unavailable("scan", err)
			}
			messages = append(messages, msg)
		}
		if err := rows.Err(); err != nil {
			return nil, 0, unavailable("query", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, unavailable("query", err)
	}
	return messages, total, nil
}

// Aggregate returns counts, the top senders and the ts range.
func (s *SQLiteStore) Aggregate(ctx context.Context) (*models.Stats, error) {
	defer observe("aggregate", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("aggregate", err)
	}
	defer tx.Rollback()

	stats := &models.Stats{MessagesPerSender: []models.SenderCount{}}
	var first, last sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT sender), MIN(ts), MAX(ts) FROM messages
	`).Scan(&stats.TotalMessages, &stats.SendersCount, &first, &last)
	if err != nil {
		return nil, unavailable("aggregate", err)
	}

	if stats.FirstMessageTS, err = parseNullTS(first); err != nil {
		return nil, unavailable("aggregate", err)
	}
	if stats.LastMessageTS, err = parseNullTS(last); err != nil {
		return nil, unavailable("aggregate", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT sender, COUNT(*) AS n
		FROM messages
		GROUP BY sender
		ORDER BY n DESC, sender ASC
		LIMIT ?
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

	if err := tx.Commit(); err != nil {
		return nil, unavailable("aggregate", err)
	}
	return stats, nil
}

func scanSQLiteMessage(rows *sql.Rows) (models.Message, error) {
	var (
		msg            models.Message
		recipient      sql.NullString
		ts, receivedAt string
	)
	if err := rows.Scan(&msg.MessageID, &msg.From, &recipient, &ts, &msg.Text, &receivedAt); err != nil {
		return msg, err
	}

	var err error
	if msg.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
		return msg, err
	}
	if msg.ReceivedAt, err = time.Parse(tsLayout, receivedAt); err != nil {
		return msg, err
	}
	msg.To = recipient.String
	return msg, nil
}

func parseNullTS(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(tsLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
