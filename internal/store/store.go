package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/metrics"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
)

// TopSendersLimit is the size of the top-senders ranking returned by Aggregate.
const TopSendersLimit = 10

// ErrUnavailable wraps every storage-layer failure so callers can map it to 503.
var ErrUnavailable = errors.New("message store unavailable")

// InsertOutcome tells whether InsertIfAbsent created a row.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota + 1
	Duplicate
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// MessageStore is the durable, append-only message table.
// Both SQLiteStore and PostgresStore implement this interface.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// InsertIfAbsent stores msg unless a row with the same MessageID exists.
	// The existence check and the write are one atomic statement.
	InsertIfAbsent(ctx context.Context, msg *models.Message) (InsertOutcome, error)

	// Query returns one page ordered by (ts, message_id) and the total number
	// of rows matching the filter, independent of limit and offset.
	Query(ctx context.Context, filter models.MessageFilter, limit, offset int) ([]models.Message, int, error)

	// Aggregate summarizes the whole table.
	Aggregate(ctx context.Context) (*models.Stats, error)
}

// Open connects to the store for the given driver ("sqlite3" or "pgx").
func Open(ctx context.Context, driver, dsn string) (MessageStore, error) {
	switch driver {
	case "sqlite3":
		return NewSQLiteStore(ctx, dsn)
	case "pgx":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// dialect captures the few SQL differences between the two backends.
type dialect struct {
	placeholder func(n int) string
	timeArg     func(t time.Time) any
	// contains is a format string taking the placeholder for the needle.
	contains string
}

// whereClause renders the ANDed filter predicate shared by count and page queries.
func whereClause(f models.MessageFilter, d dialect) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.From != "" {
		args = append(args, f.From)
		conds = append(conds, "sender = "+d.placeholder(len(args)))
	}
	if f.Since != nil {
		args = append(args, d.timeArg(f.Since.UTC()))
		conds = append(conds, "ts >= "+d.placeholder(len(args)))
	}
	if f.Query != "" {
		args = append(args, f.Query)
		conds = append(conds, fmt.Sprintf(d.contains, d.placeholder(len(args))))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
