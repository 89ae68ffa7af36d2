package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Call is one dispatched function call.
type Call struct {
	ID            uuid.UUID       `json:"id"`
	FunctionName  string          `json:"functionName"`
	Arguments     string          `json:"arguments"`
	ErrorResponse string          `json:"errorResponse"`
	Result        json.RawMessage `json:"functionResult,omitempty"`
	Duration      time.Duration   `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// DurationMS is the call duration in whole milliseconds.
func (c Call) DurationMS() int64 {
	return c.Duration.Milliseconds()
}

func (c Call) MarshalJSON() ([]byte, error) {
	type alias Call
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"durationMs"`
	}{alias(c), c.DurationMS()})
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgLog appends function calls to the function_calls table.
type PgLog struct {
	pool querier
}

func NewPgLog(pool *pgxpool.Pool) *PgLog {
	if pool == nil {
		panic("audit: pgx pool required")
	}
	return &PgLog{pool: pool}
}

func newPgLogWithQuerier(q querier) *PgLog {
	if q == nil {
		panic("audit: querier required")
	}
	return &PgLog{pool: q}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS function_calls (
		id             UUID PRIMARY KEY,
		function_name  TEXT NOT NULL,
		arguments      TEXT NOT NULL,
		error_response TEXT NOT NULL DEFAULT '',
		result         JSONB,
		duration_ms    BIGINT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS function_calls_created_at_idx ON function_calls (created_at DESC);
`

// EnsureSchema creates the function_calls table when missing.
func (l *PgLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure function_calls schema: %w", err)
	}
	return nil
}

// Record inserts call. A zero ID is replaced by a new one.
func (l *PgLog) Record(ctx context.Context, call Call) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO function_calls (id, function_name, arguments, error_response, result, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`, call.ID, call.FunctionName, call.Arguments, call.ErrorResponse, nullableJSON(call.Result), call.DurationMS(), nullableTime(call.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert function call: %w", err)
	}

	return nil
}

// Recent returns up to limit calls, newest first.
func (l *PgLog) Recent(ctx context.Context, limit int) ([]Call, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, function_name, arguments, error_response, result, duration_ms, created_at
		FROM function_calls
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query function calls: %w", err)
	}
	defer rows.Close()

	var result []Call
	for rows.Next() {
		var (
			c          Call
			raw        []byte
			durationMS int64
		)
		if err := rows.Scan(&c.ID, &c.FunctionName, &c.Arguments, &c.ErrorResponse, &raw, &durationMS, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan function call: %w", err)
		}
		if len(raw) > 0 {
			c.Result = json.RawMessage(raw)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate function calls: %w", err)
	}

	return result, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
