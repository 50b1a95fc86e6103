package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and
// applies pending migrations. Use ":memory:" for a private database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; an in-memory database is private to its connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec core.MemoryRecord) error {
	intent, err := encodeJSON(rec.FinalIntent)
	if err != nil {
		return fmt.Errorf("failed to encode intent: %w", err)
	}
	plan, err := encodeJSON(rec.FinalPlan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_records (id, original_query, final_intent, final_plan, final_sql, succeeded, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalQuery, intent, plan, rec.FinalSQL, rec.Succeeded, rec.LatencyMs,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
		return fmt.Errorf("failed to append memory record: %w", err)
	}
	return nil
}

// timeLayout has fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectRecords = `SELECT id, original_query, final_intent, final_plan, final_sql, succeeded, latency_ms, created_at
FROM memory_records`

// FindSimilar implements Store.
func (s *SQLiteStore) FindSimilar(ctx context.Context, utterance string, limit int) ([]core.MemoryRecord, error) {
	records, err := s.query(ctx, selectRecords+` WHERE succeeded = 1`)
	if err != nil {
		return nil, err
	}
	return rank(records, utterance, limit), nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]core.MemoryRecord, error) {
	q := selectRecords + ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(ctx, q)
}

func (s *SQLiteStore) query(ctx context.Context, q string) ([]core.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory records: %w", err)
	}
	defer rows.Close()

	var out []core.MemoryRecord
	for rows.Next() {
		var (
			rec          core.MemoryRecord
			intent, plan sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&rec.ID, &rec.OriginalQuery, &intent, &plan, &rec.FinalSQL, &rec.Succeeded, &rec.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory record: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for record %s: %w", rec.ID, err)
		}
		if intent.Valid {
			rec.FinalIntent = new(core.Intent)
			if err := json.Unmarshal([]byte(intent.String), rec.FinalIntent); err != nil {
				return nil, fmt.Errorf("invalid intent for record %s: %w", rec.ID, err)
			}
		}
		if plan.Valid {
			rec.FinalPlan = new(core.QueryPlan)
			if err := json.Unmarshal([]byte(plan.String), rec.FinalPlan); err != nil {
				return nil, fmt.Errorf("invalid plan for record %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func encodeJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
