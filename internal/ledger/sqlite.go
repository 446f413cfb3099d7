package ledger

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/soen-app/praxis/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id          TEXT NOT NULL,
	ts          INTEGER NOT NULL,
	user_id     TEXT NOT NULL,
	feature     TEXT NOT NULL,
	provider    TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	tokens_in   INTEGER NOT NULL DEFAULT 0,
	tokens_out  INTEGER NOT NULL DEFAULT 0,
	cost_usd    REAL NOT NULL DEFAULT 0,
	latency_ms  INTEGER NOT NULL DEFAULT 0,
	cache_hit   INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_usage_user_ts ON usage_records(user_id, ts);
CREATE INDEX IF NOT EXISTS idx_usage_provider_ts ON usage_records(provider, ts);

CREATE TABLE IF NOT EXISTS usage_attempts (
	request_id  TEXT NOT NULL,
	ts          INTEGER NOT NULL,
	provider    TEXT NOT NULL,
	model       TEXT NOT NULL,
	ok          INTEGER NOT NULL,
	failure     TEXT NOT NULL DEFAULT '',
	latency_ms  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS daily_rollups (
	user_id     TEXT NOT NULL,
	day         TEXT NOT NULL,
	requests    INTEGER NOT NULL DEFAULT 0,
	tokens      INTEGER NOT NULL DEFAULT 0,
	cost_usd    REAL NOT NULL DEFAULT 0,
	cache_hits  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, day)
);
`

// SQLite is the durable ledger. Writes go through a buffered channel and a
// single writer goroutine so a slow disk never blocks a response; write
// failures are logged and dropped, per the best-effort accounting contract.
// The fold over usage_records remains the aggregate of record: daily_rollups
// is maintained in the same transaction purely to keep dashboard reads cheap.
type SQLite struct {
	db      *sql.DB
	writes  chan any
	done    chan struct{}
	log     *logger.Logger
	now     func() time.Time
}

// NewSQLite opens (creating if needed) the ledger database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize ledger schema")
	}

	s := &SQLite{
		db:     db,
		writes: make(chan any, 256),
		done:   make(chan struct{}),
		log:    logger.NewComponentLogger("ledger"),
		now:    time.Now,
	}
	go s.writer()
	return s, nil
}

// Record implements Ledger. The send is non-blocking: under sustained write
// pressure records are dropped and counted in the log rather than stalling
// the caller's response.
func (s *SQLite) Record(ctx context.Context, rec Record) {
	if rec.Time.IsZero() {
		rec.Time = s.now()
	}
	select {
	case s.writes <- rec:
	default:
		s.log.Error("ledger write buffer full, dropping record", "request", rec.ID)
	}
}

// RecordAttempt implements Ledger.
func (s *SQLite) RecordAttempt(ctx context.Context, att Attempt) {
	if att.Time.IsZero() {
		att.Time = s.now()
	}
	select {
	case s.writes <- att:
	default:
		s.log.Error("ledger write buffer full, dropping attempt", "request", att.RequestID)
	}
}

func (s *SQLite) writer() {
	defer close(s.done)
	for item := range s.writes {
		var err error
		switch v := item.(type) {
		case Record:
			err = s.insertRecord(v)
		case Attempt:
			err = s.insertAttempt(v)
		case flushMarker:
			close(v.ack)
		}
		if err != nil {
			s.log.Error("ledger write failed", "error", err)
		}
	}
}

func (s *SQLite) insertRecord(rec Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO usage_records
		(id, ts, user_id, feature, provider, model, tokens_in, tokens_out, cost_usd, latency_ms, cache_hit, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Time.UTC().Unix(), rec.UserID, string(rec.Feature), rec.Provider, rec.Model,
		rec.TokensIn, rec.TokensOut, rec.CostUSD, rec.Latency.Milliseconds(),
		boolToInt(rec.CacheHit), boolToInt(rec.Success))
	if err != nil {
		return err
	}

	day := rec.Time.UTC().Format("2006-01-02")
	_, err = tx.Exec(`INSERT INTO daily_rollups (user_id, day, requests, tokens, cost_usd, cache_hits)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			requests = requests + 1,
			tokens = tokens + excluded.tokens,
			cost_usd = cost_usd + excluded.cost_usd,
			cache_hits = cache_hits + excluded.cache_hits`,
		rec.UserID, day, rec.TokensIn+rec.TokensOut, rec.CostUSD, boolToInt(rec.CacheHit))
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLite) insertAttempt(att Attempt) error {
	_, err := s.db.Exec(`INSERT INTO usage_attempts
		(request_id, ts, provider, model, ok, failure, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		att.RequestID, att.Time.UTC().Unix(), att.Provider, att.Model,
		boolToInt(att.OK), att.Failure, att.Latency.Milliseconds())
	return err
}

// Aggregate implements Ledger by folding over usage_records.
func (s *SQLite) Aggregate(ctx context.Context, userID string, window Window) (Aggregate, error) {
	start := window.Start(s.now()).Unix()

	row := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(tokens_in + tokens_out), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(cache_hit), 0)
		FROM usage_records WHERE user_id = ? AND ts >= ?`, userID, start)

	var agg Aggregate
	if err := row.Scan(&agg.Requests, &agg.Tokens, &agg.CostUSD, &agg.CacheHits); err != nil {
		return Aggregate{}, errors.Wrap(err, "failed to fold usage records")
	}
	agg.finish()
	return agg, nil
}

// ProviderSpend implements Ledger.
func (s *SQLite) ProviderSpend(ctx context.Context, providerName string, window Window) (float64, error) {
	start := window.Start(s.now()).Unix()

	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM usage_records WHERE provider = ? AND ts >= ?`,
		providerName, start)

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, errors.Wrap(err, "failed to fold provider spend")
	}
	return total, nil
}

// RollupAggregate reads the incrementally maintained daily rollups for the
// window. Used by the nightly verification job; quota checks fold the raw
// records instead.
func (s *SQLite) RollupAggregate(ctx context.Context, userID string, window Window) (Aggregate, error) {
	startDay := window.Start(s.now()).Format("2006-01-02")

	row := s.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(requests), 0),
			COALESCE(SUM(tokens), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(cache_hits), 0)
		FROM daily_rollups WHERE user_id = ? AND day >= ?`, userID, startDay)

	var agg Aggregate
	if err := row.Scan(&agg.Requests, &agg.Tokens, &agg.CostUSD, &agg.CacheHits); err != nil {
		return Aggregate{}, errors.Wrap(err, "failed to read rollups")
	}
	agg.finish()
	return agg, nil
}

// VerifyRollups compares each user's rollup totals for the current month
// against the fold over raw records and logs any divergence. Scheduled
// nightly by the maintenance scheduler.
func (s *SQLite) VerifyRollups(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM daily_rollups WHERE day >= ?`,
		WindowMonth.Start(s.now()).Format("2006-01-02"))
	if err != nil {
		return errors.Wrap(err, "failed to list rollup users")
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, user := range users {
		folded, err := s.Aggregate(ctx, user, WindowMonth)
		if err != nil {
			return err
		}
		rolled, err := s.RollupAggregate(ctx, user, WindowMonth)
		if err != nil {
			return err
		}
		if folded.Requests != rolled.Requests || folded.Tokens != rolled.Tokens ||
			folded.CacheHits != rolled.CacheHits || !closeEnough(folded.CostUSD, rolled.CostUSD) {
			s.log.Error("rollup divergence detected",
				"user", user,
				"folded_requests", folded.Requests, "rollup_requests", rolled.Requests,
				"folded_cost", folded.CostUSD, "rollup_cost", rolled.CostUSD)
		}
	}
	return nil
}

// Flush blocks until all buffered writes so far have been applied.
func (s *SQLite) Flush() {
	ack := make(chan struct{})
	s.writes <- flushMarker{ack: ack}
	<-ack
}

type flushMarker struct{ ack chan struct{} }

// Close drains buffered writes and closes the database.
func (s *SQLite) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

var _ Ledger = (*SQLite)(nil)
