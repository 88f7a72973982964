package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var scenarioColumns = []string{
	"id", "run_id", "module", "entity", "test_id", "name", "description",
	"category", "tags", "priority", "steps", "script_body", "used_fallback", "created_at",
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS test_scenarios (
    id            UUID PRIMARY KEY,
    run_id        UUID NOT NULL,
    module        TEXT NOT NULL,
    entity        TEXT NOT NULL,
    test_id       TEXT NOT NULL,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    tags          TEXT NOT NULL DEFAULT '',
    priority      TEXT NOT NULL DEFAULT '',
    steps         JSONB NOT NULL DEFAULT '[]',
    script_body   TEXT NOT NULL,
    used_fallback BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS test_scenarios_run_idx ON test_scenarios (run_id);
CREATE TABLE IF NOT EXISTS entity_summaries (
    module       TEXT NOT NULL,
    entity_name  TEXT NOT NULL,
    run_id       UUID NOT NULL,
    commit_hash  TEXT NOT NULL DEFAULT '',
    description  JSONB NOT NULL,
    analyzed_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (module, entity_name)
);
`

const (
	sqlDeleteSummaries = `DELETE FROM entity_summaries WHERE module = $1;`
	sqlInsertSummary   = `
        INSERT INTO entity_summaries (module, entity_name, run_id, commit_hash, description, analyzed_at)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
)

// Store is the PostgreSQL sink for generation runs.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables SaveRun writes to when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun appends the run's scenarios and replaces the module's entity
// summaries in a single transaction.
func (s *Store) SaveRun(ctx context.Context, run *orchestrator.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()
	count, err := s.persistScenarios(ctx, tx, run, now)
	if err != nil {
		return err
	}
	if err := s.replaceSummaries(ctx, tx, run, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Persisted generation run",
		zap.String("run_id", run.RunID),
		zap.Int("scenarios", count),
		zap.Int("entities", len(run.Entities)),
	)
	return nil
}

func (s *Store) persistScenarios(ctx context.Context, tx pgx.Tx, run *orchestrator.Result, now time.Time) (int, error) {
	var rows [][]any
	for _, name := range run.Groups() {
		for _, sc := range run.Scenarios[name] {
			steps, err := marshalSteps(sc.Steps)
			if err != nil {
				return 0, fmt.Errorf("failed to encode steps of %s/%s: %w", name, sc.ScenarioID, err)
			}
			rows = append(rows, []any{
				uuid.New(), run.RunID, run.Module, name, sc.ScenarioID, sc.Name, sc.Description,
				string(sc.Category), sc.Tags, sc.Priority, steps, sc.ScriptBody, run.UsedFallback[name], now,
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"test_scenarios"}, scenarioColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy scenarios: %w", err)
	}
	if int(copyCount) != len(rows) {
		return 0, fmt.Errorf("mismatch in copied scenarios count: expected %d, got %d", len(rows), copyCount)
	}
	return len(rows), nil
}

func (s *Store) replaceSummaries(ctx context.Context, tx pgx.Tx, run *orchestrator.Result, now time.Time) error {
	if _, err := tx.Exec(ctx, sqlDeleteSummaries, run.Module); err != nil {
		return fmt.Errorf("failed to clear entity summaries: %w", err)
	}
	if len(run.Entities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entity := range run.Entities {
		description, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to encode entity %s: %w", entity.EntityName, err)
		}
		batch.Queue(sqlInsertSummary, run.Module, entity.EntityName, run.RunID, run.Commit.Hash, description, now)
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		_ = br.Close()
	}()

	for i := range run.Entities {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert summary for entity %s: %w", run.Entities[i].EntityName, err)
		}
	}
	return nil
}

func marshalSteps(steps []schemas.TestStep) ([]byte, error) {
	if steps == nil {
		steps = []schemas.TestStep{}
	}
	return json.Marshal(steps)
}
