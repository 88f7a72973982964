package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T, logger *zap.Logger) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	store, err := New(context.Background(), mockPool, logger)
	require.NoError(t, err)
	return store, mockPool
}

func sampleRun() *orchestrator.Result {
	return &orchestrator.Result{
		RunID:  uuid.NewString(),
		Module: "sale_custom",
		Commit: schemas.CommitInfo{Hash: "abc123", Message: "init"},
		Entities: []schemas.EntityDescription{
			{EntityName: "sale.order"},
			{EntityName: "sale.order.line"},
		},
		Scenarios: map[string][]schemas.TestScenario{
			"sale.order": {
				{ScenarioID: "TC001", Name: "Create", Category: schemas.CategoryCRUD, ScriptBody: "*** Test Cases ***\n"},
				{ScenarioID: "TC002", Name: "Confirm", Category: schemas.CategoryWorkflow, ScriptBody: "*** Test Cases ***\n",
					Steps: []schemas.TestStep{{Name: "Confirm", Action: "Click Confirm", Expected: "State is sale"}}},
			},
			"sale.order.line": {
				{ScenarioID: "TC001", Name: "Create Line", Category: schemas.CategoryCRUD, ScriptBody: "*** Test Cases ***\n"},
			},
		},
		UsedFallback: map[string]bool{"sale.order.line": true},
	}
}

func expectSummaries(mockPool pgxmock.PgxPoolIface, run *orchestrator.Result) {
	mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteSummaries)).
		WithArgs(run.Module).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	batchExp := mockPool.ExpectBatch()
	for _, e := range run.Entities {
		batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertSummary)).
			WithArgs(run.Module, e.EntityName, run.RunID, run.Commit.Hash, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
}

// -- Test Cases --

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	store, mockPool := newMockStore(t, zap.NewNop())

	mockPool.ExpectExec(flexibleSQLMatcher(schemaSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should copy scenarios and replace summaries in one transaction", func(t *testing.T) {
		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		store, mockPool := newMockStore(t, zap.New(observedZapCore))
		run := sampleRun()

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"test_scenarios"}, scenarioColumns).
			WillReturnResult(3)
		expectSummaries(mockPool, run)
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveRun(ctx, run))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("should skip the copy when there are no scenarios", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()
		run.Scenarios = map[string][]schemas.TestScenario{}

		mockPool.ExpectBegin()
		expectSummaries(mockPool, run)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveRun(ctx, run))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())

		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err := store.SaveRun(ctx, sampleRun())
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if copying scenarios fails", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())

		copyErr := errors.New("copy from failed")
		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"test_scenarios"}, scenarioColumns).
			WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, sampleRun())
		require.Error(t, err)
		assert.ErrorIs(t, err, copyErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject a short copy", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"test_scenarios"}, scenarioColumns).
			WillReturnResult(2)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, sampleRun())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 3, got 2")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if the summary delete fails", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()

		deleteErr := errors.New("permission denied")
		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"test_scenarios"}, scenarioColumns).
			WillReturnResult(3)
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteSummaries)).
			WithArgs(run.Module).
			WillReturnError(deleteErr)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, run)
		require.Error(t, err)
		assert.ErrorIs(t, err, deleteErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if a summary insert fails", func(t *testing.T) {
		store, mockPool := newMockStore(t, zap.NewNop())
		run := sampleRun()
		run.Entities = run.Entities[:1]
		run.Scenarios = nil

		batchErr := errors.New("batch execution failed")
		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteSummaries)).
			WithArgs(run.Module).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		batchExp := mockPool.ExpectBatch()
		batchExp.ExpectExec(flexibleSQLMatcher(sqlInsertSummary)).
			WithArgs(run.Module, "sale.order", run.RunID, run.Commit.Hash, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(batchErr)
		mockPool.ExpectRollback()

		err := store.SaveRun(ctx, run)
		require.Error(t, err)
		assert.ErrorIs(t, err, batchErr)
		assert.Contains(t, err.Error(), "sale.order")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMarshalSteps(t *testing.T) {
	b, err := marshalSteps(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	b, err = marshalSteps([]schemas.TestStep{{Name: "a", Action: "b", Expected: "c"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a","action":"b","expected":"c"}]`, string(b))
}
