package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"yieldengine/models"
	"yieldengine/repository/testutil"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRepository_GetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPositionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		pos, err := repo.GetByID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, pos)
	})

	t.Run("found", func(t *testing.T) {
		id := testutil.InsertTestPosition(t, testDB.DB, "wallet-a",
			decimal.RequireFromString("1500.50"), decimal.RequireFromString("22.5"),
			models.PositionStatusActive)

		pos, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, pos)

		assert.Equal(t, id, pos.ID)
		assert.Equal(t, "wallet-a", pos.WalletRef)
		assert.True(t, pos.Capital.Equal(decimal.RequireFromString("1500.50")))
		assert.True(t, pos.Rate.Equal(decimal.RequireFromString("22.5")))
		assert.Equal(t, models.PositionStatusActive, pos.Status)
		assert.True(t, pos.TotalEarned.IsZero())
		assert.False(t, pos.CreatedAt.IsZero())
	})
}

func TestPositionRepository_GetEligible(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPositionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		positions, err := repo.GetEligible(ctx)
		require.NoError(t, err)
		assert.Empty(t, positions)
	})

	t.Run("filters and orders", func(t *testing.T) {
		active1 := testutil.InsertActivePosition(t, testDB.DB, "wallet-1", 600)
		testutil.InsertTestPosition(t, testDB.DB, "wallet-2",
			decimal.NewFromInt(400), decimal.Zero, models.PositionStatusPending)
		testutil.InsertTestPosition(t, testDB.DB, "wallet-3",
			decimal.NewFromInt(300), decimal.Zero, models.PositionStatusClosed)
		testutil.InsertTestPosition(t, testDB.DB, "wallet-4",
			decimal.Zero, decimal.Zero, models.PositionStatusActive)
		active2 := testutil.InsertActivePosition(t, testDB.DB, "wallet-5", 400)

		positions, err := repo.GetEligible(ctx)
		require.NoError(t, err)
		require.Len(t, positions, 2)

		// Only active positions with capital, ordered by ID.
		assert.Equal(t, active1, positions[0].ID)
		assert.Equal(t, active2, positions[1].ID)
	})
}

func TestPositionRepository_AddEarnings(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPositionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("accumulates and returns new total", func(t *testing.T) {
		id := testutil.InsertActivePosition(t, testDB.DB, "wallet-a", 1000)

		total, err := repo.AddEarnings(ctx, id, decimal.RequireFromString("123.456789"))
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("123.456789")))

		total, err = repo.AddEarnings(ctx, id, decimal.RequireFromString("76.543211"))
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(200)))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		id := testutil.InsertActivePosition(t, testDB.DB, "wallet-b", 1000)

		_, err := repo.AddEarnings(ctx, id, decimal.Zero)
		assert.Error(t, err)
		_, err = repo.AddEarnings(ctx, id, decimal.NewFromInt(-5))
		assert.Error(t, err)
	})

	t.Run("unknown position", func(t *testing.T) {
		_, err := repo.AddEarnings(ctx, 999, decimal.NewFromInt(10))
		assert.Error(t, err)
	})

	t.Run("concurrent credits lose nothing", func(t *testing.T) {
		id := testutil.InsertActivePosition(t, testDB.DB, "wallet-c", 1000)

		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AddEarnings(ctx, id, decimal.NewFromInt(5))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		pos, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, pos.TotalEarned.Equal(decimal.NewFromInt(5*workers)),
			"expected %d, got %s", 5*workers, pos.TotalEarned)
	})
}

func TestPositionRepository_GetForUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	id := testutil.InsertActivePosition(t, testDB.DB, "wallet-a", 1000)

	t.Run("returns the row under lock", func(t *testing.T) {
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		pos, err := newPositionRepositoryWithTx(tx).GetForUpdate(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, pos)
		assert.Equal(t, id, pos.ID)
	})

	t.Run("blocks a concurrent locker until release", func(t *testing.T) {
		hold := 300 * time.Millisecond
		locked := make(chan struct{})
		holderDone := make(chan error, 1)

		go func() {
			holderDone <- testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
				if _, err := newPositionRepositoryWithTx(tx).GetForUpdate(ctx, id); err != nil {
					return err
				}
				close(locked)
				time.Sleep(hold)
				return nil
			})
		}()

		<-locked
		start := time.Now()
		err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			_, err := newPositionRepositoryWithTx(tx).GetForUpdate(ctx, id)
			return err
		})
		waited := time.Since(start)

		require.NoError(t, err)
		require.NoError(t, <-holderDone)
		assert.GreaterOrEqual(t, waited, hold/2,
			"second locker should have waited for the first to release")
	})
}
