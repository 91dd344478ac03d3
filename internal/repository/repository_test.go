// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/testutil"
)

func TestGetAccountNotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAccountByID(context.Background(), 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetAccountByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSoftDeletedAccountIsInvisible(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	acct := testutil.NewTestAccount(t, repo, "gone@example.com")
	ctx := context.Background()

	require.NoError(t, repo.SoftDeleteAccount(ctx, acct.ID, time.Now()))

	_, err := repo.GetAccountByID(ctx, acct.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetAccountByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkOneTimeTokenUsedTxGuardsAgainstDoubleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	acct := testutil.NewTestAccount(t, repo, "guard@example.com")
	ctx := context.Background()

	row := &models.OneTimeToken{
		Purpose:   models.PurposePasswordReset,
		TokenHash: "digest-1",
		AccountID: acct.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateOneTimeToken(ctx, row))

	err := repo.InTx(ctx, func(tx *sqlx.Tx) error {
		marked, err := repo.MarkOneTimeTokenUsedTx(ctx, tx, row.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, marked)

		// Second mark inside the same tx observes the guard.
		marked, err = repo.MarkOneTimeTokenUsedTx(ctx, tx, row.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, marked)
		return nil
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	acct := testutil.NewTestAccount(t, repo, "rollback@example.com")
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := repo.UpdateAccountPasswordTx(ctx, tx, acct.ID, "new-hash"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	reloaded, err := repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.PasswordHash, reloaded.PasswordHash)
}

func TestUniqueTokenHash(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	acct := testutil.NewTestAccount(t, repo, "unique@example.com")
	ctx := context.Background()

	row := func() *models.OneTimeToken {
		return &models.OneTimeToken{
			Purpose:   models.PurposePasswordReset,
			TokenHash: "same-digest",
			AccountID: acct.ID,
			ExpiresAt: time.Now().Add(time.Hour),
		}
	}
	require.NoError(t, repo.CreateOneTimeToken(ctx, row()))
	assert.Error(t, repo.CreateOneTimeToken(ctx, row()))
}

func TestPendingEmailChangeUpsert(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	acct := testutil.NewTestAccount(t, repo, "upsert@example.com")
	ctx := context.Background()

	first := &models.PendingEmailChange{
		AccountID: acct.ID,
		NewEmail:  "first@example.com",
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.UpsertPendingEmailChange(ctx, first))

	second := &models.PendingEmailChange{
		AccountID: acct.ID,
		NewEmail:  "second@example.com",
		TokenHash: "h2",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.UpsertPendingEmailChange(ctx, second))

	err := repo.InTx(ctx, func(tx *sqlx.Tx) error {
		change, err := repo.GetPendingEmailChangeTx(ctx, tx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, "second@example.com", change.NewEmail)
		return nil
	})
	require.NoError(t, err)
}
