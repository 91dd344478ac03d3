// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/testutil"
	"github.com/quistova/shopfront/internal/token"
)

func TestIssueReturnsRawOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "issue@example.com")

	raw, err := svc.Issue(context.Background(), models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	// The raw value is never persisted.
	count, err := repo.CountOutstandingTokens(context.Background(), acct.ID, models.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIssueRejectsUnknownPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)

	_, err := svc.Issue(context.Background(), models.TokenPurpose("bogus"), 1, time.Hour)
	assert.Error(t, err)
}

func TestIssueSupersedesOutstandingTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "supersede@example.com")
	ctx := context.Background()

	first, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	// Only one outstanding token per purpose.
	count, err := repo.CountOutstandingTokens(ctx, acct.ID, models.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The superseded token no longer consumes.
	_, err = svc.ValidateAndConsume(ctx, first, models.PurposePasswordReset, nil)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)

	_, err = svc.ValidateAndConsume(ctx, second, models.PurposePasswordReset, nil)
	assert.NoError(t, err)
}

func TestSupersedeIsScopedToPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "scoped@example.com")
	ctx := context.Background()

	verify, err := svc.Issue(ctx, models.PurposeEmailVerification, acct.ID, time.Hour)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	// Issuing a reset token leaves the verification token alone.
	_, err = svc.ValidateAndConsume(ctx, verify, models.PurposeEmailVerification, nil)
	assert.NoError(t, err)
}

func TestValidateAndConsumeRejectsWrongPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "purpose@example.com")
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposeEmailVerification, nil)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)

	// Still consumable for its real purpose afterwards.
	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
	assert.NoError(t, err)
}

func TestValidateAndConsumeExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	now := time.Now()
	svc := token.NewService(repo, token.WithClock(func() time.Time { return now }))
	acct := testutil.NewTestAccount(t, repo, "expired@example.com")
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Second)
	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
	assert.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestValidateAndConsumeExactlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "once@example.com")
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	accountID, err := svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, accountID)

	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
	assert.ErrorIs(t, err, token.ErrTokenAlreadyUsed)
}

func TestValidateAndConsumeConcurrent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "race@example.com")
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			alreadyUsed++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one consumer must win")
	assert.Equal(t, attempts-1, alreadyUsed)
}

func TestConsumeFuncFailureLeavesTokenUnused(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	acct := testutil.NewTestAccount(t, repo, "rollback@example.com")
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset,
		func(ctx context.Context, tx *sqlx.Tx, accountID int64) error {
			return assert.AnError
		})
	require.Error(t, err)

	// The transaction rolled back; the token is still consumable.
	_, err = svc.ValidateAndConsume(ctx, raw, models.PurposePasswordReset, nil)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	now := time.Now()
	svc := token.NewService(repo, token.WithClock(func() time.Time { return now }))
	acct := testutil.NewTestAccount(t, repo, "purge@example.com")
	ctx := context.Background()

	_, err := svc.Issue(ctx, models.PurposePasswordReset, acct.ID, time.Minute)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, models.PurposeEmailVerification, acct.ID, time.Hour)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
