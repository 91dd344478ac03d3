// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package twofactor_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 6238 mandates HMAC-SHA1
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quistova/shopfront/internal/security/totp"
	"github.com/quistova/shopfront/internal/testutil"
	"github.com/quistova/shopfront/internal/twofactor"
)

func TestEnableReturnsEnrollment(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "enable@example.com")
	ctx := context.Background()

	enrollment, err := ctrl.Enable(ctx, acct.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.Contains(t, enrollment.OTPAuthURL, "otpauth://totp/")
	assert.Contains(t, enrollment.OTPAuthURL, "issuer=Shopfront")

	// Activation is immediate.
	reloaded, err := repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TwoFactorEnabled)
	require.NotNil(t, reloaded.TOTPSecret)
	assert.Equal(t, enrollment.Secret, *reloaded.TOTPSecret)
}

func TestEnableTwiceFails(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "twice@example.com")
	ctx := context.Background()

	_, err := ctrl.Enable(ctx, acct.ID)
	require.NoError(t, err)

	_, err = ctrl.Enable(ctx, acct.ID)
	assert.ErrorIs(t, err, twofactor.ErrAlreadyEnabled)
}

func TestDisableRequiresPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "disable@example.com")
	ctx := context.Background()

	_, err := ctrl.Enable(ctx, acct.ID)
	require.NoError(t, err)

	err = ctrl.Disable(ctx, acct.ID, "wrong-password")
	assert.ErrorIs(t, err, twofactor.ErrInvalidCredential)

	// The failed gate left the state untouched.
	reloaded, err := repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TwoFactorEnabled)

	require.NoError(t, ctrl.Disable(ctx, acct.ID, testutil.TestPassword))

	reloaded, err = repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.TwoFactorEnabled)
	assert.Nil(t, reloaded.TOTPSecret)
}

func TestDisableWhenNotEnabled(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "noop@example.com")

	err := ctrl.Disable(context.Background(), acct.ID, testutil.TestPassword)
	assert.ErrorIs(t, err, twofactor.ErrNotEnabled)
}

func TestVerifyCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "verify@example.com")
	ctx := context.Background()

	enrollment, err := ctrl.Enable(ctx, acct.ID)
	require.NoError(t, err)

	reloaded, err := repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)

	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)
	code := currentCode(secret)

	assert.NoError(t, ctrl.VerifyCode(ctx, reloaded, code))
	assert.ErrorIs(t, ctrl.VerifyCode(ctx, reloaded, "000000"), twofactor.ErrInvalidCode)
}

func TestVerifyCodeRejectsReplay(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctrl := twofactor.NewController(repo, "Shopfront")
	acct := testutil.NewTestAccount(t, repo, "replay@example.com")
	ctx := context.Background()

	enrollment, err := ctrl.Enable(ctx, acct.ID)
	require.NoError(t, err)

	secret, err := totp.DecodeSecret(enrollment.Secret)
	require.NoError(t, err)
	code := currentCode(secret)

	reloaded, err := repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.NoError(t, ctrl.VerifyCode(ctx, reloaded, code))

	// The accepted counter is persisted; the same code fails even on a
	// freshly loaded account.
	reloaded, err = repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Positive(t, reloaded.TOTPLastCounter)
	assert.ErrorIs(t, ctrl.VerifyCode(ctx, reloaded, code), twofactor.ErrInvalidCode)
}

// currentCode computes the TOTP code for now per RFC 4226/6238.
func currentCode(secret []byte) string {
	counter := time.Now().Unix() / totp.Period

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	m := hmac.New(sha1.New, secret)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)

	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%1000000)
}
