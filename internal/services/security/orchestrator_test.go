// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package security_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/security/password"
	securitysvc "github.com/quistova/shopfront/internal/services/security"
	"github.com/quistova/shopfront/internal/session"
	"github.com/quistova/shopfront/internal/testutil"
	"github.com/quistova/shopfront/internal/token"
	"github.com/quistova/shopfront/internal/twofactor"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeDispatcher records sent templates and recipients.
type fakeDispatcher struct {
	mu   sync.Mutex
	sent []string
	to   []string
}

func (f *fakeDispatcher) SendTemplate(_ context.Context, templateID, toAddress string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, templateID)
	f.to = append(f.to, toAddress)
	return nil
}

func (f *fakeDispatcher) templates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeDispatcher) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.to...)
}

type fixture struct {
	repo     *repository.Repository
	sessions *session.Registry
	hub      *realtime.Hub
	mail     *fakeDispatcher
	orch     *securitysvc.Orchestrator
	cfg      *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig()

	sessions := session.NewRegistry(repo, &cfg.Auth)
	tokens := token.NewService(repo)
	ctrl := twofactor.NewController(repo, cfg.Auth.TOTPIssuer)
	hub := realtime.NewHub(nil)
	mail := &fakeDispatcher{}

	orch := securitysvc.NewOrchestrator(repo, sessions, tokens, ctrl, hub, mail, cfg)
	return &fixture{repo: repo, sessions: sessions, hub: hub, mail: mail, orch: orch, cfg: cfg}
}

func TestChangePasswordWrongCurrentMutatesNothing(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "wrong@example.com")
	ctx := context.Background()

	sess, _, err := f.sessions.Create(ctx, acct.ID, "")
	require.NoError(t, err)

	_, err = f.orch.ChangePassword(ctx, acct.ID, "not-the-password", "brand-new-password")
	assert.ErrorIs(t, err, securitysvc.ErrInvalidCredential)

	// Password unchanged, session untouched, nothing sent.
	reloaded, err := f.repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, password.Verify(reloaded.PasswordHash, testutil.TestPassword))

	active, err := f.sessions.IsActive(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Empty(t, f.mail.templates())
}

func TestChangePasswordRevokesEverySession(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "change@example.com")
	ctx := context.Background()

	var ids []string
	for range 3 {
		sess, _, err := f.sessions.Create(ctx, acct.ID, "")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	ch := f.hub.Register(acct.ID)
	defer f.hub.Unregister(acct.ID, ch)

	result, err := f.orch.ChangePassword(ctx, acct.ID, testutil.TestPassword, "brand-new-password")
	require.NoError(t, err)
	assert.True(t, result.ForceLogout)
	assert.Equal(t, int64(3), result.SessionsRevoked)

	for _, id := range ids {
		active, err := f.sessions.IsActive(ctx, id)
		require.NoError(t, err)
		assert.False(t, active)
	}

	// New password took effect.
	reloaded, err := f.repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, password.Verify(reloaded.PasswordHash, "brand-new-password"))

	// Side effects: email and realtime push.
	assert.Contains(t, f.mail.templates(), "email_password_changed")
	select {
	case frame := <-ch:
		assert.Contains(t, frame, realtime.ReasonPasswordChanged)
	default:
		t.Fatal("expected a force_logout frame")
	}
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "policy@example.com")

	_, err := f.orch.ChangePassword(context.Background(), acct.ID, testutil.TestPassword, "short")
	var policyErr *password.PolicyError
	assert.ErrorAs(t, err, &policyErr)
}

func TestSecurityNoticeCopiesRecoveryEmail(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "primary@example.com")
	ctx := context.Background()

	recovery := "backup@example.com"
	require.NoError(t, f.repo.SetRecoveryEmail(ctx, acct.ID, &recovery))

	_, err := f.orch.ChangePassword(ctx, acct.ID, testutil.TestPassword, "brand-new-password")
	require.NoError(t, err)

	assert.Contains(t, f.mail.recipients(), "primary@example.com")
	assert.Contains(t, f.mail.recipients(), "backup@example.com")
}

func TestResetPasswordFlow(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "reset@example.com")
	ctx := context.Background()

	sess, _, err := f.sessions.Create(ctx, acct.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.orch.RequestPasswordReset(ctx, "reset@example.com"))
	require.Contains(t, f.mail.templates(), "email_password_reset")

	// The mailed raw token is not observable here; issue a replacement,
	// which supersedes the mailed one.
	tokens := token.NewService(f.repo)
	raw, err := tokens.Issue(ctx, models.PurposePasswordReset, acct.ID, f.cfg.Auth.ResetTokenTTL)
	require.NoError(t, err)

	result, err := f.orch.ResetPassword(ctx, raw, "brand-new-password")
	require.NoError(t, err)
	assert.True(t, result.ForceLogout)

	// Old session gone, new password in effect, token spent.
	active, err := f.sessions.IsActive(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, active)

	reloaded, err := f.repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, password.Verify(reloaded.PasswordHash, "brand-new-password"))

	_, err = f.orch.ResetPassword(ctx, raw, "another-new-password")
	assert.Error(t, err)
}

func TestResetPasswordInvalidTokenMutatesNothing(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "badtoken@example.com")
	ctx := context.Background()

	sess, _, err := f.sessions.Create(ctx, acct.ID, "")
	require.NoError(t, err)

	_, err = f.orch.ResetPassword(ctx, "bogus-token", "brand-new-password")
	assert.ErrorIs(t, err, token.ErrTokenNotFound)

	active, err := f.sessions.IsActive(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRequestPasswordResetUnknownAddressSucceeds(t *testing.T) {
	f := newFixture(t)

	err := f.orch.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Empty(t, f.mail.templates())
}

func TestDisableTwoFactorRevokesSessions(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "twofactor@example.com")
	ctx := context.Background()

	_, err := f.orch.EnableTwoFactor(ctx, acct.ID)
	require.NoError(t, err)

	sess, _, err := f.sessions.Create(ctx, acct.ID, "")
	require.NoError(t, err)

	ch := f.hub.Register(acct.ID)
	defer f.hub.Unregister(acct.ID, ch)

	// Wrong password: state intact.
	_, err = f.orch.DisableTwoFactor(ctx, acct.ID, "wrong")
	assert.ErrorIs(t, err, securitysvc.ErrInvalidCredential)

	reloaded, err := f.repo.GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TwoFactorEnabled)

	// Correct password: disabled, sessions revoked, notifications out.
	result, err := f.orch.DisableTwoFactor(ctx, acct.ID, testutil.TestPassword)
	require.NoError(t, err)
	assert.True(t, result.ForceLogout)
	assert.Equal(t, int64(1), result.SessionsRevoked)

	active, err := f.sessions.IsActive(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, active)

	assert.Contains(t, f.mail.templates(), "email_two_factor_disabled")
	select {
	case frame := <-ch:
		assert.Contains(t, frame, realtime.ReasonTwoFactorDisabled)
	default:
		t.Fatal("expected a force_logout frame")
	}
}

func TestAdminRevocationPushesReason(t *testing.T) {
	f := newFixture(t)
	acct := testutil.NewTestAccount(t, f.repo, "admin-target@example.com")
	ctx := context.Background()

	_, _, err := f.sessions.Create(ctx, acct.ID, "")
	require.NoError(t, err)

	ch := f.hub.Register(acct.ID)
	defer f.hub.Unregister(acct.ID, ch)

	result, err := f.orch.RevokeAccountSessions(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SessionsRevoked)

	select {
	case frame := <-ch:
		assert.Contains(t, frame, realtime.ReasonAdminRevocation)
	default:
		t.Fatal("expected a force_logout frame")
	}
}
