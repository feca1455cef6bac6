package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-rails/otpkit/core"
	memorystore "github.com/open-rails/otpkit/storage/memory"
	"github.com/open-rails/otpkit/token"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureSender struct {
	mu    sync.Mutex
	codes []string
	fail  bool
}

func (s *captureSender) SendVerificationCode(ctx context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *captureSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[len(s.codes)-1]
}

func newTestService(t *testing.T, opts core.Options) (*core.Service, *fakeClock, *captureSender) {
	t.Helper()
	clk := newFakeClock()
	sender := &captureSender{}
	tokens := token.NewService("otpkit-test", token.NewStaticKeySource("t1", []byte("test-secret"))).WithNow(clk.Now)
	svc := core.NewService(opts, tokens).
		WithStore(memorystore.New()).
		WithSMSSender(sender).
		WithNow(clk.Now)
	return svc, clk, sender
}

func requireKind(t *testing.T, err error, want core.Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := core.KindOf(err)
	require.True(t, ok, "unclassified error: %v", err)
	require.Equal(t, want, kind)
}

func TestSendThenVerify(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "+98 912 345 6789")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, 120*time.Second, res.ExpiresIn)

	// A different spelling of the same subscriber verifies the same entry.
	v, err := svc.VerifyCode(ctx, "09123456789", sender.last(), res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, v.SessionToken)

	claims, err := svc.Tokens().Verify(v.SessionToken, token.KindSession)
	require.NoError(t, err)
	require.Equal(t, "09123456789", claims.Phone)
}

func TestCooldownRejectsImmediateResend(t *testing.T) {
	svc, clk, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	first, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	firstCode := sender.last()

	clk.Advance(10 * time.Second)
	_, err = svc.SendCode(ctx, "09123456789")
	requireKind(t, err, core.KindCooldownActive)

	// The first code stays verifiable until its own expiry.
	v, err := svc.VerifyCode(ctx, "09123456789", firstCode, first.Token)
	require.NoError(t, err)
	require.NotEmpty(t, v.SessionToken)
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	svc, clk, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	first, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	firstCode := sender.last()

	// Past cooldown, before the first code's expiry.
	clk.Advance(45 * time.Second)
	second, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	secondCode := sender.last()

	_, err = svc.VerifyCode(ctx, "09123456789", firstCode, first.Token)
	requireKind(t, err, core.KindTokenMismatch)

	v, err := svc.VerifyCode(ctx, "09123456789", secondCode, second.Token)
	require.NoError(t, err)
	require.NotEmpty(t, v.SessionToken)
}

func TestRateLimitCeiling(t *testing.T) {
	svc, clk, _ := newTestService(t, core.Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.SendCode(ctx, "09123456789")
		require.NoError(t, err, "send %d", i+1)
		clk.Advance(time.Minute)
	}

	// 6th inside the 10 minute window.
	_, err := svc.SendCode(ctx, "09123456789")
	requireKind(t, err, core.KindRateLimited)

	// Other phones are unaffected.
	_, err = svc.SendCode(ctx, "09351112233")
	require.NoError(t, err)

	// One window-length later all history has aged out.
	clk.Advance(10*time.Minute + time.Second)
	_, err = svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
}

func TestWrongCodeLeavesEntryIntact(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "09123456789", "00000", res.Token)
	requireKind(t, err, core.KindCodeMismatch)

	v, err := svc.VerifyCode(ctx, "09123456789", sender.last(), res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, v.SessionToken)
}

func TestWrongTokenDoesNotRevealCode(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	_, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)

	// Correct code, stale token: the token check fires first.
	_, err = svc.VerifyCode(ctx, "09123456789", sender.last(), "bogus-token")
	requireKind(t, err, core.KindTokenMismatch)
}

func TestExpiredThenNotFound(t *testing.T) {
	svc, clk, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	code := sender.last()

	clk.Advance(121 * time.Second)
	_, err = svc.VerifyCode(ctx, "09123456789", code, res.Token)
	requireKind(t, err, core.KindExpired)

	// The expired entry was evicted.
	_, err = svc.VerifyCode(ctx, "09123456789", code, res.Token)
	requireKind(t, err, core.KindNotFound)
}

func TestVerifyUnknownPhone(t *testing.T) {
	svc, _, _ := newTestService(t, core.Options{})
	_, err := svc.VerifyCode(context.Background(), "09123456789", "12345", "tok")
	requireKind(t, err, core.KindNotFound)
}

func TestConsumedEntryIsSingleUse(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	code := sender.last()

	_, err = svc.VerifyCode(ctx, "09123456789", code, res.Token)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "09123456789", code, res.Token)
	requireKind(t, err, core.KindNotFound)
}

func TestSessionTokenExpires(t *testing.T) {
	svc, clk, sender := newTestService(t, core.Options{SessionTTL: time.Hour})
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	v, err := svc.VerifyCode(ctx, "09123456789", sender.last(), res.Token)
	require.NoError(t, err)

	_, err = svc.Tokens().Verify(v.SessionToken, token.KindSession)
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Minute)
	_, err = svc.Tokens().Verify(v.SessionToken, token.KindSession)
	require.ErrorIs(t, err, token.ErrInvalidOrExpired)
}

func TestDeliveryFailureKeepsEntry(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	sender.fail = true
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	requireKind(t, err, core.KindDeliveryFailed)
	require.NotEmpty(t, res.Token)

	// The ledger entry stands, so a resend is still gated by cooldown.
	_, err = svc.SendCode(ctx, "09123456789")
	requireKind(t, err, core.KindCooldownActive)
}

func TestInvalidPhoneRejectedBeforeState(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	_, err := svc.SendCode(context.Background(), "not-a-phone")
	requireKind(t, err, core.KindInvalidPhone)
	require.Empty(t, sender.codes)
}

type fakeAccounts struct {
	mu     sync.Mutex
	phones []string
}

func (a *fakeAccounts) Ensure(ctx context.Context, phone string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phones = append(a.phones, phone)
	return "acct-1", nil
}

func TestVerifyEnsuresAccount(t *testing.T) {
	svc, _, sender := newTestService(t, core.Options{})
	accounts := &fakeAccounts{}
	svc.WithAccounts(accounts)
	ctx := context.Background()

	res, err := svc.SendCode(ctx, "09123456789")
	require.NoError(t, err)
	v, err := svc.VerifyCode(ctx, "09123456789", sender.last(), res.Token)
	require.NoError(t, err)
	require.Equal(t, "acct-1", v.AccountID)
	require.Equal(t, []string{"09123456789"}, accounts.phones)
}
