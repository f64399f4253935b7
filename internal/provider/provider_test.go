package provider_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/testutil"
	"github.com/raysh454/trygglink/internal/webclient"
)

func newHTTPClient(t *testing.T, hc *http.Client) webclient.WebClient {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, hc)
	require.NoError(t, err)
	return wc
}

// ─── SafeCheck ─────────────────────────────────────────────────────────

func TestSafeCheck_PassesThroughSignal(t *testing.T) {
	t.Parallel()
	p := &testutil.StubProvider{
		ProviderName: "stub", ProviderKind: provider.KindBlocklist,
		Signal: provider.Signal{Available: true, Positive: true, Contribution: 60, Detail: "MALWARE"},
	}
	sig, err := provider.SafeCheck(context.Background(), p, provider.Input{URL: "https://x.test"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 60, sig.Contribution)
	assert.True(t, sig.Positive)
}

func TestSafeCheck_RecoversPanic(t *testing.T) {
	t.Parallel()
	p := &testutil.StubProvider{ProviderName: "boom", Panic: true}
	sig, err := provider.SafeCheck(context.Background(), p, provider.Input{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.False(t, sig.Available)
}

func TestSafeCheck_EnforcesTimeout(t *testing.T) {
	t.Parallel()
	p := &testutil.StubProvider{ProviderName: "slow", Delay: time.Second}
	start := time.Now()
	_, err := provider.SafeCheck(context.Background(), p, provider.Input{}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSafeCheck_UnavailableNeverContributes(t *testing.T) {
	t.Parallel()
	p := &testutil.StubProvider{
		ProviderName: "liar",
		Signal:       provider.Signal{Available: false, Positive: true, Contribution: 80},
	}
	sig, err := provider.SafeCheck(context.Background(), p, provider.Input{}, time.Second)
	require.NoError(t, err)
	assert.Zero(t, sig.Contribution)
	assert.False(t, sig.Positive)
}

func TestSafeCheck_NegativeContributionClamped(t *testing.T) {
	t.Parallel()
	p := &testutil.StubProvider{ProviderName: "neg", Signal: provider.Signal{Available: true, Contribution: -10}}
	sig, err := provider.SafeCheck(context.Background(), p, provider.Input{}, time.Second)
	require.NoError(t, err)
	assert.Zero(t, sig.Contribution)
}

func TestKind_Authoritative(t *testing.T) {
	t.Parallel()
	assert.True(t, provider.KindBlocklist.Authoritative())
	assert.True(t, provider.KindReputation.Authoritative())
	assert.False(t, provider.KindWhois.Authoritative())
	assert.False(t, provider.KindContent.Authoritative())
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "example.co.uk", provider.RegistrableDomain("login.secure.example.co.uk"))
	assert.Equal(t, "example.com", provider.RegistrableDomain("EXAMPLE.com."))
	assert.Equal(t, "localhost", provider.RegistrableDomain("localhost"))
}
