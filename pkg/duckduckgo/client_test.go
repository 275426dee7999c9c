package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const resultsPage = `<html><body>
<div class="result result--ad">
  <a class="result__a" href="https://ads.example/acme">Sponsored</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.pappers.fr%2Fentreprise%2Facme-123&amp;rut=abc">ACME - Pappers</a></h2>
  <a class="result__snippet">ACME SAS, SIREN 123 456 789</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://fr.linkedin.com/in/jane-doe">Jane Doe - CTO - ACME</a>
  <a class="result__snippet">Jane Doe. CTO at ACME.</a>
</div>
<div class="result">
  <a class="result__a" href="javascript:void(0)">broken</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.societe.com/societe/acme.html">ACME - Societe.com</a>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	results, err := ParseResults(resultsPage, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "ACME - Pappers", results[0].Title)
	assert.Equal(t, "https://www.pappers.fr/entreprise/acme-123", results[0].URL)
	assert.Equal(t, "ACME SAS, SIREN 123 456 789", results[0].Snippet)
	assert.Equal(t, "https://fr.linkedin.com/in/jane-doe", results[1].URL)
	assert.Equal(t, "https://www.societe.com/societe/acme.html", results[2].URL)
}

func TestParseResults_Max(t *testing.T) {
	results, err := ParseResults(resultsPage, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "acme site:pappers.fr", r.PostForm.Get("q"))
		assert.Equal(t, "fr-fr", r.PostForm.Get("kl"))
		assert.NotEmpty(t, r.UserAgent())
		w.Write([]byte(resultsPage)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRegion("fr-fr"), WithRate(100))
	results, err := client.Search(context.Background(), "acme site:pappers.fr", 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ACME - Pappers", results[0].Title)
}

func TestSearch_RetriesThrottle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(resultsPage)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRate(100),
		WithRetryPolicy(resilience.Policy{Attempts: 2, Base: time.Millisecond, Max: time.Millisecond}))
	results, err := client.Search(context.Background(), "acme", 0)

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRate(100))
	_, err := client.Search(context.Background(), "acme", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
