package newsapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/circuitbreaker"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/newsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successBody = `{
  "status": "success",
  "totalResults": 42,
  "results": [
    {"article_id":"a1","title":"Jakarta floods <b>ease</b>","link":"https://antaranews.com/a1",
     "description":"Water levels dropped across the capital overnight.","pubDate":"2025-03-10 08:15:00",
     "image_url":"https://img.test/a1.jpg","source_id":"antaranews","source_url":"https://antaranews.com","creator":["Rina"]},
    {"article_id":"a2","title":"Rupiah firms","link":"https://antaranews.com/a2","pubDate":"2025-03-10 07:00:00","source_id":"antaranews"},
    {"article_id":"a3","title":"","link":"","description":"dropped"}
  ],
  "nextPage": "page-2"
}`

type apiServer struct {
	*httptest.Server
	mu      sync.Mutex
	calls   int
	lastURL *url.URL
	status  int
	body    string
}

func newAPIServer(t *testing.T, status int, body string) *apiServer {
	t.Helper()
	s := &apiServer{status: status, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		s.lastURL = r.URL
		status, body := s.status, s.body
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *apiServer) Query() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL.Query()
}

func (s *apiServer) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.body = status, body
}

func newBudgetCache(t *testing.T, limit int) *cache.BudgetCache {
	t.Helper()
	c, err := cache.NewBudgetCache(context.Background(), cache.BudgetOptions{
		Ledger:     budget.NewLedger(limit, 10),
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	return c
}

func newClient(t *testing.T, baseURL string, bc *cache.BudgetCache) *newsapi.Client {
	t.Helper()
	c, err := newsapi.NewClient(newsapi.Options{
		BaseURL:     baseURL,
		APIKey:      "secret",
		Language:    "en",
		Country:     "id",
		MaxPageSize: 10,
		MinInterval: time.Millisecond,
		Timeout:     5 * time.Second,
		Cache:       bc,
	})
	require.NoError(t, err)
	return c
}

func TestFetchArticles_SuccessDebitsAndCaches(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	bc := newBudgetCache(t, 200)
	client := newClient(t, srv.URL, bc)
	ctx := context.Background()

	res, err := client.FetchArticles(ctx, domain.CategoryIndonesia, 10, "")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 42, res.TotalResults)
	assert.Equal(t, "page-2", res.NextPage)
	require.Len(t, res.Articles, 2)

	first := res.Articles[0]
	assert.Equal(t, "Jakarta floods ease", first.Title)
	assert.Equal(t, "https://antaranews.com/a1", first.Link)
	assert.Equal(t, "Rina", first.Author)
	assert.Equal(t, "antaranews", first.Source)
	assert.Equal(t, domain.CategoryIndonesia, first.Category)
	assert.True(t, first.PubDate.Equal(time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC)))
	assert.NotEmpty(t, first.ID)

	q := srv.Query()
	assert.Equal(t, "secret", q.Get("apikey"))
	assert.Equal(t, "10", q.Get("size"))
	assert.Equal(t, "en", q.Get("language"))
	assert.Equal(t, "id", q.Get("country"))
	assert.Equal(t, "top", q.Get("category"))
	assert.Empty(t, q.Get("page"))

	assert.Equal(t, 1, client.Usage().CreditsUsed)

	again, err := client.FetchArticles(ctx, domain.CategoryIndonesia, 10, "")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Len(t, again.Articles, 2)
	assert.Equal(t, 1, srv.Calls())
	assert.Equal(t, 1, client.Usage().CreditsUsed)
}

func TestFetchArticles_QueryPerCategory(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	client := newClient(t, srv.URL, newBudgetCache(t, 200))

	_, err := client.FetchArticles(context.Background(), domain.CategoryBRICS, 50, "tok")
	require.NoError(t, err)

	q := srv.Query()
	assert.Equal(t, "BRICS", q.Get("q"))
	assert.Equal(t, "10", q.Get("size"), "size is capped")
	assert.False(t, q.Has("country"))
	assert.Equal(t, "tok", q.Get("page"))
}

func TestFetchArticles_BudgetExceededMakesNoCall(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	bc := newBudgetCache(t, 1)
	require.NoError(t, bc.Spend(context.Background(), 1))
	client := newClient(t, srv.URL, bc)

	_, err := client.FetchArticles(context.Background(), domain.CategoryBali, 10, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, budget.ErrBudgetExceeded)
	assert.True(t, newsapi.IsBudgetExceeded(err))
	assert.Zero(t, srv.Calls())
	assert.False(t, client.Available())
}

func TestFetchArticles_CacheServedWhenExhausted(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	bc := newBudgetCache(t, 1)
	client := newClient(t, srv.URL, bc)
	ctx := context.Background()

	_, err := client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	require.NoError(t, err)
	require.True(t, bc.Ledger().Exhausted())

	res, err := client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, srv.Calls())
}

func TestFetchArticles_ConcurrentSamePageFetchedOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody))
	}))
	t.Cleanup(srv.Close)

	client := newClient(t, srv.URL, newBudgetCache(t, 200))

	const callers = 8
	results := make([]*newsapi.Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.FetchArticles(context.Background(), domain.CategoryBRICS, 10, "")
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Articles, 2)
		if !results[i].Cached {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, client.Usage().CreditsUsed)
}

func TestFetchArticles_AuthErrorDisablesClient(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusUnauthorized,
		`{"status":"error","results":{"message":"API key is invalid","code":"Unauthorized"}}`)
	client := newClient(t, srv.URL, newBudgetCache(t, 200))
	ctx := context.Background()

	_, err := client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	require.Error(t, err)
	apiErr, ok := newsapi.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, newsapi.KindAuth, apiErr.Kind)
	assert.Equal(t, "Unauthorized", apiErr.Code)
	assert.False(t, client.Available())

	_, err = client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	assert.ErrorIs(t, err, newsapi.ErrClientDisabled)
	assert.Equal(t, 1, srv.Calls())
	assert.Zero(t, client.Usage().CreditsUsed)
}

func TestFetchArticles_RateLimitOpensBreaker(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusTooManyRequests,
		`{"status":"error","results":{"message":"slow down","code":"RateLimitExceeded"}}`)
	client := newClient(t, srv.URL, newBudgetCache(t, 200))
	ctx := context.Background()

	_, err := client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	assert.True(t, newsapi.IsKind(err, newsapi.KindRateLimit))
	assert.False(t, client.Available())

	srv.Respond(http.StatusOK, successBody)
	_, err = client.FetchArticles(ctx, domain.CategoryBali, 10, "")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 1, srv.Calls())
}

func TestFetchArticles_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   newsapi.ErrorKind
	}{
		{"parameter code", http.StatusUnprocessableEntity, `{"status":"error","results":{"code":"UnsupportedParameter","message":"bad"}}`, newsapi.KindParameter},
		{"bad request", http.StatusBadRequest, `{}`, newsapi.KindParameter},
		{"forbidden", http.StatusForbidden, `not json`, newsapi.KindAuth},
		{"server error", http.StatusBadGateway, `<html>oops</html>`, newsapi.KindNetwork},
		{"error status in 200", http.StatusOK, `{"status":"error","results":{"code":"ApiLimitExceeded","message":"daily"}}`, newsapi.KindRateLimit},
		{"malformed 200", http.StatusOK, `{"status":"success","results":{"oops":1}}`, newsapi.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newAPIServer(t, tt.status, tt.body)
			client := newClient(t, srv.URL, newBudgetCache(t, 200))

			_, err := client.FetchArticles(context.Background(), domain.CategoryBRICS, 10, "")
			require.Error(t, err)
			assert.True(t, newsapi.IsKind(err, tt.want), "got %v", err)
			assert.Zero(t, client.Usage().CreditsUsed)
		})
	}
}

func TestFetchArticles_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	base := srv.URL
	srv.Close()

	client := newClient(t, base, newBudgetCache(t, 200))
	_, err := client.FetchArticles(context.Background(), domain.CategoryBali, 10, "")
	require.Error(t, err)
	assert.True(t, newsapi.IsKind(err, newsapi.KindNetwork))
	assert.True(t, client.Available())
}

func TestFetchArticles_UnknownCategory(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t, http.StatusOK, successBody)
	client := newClient(t, srv.URL, newBudgetCache(t, 200))

	_, err := client.FetchArticles(context.Background(), domain.Category("sports"), 10, "")
	assert.True(t, newsapi.IsKind(err, newsapi.KindParameter))
	assert.Zero(t, srv.Calls())
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	bc := newBudgetCache(t, 10)

	_, err := newsapi.NewClient(newsapi.Options{BaseURL: "https://x.test", Cache: bc})
	assert.ErrorIs(t, err, newsapi.ErrMissingAPIKey)

	_, err = newsapi.NewClient(newsapi.Options{BaseURL: "https://x.test", APIKey: "k"})
	assert.ErrorIs(t, err, newsapi.ErrNoCache)

	_, err = newsapi.NewClient(newsapi.Options{BaseURL: "::bad", APIKey: "k", Cache: bc})
	assert.Error(t, err)
}

func TestQueriesFromConfig(t *testing.T) {
	t.Parallel()

	got := newsapi.QueriesFromConfig(map[string]string{"Bali": "Bali tourism", "sports": "x"})
	require.Len(t, got, 1)
	assert.Equal(t, "Bali tourism", got[domain.CategoryBali].Q)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "newsapi:bali:10", newsapi.CacheKey(domain.CategoryBali, 10, ""))
	assert.Equal(t, "newsapi:bali:10:p2", newsapi.CacheKey(domain.CategoryBali, 10, "p2"))
}
