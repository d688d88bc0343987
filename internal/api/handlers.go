package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
)

const (
	defaultArticleLimit = 50
	maxArticleLimit     = 500
)

// Runner triggers an aggregation run.
type Runner interface {
	Run(ctx context.Context, req aggregator.Request) (*aggregator.Result, error)
}

// Deps are the collaborators the handlers read from. Only Snapshot and
// Runner are required.
type Deps struct {
	Snapshot *aggregator.Snapshot
	Runner   Runner
	// CacheStats reports every cache tier.
	CacheStats func() []cache.Stats
	// Usage reports the credit ledger; ok is false when the API is off.
	Usage func() (u budget.Usage, ok bool)
	// APIAvailable reports whether the budgeted API can serve requests.
	APIAvailable func() bool
	Metrics      http.Handler
	Version      string
	Logger       logger.Logger
	Now          func() time.Time
}

// Handler serves the read API.
type Handler struct {
	deps    Deps
	started time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Snapshot == nil {
		deps.Snapshot = aggregator.NewSnapshot()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{deps: deps, started: deps.Now()}
}

// Health reports liveness and whether a run has completed.
func (h *Handler) Health(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}

	if _, ok := h.deps.Snapshot.Latest(); ok {
		checks["last_run"] = "ok"
	} else {
		checks["last_run"] = "pending"
	}
	if h.deps.APIAvailable != nil {
		if h.deps.APIAvailable() {
			checks["newsapi"] = "available"
		} else {
			checks["newsapi"] = "unavailable"
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"version":   h.deps.Version,
		"uptime":    h.deps.Now().Sub(h.started).Round(time.Second).String(),
		"checks":    checks,
		"timestamp": h.deps.Now().UTC().Format(time.RFC3339),
	})
}

// ListArticles returns the latest articles, filtered by ?category= and
// capped by ?limit=.
func (h *Handler) ListArticles(c *gin.Context) {
	var cat domain.Category
	if raw := c.Query("category"); raw != "" {
		parsed, err := domain.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_CATEGORY", err.Error()))
			return
		}
		cat = parsed
	}

	limit := defaultArticleLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxArticleLimit {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_LIMIT", "limit must be between 1 and "+strconv.Itoa(maxArticleLimit)))
			return
		}
		limit = n
	}

	articles := h.deps.Snapshot.Articles(cat, limit)
	resp := gin.H{
		"articles": articles,
		"count":    len(articles),
	}
	if latest, ok := h.deps.Snapshot.Latest(); ok {
		resp["generated_at"] = latest.FinishedAt
	}
	c.JSON(http.StatusOK, resp)
}

// Stats reports the last run, cache tiers and credit usage.
func (h *Handler) Stats(c *gin.Context) {
	resp := gin.H{}
	if latest, ok := h.deps.Snapshot.Latest(); ok {
		resp["last_run"] = gin.H{
			"started_at":  latest.StartedAt,
			"finished_at": latest.FinishedAt,
			"articles":    len(latest.Articles),
			"stats":       latest.Stats,
		}
	}
	if h.deps.CacheStats != nil {
		resp["caches"] = h.deps.CacheStats()
	}
	if h.deps.Usage != nil {
		if u, ok := h.deps.Usage(); ok {
			resp["credits"] = u
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh runs an aggregation now. ?scrape=true adds the scrape supplement
// and ?fresh=true bypasses the feed cache.
func (h *Handler) Refresh(c *gin.Context) {
	req := aggregator.Request{
		IncludeScrape: queryBool(c, "scrape"),
		SkipCache:     queryBool(c, "fresh"),
	}

	res, err := h.deps.Runner.Run(c.Request.Context(), req)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.deps.Logger).Error("Refresh failed", logger.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody("REFRESH_FAILED", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": len(res.Articles),
		"stats":    res.Stats,
	})
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
