package feed

import (
	"context"
	"net/http"

	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
)

type state int

const (
	stateAttempt state = iota
	stateBackoff
	stateFallback
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAttempt:
		return "attempt"
	case stateBackoff:
		return "backoff"
	case stateFallback:
		return "fallback"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// machine drives one source through Attempt, Backoff, Fallback and Done.
type machine struct {
	client *Client
	src    domain.SourceDescriptor
	// prior is the cached entry seen before fetching, used for
	// conditional requests.
	prior *cache.Entry

	attempt int
	lastErr *FetchError
	result  []domain.Article
}

func (m *machine) run(ctx context.Context) []domain.Article {
	st := stateAttempt
	for st != stateDone {
		if ctx.Err() != nil {
			m.client.log.Debug("Feed fetch cancelled",
				logger.Source(m.src.Name),
				logger.String("state", st.String()),
			)
			return []domain.Article{}
		}
		switch st {
		case stateAttempt:
			st = m.doAttempt(ctx)
		case stateBackoff:
			st = m.doBackoff(ctx)
		case stateFallback:
			st = m.doFallback(ctx)
		case stateDone:
		}
	}
	if m.result == nil {
		return []domain.Article{}
	}
	return m.result
}

func (m *machine) doAttempt(ctx context.Context) state {
	m.attempt++
	c := m.client

	res, err := c.attempt(ctx, m.src, m.validators())
	if err == nil && res.notModified {
		if articles, ok := m.revalidated(); ok {
			c.metrics.RecordFeedOutcome(m.src.Name, "not_modified")
			m.result = articles
			return stateDone
		}
		// Nothing left to re-serve; repeat the attempt unconditionally.
		res, err = c.attempt(ctx, m.src, cache.Validators{})
		if err == nil && res.notModified {
			err = ClassifyHTTPStatus(http.StatusNotModified, m.src.URL)
		}
	}

	if err != nil {
		m.lastErr = AsFetchError(err, m.src.URL)
		c.metrics.RecordFeedOutcome(m.src.Name, string(m.lastErr.Kind))
		c.log.Warn("Feed fetch attempt failed",
			logger.Source(m.src.Name),
			logger.URL(m.src.URL),
			logger.Int("attempt", m.attempt),
			logger.String("kind", string(m.lastErr.Kind)),
			logger.String("class", string(m.lastErr.Class())),
			logger.Error(err),
		)
		if !m.lastErr.Retryable() || m.attempt >= c.backoff.Attempts() {
			return stateFallback
		}
		return stateBackoff
	}

	if c.cache != nil {
		c.cache.Set(m.src.URL, res.articles, res.validators)
	}
	c.metrics.RecordFeedOutcome(m.src.Name, "ok")
	m.result = res.articles
	return stateDone
}

// validators returns the conditional-request validators for the next
// attempt. The cache is read again on every attempt since a background
// refresh may have stored a newer fetch since prior was captured.
func (m *machine) validators() cache.Validators {
	if m.prior == nil {
		return cache.Validators{}
	}
	if c := m.client.cache; c != nil {
		if v, ok := c.Validators(m.src.URL); ok {
			return v
		}
	}
	return m.prior.Validators
}

// revalidated re-serves the cached payload after a 304 and extends its
// expiry, re-inserting it when Get already evicted it.
func (m *machine) revalidated() ([]domain.Article, bool) {
	c := m.client.cache
	if c == nil {
		return nil, false
	}
	if articles, ok := c.Touch(m.src.URL); ok {
		return articles, true
	}
	if m.prior == nil {
		return nil, false
	}
	c.Set(m.src.URL, m.prior.Articles, m.prior.Validators)
	return domain.CloneArticles(m.prior.Articles), true
}

func (m *machine) doBackoff(ctx context.Context) state {
	delay := m.client.backoff.Delay(m.attempt)
	m.client.log.Debug("Backing off before retry",
		logger.Source(m.src.Name),
		logger.Int("attempt", m.attempt),
		logger.Duration("delay", delay),
	)
	if err := m.client.sleep(ctx, delay); err != nil {
		return stateDone
	}
	return stateAttempt
}

func (m *machine) doFallback(ctx context.Context) state {
	c := m.client
	if c.fallback == nil {
		c.metrics.RecordFeedOutcome(m.src.Name, "failed")
		return stateDone
	}

	articles := c.fallback.ScrapeByName(ctx, m.src.Name)
	c.metrics.RecordFeedOutcome(m.src.Name, "fallback")
	c.log.Info("Feed failed, used scrape fallback",
		logger.Source(m.src.Name),
		logger.Int("attempts", m.attempt),
		logger.Int("articles", len(articles)),
	)
	m.result = articles
	return stateDone
}
