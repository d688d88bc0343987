package moderation

import (
	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/metrics"
)

const (
	// DefaultMinQualityScore is the lowest approvable score.
	DefaultMinQualityScore = 0.3
	// DefaultDuplicateThreshold is the combined similarity at which an
	// article is a duplicate.
	DefaultDuplicateThreshold = 0.65
)

// Options configures a Moderator.
type Options struct {
	MinQualityScore    float64
	DuplicateThreshold float64
	// Reliability defaults to DefaultReliability with a 24h lookup cache.
	Reliability     *Reliability
	SpamKeywords    []string
	PromoIndicators []string
	Logger          logger.Logger
	Metrics         *metrics.Metrics
}

// Moderator scores and gates articles. It is safe for concurrent use.
type Moderator struct {
	minScore    float64
	dupThresh   float64
	reliability *Reliability
	spam        *spamDetector
	log         logger.Logger
	metrics     *metrics.Metrics
}

// New creates a Moderator.
func New(opts Options) *Moderator {
	if opts.MinQualityScore <= 0 {
		opts.MinQualityScore = DefaultMinQualityScore
	}
	if opts.DuplicateThreshold <= 0 || opts.DuplicateThreshold > 1 {
		opts.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if opts.Reliability == nil {
		opts.Reliability = NewReliability(nil, 0, nil)
	}
	if opts.SpamKeywords == nil {
		opts.SpamKeywords = DefaultSpamKeywords
	}
	if opts.PromoIndicators == nil {
		opts.PromoIndicators = DefaultPromoIndicators
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Moderator{
		minScore:    opts.MinQualityScore,
		dupThresh:   opts.DuplicateThreshold,
		reliability: opts.Reliability,
		spam:        newSpamDetector(opts.SpamKeywords, opts.PromoIndicators),
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Reliability returns the source table.
func (m *Moderator) Reliability() *Reliability {
	return m.reliability
}

// ModerateArticle scores a against prior, the articles already accepted.
func (m *Moderator) ModerateArticle(a domain.Article, prior []domain.Article) Result {
	var flags []Flag
	flags = append(flags, checkDuplicate(a, prior, m.dupThresh)...)
	flags = append(flags, checkQuality(a)...)
	flags = append(flags, m.reliability.check(a.Source)...)
	flags = append(flags, m.spam.check(a.Title, a.Description)...)

	score := 1.0
	for _, f := range flags {
		score -= f.Penalty
	}
	score = min(max(score, 0), 1)

	res := Result{Score: score, Flags: flags}
	if res.Flags == nil {
		res.Flags = []Flag{}
	}
	res.Approved = score >= m.minScore && !res.HasSeverity(SeverityHigh)
	if len(flags) > 0 {
		res.Reason = reason(flags)
	}

	m.metrics.RecordModeration(res.Approved, res.FlagTypes())
	if !res.Approved {
		m.log.Debug("Article rejected",
			logger.Source(a.Source),
			logger.URL(a.Link),
			logger.Float64("score", score),
			logger.String("reason", res.Reason),
		)
	}
	return res
}

// ModerateArticles moderates batch left to right. Each article is compared
// only against the articles approved before it in the same call.
func (m *Moderator) ModerateArticles(batch []domain.Article) BatchResult {
	out := BatchResult{
		Approved: []domain.Article{},
		Rejected: []domain.Article{},
		Results:  make([]Result, 0, len(batch)),
	}
	for _, a := range batch {
		res := m.ModerateArticle(a, out.Approved)
		out.Results = append(out.Results, res)
		if res.Approved {
			out.Approved = append(out.Approved, a)
		} else {
			out.Rejected = append(out.Rejected, a)
		}
	}
	return out
}
