package httpclient

import "sync/atomic"

// DefaultUserAgents is the browser-like pool rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// UserAgents hands out User-Agent strings round-robin. Safe for concurrent use.
type UserAgents struct {
	pool []string
	next atomic.Uint64
}

// NewUserAgents returns a rotator over pool, or DefaultUserAgents when pool is empty.
func NewUserAgents(pool []string) *UserAgents {
	if len(pool) == 0 {
		pool = DefaultUserAgents
	}
	cp := make([]string, len(pool))
	copy(cp, pool)
	return &UserAgents{pool: cp}
}

// Next returns the next User-Agent in the pool.
func (u *UserAgents) Next() string {
	n := u.next.Add(1) - 1
	return u.pool[n%uint64(len(u.pool))]
}

// Len returns the pool size.
func (u *UserAgents) Len() int {
	return len(u.pool)
}
