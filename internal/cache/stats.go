package cache

// Stats describes a cache tier.
type Stats struct {
	Tier        string  `json:"tier"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hitRate"`
	Entries     int     `json:"entries"`
	ApproxBytes int     `json:"approxBytes"`
}

func newStats(tier string, hits, misses int64, entries, bytes int) Stats {
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Tier:        tier,
		Hits:        hits,
		Misses:      misses,
		HitRate:     rate,
		Entries:     entries,
		ApproxBytes: bytes,
	}
}
