package domain

// Tier ranks sources for RSS batch ordering. Lower tiers are fetched first.
type Tier int

const (
	// TierFast marks known-fast, reliable feeds.
	TierFast Tier = 1
	// TierStandard is the default tier.
	TierStandard Tier = 2
	// TierSlow marks slow or flaky feeds that are fetched last.
	TierSlow Tier = 3
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t >= TierFast && t <= TierSlow
}

// SourceDescriptor describes one upstream feed. Owned by the registry and
// read-only at runtime.
type SourceDescriptor struct {
	Name     string   `json:"name"     mapstructure:"name"     yaml:"name"`
	URL      string   `json:"url"      mapstructure:"url"      yaml:"url"`
	Category Category `json:"category" mapstructure:"category" yaml:"category"`
	Active   bool     `json:"active"   mapstructure:"active"   yaml:"active"`
	Tier     Tier     `json:"tier"     mapstructure:"tier"     yaml:"tier"`
}
