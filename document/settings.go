package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MatchingStrategy controls how documents missing some query words are treated.
type MatchingStrategy string

const (
	// MatchingStrategyAll requires every query word to match.
	MatchingStrategyAll MatchingStrategy = "all"
	// MatchingStrategyAny accepts documents matching any query word; the
	// words ranking rule penalizes missing coverage.
	MatchingStrategyAny MatchingStrategy = "any"
)

// Default ranking rule names in their default order.
const (
	RuleWords     = "words"
	RuleTypo      = "typo"
	RuleProximity = "proximity"
	RuleAttribute = "attribute"
	RuleExactness = "exactness"
	RuleSort      = "sort"
)

// TypoTolerance configures typo matching.
type TypoTolerance struct {
	// Enabled toggles typo matching. Defaults to true.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MinWordSizeOneTypo is the minimum query word length (in runes) for
	// which one typo is tolerated.
	MinWordSizeOneTypo int `json:"minWordSizeOneTypo" yaml:"minWordSizeOneTypo"`

	// MinWordSizeTwoTypos is the minimum query word length for which two
	// typos are tolerated.
	MinWordSizeTwoTypos int `json:"minWordSizeTwoTypos" yaml:"minWordSizeTwoTypos"`
}

// Budget returns the number of typos tolerated for a query word of the given
// rune length.
func (t TypoTolerance) Budget(wordLen int) int {
	if !t.Enabled {
		return 0
	}
	switch {
	case wordLen >= t.MinWordSizeTwoTypos:
		return 2
	case wordLen >= t.MinWordSizeOneTypo:
		return 1
	default:
		return 0
	}
}

// Settings holds the per-index configuration beyond the field schema.
type Settings struct {
	// PrimaryKey is the document field holding the user-supplied primary key.
	PrimaryKey string `json:"primaryKey" yaml:"primaryKey"`

	// RankingRules is the ordered list of ranking rule names. Earlier rules
	// dominate; later rules break ties.
	RankingRules []string `json:"rankingRules" yaml:"rankingRules"`

	// TypoTolerance configures typo matching.
	TypoTolerance TypoTolerance `json:"typoTolerance" yaml:"typoTolerance"`

	// MatchingStrategy selects whole-query vs partial-query matching.
	MatchingStrategy MatchingStrategy `json:"matchingStrategy" yaml:"matchingStrategy"`

	// StopWords are removed during tokenization of both documents and queries.
	StopWords []string `json:"stopWords,omitempty" yaml:"stopWords,omitempty"`

	// Separators are extra runes treated as word boundaries in addition to
	// non-letter, non-digit runes.
	Separators string `json:"separators,omitempty" yaml:"separators,omitempty"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		PrimaryKey: "id",
		RankingRules: []string{
			RuleWords, RuleTypo, RuleProximity, RuleAttribute, RuleExactness, RuleSort,
		},
		TypoTolerance: TypoTolerance{
			Enabled:             true,
			MinWordSizeOneTypo:  3,
			MinWordSizeTwoTypos: 5,
		},
		MatchingStrategy: MatchingStrategyAll,
	}
}

// Validate checks rule names and strategy values.
func (s Settings) Validate() error {
	if s.PrimaryKey == "" {
		return fmt.Errorf("settings: primary key field must not be empty")
	}
	seen := make(map[string]struct{}, len(s.RankingRules))
	for _, rule := range s.RankingRules {
		switch rule {
		case RuleWords, RuleTypo, RuleProximity, RuleAttribute, RuleExactness, RuleSort:
		default:
			return fmt.Errorf("settings: invalid ranking rule %q", rule)
		}
		if _, dup := seen[rule]; dup {
			return fmt.Errorf("settings: duplicate ranking rule %q", rule)
		}
		seen[rule] = struct{}{}
	}
	switch s.MatchingStrategy {
	case MatchingStrategyAll, MatchingStrategyAny, "":
	default:
		return fmt.Errorf("settings: invalid matching strategy %q", s.MatchingStrategy)
	}
	tt := s.TypoTolerance
	if tt.Enabled && tt.MinWordSizeOneTypo > tt.MinWordSizeTwoTypos {
		return fmt.Errorf("settings: minWordSizeOneTypo %d exceeds minWordSizeTwoTypos %d",
			tt.MinWordSizeOneTypo, tt.MinWordSizeTwoTypos)
	}
	return nil
}

// LoadSettingsFile reads settings from a YAML file.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettings(data)
}

// ParseSettings parses YAML settings, filling unset fields from defaults.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// WriteSettingsFile writes settings to a YAML file.
func WriteSettingsFile(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
