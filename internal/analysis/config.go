package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Lexicon holds the two fixed keyword sets the lexicon scorer matches
// against. The terms are single lowercase word stems authored under the
// same tokenization rules Tokenize applies to input text.
type Lexicon struct {
	Liberal      []string `json:"liberal"`
	Conservative []string `json:"conservative"`
}

// ScoringWeights are the combiner's design constants. They are
// configuration data, not code: swapping them must not touch the
// combiner logic.
type ScoringWeights struct {
	TextWeight            float64 `json:"text_weight"`
	VotingWeight          float64 `json:"voting_weight"`
	LiberalThreshold      float64 `json:"liberal_threshold"`
	ConservativeThreshold float64 `json:"conservative_threshold"`
}

// Config bundles the swappable heuristics of the scoring engine
type Config struct {
	Lexicon Lexicon        `json:"lexicon"`
	Weights ScoringWeights `json:"weights"`
}

// ConfigStore manages the scoring configuration on disk
type ConfigStore struct {
	dataDir string
}

// NewConfigStore creates a config store rooted at dataDir
func NewConfigStore(dataDir string) *ConfigStore {
	return &ConfigStore{dataDir: dataDir}
}

// Load reads scoring.json from the data directory, falling back to the
// compiled-in defaults when the file does not exist.
func (c *ConfigStore) Load() (*Config, error) {
	filePath := filepath.Join(c.dataDir, "scoring.json")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open scoring config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode scoring config: %w", err)
	}

	return &cfg, nil
}

// Save writes the scoring configuration to the data directory
func (c *ConfigStore) Save(cfg *Config) error {
	if err := os.MkdirAll(c.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	filePath := filepath.Join(c.dataDir, "scoring.json")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create scoring config: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode scoring config: %w", err)
	}

	return nil
}

// DefaultConfig returns the built-in heuristic keyword sets and weights.
// Both lexicons are transparency-first heuristics, not learned models.
func DefaultConfig() *Config {
	return &Config{
		Lexicon: Lexicon{
			Liberal: []string{
				"environmental", "climate", "renewable", "green", "sustainability",
				"healthcare", "medicare", "medicaid", "universal", "coverage",
				"education", "student", "loan", "forgiveness", "public",
				"immigration", "refugee", "asylum", "pathway", "citizenship",
				"gun", "control", "regulation", "background", "check",
				"abortion", "reproductive", "rights", "choice", "women",
				"lgbtq", "gay", "lesbian", "transgender", "equality",
				"minimum", "wage", "labor", "union", "worker",
				"tax", "increase", "wealthy", "billionaire", "progressive",
			},
			Conservative: []string{
				"tax", "cut", "reduction", "deregulation", "free", "market",
				"business", "corporation", "entrepreneur", "small",
				"defense", "military", "veteran", "patriot", "national", "security",
				"border", "wall", "immigration", "enforcement", "deportation",
				"gun", "rights", "second", "amendment", "constitution",
				"abortion", "unborn", "sanctity", "life",
				"religious", "freedom", "christian", "values", "traditional",
				"fiscal", "conservative", "balanced", "budget", "deficit",
				"states", "federalism", "local", "control",
			},
		},
		Weights: ScoringWeights{
			TextWeight:            0.6,
			VotingWeight:          0.4,
			LiberalThreshold:      0.3,
			ConservativeThreshold: -0.3,
		},
	}
}

// keywordSet converts a lexicon term list to a lookup set
func keywordSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
