// Package categorize assigns categories to transactions by ordered keyword
// matching on the description.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/smart-budget/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rule maps a keyword to a category label.
type Rule struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Category string `yaml:"category" json:"category"`
}

// Rules is an ordered rule table; earlier rules win.
type Rules []Rule

type rulesFile struct {
	Rules Rules `yaml:"rules"`
}

// DefaultRules returns a fresh copy of the built-in rule table.
func DefaultRules() Rules {
	rules, err := ParseRules(embeddedRules)
	if err != nil {
		panic(fmt.Sprintf("categorize: embedded rules are invalid: %v", err))
	}
	return rules
}

// ParseRules decodes a YAML rule table of the form
//
//	rules:
//	  - keyword: uber
//	    category: Transport
func ParseRules(data []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseRules: failed to parse YAML rules: %w", err)
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("ParseRules: rule %d needs both keyword and category", i)
		}
	}
	return f.Rules, nil
}

// LoadRules reads a rule table from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: %w", err)
	}
	return ParseRules(data)
}

// Categorizer applies a fixed rule table. It holds no mutable state and is
// safe for concurrent use.
type Categorizer struct {
	rules Rules
}

// New creates a categorizer over a private copy of rules with keywords
// lower-cased.
func New(rules Rules) *Categorizer {
	c := &Categorizer{rules: make(Rules, len(rules))}
	for i, r := range rules {
		c.rules[i] = Rule{Keyword: strings.ToLower(r.Keyword), Category: r.Category}
	}
	return c
}

// Rules returns a copy of the active rule table.
func (c *Categorizer) Rules() Rules {
	return append(Rules(nil), c.rules...)
}

// Match returns the category of the first rule whose keyword occurs in the
// lower-cased description.
func (c *Categorizer) Match(description string) (string, bool) {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		if strings.Contains(desc, r.Keyword) {
			return r.Category, true
		}
	}
	return "", false
}

// Categorize returns a new sequence in which every transaction without a
// category has been matched against the rules. Existing categories are
// never changed; unmatched transactions stay uncategorized.
func (c *Categorizer) Categorize(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if !tx.HasCategory() {
			if category, ok := c.Match(tx.Description); ok {
				tx = tx.WithCategory(category)
			}
		}
		out[i] = tx
	}
	return out
}
