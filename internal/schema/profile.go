// Package schema binds the columns of an unknown CSV layout to canonical
// transaction fields, first by header name and then by cell content.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/smart-budget/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var embeddedProfile []byte

// Profile holds the header vocabulary and the income/expense flag markers.
type Profile struct {
	Headers        map[domain.ColumnRole][]string `yaml:"headers"`
	ExpenseMarkers []string                       `yaml:"expense_markers"`
}

// DefaultProfile returns the built-in English/Russian vocabulary.
func DefaultProfile() *Profile {
	p, err := ParseProfile(embeddedProfile)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded profile is invalid: %v", err))
	}
	return p
}

// ParseProfile decodes a YAML profile and validates its role names.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ParseProfile: failed to parse YAML profile: %w", err)
	}

	known := make(map[domain.ColumnRole]bool, len(domain.AllRoles))
	for _, r := range domain.AllRoles {
		known[r] = true
	}
	for role, variants := range p.Headers {
		if !known[role] {
			return nil, fmt.Errorf("ParseProfile: unknown field %q", role)
		}
		for i, v := range variants {
			if strings.TrimSpace(v) == "" {
				return nil, fmt.Errorf("ParseProfile: field %q: header variant %d is empty", role, i)
			}
		}
	}
	for _, role := range domain.RequiredRoles {
		if len(p.Headers[role]) == 0 {
			return nil, fmt.Errorf("ParseProfile: field %q needs at least one header variant", role)
		}
	}
	return &p, nil
}

// LoadProfileFile reads a profile from disk.
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadProfileFile: %w", err)
	}
	return ParseProfile(data)
}
