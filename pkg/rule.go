package himitsu

import (
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed rules/default.yaml
var defaultRulesFS embed.FS

// RuleFile is the on-disk shape of a YAML rule pack, matching the teacher's
// richer rule schema so operator-supplied rule packs and the embedded
// defaults share one format.
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Rule is a named regular expression plus the metadata used for display,
// triage and (optionally) entropy-assisted filtering. Only Name and Pattern
// are load-bearing for the wire Finding; the rest exists for operators
// reading/maintaining the rule pack.
type Rule struct {
	// Name is a human-readable rule name. It becomes Finding.Name.
	Name string `yaml:"name" json:"name"`

	// ID is a machine-readable identifier, stable across renames of Name.
	ID string `yaml:"id" json:"id,omitempty"`

	// Description is shown to operators maintaining the rule pack.
	Description string `yaml:"description" json:"description,omitempty"`

	// Tags categorize the rule (e.g. "cloud", "private-key").
	Tags []string `yaml:"tags" json:"tags,omitempty"`

	// Pattern is an extended-regex pattern matched against scanned content.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Redact is an optional [prefix, suffix] pair of byte counts used by
	// CLI front-ends that choose to display a redacted form of a match.
	// It never affects Finding.Value, which is always verbatim.
	Redact []int `yaml:"redact" json:"redact,omitempty"`

	// MinEntropy, if greater than zero, requires a match's Shannon entropy
	// to meet this threshold before it is surfaced as a Finding. Zero (the
	// default for every rule in the embedded table) disables the check.
	MinEntropy float64 `yaml:"entropy" json:"entropy,omitempty"`

	// Tests are assertions used by rule authors; not consulted at runtime.
	Tests RuleTests `yaml:"tests" json:"-"`

	History []string `yaml:"history" json:"-"`
	Refs    []string `yaml:"refs" json:"-"`
	Notes   []string `yaml:"notes" json:"-"`
}

// RuleTests holds rule-author assertions: strings expected to match
// (Assert) and strings expected not to (AssertNot).
type RuleTests struct {
	Assert    []string `yaml:"assert"`
	AssertNot []string `yaml:"assert_not"`
}

// LoadDefaultRules loads the built-in default rule table embedded in the
// binary. It is the canonical starting point for every fresh Configuration.
func LoadDefaultRules() ([]Rule, error) {
	data, err := defaultRulesFS.ReadFile("rules/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded default rule file: %w", err)
	}

	var ruleFile RuleFile
	if err := yaml.Unmarshal(data, &ruleFile); err != nil {
		return nil, fmt.Errorf("failed to parse embedded default rule file: %w", err)
	}

	return ruleFile.Rules, nil
}

// LoadRulesFromFile loads a supplementary rule pack from a single YAML file.
func LoadRulesFromFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var ruleFile RuleFile
	if err := yaml.Unmarshal(data, &ruleFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return ruleFile.Rules, nil
}

// LoadRulesFromDirectory loads and concatenates every *.yaml/*.yml rule
// pack found directly inside dirPath.
func LoadRulesFromDirectory(dirPath string) ([]Rule, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var allRules []Rule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		filePath := filepath.Join(dirPath, name)
		rules, err := LoadRulesFromFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules from %s: %w", filePath, err)
		}

		allRules = append(allRules, rules...)
	}

	return allRules, nil
}

// LoadRules loads a rule pack from either a single file or a directory of
// files, dispatching on the path's type.
func LoadRules(path string) ([]Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return LoadRulesFromDirectory(path)
	}
	return LoadRulesFromFile(path)
}

// NormalizeExtendedRegex strips PCRE (?x) extended-syntax whitespace and
// comments so the pattern can be compiled by engines (Go's regexp, the
// per-rule refinement step) that don't understand the flag natively.
// Character classes and escape sequences are left untouched.
func NormalizeExtendedRegex(pattern string) string {
	if !strings.Contains(pattern, "(?x)") {
		return pattern
	}

	pattern = strings.ReplaceAll(pattern, "(?x)", "")

	runes := []rune(pattern)
	var result strings.Builder
	inCharClass := false
	inEscape := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inEscape:
			result.WriteRune(r)
			inEscape = false

		case r == '\\':
			result.WriteRune(r)
			inEscape = true

		case r == '[' && !inCharClass:
			result.WriteRune(r)
			inCharClass = true

		case r == ']' && inCharClass:
			result.WriteRune(r)
			inCharClass = false

		case inCharClass:
			result.WriteRune(r)

		case r == '#' && !inCharClass:
			for i < len(runes) && runes[i] != '\n' && runes[i] != '\r' {
				i++
			}
			i-- // compensate for the loop's i++, so the newline itself is reprocessed

		case unicode.IsSpace(r) && !inCharClass:
			continue

		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ShannonEntropy computes the Shannon entropy, in bits per rune, of s.
func ShannonEntropy(s string) float64 {
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}

	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy
}
