package himitsu

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/flier/gohs/hyperscan"
)

// matchIndex answers "which rule positions match anywhere in this input"
// without running each rule's regex unconditionally. It is the mandatory
// prefilter stage of the two-stage matching strategy.
type matchIndex interface {
	// MatchedRules returns the sorted, de-duplicated positions of rules
	// that match anywhere in data.
	MatchedRules(data []byte) ([]int, error)
	Close() error
}

// RuleSet is an ordered sequence of Rules plus the derived multi-pattern
// index built from their patterns. There is exactly one index entry per
// rule, aligned by position.
type RuleSet struct {
	rules    []Rule
	patterns []*regexp.Regexp
	index    matchIndex
}

// NewRuleSet compiles rules into a RuleSet. If any pattern fails to
// compile, construction fails with a ConfigError.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, &ConfigError{Message: "rule set must contain at least one rule"}
	}

	patterns := make([]*regexp.Regexp, len(rules))
	for i, rule := range rules {
		normalized := NormalizeExtendedRegex(rule.Pattern)
		compiled, err := regexp.Compile(normalized)
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("rule %q: invalid pattern: %v", rule.Name, err)}
		}
		patterns[i] = compiled
	}

	idx, err := newHyperscanIndex(rules)
	if err != nil {
		// The per-rule patterns are already known-good (validated above);
		// a failure here means Hyperscan/Vectorscan itself isn't usable on
		// this host (e.g. the shared library isn't installed). Degrade to
		// the pure Go index rather than refusing to start.
		idx = newNaiveIndex(patterns)
	}

	return &RuleSet{
		rules:    rules,
		patterns: patterns,
		index:    idx,
	}, nil
}

// NewNaiveRuleSet compiles rules into a RuleSet that always uses the pure
// Go prefilter, bypassing Hyperscan even when it's available. It exists for
// benchmarking the two index strategies against each other.
func NewNaiveRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, &ConfigError{Message: "rule set must contain at least one rule"}
	}

	patterns := make([]*regexp.Regexp, len(rules))
	for i, rule := range rules {
		normalized := NormalizeExtendedRegex(rule.Pattern)
		compiled, err := regexp.Compile(normalized)
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("rule %q: invalid pattern: %v", rule.Name, err)}
		}
		patterns[i] = compiled
	}

	return &RuleSet{
		rules:    rules,
		patterns: patterns,
		index:    newNaiveIndex(patterns),
	}, nil
}

// Rules returns the RuleSet's rules in their original order.
func (rs *RuleSet) Rules() []Rule {
	return rs.rules
}

// Close releases any resources (e.g. the Hyperscan database) held by the
// RuleSet's index.
func (rs *RuleSet) Close() error {
	if rs.index != nil {
		return rs.index.Close()
	}
	return nil
}

// Scan runs the two-stage match: the prefilter index narrows down which
// rules matched anywhere in input, then each matching rule's regex is
// replayed to enumerate exact, non-overlapping match substrings. The
// result is the deduplicated union of Findings across all matching rules.
func (rs *RuleSet) Scan(input string) (FindingSet, error) {
	data := []byte(input)

	positions, err := rs.index.MatchedRules(data)
	if err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}

	results := NewFindingSet()
	for _, pos := range positions {
		rule := rs.rules[pos]
		pattern := rs.patterns[pos]

		matches := pattern.FindAllString(input, -1)
		for _, match := range matches {
			if rule.MinEntropy > 0 && ShannonEntropy(match) < rule.MinEntropy {
				continue
			}
			results[NewFinding("Regex", rule.Name, match)] = struct{}{}
		}
	}

	return results, nil
}

// hyperscanIndex implements matchIndex using a single compiled Hyperscan
// block database spanning every rule pattern.
type hyperscanIndex struct {
	database    hyperscan.BlockDatabase
	scratchPool sync.Pool
}

func newHyperscanIndex(rules []Rule) (*hyperscanIndex, error) {
	patterns := make([]*hyperscan.Pattern, len(rules))
	for i, rule := range rules {
		// SingleMatch: we only need to know a rule matched at least once
		// per scan, not every occurrence — the per-rule regexp replay in
		// Scan does the real span enumeration. DotAll: input is scanned as
		// a single blob, not line-by-line, so '.' should cross newlines
		// for patterns that rely on it (e.g. the generic secret rule).
		p := hyperscan.NewPattern(NormalizeExtendedRegex(rule.Pattern), hyperscan.DotAll|hyperscan.SingleMatch)
		p.Id = i
		patterns[i] = p
	}

	database, err := hyperscan.NewBlockDatabase(patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile hyperscan patterns: %w", err)
	}

	idx := &hyperscanIndex{database: database}
	idx.scratchPool = sync.Pool{
		New: func() any {
			scratch, err := hyperscan.NewManagedScratch(database)
			if err != nil {
				return nil
			}
			return scratch
		},
	}

	return idx, nil
}

func (h *hyperscanIndex) MatchedRules(data []byte) ([]int, error) {
	scratchIface := h.scratchPool.Get()
	if scratchIface == nil {
		return nil, fmt.Errorf("failed to acquire hyperscan scratch space")
	}
	scratch := scratchIface.(*hyperscan.Scratch)
	defer h.scratchPool.Put(scratch)

	seen := make(map[int]struct{})
	err := h.database.Scan(data, scratch, func(id uint, from, to uint64, flags uint, ctx any) error {
		seen[int(id)] = struct{}{}
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	positions := make([]int, 0, len(seen))
	for pos := range seen {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions, nil
}

func (h *hyperscanIndex) Close() error {
	if h.database != nil {
		return h.database.Close()
	}
	return nil
}

// naiveIndex implements matchIndex with a plain loop over the same
// compiled regexps used for extraction. It is the fallback used when
// Hyperscan/Vectorscan isn't available on the host, and the reference
// implementation exercised by the prefilter/extractor-agreement test.
type naiveIndex struct {
	patterns []*regexp.Regexp
}

func newNaiveIndex(patterns []*regexp.Regexp) *naiveIndex {
	return &naiveIndex{patterns: patterns}
}

func (n *naiveIndex) MatchedRules(data []byte) ([]int, error) {
	var positions []int
	for i, pattern := range n.patterns {
		if pattern.Match(data) {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

func (n *naiveIndex) Close() error {
	return nil
}
