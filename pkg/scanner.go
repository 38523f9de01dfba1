package himitsu

// Scanner wraps a RuleSet and an optional allowlist of hex SHA-256 value
// hashes. Findings whose ValueHash is allowlisted are dropped from the
// result.
type Scanner struct {
	RuleSet   *RuleSet
	Allowlist map[string]struct{}
}

// NewScanner builds a Scanner over ruleSet with no allowlist.
func NewScanner(ruleSet *RuleSet) *Scanner {
	return &Scanner{RuleSet: ruleSet}
}

// WithAllowlist sets the Scanner's allowlist from a slice of hex SHA-256
// strings and returns the Scanner for chaining.
func (s *Scanner) WithAllowlist(hashes []string) *Scanner {
	if len(hashes) == 0 {
		s.Allowlist = nil
		return s
	}
	allow := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		allow[h] = struct{}{}
	}
	s.Allowlist = allow
	return s
}

// Scan runs the RuleSet over data and drops any Finding whose ValueHash is
// present in the allowlist.
func (s *Scanner) Scan(data string) (FindingSet, error) {
	findings, err := s.RuleSet.Scan(data)
	if err != nil {
		return nil, err
	}

	if len(s.Allowlist) == 0 {
		return findings, nil
	}

	filtered := NewFindingSet()
	for f := range findings {
		if _, skip := s.Allowlist[f.ValueHash]; skip {
			continue
		}
		filtered[f] = struct{}{}
	}
	return filtered, nil
}

// Close releases the underlying RuleSet's resources.
func (s *Scanner) Close() error {
	if s.RuleSet != nil {
		return s.RuleSet.Close()
	}
	return nil
}
