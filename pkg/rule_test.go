package himitsu

import (
	"regexp"
	"testing"
)

func TestLoadDefaultRules(t *testing.T) {
	rules, err := LoadDefaultRules()
	if err != nil {
		t.Fatalf("LoadDefaultRules: %v", err)
	}

	if len(rules) == 0 {
		t.Fatal("expected at least one default rule")
	}

	seenIDs := make(map[string]bool)
	for _, rule := range rules {
		t.Run(rule.ID, func(t *testing.T) {
			if rule.Name == "" {
				t.Error("rule has empty name")
			}
			if rule.ID == "" {
				t.Fatal("rule has empty id")
			}
			if seenIDs[rule.ID] {
				t.Errorf("duplicate rule id %q", rule.ID)
			}
			seenIDs[rule.ID] = true

			normalized := NormalizeExtendedRegex(rule.Pattern)
			re, err := regexp.Compile(normalized)
			if err != nil {
				t.Fatalf("pattern does not compile: %v", err)
			}

			for _, s := range rule.Tests.Assert {
				if !re.MatchString(s) {
					t.Errorf("expected pattern to match %q", s)
				}
			}
			for _, s := range rule.Tests.AssertNot {
				if re.MatchString(s) {
					t.Errorf("expected pattern not to match %q", s)
				}
			}
		})
	}
}

func TestDefaultRuleCategoriesPresent(t *testing.T) {
	rules, err := LoadDefaultRules()
	if err != nil {
		t.Fatalf("LoadDefaultRules: %v", err)
	}

	want := []string{
		"SlackToken", "RsaPrivateKey", "OpenSshPrivateKey", "DsaPrivateKey",
		"EcPrivateKey", "PgpPrivateKeyBlock", "Pkcs8PrivateKey",
		"Ssh2EncryptedPrivateKey", "EncryptedPrivateKey", "FacebookOAuth",
		"TwitterOAuth", "Github", "GithubToken", "GoogleOAuth", "AwsKey",
		"HerokuApiKey", "GenericSecret", "SlackWebhook", "GcpServiceAccount",
		"TwilioApiKey", "PasswordInUrl", "SlackInternal", "EthPrivateKey",
		"NpmToken",
	}

	have := make(map[string]bool, len(rules))
	for _, r := range rules {
		have[r.Name] = true
	}

	for _, name := range want {
		if !have[name] {
			t.Errorf("missing default rule %q", name)
		}
	}
}

func TestNormalizeExtendedRegexStripsCommentsAndWhitespace(t *testing.T) {
	pattern := `(?x)
		\b
		DUMMY  # a comment
		[A-Z0-9]{4}
		\b`

	got := NormalizeExtendedRegex(pattern)
	re, err := regexp.Compile(got)
	if err != nil {
		t.Fatalf("normalized pattern does not compile: %v (%q)", err, got)
	}
	if !re.MatchString("DUMMYABCD") {
		t.Errorf("expected normalized pattern to match DUMMYABCD, got %q", got)
	}
}

func TestShannonEntropyEmptyString(t *testing.T) {
	if got := ShannonEntropy(""); got != 0 {
		t.Errorf("ShannonEntropy(\"\") = %v, want 0", got)
	}
}

func TestShannonEntropyUniformVsRepeated(t *testing.T) {
	repeated := ShannonEntropy("aaaaaaaaaa")
	uniform := ShannonEntropy("ab3F9zQ7xP")

	if repeated >= uniform {
		t.Errorf("expected repeated string entropy (%v) to be lower than varied string entropy (%v)", repeated, uniform)
	}
}
