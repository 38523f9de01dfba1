package himitsu

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// scannerConfig is the JSON wire shape of a Scanner: an explicit rule list
// plus an optional allowlist of hex SHA-256 value hashes. A Configuration
// loaded over the wire always carries its own rules rather than referring
// to the compiled-in defaults, so that a reload can swap the entire
// RuleSet atomically.
type scannerConfig struct {
	Rules     []Rule   `json:"rules"`
	Allowlist []string `json:"allowlist,omitempty"`
}

// configWire is the JSON wire shape of a Configuration.
type configWire struct {
	Scanner scannerConfig `json:"scanner"`
}

// Configuration is the daemon's live, hot-swappable configuration: a
// compiled Scanner (RuleSet plus allowlist). It is replaced wholesale under
// a writer lock on reload, never mutated in place.
type Configuration struct {
	Scanner *Scanner
}

// NewDefaultConfiguration builds a Configuration from the embedded default
// rule table, with no allowlist.
func NewDefaultConfiguration() (*Configuration, error) {
	rules, err := LoadDefaultRules()
	if err != nil {
		return nil, err
	}
	ruleSet, err := NewRuleSet(rules)
	if err != nil {
		return nil, err
	}
	return &Configuration{Scanner: NewScanner(ruleSet)}, nil
}

// configurationFromJSON compiles a Configuration from its wire bytes.
func configurationFromJSON(data []byte) (*Configuration, error) {
	var wire configWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}

	ruleSet, err := NewRuleSet(wire.Scanner.Rules)
	if err != nil {
		return nil, err
	}

	scanner := NewScanner(ruleSet)
	if len(wire.Scanner.Allowlist) > 0 {
		scanner.WithAllowlist(wire.Scanner.Allowlist)
	}
	return &Configuration{Scanner: scanner}, nil
}

// NewConfigurationFromFile reads path and parses it as a JSON Configuration.
func NewConfigurationFromFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Err: err}
	}
	return configurationFromJSON(data)
}

// NewConfigurationFromB64 decodes a base64 Configuration, optionally
// decrypting it first (empty keyHex means the base64 decodes directly to
// plaintext JSON). keyHex, when non-empty, is the 64-char hex AES-256-GCM
// key per §6.5.
func NewConfigurationFromB64(encoded, keyHex string) (*Configuration, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}

	plaintext := raw
	if keyHex != "" {
		key, err := DecodeKeyHex(keyHex)
		if err != nil {
			return nil, err
		}
		plaintext, err = openEnvelope(key, raw)
		if err != nil {
			return nil, err
		}
	}

	return configurationFromJSON(plaintext)
}

// httpClient is overridable in tests; NewConfigurationFromURL uses a
// blocking GET since configuration fetch happens once at startup or reload,
// never on the request path.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// NewConfigurationFromURL fetches url via a blocking HTTP GET, then decodes
// the body exactly as NewConfigurationFromB64 would.
func NewConfigurationFromURL(url, keyHex string) (*Configuration, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, &WebConfigError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &WebConfigError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &WebConfigError{Message: err.Error()}
	}

	return NewConfigurationFromB64(string(body), keyHex)
}

// EncryptConfigToB64 is the encrypt-config tool's counterpart to
// NewConfigurationFromB64: it seals plaintext JSON under key and returns the
// base64 of nonce||ciphertext||tag.
func EncryptConfigToB64(plaintext []byte, keyHex string) (string, error) {
	key, err := DecodeKeyHex(keyHex)
	if err != nil {
		return "", err
	}
	envelope, err := sealEnvelope(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(envelope), nil
}
