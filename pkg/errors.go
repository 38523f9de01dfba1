package himitsu

import "fmt"

// The daemon's error taxonomy. These are distinguished kinds, not just
// wrapped strings, so callers (the dispatcher, the handler, the CLIs) can
// branch on what went wrong without parsing messages.

// IncomingMessageError reports a malformed frame or JSON payload on a
// connection. It closes only the offending connection.
type IncomingMessageError struct{ Message string }

func (e *IncomingMessageError) Error() string {
	return fmt.Sprintf("error parsing incoming message: %s", e.Message)
}

// OutgoingMessageError reports a serialization or write failure while
// sending a response.
type OutgoingMessageError struct{ Message string }

func (e *OutgoingMessageError) Error() string {
	return fmt.Sprintf("error serializing and sending response: %s", e.Message)
}

// IoError wraps an underlying I/O failure (socket read/write, file access).
type IoError struct{ Err error }

func (e *IoError) Error() string { return fmt.Sprintf("io error: %v", e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// EncodingError reports a base64 or UTF-8 decoding failure.
type EncodingError struct{ Message string }

func (e *EncodingError) Error() string { return fmt.Sprintf("encoding error: %s", e.Message) }

// ConfigError reports malformed configuration JSON/YAML, or a RuleSet that
// failed to compile.
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %s", e.Message) }

// WebConfigError reports an HTTP fetch failure while loading configuration
// from a remote URL.
type WebConfigError struct{ Message string }

func (e *WebConfigError) Error() string { return fmt.Sprintf("failed to fetch configuration: %s", e.Message) }

// CryptographyError reports a key-length mismatch or AEAD
// decryption/authentication failure.
type CryptographyError struct{ Message string }

func (e *CryptographyError) Error() string { return e.Message }
