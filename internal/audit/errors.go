package audit

import "errors"

var (
	// ErrToolUnavailable means the external analyzer is missing or not executable.
	ErrToolUnavailable = errors.New("analysis tool unavailable")
	// ErrToolExecution means the analyzer exited non-zero or produced malformed output.
	ErrToolExecution = errors.New("analysis tool failed")
	// ErrIO means a file or path could not be read.
	ErrIO = errors.New("i/o error")
	// ErrNetwork means a TLS endpoint could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrCertificate means a certificate was missing or could not be interpreted.
	ErrCertificate = errors.New("certificate error")
	// ErrConfigParse means the settings are malformed. It is the only fatal class.
	ErrConfigParse = errors.New("invalid configuration")
)
