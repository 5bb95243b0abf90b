package sessionindex

import "errors"

// Error kinds named in spec §7. The scan loop does not return these
// sentinels: it logs the underlying I/O error or invalid-id condition at
// warn and drops the affected file/provider from the current scan.
var (
	ErrIOTransient       = errors.New("sessionindex: transient I/O failure")
	ErrInvalidSessionID  = errors.New("sessionindex: invalid session id")
)
