package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure so escalation decisions key on the kind
// rather than on error message text.
type Kind int

// Failure kinds recognized by the pipeline.
const (
	// KindTransport covers network errors, timeouts and non-2xx statuses
	// other than an explicit block.
	KindTransport Kind = iota
	// KindForbidden is an explicit anti-bot block (403); it short-circuits
	// straight to the browser tier.
	KindForbidden
	// KindParse means the payload was retrieved but could not be decoded.
	KindParse
	// KindNotFound is a clean "no data" outcome (404); callers treat it as
	// zero transitions, not a failure.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindForbidden:
		return "forbidden"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned past the pipeline boundary.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf extracts the failure kind from an error chain; errors that did not
// originate in the pipeline report as transport failures.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}

// IsNotFound reports whether err is a clean no-data outcome.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
