package lastfm

import "fmt"

// ErrUnavailable indicates the document could not be fetched: connection
// failure, timeout, or a server error.
type ErrUnavailable struct {
	Cause error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("last.fm unavailable: %v", e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrBadURL indicates a request URL could not be constructed.
type ErrBadURL struct {
	URL   string
	Cause error
}

func (e *ErrBadURL) Error() string {
	return fmt.Sprintf("invalid request url %s: %v", e.URL, e.Cause)
}

func (e *ErrBadURL) Unwrap() error { return e.Cause }
