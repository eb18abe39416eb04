package airtable

import "fmt"

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork covers transport failures and non-2xx responses.
	KindNetwork Kind = iota
	// KindDecode covers missing required keys, type mismatches and malformed payloads.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError is the single error type returned by Client.Fetch.
type FetchError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error { return e.Err }

func networkError(detail string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Detail: detail, Err: err}
}

func decodeError(detail string, err error) *FetchError {
	return &FetchError{Kind: KindDecode, Detail: detail, Err: err}
}
