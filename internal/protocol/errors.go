package protocol

const (
	// Request decoding and field validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Session lifecycle.
	ErrPrecondition = "E_PRECONDITION"
	ErrPastDay      = "E_PAST_DAY"
	ErrLookup       = "E_LOOKUP"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:   {},
	ErrPrecondition: {},
	ErrPastDay:      {},
	ErrLookup:       {},
	ErrInternal:     {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
