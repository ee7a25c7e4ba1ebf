package ai

import "errors"

// Provider errors. Adapters wrap one of these so callers can branch on the
// failure kind without knowing which backend produced it.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrRateLimited         = errors.New("ai provider rate limited")
)

// Transient reports whether err is a failure that a later attempt could
// plausibly get past. A malformed completion is not.
func Transient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrInferenceTimeout) ||
		errors.Is(err, ErrRateLimited)
}
