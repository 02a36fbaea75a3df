package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable
	// (network failure, 5xx, malformed response).
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuth indicates the provider rejected the configured credentials.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNoProvider indicates no provider module is configured.
	ErrNoProvider = errors.New("no provider configured")
)

// IsRetryable reports whether the error is transient and the request
// may be retried by the caller after a delay. The engine itself never
// retries; this informs the transport layer's response to the user.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
