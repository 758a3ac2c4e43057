package skydb

import "log/slog"

// Option configures a Client.
type Option func(*Client)

// DefaultMaxRetries is the number of conflict retries SetFile makes after
// its first update attempt.
const DefaultMaxRetries = 3

// WithLogger sets the logger used for write state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxRetries sets how many times a conflicting update is re-looked-up and
// resubmitted. Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithSerializedWrites controls whether overlapping SetFile calls on the same
// (public key, DataKey) within this Client queue behind each other. Enabled by
// default. When disabled they race at the registry like separate processes.
func WithSerializedWrites(enabled bool) Option {
	return func(c *Client) {
		c.serialize = enabled
	}
}

// WithStrictLookup makes a failed pre-write lookup abort SetFile with a
// Transport error instead of falling back to revision 0.
func WithStrictLookup() Option {
	return func(c *Client) {
		c.strictLookup = true
	}
}
