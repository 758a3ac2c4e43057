package casregistry

// Usage restricts which programs should accept a given backend.
//
// In Go, "plugins" are linked at build time: a backend registers itself via init(),
// and is enabled in a binary by importing the backend package (often as a blank import).
type Usage uint8

const (
	// UsageClient indicates the backend may back a client-side blob store.
	UsageClient Usage = 1 << iota
	// UsageDaemon indicates the backend may back a long-running daemon (e.g. skydb-registryd).
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
