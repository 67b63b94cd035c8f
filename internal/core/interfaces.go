package core

// Frame is one raw wire message: a single UTF-8 JSON envelope.
type Frame []byte

// Identity is the opaque, caller-chosen name a client registers under.
type Identity string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. It fails when the
	// connection is closed or its outbound buffer is full.
	TrySend(Frame) error
	Close()
}
