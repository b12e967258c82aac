package ports

// Transmitter delivers encoded telemetry frames best-effort. Send must not
// block beyond a bounded slice; a frame that cannot go out is dropped.
type Transmitter interface {
	Send(frame []byte) error
	Name() string
	Close() error
}
