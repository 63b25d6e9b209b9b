package server

// Client abstracts the connection layer for both telnet and WebSocket
// connections so one command loop serves either.
type Client interface {
	// ReadLine blocks until a complete command line is received (without newline).
	ReadLine() (string, error)

	// SendFrame writes one reply. WebSocket clients receive it as JSON,
	// telnet clients as text.
	SendFrame(f *Frame) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}
