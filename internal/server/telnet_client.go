package server

import (
	"bufio"
	"net"
	"strings"
)

// TelnetClient wraps a raw TCP connection for line-based communication.
// Frames are written as a status line followed by the ASCII grid.
type TelnetClient struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// NewTelnetClient creates a new TelnetClient from a TCP connection.
func NewTelnetClient(conn net.Conn) *TelnetClient {
	return &TelnetClient{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		writer:  bufio.NewWriter(conn),
	}
}

// ReadLine reads a non-empty line from the connection (blocking).
// Returns the line trimmed of whitespace and the trailing newline.
func (c *TelnetClient) ReadLine() (string, error) {
	for c.scanner.Scan() {
		if line := strings.TrimSpace(c.scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	// Scanner finished without error means EOF/connection closed
	return "", net.ErrClosed
}

// SendFrame writes the frame's text form followed by a blank line.
func (c *TelnetClient) SendFrame(f *Frame) error {
	text := strings.ReplaceAll(f.Text(), "\n", "\r\n")
	if _, err := c.writer.WriteString(text + "\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *TelnetClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
