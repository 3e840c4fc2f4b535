package serialio

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// Conn is a line transport over a net.Conn, used by the device simulator's
// TCP mode and by tests. Each ReadLine applies a fresh read deadline.
type Conn struct {
	c       net.Conn
	timeout time.Duration
	lb      lineBuffer
	tmp     [256]byte
}

func NewConn(c net.Conn, readTimeout time.Duration) *Conn {
	return &Conn{c: c, timeout: readTimeout}
}

// ReadLine behaves like Port.ReadLine: a deadline expiry is a quiet link,
// any other error means the channel is gone.
func (c *Conn) ReadLine() (line string, ok bool, err error) {
	if line, ok := c.lb.next(); ok {
		return line, true, nil
	}
	if err := c.c.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", false, err
	}
	n, err := c.c.Read(c.tmp[:])
	if n > 0 {
		c.lb.feed(c.tmp[:n])
	}
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			line, ok = c.lb.next()
			return line, ok, nil
		}
		return "", false, fmt.Errorf("conn read: %w", err)
	}
	line, ok = c.lb.next()
	return line, ok, nil
}

func (c *Conn) WriteLine(s string) error {
	if _, err := c.c.Write(append([]byte(s), '\n')); err != nil {
		return fmt.Errorf("conn write: %w", err)
	}
	return nil
}

func (c *Conn) Close() error { return c.c.Close() }
