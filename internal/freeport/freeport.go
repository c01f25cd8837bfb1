// Package freeport probes the OS for a free loopback TCP port.
package freeport

import (
	"errors"
	"fmt"
	"net"
)

const maxAttempts = 10

// ErrNoFreePort is returned when no usable port was found within the bounded
// number of attempts.
var ErrNoFreePort = errors.New("no free port found")

// Get reserves an OS-assigned ephemeral port on 127.0.0.1 by opening and
// immediately closing a listener, then returns the chosen port number.
//
// There is no reservation across processes: a concurrent allocator may pick
// the same number a moment later. Callers must treat the subsequent bind of
// the port as the authoritative success signal.
func Get() (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			lastErr = err
			continue
		}
		port := listener.Addr().(*net.TCPAddr).Port
		if err := listener.Close(); err != nil {
			lastErr = err
			continue
		}
		return port, nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("%w after %d attempts: %v", ErrNoFreePort, maxAttempts, lastErr)
	}
	return 0, ErrNoFreePort
}
