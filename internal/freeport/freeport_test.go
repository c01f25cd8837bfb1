package freeport

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Parallel()

	port, err := Get()
	require.NoError(t, err)
	require.Greater(t, port, 0)
	require.LessOrEqual(t, port, 65535)

	// The reported port must be bindable right after Get returns.
	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

func TestGetDistinctUnderLoad(t *testing.T) {
	t.Parallel()

	// Sequential calls overwhelmingly return distinct ports because the OS
	// cycles through its ephemeral range. Hold listeners open so ports
	// cannot be handed out twice during the loop.
	seen := make(map[int]bool)
	var open []net.Listener
	defer func() {
		for _, l := range open {
			_ = l.Close()
		}
	}()
	for i := 0; i < 20; i++ {
		port, err := Get()
		require.NoError(t, err)
		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		require.NoError(t, err)
		open = append(open, l)
		require.False(t, seen[port], "port %d handed out twice", port)
		seen[port] = true
	}
}
