package ipc

import (
	"bufio"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, eval EvalFunc) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "keyremapd.sock")
	s, err := Listen(sockPath, eval)
	require.NoError(t, err)
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	return s, sockPath
}

func TestEvalRoundTrip(t *testing.T) {
	_, sockPath := startServer(t, func(expr string) (bool, error) {
		return expr == "push", nil
	})

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprintln(conn, "push")
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "OK\n", reply)
}

func TestEvalRejection(t *testing.T) {
	_, sockPath := startServer(t, func(expr string) (bool, error) {
		return false, nil
	})

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprintln(conn, "nonsense")
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ERROR: rejected\n", reply)
}

func TestSubscribeReceivesLayerChanges(t *testing.T) {
	s, sockPath := startServer(t, func(string) (bool, error) { return true, nil })

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprintln(conn, "subscribe")

	// Give the server goroutine time to register the subscriber before
	// publishing, since registration happens asynchronously after Scan.
	time.Sleep(20 * time.Millisecond)
	s.Publish("nav", true)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "layer nav true\n", reply)
}
