// Package ipc exposes the core's runtime control surface over a Unix
// stream socket (spec §6 "Runtime control - eval surface"). A connection
// sends one line; "subscribe" turns that connection into a one-way feed of
// layer-change notifications (named in §6 but left unspecified there -
// grounded on original_source/src/ipc.cpp's ipc_create_server/ipc_connect,
// which open a plain SOCK_STREAM socket under /var/run and leave framing
// to line-oriented request/response).
package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
)

// EvalFunc is the core operation this server exposes: one eval expression
// in, success/failure out (keyboard.Keyboard.Eval, already bound to a
// merger by the caller).
type EvalFunc func(expr string) (bool, error)

// Server accepts connections on a Unix socket and serves eval/subscribe
// requests. Layer-change notifications are fanned out to every subscribed
// connection via Publish.
type Server struct {
	path string
	ln   net.Listener
	eval EvalFunc

	mu          sync.Mutex
	subscribers map[chan string]struct{}
}

// Listen creates (replacing any stale socket file) and binds the server at
// path. It does not yet accept connections; call Serve for that.
func Listen(path string, eval EvalFunc) (*Server, error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0660); err != nil {
		ln.Close()
		return nil, fmt.Errorf("ipc: chmod %s: %w", path, err)
	}

	return &Server{
		path:        path,
		ln:          ln,
		eval:        eval,
		subscribers: make(map[chan string]struct{}),
	}, nil
}

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine. It returns the listener's terminal error (nil after a
// clean Close).
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("ipc: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := scanner.Text()

	if line == "subscribe" {
		s.serveSubscriber(conn)
		return
	}

	ok, err := s.eval(line)
	switch {
	case err != nil:
		fmt.Fprintf(conn, "ERROR: %v\n", err)
	case !ok:
		fmt.Fprintln(conn, "ERROR: rejected")
	default:
		fmt.Fprintln(conn, "OK")
	}
}

func (s *Server) serveSubscriber(conn net.Conn) {
	ch := make(chan string, 32)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}()

	for msg := range ch {
		if _, err := fmt.Fprintln(conn, msg); err != nil {
			return
		}
	}
}

// Publish fans a layer-change line out to every connected subscriber,
// dropping it for any subscriber whose buffer is full rather than
// blocking the dispatcher thread that calls this from an OutputSink.
func (s *Server) Publish(layerName string, active bool) {
	msg := fmt.Sprintf("layer %s %t", layerName, active)

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
