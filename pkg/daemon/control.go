package daemon

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
)

// Handler processes incoming control commands. The bar wires this to the
// engine and the supervisor loop.
type Handler interface {
	HandleCommand(cmd string, args []string) (string, error)
}

// ControlServer listens on a Unix domain socket for line-based text
// commands and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND [arg] ...
//   - Server responds with a JSON line followed by a newline.
//   - Supported commands: STATUS, TOGGLE [module], RELOAD, QUIT
type ControlServer struct {
	socketPath string
	handler    Handler
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewControlServer creates a control server that will listen on socketPath
// and dispatch commands to handler.
func NewControlServer(socketPath string, handler Handler) *ControlServer {
	return &ControlServer{
		socketPath: socketPath,
		handler:    handler,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the Unix socket. The socket
// file is created with mode 0600. Any existing socket file at the path is
// removed first.
func (s *ControlServer) Start() error {
	// Remove stale socket file.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("daemon: chmod socket: %w", err)
	}

	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the control server. It closes the listener,
// waits for active connections to finish, and removes the socket file.
func (s *ControlServer) Stop() {
	select {
	case <-s.done:
		// Already stopped.
		return
	default:
	}

	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	os.Remove(s.socketPath)
}

// acceptLoop accepts connections until the server is stopped.
func (s *ControlServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				// Transient error, continue accepting.
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn processes a single client connection. It reads one line,
// parses the command, dispatches it, and writes the response.
func (s *ControlServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	parts := strings.Fields(line)
	cmd := strings.ToUpper(parts[0])

	response, err := s.handler.HandleCommand(cmd, parts[1:])
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(conn, "%s\n", data)
		return
	}

	// Compact the JSON response to a single line for the line-based
	// protocol. If compaction fails (response is not JSON), send as-is.
	if compacted, err := compactJSON(response); err == nil {
		response = compacted
	}

	fmt.Fprintf(conn, "%s\n", response)
}

// ControlClient connects to a running bar via Unix socket to send commands.
type ControlClient struct {
	socketPath string
}

// NewControlClient creates a client that will connect to the bar at
// socketPath.
func NewControlClient(socketPath string) *ControlClient {
	return &ControlClient{socketPath: socketPath}
}

// SendCommand sends a text command to the bar and returns the response.
// Each call opens a new connection, sends the command, reads the response,
// and closes the connection.
func (c *ControlClient) SendCommand(cmd string) (string, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return "", fmt.Errorf("daemon: connect to bar: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "%s\n", cmd)

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("daemon: read response: %w", err)
		}
		return "", fmt.Errorf("daemon: empty response from bar")
	}

	return scanner.Text(), nil
}

// compactJSON removes whitespace from JSON to produce a single-line string
// suitable for line-based transport.
func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
