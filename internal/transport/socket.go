package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/UltraSive/payload-store/internal/handler"
	"github.com/UltraSive/payload-store/pkg/logger"
)

// SocketServer serves the handler protocol over a unix socket. Each frame
// carries one JSON request; a connection may send any number of frames.
type SocketServer struct {
	h   *handler.Handler
	log logger.Logger

	mu     sync.Mutex
	l      net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewSocketServer(h *handler.Handler, log logger.Logger) *SocketServer {
	return &SocketServer{h: h, log: log, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe removes a stale socket file, listens on socketPath and
// serves until Close.
func (s *SocketServer) ListenAndServe(socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	_ = os.Chmod(socketPath, 0o660)
	return s.Serve(l)
}

func (s *SocketServer) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return l.Close()
	}
	s.l = l
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			continue
		}
		go func() {
			defer s.untrack(conn)
			s.ServeConn(context.Background(), conn)
		}()
	}
}

// ServeConn answers frames on conn until the peer hangs up or ctx is done.
func (s *SocketServer) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("socket read failed", "error", err.Error())
			}
			return
		}

		var resp handler.Response
		var req handler.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			resp = handler.Response{Error: handler.CodeBadRequest}
		} else {
			resp = s.h.Serve(ctx, req)
		}

		out, _ := json.Marshal(resp)
		if err := WriteMessage(conn, out); err != nil {
			s.log.Debug("socket write failed", "error", err.Error())
			return
		}
	}
}

// Close stops accepting, hangs up open connections and waits for their
// in-flight requests to finish.
func (s *SocketServer) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.l != nil {
		err = s.l.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// track registers c unless the server is closing, in which case c is closed.
func (s *SocketServer) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = c.Close()
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *SocketServer) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Framing: 4 bytes big-endian length followed by that many bytes.

// MaxFrame bounds a single frame. The header is peer controlled, so it is
// checked before anything is allocated.
const MaxFrame = 64 << 20

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

func ReadMessage(r io.Reader) ([]byte, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBytes)
	if length > MaxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func WriteMessage(w io.Writer, data []byte) error {
	if len(data) > MaxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(data)))
	copy(frame[4:], data)
	_, err := w.Write(frame)
	return err
}
