// Package server runs the TCP front end: it accepts connections, clones
// an engine handle per connection, and dispatches request handling onto a
// thread pool.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/jassi-singh/toycask/internal/engine"
	"github.com/jassi-singh/toycask/internal/protocol"
	"github.com/jassi-singh/toycask/internal/threadpool"
)

// Server binds a listener to an engine and a thread pool, serving
// concatenated JSON Request/*Response pairs per connection.
type Server struct {
	engine engine.Engine
	pool   threadpool.Pool
}

// New constructs a Server. The engine handle passed in is never used
// directly for requests; every accepted connection gets its own Clone.
func New(e engine.Engine, pool threadpool.Pool) *Server {
	return &Server{engine: e, pool: pool}
}

// Run listens on addr and serves connections until the listener errors
// (typically because the caller closed it, e.g. via a context-driven
// shutdown elsewhere). It does not return on a per-connection error.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	slog.Info("server: listening", "addr", ln.Addr())
	return s.Serve(ln)
}

// Serve accepts connections off ln until it errors (typically because
// the caller closed it). Each connection gets its own cloned engine
// handle and is dispatched onto the pool.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && !netErr.Timeout() {
				return err
			}
			slog.Warn("server: accept error", "error", err)
			continue
		}

		handle := s.engine.Clone()
		s.pool.Submit(func() {
			serve(handle, conn)
		})
	}
}

// serve handles every request on one connection until the client closes
// it or a framing error occurs. It owns handle and conn for its duration.
func serve(e engine.Engine, conn net.Conn) {
	connID := uuid.NewString()
	defer conn.Close()
	defer e.Close()

	peer := conn.RemoteAddr()
	slog.Info("server: connection opened", "conn_id", connID, "peer", peer)

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	dec := json.NewDecoder(reader)

	for {
		var req protocol.Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				slog.Warn("server: malformed request, closing connection",
					"conn_id", connID, "error", err)
			}
			break
		}

		if err := dispatch(e, writer, req, connID); err != nil {
			slog.Warn("server: failed to write response, closing connection",
				"conn_id", connID, "error", err)
			break
		}
	}

	slog.Info("server: connection closed", "conn_id", connID, "peer", peer)
}

func dispatch(e engine.Engine, w *bufio.Writer, req protocol.Request, connID string) error {
	switch req.Kind {
	case protocol.KindGet:
		value, err := e.Get(req.Key)
		resp := protocol.GetResponse{Value: value}
		if err != nil {
			resp.Err = err.Error()
		}
		slog.Debug("server: handled get", "conn_id", connID, "key", req.Key, "found", value != nil)
		return send(w, resp)

	case protocol.KindSet:
		err := e.Set(req.Key, req.Value)
		resp := protocol.SetResponse{}
		if err != nil {
			resp.Err = err.Error()
		}
		slog.Debug("server: handled set", "conn_id", connID, "key", req.Key)
		return send(w, resp)

	case protocol.KindRemove:
		err := e.Remove(req.Key)
		resp := protocol.RemoveResponse{}
		if err != nil {
			resp.Err = err.Error()
		}
		slog.Debug("server: handled remove", "conn_id", connID, "key", req.Key)
		return send(w, resp)

	default:
		slog.Warn("server: unknown request kind", "conn_id", connID, "kind", req.Kind)
		return send(w, protocol.SetResponse{Err: "unknown command"})
	}
}

func send(w *bufio.Writer, resp any) error {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return err
	}
	return w.Flush()
}
