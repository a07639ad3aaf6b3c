package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cedrickchee/bitcask/internal/engine"
	"github.com/cedrickchee/bitcask/internal/kvs"
	"github.com/cedrickchee/bitcask/internal/kvserr"
	"github.com/cedrickchee/bitcask/internal/protocol"
	"github.com/cedrickchee/bitcask/internal/telemetry/metrics"
	"github.com/cedrickchee/bitcask/internal/threadpool"
)

// Config configures a Server.
type Config struct {
	// Addr is the TCP address to bind, e.g. "127.0.0.1:4000".
	Addr string
	// IdleTimeout bounds how long a connection may sit between requests.
	IdleTimeout time.Duration
	// Logger is the structured logger; defaults to slog.Default().
	Logger *slog.Logger
	// Metrics, if set, receives per-request and periodic engine/pool
	// observations. A nil Metrics is a no-op.
	Metrics *metrics.Registry
	// StatsInterval controls how often engine/pool gauges are sampled.
	StatsInterval time.Duration
}

// DefaultStatsInterval is used when Config.StatsInterval is zero.
const DefaultStatsInterval = 15 * time.Second

// DefaultIdleTimeout is used when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 5 * time.Minute

// Server accepts TCP connections and dispatches each one, as a single
// long-lived task, onto a thread pool.
type Server struct {
	cfg    Config
	eng    engine.Engine
	pool   threadpool.Pool
	logger *slog.Logger

	ln      net.Listener
	wg      sync.WaitGroup
	closing chan struct{}

	lastCompactions uint64
}

// New constructs a Server bound to eng and dispatching connections onto
// pool. It does not start listening; call Serve for that.
func New(cfg Config, eng engine.Engine, pool threadpool.Pool) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.StatsInterval == 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	return &Server{cfg: cfg, eng: eng, pool: pool, logger: cfg.Logger, closing: make(chan struct{})}
}

// Serve binds the listener and runs the accept loop until the listener is
// closed by Shutdown.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	s.ln = ln
	s.logger.Info("server listening", "addr", s.cfg.Addr)

	if s.cfg.Metrics != nil {
		go s.statsLoop()
	}

	return s.acceptLoop()
}

// statsLoop periodically samples engine and pool gauges until the listener
// closes. Per-request counters are recorded inline in dispatch instead,
// since those only happen on the request path.
func (s *Server) statsLoop() {
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if lk, ok := s.eng.(*kvs.LogKv); ok {
				st := lk.Stats()
				s.cfg.Metrics.ObserveStats(st.Uncompacted)
				for ; s.lastCompactions < st.Compactions; s.lastCompactions++ {
					s.cfg.Metrics.ObserveCompaction()
				}
			}
			if sq, ok := s.pool.(*threadpool.SharedQueuePool); ok {
				s.cfg.Metrics.ObserveQueueDepth(sq.QueueDepth())
			}
		case <-s.closing:
			return
		}
	}
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return kvserr.Wrap(kvserr.IoError, err)
		}

		connEngine := s.connEngine()
		s.wg.Add(1)
		s.pool.Spawn(func() {
			defer s.wg.Done()
			s.serveConn(conn, connEngine)
		})
	}
}

// connEngine returns the engine handle a single connection's task should
// use. The log-structured engine clones cheaply so each connection gets
// its own reader cache, matching the one-handle-per-goroutine contract;
// other engines are safe to share directly.
func (s *Server) connEngine() engine.Engine {
	if lk, ok := s.eng.(*kvs.LogKv); ok {
		return lk.Clone()
	}
	return s.eng
}

func (s *Server) serveConn(conn net.Conn, eng engine.Engine) {
	defer conn.Close()
	if lk, ok := eng.(*kvs.LogKv); ok {
		defer lk.Close()
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}

		var req protocol.Request
		if err := protocol.ReadFrame(conn, &req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				return
			}
			s.logger.Debug("server: fatal codec error, closing connection", "error", err)
			return
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if err := s.dispatch(conn, eng, req); err != nil {
			s.logger.Debug("server: write error, closing connection", "error", err)
			return
		}
	}
}

// dispatch runs one request against eng and writes the response. Engine
// errors become Err(message) responses and do not terminate the
// connection; only a failure to write the response itself does.
func (s *Server) dispatch(w io.Writer, eng engine.Engine, req protocol.Request) error {
	switch req.Op {
	case protocol.OpGet:
		value, found, err := eng.Get(req.Key)
		s.cfg.Metrics.ObserveRequest(string(req.Op), err)
		resp := protocol.GetResponse{Found: found, Value: value}
		if err != nil {
			resp.Err = err.Error()
			resp.ErrKind = string(errKind(err))
		}
		return protocol.WriteResponse(w, protocol.OpGet, resp)

	case protocol.OpSet:
		err := eng.Set(req.Key, req.Value)
		s.cfg.Metrics.ObserveRequest(string(req.Op), err)
		resp := protocol.SetResponse{}
		if err != nil {
			resp.Err = err.Error()
			resp.ErrKind = string(errKind(err))
		}
		return protocol.WriteResponse(w, protocol.OpSet, resp)

	case protocol.OpRemove:
		err := eng.Remove(req.Key)
		s.cfg.Metrics.ObserveRequest(string(req.Op), err)
		resp := protocol.RemoveResponse{}
		if err != nil {
			resp.Err = err.Error()
			resp.ErrKind = string(errKind(err))
		}
		return protocol.WriteResponse(w, protocol.OpRemove, resp)

	default:
		return protocol.WriteResponse(w, req.Op, protocol.SetResponse{Err: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

// errKind extracts the kvserr.Kind carried by err, if any, so the client
// can branch on it without parsing the message text.
func errKind(err error) kvserr.Kind {
	kind, _ := kvserr.KindOf(err)
	return kind
}

// Shutdown closes the listener, stops accepting new connections, and waits
// (up to ctx) for in-flight connections to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.closing)
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			return kvserr.Wrap(kvserr.IoError, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
