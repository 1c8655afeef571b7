// Package chordring implements the Chord ring itself: virtual node
// state, the find_successor/find_predecessor routing engine, the
// stabilize/notify/fix_fingers membership engine, the text wire
// protocol's dispatcher, and the TCP server that multiplexes a
// process's virtual nodes over one listening socket.
package chordring

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/abentley/chordring/internal/config"
	"github.com/abentley/chordring/internal/ringmath"
	"github.com/abentley/chordring/internal/wire"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// rpcTimeout bounds every outbound peer RPC (dial + round trip). It is
// not a config.Config field: spec.md §6.1 enumerates the tunables and
// this isn't one of them, so it stays an internal constant. At 5s it is
// longer than the 1s default stabilize frequency but shorter than ten
// such intervals.
const rpcTimeout = 5 * time.Second

// Server owns the virtual nodes a process hosts, the listening socket
// they share, and the periodic stabilize/fix_fingers goroutines that
// keep them converging. One Server per process, per spec.md §2's
// "process hosts V virtual nodes sharing one socket" framing.
type Server struct {
	cfg      config.Config
	vnodes   map[uint8]*VirtualNode
	local    *LocalTransport
	remote   Transport
	logger   log.Logger
	metrics  *metrics
	registry *prometheus.Registry

	mu        sync.Mutex
	listener  net.Listener
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	connCount atomic.Int64
}

// NewServer builds a Server and its V virtual nodes from cfg, but does
// not yet bind a socket or start any goroutine; call ListenAndServe for
// that. A nil logger becomes a no-op logger; a nil registry gets a
// fresh private prometheus.Registry.
func NewServer(cfg config.Config, logger log.Logger, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := newMetrics(registry)

	remote := NewTCPTransport(cfg.IDBits, rpcTimeout, logger, m)
	local := NewLocalTransport(remote)

	vnodes := make(map[uint8]*VirtualNode, cfg.VirtualNodeNumber)
	for i := 0; i < cfg.VirtualNodeNumber; i++ {
		vnid := uint8(i)
		self := ringmath.NewLocation(cfg.IDBits, cfg.Host, cfg.Port, vnid)
		vn := newVirtualNode(self, cfg.IDBits, local, logger, m)
		vnodes[vnid] = vn
		local.Register(self, vn)
	}

	return &Server{
		cfg:      cfg,
		vnodes:   vnodes,
		local:    local,
		remote:   remote,
		logger:   logger,
		metrics:  m,
		registry: registry,
	}
}

// VirtualNode looks up a hosted virtual node by id.
func (s *Server) VirtualNode(vnid uint8) (*VirtualNode, error) {
	vn, ok := s.vnodes[vnid]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVnode, vnid)
	}
	return vn, nil
}

// ListenAndServe binds the configured host:port, then starts the
// accept loop and one periodic stabilize/fix_fingers goroutine per
// virtual node. It returns once the socket is bound; serving happens in
// the background until Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("chordring: listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.listener = ln
	s.ctx = ctx
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)

	for _, vn := range s.vnodes {
		s.wg.Add(1)
		go s.runPeriodic(ctx, vn)
	}

	level.Info(s.logger).Log("msg", "listening", "addr", ln.Addr().String(), "virtual_nodes", s.cfg.VirtualNodeNumber)
	return nil
}

// ActiveConnections returns the number of peer/operator connections
// currently being served.
func (s *Server) ActiveConnections() int64 {
	return s.connCount.Load()
}

// Addr returns the bound listener address; only valid after a
// successful ListenAndServe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting new connections and cancels the periodic
// tasks, then waits for in-flight goroutines to exit or ctx to expire,
// whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

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

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			level.Warn(s.logger).Log("msg", "accept failed", "err", err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn is the per-connection handler task of spec.md §5: reads
// frames in a loop until EOF or a fatal decode error, dispatching each
// to the named virtual node and writing back the matching reply.
// Parse and processing errors are logged and discarded; the connection
// keeps going.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.connCount.Inc()
	defer s.connCount.Dec()
	br := bufio.NewReaderSize(conn, s.cfg.OutputBufferSize)
	bw := bufio.NewWriterSize(conn, s.cfg.OutputBufferSize)

	for {
		text, human, err := wire.ReadFrame(br)
		switch {
		case errors.Is(err, io.EOF):
			return
		case errors.Is(err, wire.ErrEmptyFrame):
			continue
		case err != nil:
			level.Debug(s.logger).Log("msg", "fatal frame read error", "err", err)
			return
		}

		req, err := wire.ParseRequest(text, s.cfg.IDBits)
		if err != nil {
			level.Warn(s.logger).Log("msg", "malformed request", "frame", text, "err", err)
			continue
		}

		s.metrics.requestsTotal.WithLabelValues(string(req.Command)).Inc()
		resp, err := s.dispatch(ctx, req)
		if err != nil {
			s.metrics.requestErrors.WithLabelValues(string(req.Command)).Inc()
			level.Warn(s.logger).Log("msg", "request failed", "command", req.Command, "vnid", req.VNID, "err", err)
			continue
		}

		if err := wire.WriteFrame(bw, resp.Serialize(), human); err != nil {
			level.Debug(s.logger).Log("msg", "fatal frame write error", "err", err)
			return
		}
		if err := bw.Flush(); err != nil {
			level.Debug(s.logger).Log("msg", "fatal flush error", "err", err)
			return
		}
	}
}

func (s *Server) runPeriodic(ctx context.Context, vn *VirtualNode) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.StabilizeFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := vn.Stabilize(ctx); err != nil {
				level.Warn(s.logger).Log("msg", "stabilize failed", "self", vn.Self().String(), "err", err)
			}
			if err := vn.FixFingers(ctx); err != nil {
				level.Warn(s.logger).Log("msg", "fix_fingers failed", "self", vn.Self().String(), "err", err)
			}
		}
	}
}
