package chordring

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/abentley/chordring/internal/ringmath"
	"github.com/abentley/chordring/internal/wire"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// TCPTransport is the remote half of Transport: it dials a peer, writes
// one wire.Request frame, and reads back the matching wire.Response.
// Per spec.md §5 there are no retries; a failed RPC is surfaced to the
// caller, which decides whether to try again on its next periodic
// pass.
type TCPTransport struct {
	bits    int
	timeout time.Duration
	logger  log.Logger
	metrics *metrics
}

// NewTCPTransport builds a TCPTransport with a bounded per-RPC timeout
// covering both dial and round trip.
func NewTCPTransport(bits int, timeout time.Duration, logger log.Logger, m *metrics) *TCPTransport {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TCPTransport{bits: bits, timeout: timeout, logger: logger, metrics: m}
}

func (t *TCPTransport) call(ctx context.Context, target ringmath.Location, req wire.Request) (wire.Response, error) {
	addr, err := target.ToAddr()
	if err != nil {
		return wire.Response{}, err
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Timeout: time.Until(deadline)}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return wire.Response{}, fmt.Errorf("chordring: dial %s: %w", target, err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	if err := wire.WriteFrame(conn, req.Serialize(), false); err != nil {
		return wire.Response{}, fmt.Errorf("chordring: write to %s: %w", target, err)
	}

	text, _, err := wire.ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return wire.Response{}, fmt.Errorf("chordring: read from %s: %w", target, err)
	}

	resp, err := wire.ParseResponse(text, t.bits)
	if err != nil {
		return wire.Response{}, fmt.Errorf("chordring: parse response from %s: %w", target, err)
	}
	if resp.Command != req.Command {
		return wire.Response{}, fmt.Errorf("%w: sent %s, got %s from %s", ErrResponseMismatch, req.Command, resp.Command, target)
	}
	return resp, nil
}

func (t *TCPTransport) observe(method string, start time.Time, err error) {
	if t.metrics == nil {
		return
	}
	t.metrics.rpcLatencySeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		t.metrics.rpcErrorsTotal.WithLabelValues(method).Inc()
		level.Debug(t.logger).Log("msg", "rpc failed", "method", method, "err", err)
	}
}

func (t *TCPTransport) ClosestPrecedingFinger(ctx context.Context, target ringmath.Location, key *big.Int) (ringmath.Location, error) {
	start := time.Now()
	resp, err := t.call(ctx, target, wire.Request{Command: wire.ClosestPrecedingFinger, VNID: target.VirtualNodeID, Key: key})
	t.observe("closest_preceding_finger", start, err)
	if err != nil {
		return ringmath.Location{}, err
	}
	return resp.Location, nil
}

func (t *TCPTransport) GetPredecessor(ctx context.Context, target ringmath.Location) (ringmath.Location, bool, error) {
	start := time.Now()
	resp, err := t.call(ctx, target, wire.Request{Command: wire.GetPredecessor, VNID: target.VirtualNodeID})
	t.observe("get_predecessor", start, err)
	if err != nil {
		return ringmath.Location{}, false, err
	}
	return resp.Location, resp.HasLocation, nil
}

func (t *TCPTransport) GetSuccessor(ctx context.Context, target ringmath.Location) (ringmath.Location, error) {
	start := time.Now()
	resp, err := t.call(ctx, target, wire.Request{Command: wire.GetSuccessor, VNID: target.VirtualNodeID})
	t.observe("get_successor", start, err)
	if err != nil {
		return ringmath.Location{}, err
	}
	return resp.Location, nil
}

func (t *TCPTransport) Notify(ctx context.Context, target, self ringmath.Location) error {
	start := time.Now()
	_, err := t.call(ctx, target, wire.Request{Command: wire.Notify, VNID: target.VirtualNodeID, Location: self})
	t.observe("notify", start, err)
	return err
}
