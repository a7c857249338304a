package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamgate/streamgate/internal/domain/child"
	"github.com/streamgate/streamgate/internal/domain/correlate"
	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/internal/port/inbound"
	"github.com/streamgate/streamgate/internal/port/outbound"
)

// Transport is the one surface GatewayService needs from the HTTP
// adapter: start listening, and shut down gracefully.
type Transport interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// GatewayService wires the Child Process Supervisor (C1), the Session
// Registry (C3), the Outbound Correlator (C6), and the HTTP transport
// into a single runnable unit, implementing
// inbound.GatewayService. Grounded on the teacher's ProxyService.Run,
// which the same way owns the child's lifetime and treats its exit as
// fatal to the whole process, but generalized from a single 1:1 pipe
// into a supervisor whose stdout lines fan out across every live
// session via the correlator instead of a single client pipe.
type GatewayService struct {
	registry   *session.Registry
	supervisor *child.Supervisor
	correlator *correlate.Correlator
	transport  Transport
	log        *slog.Logger
}

var _ inbound.GatewayService = (*GatewayService)(nil)

// NewGatewayService builds the gateway from its already-constructed
// parts. Callers (cmd/streamgate) are responsible for wiring the
// transport against the same registry this service uses, and for giving
// the transport its timeout scheduler, since the HTTP handler and this
// service share session state rather than communicating through it.
func NewGatewayService(proc outbound.ChildProcess, registry *session.Registry, transport Transport, log *slog.Logger) *GatewayService {
	supervisor := child.NewSupervisor(proc, log)
	return &GatewayService{
		registry:   registry,
		supervisor: supervisor,
		correlator: correlate.New(registry, log),
		transport:  transport,
		log:        log,
	}
}

// Supervisor exposes the child supervisor so cmd/streamgate can hand its
// WriteLine method to the HTTP handler as a ChildWriter.
func (g *GatewayService) Supervisor() *child.Supervisor {
	return g.supervisor
}

// SetTransport wires the HTTP transport after construction. cmd/streamgate
// needs the supervisor (via Supervisor) to build the transport's
// ChildWriter and its WithChildUptime option before the transport exists,
// so NewGatewayService accepts a nil transport and the caller completes
// the wiring with this setter once the transport is built.
func (g *GatewayService) SetTransport(transport Transport) {
	g.transport = transport
}

// Run starts the child, the correlator's consume loop, and the HTTP
// transport, and blocks until ctx is canceled or the child exits —
// whichever happens first ends the gateway, matching spec.md 4.1's "any
// child exit is fatal to the gateway" rule.
func (g *GatewayService) Run(ctx context.Context) error {
	if err := g.transport.Start(); err != nil {
		return fmt.Errorf("gateway: start http transport: %w", err)
	}
	defer func() { _ = g.supervisor.Close() }()

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return g.supervisor.Run(gctx)
	})
	grp.Go(func() error {
		g.consumeLines()
		return nil
	})

	err := grp.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := g.transport.Shutdown(shutdownCtx); shutdownErr != nil {
		g.log.Error("gateway: http transport shutdown failed", "error", shutdownErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consumeLines drains the supervisor's line channel, handing each one to
// the correlator, until the channel closes (the child has exited and
// Supervisor.Run is returning).
func (g *GatewayService) consumeLines() {
	for line := range g.supervisor.Lines() {
		g.correlator.Dispatch(line)
	}
}
