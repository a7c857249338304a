// Package inbound holds the ports driving the gateway from the outside:
// the top-level service the cmd/streamgate entrypoint starts and stops.
package inbound

import "context"

// GatewayService is the port cmd/streamgate drives: start the child,
// the HTTP surface, and the correlator loop, and run until ctx is
// canceled or the child exits.
type GatewayService interface {
	// Run blocks until ctx is canceled or a fatal condition (the child
	// process exiting) occurs, and returns the resulting error.
	Run(ctx context.Context) error
}
