package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/diminuto-go/diminuto/internal/config"
	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
	"github.com/diminuto-go/diminuto/internal/ipc"
	"github.com/diminuto-go/diminuto/internal/metrics"
)

// listenBacklog requests the platform's maximum backlog (ipc.ListenStream
// treats <= 0 as "use SOMAXCONN").
const listenBacklog = 0

// openListener opens the daemon's primary ipc endpoint per cfg.Network:
// a stream provider for "tcp"/"unix", a datagram peer for "udp".
func openListener(cfg config.ListenConfig) (*ipc.Handle, endpoint.Endpoint, error) {
	e, err := endpoint.Parse(cfg.Addr)
	if err != nil {
		return nil, endpoint.Endpoint{}, fmt.Errorf("parse listen.addr %q: %w", cfg.Addr, err)
	}

	switch cfg.Network {
	case "tcp", "unix":
		h, err := ipc.ListenStream(e, listenBacklog, nil)
		if err != nil {
			return nil, e, err
		}
		return h, e, nil
	case "udp":
		h, err := ipc.NewDatagramPeer(e, nil)
		if err != nil {
			return nil, e, err
		}
		return h, e, nil
	default:
		return nil, endpoint.Endpoint{}, fmt.Errorf("unsupported listen.network %q", cfg.Network)
	}
}

// familyLabel builds the metrics family label for a listener, combining
// its configured network with the address family it resolved to (e.g.
// "tcp4", "tcp6", "unix", "udp4", "udp6").
func familyLabel(e endpoint.Endpoint, network string) string {
	switch e.Kind {
	case endpoint.IPv4Kind:
		return network + "4"
	case endpoint.IPv6Kind:
		return network + "6"
	default:
		return network
	}
}

// runStreamEchoServer accepts connections on h until ctx is cancelled,
// handling each with handleEchoConn. It is the daemon's minimal stream
// exerciser for internal/ipc: every byte in is echoed back out, with
// traffic and errors fed to collector.
func runStreamEchoServer(ctx context.Context, h *ipc.Handle, family string, collector *metrics.Collector, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		_ = h.Close()
	}()

	for {
		conn, peer, err := ipc.Accept(h)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			collector.IncIOErrors(family)
			return fmt.Errorf("accept: %w", err)
		}
		logger.Debug("accepted connection", slog.String("family", family), slog.String("peer", peer.String()))
		go handleEchoConn(conn, family, collector, logger)
	}
}

func handleEchoConn(h *ipc.Handle, family string, collector *metrics.Collector, logger *slog.Logger) {
	defer h.Close()

	buf := make([]byte, 4096)
	for {
		n, err := h.Read(buf)
		if n > 0 {
			collector.AddBytesReceived(family, n)
			if _, werr := h.Write(buf[:n]); werr != nil {
				collector.IncIOErrors(family)
				return
			}
			collector.AddBytesSent(family, n)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("connection read error", slog.String("error", err.Error()))
				collector.IncIOErrors(family)
			}
			return
		}
	}
}

// runDatagramEchoServer reads datagrams off h until ctx is cancelled,
// echoing each back to its source.
func runDatagramEchoServer(ctx context.Context, h *ipc.Handle, family string, collector *metrics.Collector, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		_ = h.Close()
	}()

	buf := make([]byte, 65507)
	for {
		n, src, err := ipc.RecvDatagram(h, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if dierr.Is(err, dierr.WouldBlock) {
				continue
			}
			collector.IncIOErrors(family)
			return fmt.Errorf("recv datagram: %w", err)
		}
		collector.AddBytesReceived(family, n)

		if _, err := ipc.SendDatagram(h, buf[:n], src); err != nil {
			logger.Debug("datagram echo send failed", slog.String("error", err.Error()))
			collector.IncIOErrors(family)
			continue
		}
		collector.AddBytesSent(family, n)
	}
}
