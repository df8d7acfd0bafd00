package commands

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
	"github.com/diminuto-go/diminuto/internal/ping"
)

func pingCmd() *cobra.Command {
	var (
		count    int
		interval time.Duration
		timeout  time.Duration
		useV6    bool
	)

	cmd := &cobra.Command{
		Use:   "ping <host>",
		Short: "Send ICMP echo requests to a host and report round-trip time",
		Long:  "Sends count ICMP ECHO (v4) or ECHO_REQUEST (v6) datagrams to host, one per interval, printing each accepted reply's round-trip time. Requires CAP_NET_RAW (or root).",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPing(args[0], count, interval, timeout, useV6)
		},
	}

	cmd.Flags().IntVar(&count, "count", 4, "number of echoes to send")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between echoes")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "time to wait for each reply")
	cmd.Flags().BoolVar(&useV6, "6", false, "probe over ICMPv6 instead of ICMPv4")

	return cmd
}

func runPing(host string, count int, interval, timeout time.Duration, useV6 bool) error {
	target, err := resolvePingTarget(host, useV6)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", host, err)
	}

	family := ping.FamilyIPv4
	if useV6 {
		family = ping.FamilyIPv6
	}

	prober, err := ping.Open(family)
	if err != nil {
		if dierr.Is(err, dierr.Permission) {
			return fmt.Errorf("opening a raw socket requires CAP_NET_RAW or root: %w", err)
		}
		return fmt.Errorf("open probe: %w", err)
	}
	defer prober.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var seq ping.SequenceCounter
	const id = 1

	buf := make([]byte, 1500)
	sent, received := 0, 0

sweep:
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			break sweep
		default:
		}

		n, serr := prober.Send(target, id, seq.Next())
		if serr != nil {
			fmt.Printf("send to %s: %v\n", target, serr)
			continue
		}
		sent++

		if derr := prober.SetDeadline(time.Now().Add(timeout)); derr != nil {
			return fmt.Errorf("set deadline: %w", derr)
		}

		ok, _, _, ttl, rtt, src, rerr := prober.Receive(buf, n)
		switch {
		case rerr != nil && dierr.Transient(rerr):
			fmt.Printf("from %s: timeout\n", target)
		case rerr != nil:
			fmt.Printf("from %s: %v\n", target, rerr)
		case !ok:
			fmt.Printf("from %s: reply rejected\n", target)
		default:
			received++
			fmt.Printf("from %s: ttl=%d time=%s\n", src, ttl, rtt.Round(time.Microsecond))
		}

		if i < count-1 {
			time.Sleep(interval)
		}
	}

	fmt.Printf("%d sent, %d received\n", sent, received)
	if sent > 0 && received == 0 {
		return errors.New("no replies received")
	}
	return nil
}

func resolvePingTarget(host string, useV6 bool) (netip.Addr, error) {
	e, err := endpoint.Parse(host)
	if err != nil {
		return netip.Addr{}, err
	}
	if useV6 {
		if addr := e.IPv6; e.HasIPv6 {
			return addr, nil
		}
		return netip.Addr{}, fmt.Errorf("%q has no IPv6 address", host)
	}
	if addr := e.IPv4; e.HasIPv4 {
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("%q has no IPv4 address", host)
}
