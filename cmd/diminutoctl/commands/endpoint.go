package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diminuto-go/diminuto/internal/endpoint"
)

func endpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Inspect endpoint strings",
	}
	cmd.AddCommand(endpointParseCmd())
	return cmd
}

func endpointParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <string>",
		Short: "Parse an endpoint string and print its resolved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			e, err := endpoint.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse %q: %w", args[0], err)
			}

			out, err := formatEndpoint(e, outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

type endpointView struct {
	Kind      string `json:"kind"`
	IPv4      string `json:"ipv4,omitempty"`
	IPv6      string `json:"ipv6,omitempty"`
	TCPPort   uint16 `json:"tcp_port"`
	UDPPort   uint16 `json:"udp_port"`
	LocalPath string `json:"local_path,omitempty"`
	Canonical string `json:"canonical"`
}

func endpointToView(e endpoint.Endpoint) endpointView {
	v := endpointView{
		Kind:      e.Kind.String(),
		TCPPort:   uint16(e.TCPPort),
		UDPPort:   uint16(e.UDPPort),
		LocalPath: e.LocalPath,
		Canonical: e.String(),
	}
	if e.HasIPv4 {
		v.IPv4 = e.IPv4.String()
	}
	if e.HasIPv6 {
		v.IPv6 = e.IPv6.String()
	}
	return v
}

func formatEndpoint(e endpoint.Endpoint, format string) (string, error) {
	v := endpointToView(e)
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal endpoint to JSON: %w", err)
		}
		return string(data), nil
	case formatTable, "":
		s := fmt.Sprintf("kind:      %s\ncanonical: %s\ntcp_port:  %d\nudp_port:  %d",
			v.Kind, v.Canonical, v.TCPPort, v.UDPPort)
		if v.IPv4 != "" {
			s += fmt.Sprintf("\nipv4:      %s", v.IPv4)
		}
		if v.IPv6 != "" {
			s += fmt.Sprintf("\nipv6:      %s", v.IPv6)
		}
		if v.LocalPath != "" {
			s += fmt.Sprintf("\nlocal:     %s", v.LocalPath)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}
