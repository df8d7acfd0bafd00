package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diminuto-go/diminuto/internal/meter"
)

func meterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Exercise the rate meter",
	}
	cmd.AddCommand(meterDemoCmd())
	return cmd
}

// meterDemoCmd feeds a synthetic burst-then-steady event sequence through
// a Meter and prints the resulting peak, sustained, and burst readings,
// so a caller can see the three numbers without wiring up a real
// instrumented path first.
func meterDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Feed a synthetic burst-then-steady event sequence through a meter",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var m meter.Meter

			if err := m.Events(0, 1); err != nil {
				return fmt.Errorf("record baseline: %w", err)
			}
			if err := m.Events(1, 9); err != nil {
				return fmt.Errorf("record burst: %w", err)
			}

			const steadyStep = meter.Ticks(1000)
			now := meter.Ticks(1)
			for i := 0; i < 10; i++ {
				now += steadyStep
				if err := m.Events(now, 1); err != nil {
					return fmt.Errorf("record steady event %d: %w", i, err)
				}
			}

			peak, err := m.Peak()
			if err != nil {
				return fmt.Errorf("peak: %w", err)
			}
			sustained, err := m.Sustained()
			if err != nil {
				return fmt.Errorf("sustained: %w", err)
			}

			fmt.Printf("events:    %d\n", m.EventCount())
			fmt.Printf("burst:     %d\n", m.Burst())
			fmt.Printf("peak:      %.6f events/tick\n", peak)
			fmt.Printf("sustained: %.6f events/tick\n", sustained)
			return nil
		},
	}
}
