package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastygo/shipops/domain"
)

// newLegsCmd exposes the leg deriver to operators without a running service.
func newLegsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legs",
		Short: "Inspect transport legs",
	}

	var (
		task     domain.Task
		taskType string
		pickupAt string
		returnAt string
	)
	derive := &cobra.Command{
		Use:   "derive",
		Short: "Print the legs derived for a task as JSON",
		Example: `  shipops legs derive --type embarque --pickup-local GRU --hotel "Hotel Santos" \
    --dropoff-local "Terminal 1" --pickup-at 2025-03-10T08:00:00Z --return-at 2025-03-11T06:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task.Type = domain.TaskType(taskType)
			if !task.HasTransport() {
				return fmt.Errorf("task type %q has no transport legs", taskType)
			}
			var err error
			if task.PickupAt, err = parseFlagTime("pickup-at", pickupAt); err != nil {
				return err
			}
			if task.ReturnAt, err = parseFlagTime("return-at", returnAt); err != nil {
				return err
			}

			legs := domain.DeriveLegs(&task)
			out, err := json.MarshalIndent(struct {
				Legs    []domain.Leg            `json:"transport_legs"`
				Summary domain.TransportSummary `json:"summary"`
			}{
				Legs:    legs,
				Summary: domain.AggregateLegs(legs, domain.TransportSummary{}, time.Now()),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	flags := derive.Flags()
	flags.StringVar(&taskType, "type", "", "task type (transfer_aeroporto, transfer_hotel, consulta_medica, embarque, desembarque)")
	flags.StringVar(&task.PickupLocal, "pickup-local", "", "pickup location")
	flags.StringVar(&task.DropoffLocal, "dropoff-local", "", "drop-off location")
	flags.StringVar(&task.Hotel, "hotel", "", "hotel name")
	flags.StringVar(&pickupAt, "pickup-at", "", "pickup time (RFC3339)")
	flags.StringVar(&returnAt, "return-at", "", "return time (RFC3339)")
	_ = derive.MarkFlagRequired("type")

	cmd.AddCommand(derive)
	return cmd
}

func parseFlagTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return &at, nil
}
