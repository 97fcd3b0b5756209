package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// SlotsCmd creates the slots command and its subcommands
func SlotsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "View and edit the slot catalog of a location",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <location_id>",
		Short: "List the slots of a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := app.Catalog.GetSlots(app.Ctx, args[0])
			if err != nil {
				return err
			}
			custom, err := app.Catalog.IsCustom(app.Ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := "default"
			if custom {
				source = "custom"
			}
			fmt.Fprintf(out, "\n%d slots (%s catalog):\n\n", len(slots), source)
			for _, s := range slots {
				limit := ""
				if s.MaxVolunteers > 0 {
					limit = fmt.Sprintf("  max %d", s.MaxVolunteers)
				}
				fmt.Fprintf(out, "  %-14s %02d:00-%02d:00  %s%s\n", s.ID, s.StartHour, s.EndHour, s.Label, limit)
			}
			fmt.Fprintln(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <location_id> <slot>...",
		Short: "Replace a location's slots; each slot is id:start-end[:label[:max]]",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := make([]model.TimeSlot, 0, len(args)-1)
			for _, spec := range args[1:] {
				slot, err := parseSlotSpec(spec)
				if err != nil {
					return err
				}
				slots = append(slots, slot)
			}
			if err := app.Catalog.SetSlots(app.Ctx, args[0], slots); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s now has %d slots\n\n", args[0], len(slots))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <location_id> <slot>",
		Short: "Add a slot (id:start-end[:label[:max]]) to a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlotSpec(args[1])
			if err != nil {
				return err
			}
			if err := app.Catalog.AddSlot(app.Ctx, args[0], slot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Added %s to %s\n\n", slot.ID, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <location_id> <slot_id>",
		Short: "Remove a slot from a location; existing bookings keep their hours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Catalog.RemoveSlot(app.Ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Removed %s from %s\n\n", args[1], args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <location_id>",
		Short: "Drop a location's custom slots and use the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Catalog.ResetToDefault(app.Ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s uses the default slots\n\n", args[0])
			return nil
		},
	})

	return cmd
}

// parseSlotSpec parses id:start-end[:label[:max]], e.g. "early:6-8:Early shift:3".
// Without a label the label is "HH:00 - HH:00".
func parseSlotSpec(spec string) (model.TimeSlot, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 2 || parts[0] == "" {
		return model.TimeSlot{}, fmt.Errorf("slot %q must be id:start-end[:label[:max]]", spec)
	}

	hours := strings.SplitN(parts[1], "-", 2)
	if len(hours) != 2 {
		return model.TimeSlot{}, fmt.Errorf("slot %q: hours must be start-end", spec)
	}
	start, err := strconv.Atoi(strings.TrimSpace(hours[0]))
	if err != nil {
		return model.TimeSlot{}, fmt.Errorf("slot %q: start hour must be a number: %w", spec, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hours[1]))
	if err != nil {
		return model.TimeSlot{}, fmt.Errorf("slot %q: end hour must be a number: %w", spec, err)
	}

	slot := model.TimeSlot{
		ID:        parts[0],
		Label:     fmt.Sprintf("%02d:00 - %02d:00", start, end),
		StartHour: start,
		EndHour:   end,
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		slot.Label = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		max, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil || max < 0 {
			return model.TimeSlot{}, fmt.Errorf("slot %q: max must be a non-negative number", spec)
		}
		slot.MaxVolunteers = max
	}

	if err := slot.Validate(); err != nil {
		return model.TimeSlot{}, fmt.Errorf("slot %q: %w", spec, err)
	}
	return slot, nil
}
