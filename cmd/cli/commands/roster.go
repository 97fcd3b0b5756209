package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// RosterCmd creates the roster command
func RosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "roster <location_id> <date>",
		Short: "Show each slot of a location on a date with who is booked",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			locationID, date := args[0], args[1]
			if _, err := model.ParseDate(date); err != nil {
				return err
			}

			app.Logger.Debug("roster command", zap.String("location_id", locationID), zap.String("date", date))

			slots, err := app.Catalog.GetSlots(app.Ctx, locationID)
			if err != nil {
				return err
			}

			volunteers, err := app.Database.ListVolunteers(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list volunteers: %w", err)
			}
			names := make(map[string]string, len(volunteers))
			for _, v := range volunteers {
				names[v.ID] = v.FullName()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nRoster for %s on %s\n\n", locationID, date)

			for _, slot := range slots {
				occupancy, err := app.Engine.Occupancy(app.Ctx, locationID, date, slot.ID)
				if err != nil {
					return err
				}
				bookings, err := app.Engine.BookingsForSlot(app.Ctx, locationID, date, slot.ID)
				if err != nil {
					return err
				}

				limit := "∞"
				color := colorGreen
				if !occupancy.Unlimited {
					limit = fmt.Sprintf("%d", occupancy.Limit)
					color = occupancyColor(occupancy.Active, occupancy.Limit, colorGreen, colorYellow, colorRed)
				}
				fmt.Fprintf(out, "%s%-14s %02d:00-%02d:00  %d/%s%s\n",
					color, slot.ID, slot.StartHour, slot.EndHour, occupancy.Active, limit, colorReset)

				for _, b := range bookings {
					name := names[b.VolunteerID]
					if name == "" {
						name = b.VolunteerID
					}
					fmt.Fprintf(out, "    %s%-24s %s%s\n", statusColor(b.Status), name, b.Status, colorReset)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// occupancyColor picks green while plenty of room remains, yellow when at
// most one place is left, and red when full
func occupancyColor(active, limit int, green, yellow, red string) string {
	switch {
	case active >= limit:
		return red
	case limit-active <= 1:
		return yellow
	default:
		return green
	}
}
