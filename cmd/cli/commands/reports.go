package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/export"
)

// ServiceHoursCmd creates the serviceHours command
func ServiceHoursCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serviceHours [volunteer_id]",
		Short: "Report checked-in service hours for one volunteer or everyone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			var reports []services.ServiceHoursReport
			if len(args) == 1 {
				report, err := services.ServiceHours(app.Ctx, app.Database, app.Logger, args[0], from, to)
				if err != nil {
					return err
				}
				reports = []services.ServiceHoursReport{*report}
			} else {
				var err error
				reports, err = services.ServiceHoursByVolunteer(app.Ctx, app.Database, app.Logger, from, to)
				if err != nil {
					return err
				}
			}

			printServiceHours(cmd, reports)
			return nil
		},
	}

	cmd.Flags().String("from", "", "First date, inclusive (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last date, inclusive (YYYY-MM-DD)")

	return cmd
}

func printServiceHours(cmd *cobra.Command, reports []services.ServiceHoursReport) {
	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(out, "\nNo bookings in range.")
		return
	}

	fmt.Fprintf(out, "\n%-14s %6s %10s %8s %10s %9s\n", "Volunteer", "Hours", "CheckedIn", "NoShows", "Cancelled", "Upcoming")
	for _, r := range reports {
		fmt.Fprintf(out, "%-14s %6d %10d %8d %10d %9d\n", r.VolunteerID, r.Hours, r.CheckedIn, r.NoShows, r.Cancelled, r.Upcoming)

		locations := make([]string, 0, len(r.ByLocation))
		for id := range r.ByLocation {
			locations = append(locations, id)
		}
		sort.Strings(locations)
		for _, id := range locations {
			fmt.Fprintf(out, "%s    %-10s %6d%s\n", colorDim, id, r.ByLocation[id], colorReset)
		}
	}
	fmt.Fprintln(out)
}

// CalendarCmd creates the calendar command
func CalendarCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar <volunteer_id>",
		Short: "Export a volunteer's active bookings as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			output, _ := cmd.Flags().GetString("output")

			ics, err := export.VolunteerCalendar(app.Ctx, app.Database, app.Logger, args[0], from, to, app.Cfg.Location(), time.Now())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), ics)
				return err
			}
			if err := os.WriteFile(output, []byte(ics), 0644); err != nil {
				return fmt.Errorf("failed to write calendar: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Calendar written to %s\n\n", output)
			return nil
		},
	}

	cmd.Flags().String("from", "", "First date, inclusive (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringP("output", "o", "", "File to write; stdout when empty")

	return cmd
}
