package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/reminders"
)

// SendRemindersCmd creates the sendReminders command
func SendRemindersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sendReminders [date]",
		Short: "Email volunteers booked on a date (tomorrow by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.GmailClient == nil {
				return fmt.Errorf("email notifications are disabled in this environment")
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				date, err := reminders.NewScheduler(app.Database, app.GmailClient, app.Cfg.Location(), app.Logger).RunOnce(app.Ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n✓ Reminders sent for %s\n\n", date)
				return nil
			}

			sent, failed, err := services.SendBookingReminders(app.Ctx, app.Database, app.GmailClient, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n✓ Reminders for %s\n\n", args[0])
			for _, s := range sent {
				fmt.Fprintf(out, "  ✓ %s (%s) - %d bookings\n", s.VolunteerName, s.Email, s.Bookings)
			}
			if len(failed) > 0 {
				fmt.Fprintf(out, "\n⚠️  Failed to send %d emails:\n", len(failed))
				for _, fe := range failed {
					fmt.Fprintf(out, "  ✗ %s (%s): %s\n", fe.VolunteerName, fe.Email, fe.Error)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
