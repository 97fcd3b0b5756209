package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// BookCmd creates the book command
func BookCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book <volunteer_id> <location_id> <date> <slot_id>",
		Short: "Book a volunteer into a slot",
		Long: `Book a volunteer into a slot on a date (YYYY-MM-DD).

If the volunteer already has an overlapping booking you are asked to confirm.
Pass --force to accept the double booking without being asked.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			req := booking.BookRequest{
				VolunteerID: args[0],
				LocationID:  args[1],
				Date:        args[2],
				SlotID:      args[3],
				Force:       force,
			}

			app.Logger.Debug("book command", zap.Bool("force", force))

			result, err := app.Engine.BookSlot(app.Ctx, req, app.Actor())
			if err != nil {
				return err
			}

			if result.Warning != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\n%s⚠️  %s%s\n", colorYellow, result.Warning.Message(), colorReset)
				if !confirm(cmd.InOrStdin(), out, "Book anyway?") {
					fmt.Fprintln(out, "Booking not made.")
					return nil
				}
				req.Force = true
				result, err = app.Engine.BookSlot(app.Ctx, req, app.Actor())
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booked!\n\n")
			printBooking(cmd.OutOrStdout(), *result.Booking)
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Accept a double booking without asking")

	return cmd
}

// BookSeriesCmd creates the bookSeries command
func BookSeriesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookSeries <volunteer_id> <location_id> <start_date> <slot_id> <rrule>",
		Short: "Book a volunteer into the same slot on every date of a recurrence rule",
		Long: `Book a volunteer into the same slot on every date of a recurrence rule.

The rule must be bounded, for example "FREQ=WEEKLY;BYDAY=SA;COUNT=6".
Dates that would double book the volunteer are skipped unless --force is set.`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			result, err := services.BookSeries(app.Ctx, app.Engine, app.Logger, services.SeriesRequest{
				VolunteerID: args[0],
				LocationID:  args[1],
				StartDate:   args[2],
				SlotID:      args[3],
				RRule:       args[4],
				Force:       force,
			}, app.Actor())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Series processed: %d booked, %d need confirmation, %d failed\n\n",
				result.Booked(), result.Warnings(), result.Failed())
			for _, line := range result.Describe() {
				fmt.Fprintf(out, "  %s\n", line)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Accept double bookings")

	return cmd
}

type transitionFunc func(app *AppContext, bookingID string) (*model.Booking, error)

func transitionCmd(app *AppContext, use, short, done string, fn transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <booking_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := fn(app, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s\n\n", done)
			printBooking(cmd.OutOrStdout(), *b)
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

// CancelCmd creates the cancel command
func CancelCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "cancel", "Cancel a booking", "Booking cancelled",
		func(app *AppContext, id string) (*model.Booking, error) {
			return app.Engine.Cancel(app.Ctx, id, app.Actor())
		})
}

// CheckInCmd creates the checkIn command
func CheckInCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "checkIn", "Record that a volunteer attended", "Checked in",
		func(app *AppContext, id string) (*model.Booking, error) {
			return app.Engine.CheckIn(app.Ctx, id, app.Actor())
		})
}

// NoShowCmd creates the noShow command
func NoShowCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "noShow", "Record that a volunteer did not attend", "Marked as no-show",
		func(app *AppContext, id string) (*model.Booking, error) {
			return app.Engine.MarkNoShow(app.Ctx, id, app.Actor())
		})
}

// RemoveCmd creates the remove command
func RemoveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <booking_id>",
		Short: "Delete a booking record entirely (administrators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Engine.Remove(app.Ctx, args[0], app.Actor()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking %s removed\n\n", args[0])
			return nil
		},
	}
}

// CancelSlotCmd creates the cancelSlot command
func CancelSlotCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelSlot <location_id> <date> <slot_id>",
		Short: "Cancel every active booking in a slot, for example when a site closes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cancelled, err := app.Engine.CancelSlot(app.Ctx, args[0], args[1], args[2], app.Actor())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Cancelled %d bookings\n\n", len(cancelled))
			printBookings(cmd.OutOrStdout(), cancelled)
			return nil
		},
	}
}

// BookingsCmd creates the bookings command
func BookingsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List bookings matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := bookingFilterFromFlags(cmd)
			if err != nil {
				return err
			}

			bookings, err := app.Engine.Find(app.Ctx, filter)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d bookings:\n\n", len(bookings))
			printBookings(cmd.OutOrStdout(), bookings)
			return nil
		},
	}

	cmd.Flags().String("volunteer", "", "Volunteer ID")
	cmd.Flags().String("location", "", "Location ID")
	cmd.Flags().String("slot", "", "Slot ID")
	cmd.Flags().String("date", "", "Exact date (YYYY-MM-DD)")
	cmd.Flags().String("from", "", "First date, inclusive")
	cmd.Flags().String("to", "", "Last date, inclusive")
	cmd.Flags().String("status", "", "Comma separated statuses (assigned,checked-in,no-show,cancelled)")
	cmd.Flags().Bool("active", false, "Only assigned and checked-in bookings")

	return cmd
}

func bookingFilterFromFlags(cmd *cobra.Command) (db.BookingFilter, error) {
	flags := cmd.Flags()
	filter := db.BookingFilter{}
	filter.VolunteerID, _ = flags.GetString("volunteer")
	filter.LocationID, _ = flags.GetString("location")
	filter.SlotID, _ = flags.GetString("slot")
	filter.Date, _ = flags.GetString("date")
	filter.FromDate, _ = flags.GetString("from")
	filter.ToDate, _ = flags.GetString("to")
	filter.ActiveOnly, _ = flags.GetBool("active")

	statuses, _ := flags.GetString("status")
	if statuses != "" {
		for _, raw := range strings.Split(statuses, ",") {
			status := model.Status(strings.TrimSpace(raw))
			if !status.IsValid() {
				return filter, fmt.Errorf("unknown status %q", raw)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return filter, nil
}
