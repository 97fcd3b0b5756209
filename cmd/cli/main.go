package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/cmd/cli/commands"
	"github.com/jakechorley/volunteer-booking/pkg/utils/logging"
)

func main() {
	var (
		env      string
		verbose  bool
		jsonLogs bool
	)
	app := &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "booking",
		Short: "Volunteer booking - book, cancel and track volunteer slots",
		Long: `A CLI for booking volunteers into location time slots, recording attendance,
and reporting service hours.

Commands run as an administrator unless --as names a volunteer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Init(env, logging.Options{Verbose: verbose, JSON: jsonLogs})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	_ = rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&app.ActAs, "as", "", "Act as this volunteer ID instead of as an administrator")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log to the console as JSON")

	rootCmd.AddCommand(commands.BookCmd(app))
	rootCmd.AddCommand(commands.BookSeriesCmd(app))
	rootCmd.AddCommand(commands.CancelCmd(app))
	rootCmd.AddCommand(commands.CheckInCmd(app))
	rootCmd.AddCommand(commands.NoShowCmd(app))
	rootCmd.AddCommand(commands.RemoveCmd(app))
	rootCmd.AddCommand(commands.CancelSlotCmd(app))
	rootCmd.AddCommand(commands.BookingsCmd(app))
	rootCmd.AddCommand(commands.RosterCmd(app))
	rootCmd.AddCommand(commands.ServiceHoursCmd(app))
	rootCmd.AddCommand(commands.CalendarCmd(app))
	rootCmd.AddCommand(commands.SlotsCmd(app))
	rootCmd.AddCommand(commands.LocationsCmd(app))
	rootCmd.AddCommand(commands.DeleteLocationCmd(app))
	rootCmd.AddCommand(commands.VolunteersCmd(app))
	rootCmd.AddCommand(commands.ImportLegacyCmd(app))
	rootCmd.AddCommand(commands.SendRemindersCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))

	err := rootCmd.Execute()
	app.Close()
	if err != nil {
		os.Exit(1)
	}
}
