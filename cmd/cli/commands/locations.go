package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
)

// LocationsCmd creates the locations command and its subcommands
func LocationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List and save locations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locations, err := app.Database.ListLocations(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list locations: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d locations:\n\n", len(locations))
			for _, l := range locations {
				fmt.Fprintf(out, "- %s (%s) capacity %d", l.Name, l.ID, l.Capacity)
				if l.Address != "" {
					fmt.Fprintf(out, " - %s", l.Address)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out)
			return nil
		},
	})

	save := &cobra.Command{
		Use:   "save <location_id> <name> <capacity>",
		Short: "Create or update a location",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.Atoi(args[2])
			if err != nil || capacity < 0 {
				return fmt.Errorf("capacity must be a non-negative number, got: %s", args[2])
			}
			address, _ := cmd.Flags().GetString("address")

			location := model.Location{ID: args[0], Name: args[1], Address: address, Capacity: capacity}
			if err := app.Database.SaveLocation(app.Ctx, location); err != nil {
				return fmt.Errorf("failed to save location: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Saved %s\n\n", location.ID)
			return nil
		},
	}
	save.Flags().String("address", "", "Street address shown in calendars")
	cmd.AddCommand(save)

	return cmd
}

// DeleteLocationCmd creates the deleteLocation command
func DeleteLocationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteLocation <location_id>",
		Short: "Delete a location that no booking references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteLocation(app.Ctx, app.Database, app.Logger, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Location %s deleted\n\n", args[0])
			return nil
		},
	}
}

// VolunteersCmd creates the volunteers command
func VolunteersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volunteers",
		Short: "List all volunteers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			volunteers, err := app.Database.ListVolunteers(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list volunteers: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d volunteers:\n\n", len(volunteers))
			for _, v := range volunteers {
				fmt.Fprintf(out, "- %s (%s) - %s - %s\n", v.FullName(), v.ID, v.Status, v.Email)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
