package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/legacy"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
)

// ImportLegacyCmd creates the importLegacy command
func ImportLegacyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importLegacy <records.json>",
		Short: "Import bookings exported by the previous booking system",
		Long: `Import a JSON array of bookings exported by the previous booking system.

Volunteers are matched by ID, email, display name or alias. Hours come from
explicit fields, the slot catalog, the slot label or an encoded slot ID.
Records that cannot be resolved are listed and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			replace, _ := cmd.Flags().GetBool("replace")

			app.Logger.Debug("importLegacy command",
				zap.String("file", args[0]),
				zap.Bool("dry_run", dryRun),
				zap.Bool("replace", replace))

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			records, err := legacy.ReadRecords(f)
			if err != nil {
				return err
			}

			result, err := services.ImportLegacy(app.Ctx, app.Database, app.Catalog, app.Engine, app.Logger, records,
				services.ImportOptions{DryRun: dryRun, Replace: replace})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "Imported"
			if dryRun {
				verb = "Would import"
			}
			fmt.Fprintf(out, "\n✓ %s %d of %d records\n\n", verb, len(result.Bookings), len(records))

			for _, source := range []legacy.Source{legacy.SourceExplicit, legacy.SourceCatalog, legacy.SourceLabel, legacy.SourceID} {
				if n := result.Sources[source]; n > 0 {
					fmt.Fprintf(out, "  hours from %-8s %d\n", source, n)
				}
			}
			if result.Overlaps > 0 {
				fmt.Fprintf(out, "  %s%d overlapping bookings imported as double booked%s\n", colorYellow, result.Overlaps, colorReset)
			}

			if len(result.Issues) > 0 {
				fmt.Fprintf(out, "\n⚠️  Skipped %d records:\n", len(result.Issues))
				for _, issue := range result.Issues {
					fmt.Fprintf(out, "  ✗ #%d %s: %s\n", issue.Index, issue.RecordID, issue.Reason)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Resolve records without writing anything")
	cmd.Flags().Bool("replace", false, "Discard existing bookings instead of appending")

	return cmd
}
