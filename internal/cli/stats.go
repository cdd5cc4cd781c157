package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
)

var (
	statsPartner string
	statsRecent  bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [flags]",
		Short: "Show processing pipeline statistics",
		Long: `Show processing pipeline statistics: product counts by processing status,
eligible package count and the eligible rate. Scope to one partner with
--partner.

Examples:
  # Stats across all partners
  coverctl stats

  # Stats for one partner, with recent activity
  coverctl stats --partner 0198a2bc-7c29-7f60-ae1e-3c2d4f5a6b7c --recent`,
		RunE: runStats,
	}
	cmd.Flags().StringVar(&statsPartner, "partner", "", "Partner ID to scope the stats to")
	cmd.Flags().BoolVar(&statsRecent, "recent", false, "Also list products processed in the last 24 hours")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	partnerID := uuid.Nil
	if statsPartner != "" {
		var err error
		partnerID, err = uuid.Parse(statsPartner)
		if err != nil {
			return fmt.Errorf("invalid partner id: %w", err)
		}
	}

	ctx, release, err := connCtx()
	if err != nil {
		return fmt.Errorf("connecting to partner store: %w", err)
	}
	defer release()

	stats, derr := db.DB(ctx).GetProcessingStats(ctx, partnerID)
	if derr != nil {
		return derr
	}

	if jsonOutput {
		printJSON(stats)
	} else {
		fmt.Printf("Total products:    %d\n", stats.TotalProducts)
		fmt.Printf("Processed:         %d\n", stats.Processed)
		fmt.Printf("Pending:           %d\n", stats.Pending)
		fmt.Printf("Processing:        %d\n", stats.Processing)
		fmt.Printf("Failed:            %d\n", stats.Failed)
		fmt.Printf("Eligible packages: %d\n", stats.Eligible)
		fmt.Printf("Eligible rate:     %.1f%%\n", stats.EligibleRate*100)
	}

	if !statsRecent {
		return nil
	}

	since := time.Now().Add(-24 * time.Hour)
	recent, derr := db.DB(ctx).ListRecentActivity(ctx, since, 20)
	if derr != nil {
		return derr
	}
	if jsonOutput {
		printJSON(recent)
		return nil
	}

	fmt.Println()
	if len(recent) == 0 {
		fmt.Println("No activity in the last 24 hours")
		return nil
	}
	for _, p := range recent {
		status := p.ProcessingStatus
		if status == "failed" {
			errorLabel.Printf("%-12s %s\n", status, p.ProductName)
		} else {
			fmt.Printf("%-12s %s\n", status, p.ProductName)
		}
	}
	return nil
}
