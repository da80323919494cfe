package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratoscan/stratoscan/internal/app"
	"github.com/stratoscan/stratoscan/pkg/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a discovery session and write the inventory",
	Long: `Run a full discovery session against the current AWS account.

Example:
  stratoscan discover --regions us-east-1,eu-west-1 --services ec2,s3`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if reqFile, _ := cmd.Flags().GetString("request"); reqFile != "" {
			if err := config.ApplyRequestFile(reqFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading request file: %v\n", err)
				os.Exit(1)
			}
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			config.OnProgress = printProgress
		}

		inv, path, err := app.Run(ctx, config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running discovery: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nDiscovered %d resources across %d regions.\n",
			inv.Summary.TotalResources, len(inv.Regions))
		if n := len(inv.Metadata.Errors); n > 0 {
			fmt.Printf("Completed with %d scan errors; see the artifact for details.\n", n)
		}
		fmt.Printf("Inventory: %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&config.AccountID, "account", "", "Account ID to attribute resources to")
	discoverCmd.Flags().StringSliceVar(&config.Regions, "regions", nil, "Regions to scan ('all' or empty for every enabled region)")
	discoverCmd.Flags().StringSliceVar(&config.ExcludeRegions, "exclude-regions", nil, "Regions to skip")
	discoverCmd.Flags().StringSliceVar(&config.Services, "services", nil, "Services to scan (default all registered)")
	discoverCmd.Flags().StringSliceVar(&config.ExcludeServices, "exclude-services", nil, "Services to skip")
	discoverCmd.Flags().IntVar(&config.MaxConcurrent, "concurrency", 0, "Max concurrent provider API calls")
	discoverCmd.Flags().DurationVar(&config.Timeout, "timeout", 0, "Session timeout (default 30m)")
	discoverCmd.Flags().StringVar(&config.S3Bucket, "s3-bucket", "", "Upload the inventory snapshot to this S3 bucket")
	discoverCmd.Flags().String("request", "", "YAML file with the discovery request (flags take precedence)")
	discoverCmd.Flags().Bool("quiet", false, "Suppress progress output")
}

// printProgress renders a one-line progress update per scan unit.
func printProgress(p discovery.Progress) {
	switch p.Status {
	case discovery.StatusInProgress:
		if p.CurrentService == "" {
			return
		}
		fmt.Fprintf(os.Stderr, "[%3d/%3d] %-12s %-16s resources=%d errors=%d\n",
			p.CompletedUnits, p.TotalUnits, p.CurrentService, p.CurrentRegion,
			p.ResourceCount, len(p.Errors))
	case discovery.StatusCompleted:
		elapsed := time.Duration(0)
		if p.CompletedAt != nil {
			elapsed = p.CompletedAt.Sub(p.StartedAt).Round(time.Millisecond)
		}
		fmt.Fprintf(os.Stderr, "Discovery completed in %s\n", elapsed)
	case discovery.StatusFailed:
		fmt.Fprintf(os.Stderr, "Discovery failed: %s\n", p.Message)
	}
}
