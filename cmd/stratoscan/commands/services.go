package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	scanneraws "github.com/stratoscan/stratoscan/pkg/scanner/aws"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the registered service scanners",
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := scanneraws.DefaultRegistry()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building registry: %v\n", err)
			os.Exit(1)
		}

		for _, s := range registry.GetAll() {
			scope := "regional"
			if s.IsGlobal() {
				scope = "global"
			}
			fmt.Printf("%-12s %-8s %s\n", s.ServiceName(), scope, strings.Join(s.ResourceTypes(), ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}
