package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratoscan/stratoscan/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.AppName, version.Current)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
