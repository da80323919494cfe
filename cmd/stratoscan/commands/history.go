package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratoscan/stratoscan/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored inventory snapshots",
	Run: func(cmd *cobra.Command, args []string) {
		account, _ := cmd.Flags().GetString("account")

		store := storage.NewSnapshotStore(storage.NewLocalStore(config.OutputDir), config.Format)
		keys, err := store.List(cmd.Context(), account)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
			os.Exit(1)
		}
		if len(keys) == 0 {
			fmt.Println("No snapshots found.")
			return
		}

		for _, key := range keys {
			inv, err := store.Load(cmd.Context(), key)
			if err != nil {
				fmt.Printf("%-60s (unreadable: %v)\n", key, err)
				continue
			}
			fmt.Printf("%-60s %6d resources  %s\n",
				key, inv.Summary.TotalResources, inv.Timestamp.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("account", "", "Only list snapshots for this account ID")
}
