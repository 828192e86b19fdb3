package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runsCmd lists persisted runs; with an argument it dumps one run's full
// record as JSON for analysis pipelines.
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List persisted runs or dump one run's results",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()

		if len(args) == 0 {
			ids, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}

		rec, err := store.LoadResults(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
