package cmd

import (
	"context"
	"fmt"

	"github.com/ripas/ripas-go/internal/utils"
	"github.com/spf13/cobra"
)

var entryOpts gateOptions

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Process the entrance gate camera and log arriving vehicles",
	Run: func(cmd *cobra.Command, args []string) {
		runEntry(cmd.Context(), entryOpts)
	},
}

func init() {
	entryCmd.Flags().StringVarP(&entryOpts.InputPath, "input", "i", "", "Path to gate camera video or image")
	entryCmd.Flags().StringVarP(&entryOpts.OutputPath, "output", "o", "", "Save the annotated snapshot to this path")
	entryCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(entryCmd)
}

func runEntry(ctx context.Context, opts gateOptions) {
	plates, err := processGateMedia(ctx, opts, func(plate string) {
		msg, err := DB.RecordEntry(ctx, plate)
		if err != nil {
			utils.Die("Failed to record entry", err, nil)
		}
		fmt.Printf("✅ %s\n", msg)
		fmt.Println("🔓 Gate opening...")
	})
	if err != nil {
		utils.Die("Entrance scan failed", err, nil)
	}
	if plates == 0 {
		fmt.Println("🚧 No plate recognized. Gate stays closed.")
	}
}
