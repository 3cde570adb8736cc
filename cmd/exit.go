package cmd

import (
	"context"
	"fmt"

	"github.com/ripas/ripas-go/internal/utils"
	"github.com/spf13/cobra"
)

var exitOpts gateOptions

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Process the exit gate camera and verify payment",
	Run: func(cmd *cobra.Command, args []string) {
		runExit(cmd.Context(), exitOpts)
	},
}

func init() {
	exitCmd.Flags().StringVarP(&exitOpts.InputPath, "input", "i", "", "Path to gate camera video or image")
	exitCmd.Flags().StringVarP(&exitOpts.OutputPath, "output", "o", "", "Save the annotated snapshot to this path")
	exitCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exitCmd)
}

func runExit(ctx context.Context, opts gateOptions) {
	plates, err := processGateMedia(ctx, opts, func(plate string) {
		open, msg, err := DB.RecordExit(ctx, plate)
		if err != nil {
			utils.Die("Failed to record exit", err, nil)
		}
		if open {
			fmt.Printf("✅ %s\n", msg)
			return
		}
		fmt.Printf("⛔ %s\n", msg)
		fmt.Println("🔒 Gate stays closed.")
	})
	if err != nil {
		utils.Die("Exit scan failed", err, nil)
	}
	if plates == 0 {
		fmt.Println("🚧 No plate recognized. Gate stays closed.")
	}
}
