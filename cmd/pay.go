package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ripas/ripas-go/internal/consensus"
	"github.com/ripas/ripas-go/internal/utils"
	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay <plate>",
	Short: "Mark a parked vehicle's ticket as paid",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPay(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(payCmd)
}

func runPay(ctx context.Context, plate string) {
	// Normalize the operator's input the same way the recognizer does, so
	// "ab-123" settles the ticket recorded as AB123.
	clean := consensus.CleanText(strings.TrimSpace(plate))
	if clean == "" {
		utils.Die("Invalid plate", fmt.Errorf("no letters or digits in %q", plate), nil)
	}

	found, err := DB.MarkPaid(ctx, clean)
	if err != nil {
		utils.Die("Failed to mark ticket as paid", err, nil)
	}
	if !found {
		fmt.Printf("⛔ No open parking record for %s\n", clean)
		return
	}
	fmt.Printf("✅ Ticket for %s marked as paid\n", clean)
}
