package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ripas/ripas-go/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the parking dashboard and vehicle log",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) {
	records, err := DB.ListRecords(ctx)
	if err != nil {
		utils.Die("Failed to list parking records", err, nil)
	}

	if len(records) == 0 {
		fmt.Println("No parking records found in database.")
		return
	}

	inside := 0
	pending := 0
	for _, r := range records {
		if r.ExitTime == nil {
			inside++
			if !r.Paid {
				pending++
			}
		}
	}

	fmt.Printf("🅿️  Total Vehicles:    %d\n", len(records))
	fmt.Printf("🚗 Currently Inside:  %d\n", inside)
	fmt.Printf("💰 Pending Payment:   %d\n\n", pending)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPLATE\tENTRY\tEXIT\tPAID")
	fmt.Fprintln(w, "--\t-----\t-----\t----\t----")

	for _, r := range records {
		exit := "-"
		if r.ExitTime != nil {
			exit = r.ExitTime.Local().Format("2006-01-02 15:04")
		}
		paid := "no"
		if r.Paid {
			paid = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Plate, r.EntryTime.Local().Format("2006-01-02 15:04"), exit, paid)
	}
	w.Flush()
}
