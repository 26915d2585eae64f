package result

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const rule = "======================================================================"

// WriteSummary renders the human-readable report of a run.
func WriteSummary(w io.Writer, r *RunResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n📊 SNAPSHOT RUN SUMMARY\n")
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Batch ID          : %s\n", r.BatchID)
	fmt.Fprintf(&b, "Duration          : %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Total Batches     : %d\n", r.TotalBatches)
	fmt.Fprintf(&b, "Completed Batches : %d\n", r.CompletedBatches)
	fmt.Fprintf(&b, "Failed Batches    : %d\n", r.FailedBatches)
	fmt.Fprintf(&b, "Wallets Processed : %d\n", r.TotalProcessed)
	fmt.Fprintf(&b, "Wallets Failed    : %d\n", r.TotalFailed)
	fmt.Fprintf(&b, "Snapshots Stored  : %d\n", r.TotalStored)

	fmt.Fprintf(&b, "\n🌐 NETWORK BREAKDOWN\n")
	fmt.Fprintf(&b, "   mainnet : %d wallets, balance %.6f\n", r.Networks.Mainnet.Wallets, r.Networks.Mainnet.Balance)
	fmt.Fprintf(&b, "   preprod : %d wallets, balance %.6f\n", r.Networks.Preprod.Wallets, r.Networks.Preprod.Balance)

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\n❌ FAILURE SUMMARY (%d)\n", len(r.Failures))
		for _, c := range r.Categories() {
			fmt.Fprintf(&b, "   %-24s : %d\n", c.Category, c.Count)
		}

		fmt.Fprintf(&b, "\n   Details:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "   [batch %d] %s (%s): %s", f.BatchNumber, f.ItemID, f.Category, f.Message)
			if d := f.Details.String(); d != "" {
				fmt.Fprintf(&b, " {%s}", d)
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "\n✅ No item failures reported\n")
	}
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}
