package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders batch rows as CSV string.
func RenderCSV(batches []BatchRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("batch_id,trader_vault_id,token_in,token_out,")
	sb.WriteString("trader_amount_in,total_copied,total_fees,follower_count,timestamp_ms\n")

	// Rows
	for _, b := range batches {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%d,%d\n",
			b.BatchID,
			b.TraderVaultID,
			b.TokenIn,
			b.TokenOut,
			b.TraderAmountIn,
			b.TotalCopied,
			b.TotalFees,
			b.FollowerCount,
			b.Timestamp,
		))
	}

	return sb.String()
}
