package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Mirror Vault Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Traders: %d | Followers: %d | Subscriptions: %d\n\n",
		r.TraderCount, r.FollowerCount, r.SubscriptionCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Vaults | %d |\n", r.Summary.TotalVaults))
	sb.WriteString(fmt.Sprintf("| Settled Batches | %d |\n", r.Summary.TotalBatches))
	sb.WriteString(fmt.Sprintf("| Total Copied | %s |\n", r.Summary.TotalCopied))
	sb.WriteString(fmt.Sprintf("| Total Fees | %s |\n", r.Summary.TotalFees))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.Summary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.Summary.DateRangeEnd))
	sb.WriteString("\n")

	// Vaults
	sb.WriteString("## Vaults\n\n")
	if len(r.VaultRows) > 0 {
		sb.WriteString("| Vault | Kind | Owner | Base | Balance | Deposits | Withdrawals | HWM |\n")
		sb.WriteString("|-------|------|-------|------|---------|----------|-------------|-----|\n")
		for _, v := range r.VaultRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				v.VaultID, v.Kind, v.Owner, v.BaseToken,
				v.BaseBalance, v.TotalDeposits, v.TotalWithdrawals, v.HighWaterMark))
		}
	} else {
		sb.WriteString("No vaults registered.\n")
	}
	sb.WriteString("\n")

	// Batches
	sb.WriteString("## Mirror Batches\n\n")
	if len(r.BatchRows) > 0 {
		sb.WriteString("| Batch | Trader | Pair | Trader In | Copied | Fees | Followers | Timestamp (ms) |\n")
		sb.WriteString("|-------|--------|------|-----------|--------|------|-----------|----------------|\n")
		for _, b := range r.BatchRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s/%s | %s | %s | %s | %d | %d |\n",
				shortID(b.BatchID), b.TraderVaultID, b.TokenIn, b.TokenOut,
				b.TraderAmountIn, b.TotalCopied, b.TotalFees, b.FollowerCount, b.Timestamp))
		}
	} else {
		sb.WriteString("No batches settled.\n")
	}
	sb.WriteString("\n")

	// Fees
	sb.WriteString("## Collected Fees\n\n")
	if len(r.FeeRows) > 0 {
		sb.WriteString("| Token | Amount |\n")
		sb.WriteString("|-------|--------|\n")
		for _, f := range r.FeeRows {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", f.Token, f.Amount))
		}
	} else {
		sb.WriteString("No fees collected.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortID truncates a batch hash for table readability.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
