package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dvloznov/smart-budget/internal/analytics"
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

func header(w io.Writer, text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(w, "\n%s\n", line)
	green.Fprintf(w, "  %s\n", text)
	green.Fprintf(w, "%s\n\n", line)
}

func printError(w io.Writer, message string) {
	red.Fprintf(w, "Error: %s\n", message)
}

func printDropped(w io.Writer, dropped map[domain.DropReason]int) {
	if len(dropped) == 0 {
		return
	}
	reasons := make([]string, 0, len(dropped))
	for reason := range dropped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		yellow.Fprintf(w, "  ⚠ %d rows dropped: %s\n", dropped[domain.DropReason(reason)], reason)
	}
}

func printImportSummary(w io.Writer, resp tools.Response) {
	header(w, "Import")
	for _, src := range resp.Sources {
		fmt.Fprintf(w, "  → %s\n", src)
	}
	count := len(resp.Transactions)
	if resp.Count != nil {
		count = *resp.Count
	}
	green.Fprintf(w, "  → %d transactions loaded\n", count)
	printDropped(w, resp.Dropped)
}

func printCategorizeSummary(w io.Writer, resp tools.Response) {
	header(w, "Categories")
	counts := map[string]int{}
	var order []string
	for _, tx := range resp.Transactions {
		category := tx.Category
		if !tx.HasCategory() {
			category = domain.Uncategorized
		}
		if _, seen := counts[category]; !seen {
			order = append(order, category)
		}
		counts[category]++
	}
	for _, category := range order {
		fmt.Fprintf(w, "  %-24s %5d\n", category, counts[category])
	}
	if resp.Path != "" {
		green.Fprintf(w, "\n  → written to %s\n", resp.Path)
	}
}

func printAnalyticsSummary(w io.Writer, resp tools.Response) {
	printSpending(w, resp.Analytics)
	if resp.Path != "" {
		green.Fprintf(w, "\n  → written to %s\n", resp.Path)
	}
}

func printSpending(w io.Writer, s *analytics.Summary) {
	header(w, "Spending")
	if s == nil {
		return
	}
	yellow.Fprintf(w, "  Total spent: %.2f\n", s.TotalSpent)

	if len(s.SummaryByCategory) > 0 {
		blue.Fprintln(w, "\n  By category")
		for _, c := range s.SummaryByCategory {
			fmt.Fprintf(w, "    %-24s %12.2f\n", c.Category, c.AbsAmount)
		}
	}
	if len(s.MonthlyTotals) > 0 {
		blue.Fprintln(w, "\n  By month")
		for _, m := range s.MonthlyTotals {
			fmt.Fprintf(w, "    %-24s %12.2f\n", m.Month, m.AbsAmount)
		}
	}
	if len(s.TopMerchants) > 0 {
		blue.Fprintln(w, "\n  Top merchants")
		for _, m := range s.TopMerchants {
			fmt.Fprintf(w, "    %-24s %12.2f\n", m.Description, m.AbsAmount)
		}
	}
}

func printAnomaliesSummary(w io.Writer, resp tools.Response) {
	printAnomalies(w, resp.Anomalies)
}

func printAnomalies(w io.Writer, anomalies []analytics.Anomaly) {
	header(w, "Anomalies")
	if len(anomalies) == 0 {
		green.Fprintln(w, "  → nothing unusual")
		return
	}
	for _, a := range anomalies {
		red.Fprintf(w, "  ⚠ %s  %-24s %10s %s", a.Transaction.Date, a.Transaction.Description, a.Transaction.Amount.StringFixed(2), a.Transaction.Currency)
		fmt.Fprintf(w, "  (%s, threshold %.2f)\n", a.Category, a.Threshold)
	}
}

func printRulesSummary(w io.Writer, resp tools.Response) {
	header(w, "Keyword rules")
	for i, r := range resp.Rules {
		fmt.Fprintf(w, "  %2d. %-20s → %s\n", i+1, r.Keyword, r.Category)
	}
}

func printRunSummary(w io.Writer, r runResult) {
	header(w, "Run "+r.RunID)
	green.Fprintf(w, "  → %d transactions\n", r.Count)
	printDropped(w, r.Dropped)
	printSpending(w, r.Analytics)
	printAnomalies(w, r.Anomalies)
	if len(r.Outputs) > 0 {
		blue.Fprintln(w, "\n  Outputs")
		for _, out := range r.Outputs {
			fmt.Fprintf(w, "  → %s\n", out)
		}
	}
}
