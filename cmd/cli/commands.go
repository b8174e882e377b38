package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/smart-budget/internal/analytics"
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/pipeline"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/spf13/cobra"
)

// importCmd loads and normalizes one or more CSV files
func importCmd(a *app) *cobra.Command {
	var gcsPrefix string

	cmd := &cobra.Command{
		Use:   "import [csv...]",
		Short: "Load CSV files and normalize them into canonical transactions",
		Long: `Loads bank CSV exports, detects the date, description and amount
columns by header name or by content, and prints the canonical
transactions. Several files are merged into one result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && gcsPrefix == "" {
				return fmt.Errorf("import requires a CSV path or --gcs-prefix")
			}
			ctx := cmd.Context()

			kit, err := a.toolkit(ctx, append([]string{gcsPrefix}, args...)...)
			if err != nil {
				return err
			}

			var resp tools.Response
			switch {
			case gcsPrefix != "" && len(args) == 0:
				resp = kit.LoadCSVPrefix(ctx, gcsPrefix)
			case gcsPrefix != "":
				resp = kit.LoadCSVPrefix(ctx, gcsPrefix)
				if resp.OK() {
					rest := kit.LoadCSVSources(ctx, args)
					resp = mergeLoads(resp, rest)
				}
			case len(args) == 1:
				resp = kit.LoadCSVTransactions(ctx, args[0])
			default:
				resp = kit.LoadCSVSources(ctx, args)
			}
			return a.print(cmd, resp, printImportSummary)
		},
	}

	cmd.Flags().StringVar(&gcsPrefix, "gcs-prefix", "", "import every .csv object under this gs:// prefix")
	return cmd
}

// categorizeCmd assigns categories from the keyword rules
func categorizeCmd(a *app) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "categorize <json>",
		Short: "Assign categories to transactions from keyword rules",
		Long: `Reads transactions from a JSON file ("-" for stdin), either an array or
an import result, and fills in missing categories. Existing categories
are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kit, err := a.toolkit(ctx)
			if err != nil {
				return err
			}

			txs, resp, ok := readTransactions(cmd, args[0])
			if !ok {
				return a.print(cmd, resp, nil)
			}

			resp = kit.AutoCategorize(ctx, txs)
			if export {
				exported := kit.ExportCategorizedCSV(ctx, resp.Transactions, "")
				if !exported.OK() {
					return a.print(cmd, exported, nil)
				}
				resp.Path = exported.Path
			}
			return a.print(cmd, resp, printCategorizeSummary)
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "also write the categorized CSV under --out")
	return cmd
}

// analyzeCmd computes spending totals
func analyzeCmd(a *app) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "analyze <json>",
		Short: "Compute total spending and breakdowns by category, month and merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kit, err := a.toolkit(ctx)
			if err != nil {
				return err
			}

			txs, resp, ok := readTransactions(cmd, args[0])
			if !ok {
				return a.print(cmd, resp, nil)
			}

			resp = kit.ComputeSpendingAnalytics(ctx, txs)
			if export && resp.OK() {
				exported := kit.ExportAnalyticsJSON(ctx, resp.Analytics, "")
				if !exported.OK() {
					return a.print(cmd, exported, nil)
				}
				resp.Path = exported.Path
			}
			return a.print(cmd, resp, printAnalyticsSummary)
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "also write the analytics JSON under --out")
	return cmd
}

// anomaliesCmd flags unusually large expenses
func anomaliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "anomalies <json>",
		Short: "Flag expenses far above their category's typical amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kit, err := a.toolkit(ctx)
			if err != nil {
				return err
			}

			txs, resp, ok := readTransactions(cmd, args[0])
			if !ok {
				return a.print(cmd, resp, nil)
			}
			return a.print(cmd, kit.DetectAnomalies(ctx, txs), printAnomaliesSummary)
		},
	}
}

// runCmd executes the full pipeline
func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <csv>",
		Short: "Import, categorize, analyze and export in one step",
		Long: `Runs the full pipeline on one CSV and writes categorized_transactions.csv
and analytics_summary.json under --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kit, err := a.toolkit(ctx, args[0])
			if err != nil {
				return err
			}

			state, err := pipeline.RunBudget(ctx, args[0], kit.OutputDir(), kit.PipelineDeps())
			if err != nil {
				return a.print(cmd, tools.Response{Status: tools.StatusError, ErrorMessage: err.Error(), Err: err}, nil)
			}
			return a.printRun(cmd, newRunResult(state))
		},
	}
}

// rulesCmd prints the active keyword table
func rulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the active keyword → category rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, kit.ActiveRules(), printRulesSummary)
		},
	}
}

// runResult is the JSON form of a successful pipeline run.
type runResult struct {
	Status    string                    `json:"status"`
	RunID     string                    `json:"run_id"`
	Count     int                       `json:"count"`
	Dropped   map[domain.DropReason]int `json:"dropped"`
	Analytics *analytics.Summary        `json:"analytics"`
	Anomalies []analytics.Anomaly       `json:"anomalies"`
	Outputs   []string                  `json:"outputs"`
}

func newRunResult(state *pipeline.PipelineState) runResult {
	r := runResult{
		Status:    tools.StatusSuccess,
		RunID:     state.RunID,
		Count:     len(state.Transactions),
		Analytics: state.Summary,
		Anomalies: state.Anomalies,
		Outputs:   state.Outputs,
		Dropped:   map[domain.DropReason]int{},
	}
	for _, d := range state.Drops {
		for _, reason := range d.Reasons {
			r.Dropped[reason]++
		}
	}
	return r
}

// readTransactions reads a transaction JSON file, or stdin for "-". On
// failure it returns the error envelope to print.
func readTransactions(cmd *cobra.Command, path string) ([]domain.Transaction, tools.Response, bool) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		ioErr := &domain.IOFailure{Op: "read JSON", Path: path, Err: err}
		return nil, tools.Response{Status: tools.StatusError, ErrorMessage: ioErr.Error(), Err: ioErr}, false
	}

	txs, err := tools.ExtractTransactions(data)
	if err != nil {
		return nil, tools.Response{Status: tools.StatusError, ErrorMessage: err.Error(), Err: err}, false
	}
	return txs, tools.Response{}, true
}

// mergeLoads concatenates two successful import envelopes.
func mergeLoads(first, second tools.Response) tools.Response {
	if !second.OK() {
		return second
	}
	merged := first
	merged.Transactions = append(append([]domain.Transaction{}, first.Transactions...), second.Transactions...)
	merged.Sources = append(append([]string{}, first.Sources...), second.Sources...)
	merged.Dropped = map[domain.DropReason]int{}
	for _, resp := range []tools.Response{first, second} {
		for reason, n := range resp.Dropped {
			merged.Dropped[reason] += n
		}
	}
	count := len(merged.Transactions)
	merged.Count = &count
	return merged
}

// print writes the envelope as indented JSON, or a colored summary with
// --summary. An error envelope makes the command exit non-zero.
func (a *app) print(cmd *cobra.Command, resp tools.Response, summary func(io.Writer, tools.Response)) error {
	out := cmd.OutOrStdout()
	switch {
	case a.summary && !resp.OK():
		printError(out, resp.ErrorMessage)
	case a.summary && summary != nil:
		summary(out, resp)
	default:
		if err := writeJSON(out, resp); err != nil {
			return err
		}
	}
	if !resp.OK() {
		return errFailed
	}
	return nil
}

func (a *app) printRun(cmd *cobra.Command, r runResult) error {
	if a.summary {
		printRunSummary(cmd.OutOrStdout(), r)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), r)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
