package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/HerbHall/aciclean/internal/report"
	"github.com/HerbHall/aciclean/internal/store"
	"github.com/HerbHall/aciclean/internal/version"
	"github.com/HerbHall/aciclean/pkg/models"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		output string
		limit  int
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled purge runs",
		Long: `Shows runs recorded with --history (or history.path). With --run, shows the
per-endpoint results of one run in the order they were attempted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runHistory(cmd.Context(), output, limit, runID)
		},
	}
	cmd.Flags().String("history", "", "SQLite file journaling every run")
	cmd.Flags().StringVarP(&output, "output", "o", report.FormatText, "output format: text or json")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show results of this run ID")
	return cmd
}

func (a *app) runHistory(ctx context.Context, output string, limit int, runID string) error {
	if output != report.FormatText && output != report.FormatJSON {
		return usageError(fmt.Errorf("unknown output format %q", output))
	}
	path := a.v.GetString("history.path")
	if path == "" {
		return usageError(fmt.Errorf("history.path is not set (use --history)"))
	}
	db, h, err := openHistory(ctx, path)
	if err != nil {
		return failureError(err)
	}
	defer db.Close()

	if runID != "" {
		results, err := h.RunResults(ctx, runID)
		if err != nil {
			return failureError(err)
		}
		if len(results) == 0 && output == report.FormatText {
			fmt.Fprintf(a.stdout, "No results recorded for run %s.\n", runID)
			return nil
		}
		if output == report.FormatJSON {
			return writeJSON(a.stdout, results)
		}
		writeResultsTable(a.stdout, results)
		return nil
	}

	runs, err := h.ListRuns(ctx, limit)
	if err != nil {
		return failureError(err)
	}
	if output == report.FormatJSON {
		if runs == nil {
			runs = []store.RunRecord{}
		}
		return writeJSON(a.stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs recorded.")
		return nil
	}
	writeRunsTable(a.stdout, runs)
	return nil
}

// openHistory opens the run journal at path. The caller closes the store.
func openHistory(ctx context.Context, path string) (*store.SQLiteStore, *store.History, error) {
	db, err := store.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, nil, err
	}
	h, err := store.NewHistory(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, h, nil
}

func writeRunsTable(w io.Writer, runs []store.RunRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Started", "Run ID", "EPG", "Status", "Deleted", "Failed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range runs {
		table.Append([]string{
			r.StartedAt.Local().Format(time.DateTime),
			r.ID,
			r.EPGDN.String(),
			string(r.Status),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
		})
	}
	table.Render()
}

func writeResultsTable(w io.Writer, results []models.OperationResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Endpoint", "Result", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range results {
		result := "deleted"
		if !r.Success {
			result = "failed"
			if r.Detail == "dry run" {
				result = "skipped"
			}
		}
		table.Append([]string{r.DN.String(), result, r.Detail})
	}
	table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return failureError(fmt.Errorf("encode output: %w", err))
	}
	return nil
}
