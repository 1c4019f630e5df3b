package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wikijournalbot/pkg/model"
	"wikijournalbot/pkg/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		page  string
		runID string
	)
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show recorded page outcomes from previous runs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.SQLiteStore) error {
				return showHistory(cmd, st, limit, page, runID)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent page outcomes to show")
	cmd.Flags().StringVar(&page, "page", "", "Show the last outcome of this title only")
	cmd.Flags().StringVar(&runID, "run", "", "Show the summary of this run")
	return cmd
}

func showHistory(cmd *cobra.Command, st store.HistoryStore, limit int, page, runID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID != "" {
		r, err := st.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("run %s not found", runID)
		}
		return printRun(out, r)
	}

	if page != "" {
		e, err := st.LastEdit(ctx, page)
		if err != nil {
			return err
		}
		if e == nil {
			return printEdits(out, nil)
		}
		return printEdits(out, []model.EditRecord{*e})
	}

	edits, err := st.RecentEdits(ctx, limit)
	if err != nil {
		return err
	}
	return printEdits(out, edits)
}

func printEdits(w io.Writer, edits []model.EditRecord) error {
	if len(edits) == 0 {
		_, err := fmt.Fprintln(w, "No history recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tSTAGE\tROWS\tREVID\tTITLE\tREASON")
	for _, e := range edits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Status, e.Stage, e.Rows, e.RevID, e.Title, e.Reason)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *model.RunRecord) error {
	_, err := fmt.Fprintf(w, "Run %s (%s)\n  started:   %s\n  finished:  %s\n  pages:     %d\n  submitted: %d\n  skipped:   %d\n  failed:    %d\n",
		r.ID, r.Mode,
		r.StartedAt.Local().Format(time.DateTime), r.FinishedAt.Local().Format(time.DateTime),
		r.Pages, r.Submitted, r.Skipped, r.Failed)
	if err == nil && r.Aborted != "" {
		_, err = fmt.Fprintf(w, "  aborted:   %s\n", r.Aborted)
	}
	return err
}
