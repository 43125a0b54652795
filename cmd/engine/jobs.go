package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"activitytracker-engine/internal/store"
)

var (
	jobsLimit int

	activitiesAll      bool
	activitiesCategory string
	activitiesLimit    int

	pruneKeepDays int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent sync jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, st, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListSyncJobs(cmd.Context(), cfg.Provider.ID, jobsLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tFOUND\tCREATED\tUPDATED\tREMOVED\tERRORS")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				j.ID, j.Status, j.StartedAt.Local().Format(time.DateTime),
				j.ActivitiesFound, j.Created, j.Updated, j.Removed, j.Errors)
		}
		return tw.Flush()
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Print catalog entries as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, st, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := store.ListEntriesOpts{
			ProviderID: cfg.Provider.ID,
			Category:   activitiesCategory,
			Limit:      activitiesLimit,
		}
		if !activitiesAll {
			active := true
			opts.Active = &active
		}
		entries, err := st.ListEntries(cmd.Context(), opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished sync jobs older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, st, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		keep := cfg.Sync.KeepJobsDays
		if pruneKeepDays > 0 {
			keep = pruneKeepDays
		}
		n, err := st.PruneSyncJobs(cmd.Context(), time.Now().AddDate(0, 0, -keep))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d job(s) older than %d days\n", n, keep)
		return nil
	},
}

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum jobs to list")

	activitiesCmd.Flags().BoolVar(&activitiesAll, "all", false, "Include inactive entries")
	activitiesCmd.Flags().StringVar(&activitiesCategory, "category", "", "Only this section")
	activitiesCmd.Flags().IntVar(&activitiesLimit, "limit", 0, "Maximum entries (default 500)")

	pruneCmd.Flags().IntVar(&pruneKeepDays, "keep-days", 0, "Override sync.keep_jobs_days")

	rootCmd.AddCommand(jobsCmd, activitiesCmd, pruneCmd)
}
