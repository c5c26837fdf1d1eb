package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/quatton/podium/pkg/syncer"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync activities from Strava once",
	Long: `Runs a sync in the foreground and prints one line per user.

Without --user every linked user is synced. With --reconcile only the stored
activities are rescored against the current weights.`,
	RunE: runSync,
}

var (
	syncUser      int64
	syncReconcile bool
)

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Int64Var(&syncUser, "user", 0, "Telegram id of a single user")
	syncCmd.Flags().BoolVar(&syncReconcile, "reconcile", false, "Only rescore stored activities")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []syncer.Result
	switch {
	case syncUser != 0 && syncReconcile:
		results = []syncer.Result{a.engine.Reconcile(ctx, syncUser)}
	case syncUser != 0:
		results = []syncer.Result{a.engine.SyncUser(ctx, syncUser)}
	case syncReconcile:
		results, err = a.engine.ReconcileAll(ctx)
	default:
		results, err = a.engine.SyncAll(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tSTATUS\tFETCHED\tUPSERTED\tDROPPED\tUPDATED\tREMOVED\tERROR")
	failed := 0
	for _, r := range results {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
			failed++
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.UserID, r.Status, r.Fetched, r.Upserted, r.Dropped, r.Updated, r.Removed, msg)
	}
	tw.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d syncs failed", failed, len(results))
	}
	return nil
}
