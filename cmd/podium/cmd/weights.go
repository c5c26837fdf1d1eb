package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/quatton/podium/pkg/scoring"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect and change scoring weights",
}

var weightsReconcile bool

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.PersistentFlags().BoolVar(&weightsReconcile, "reconcile", true, "Rescore stored activities after a change")

	weightsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show effective weights",
		Args:  cobra.NoArgs,
		RunE:  listWeights,
	})
	weightsCmd.AddCommand(&cobra.Command{
		Use:   "set SPORT WEIGHT",
		Short: "Override the weight of a sport (0 disables it)",
		Args:  cobra.ExactArgs(2),
		RunE:  setWeight,
	})
	weightsCmd.AddCommand(&cobra.Command{
		Use:   "reset SPORT",
		Short: "Drop an override so the built-in default applies",
		Args:  cobra.ExactArgs(1),
		RunE:  resetWeight,
	})
	weightsCmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Store every weight listed in a YAML, JSON or TOML file",
		Args:  cobra.ExactArgs(1),
		RunE:  importWeights,
	})
}

func listWeights(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	provider := scoring.NewProvider(st.weights, logger)
	overrides := provider.Current(cmd.Context())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPORT\tWEIGHT\tSOURCE")
	for _, e := range provider.Effective(cmd.Context()).Sorted() {
		source := "default"
		if _, ok := overrides[e.SportType]; ok {
			source = "override"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.SportType, e.Weight.String(), source)
	}
	return tw.Flush()
}

// changeWeights applies fn to the weight provider and rescores stored
// activities when requested.
func changeWeights(cmd *cobra.Command, fn func(p *scoring.Provider) error) error {
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

	if err := fn(a.weights); err != nil {
		return err
	}
	if !weightsReconcile {
		return nil
	}

	results, err := a.engine.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	updated, removed := 0, 0
	for _, r := range results {
		updated += r.Updated
		removed += r.Removed
	}
	fmt.Fprintf(os.Stdout, "rescored %d users: %d activities updated, %d removed\n", len(results), updated, removed)
	return nil
}

func setWeight(cmd *cobra.Command, args []string) error {
	w, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("weight %q: %w", args[1], err)
	}
	return changeWeights(cmd, func(p *scoring.Provider) error {
		return p.Set(cmd.Context(), args[0], w)
	})
}

func resetWeight(cmd *cobra.Command, args []string) error {
	return changeWeights(cmd, func(p *scoring.Provider) error {
		return p.Reset(cmd.Context(), args[0])
	})
}

func importWeights(cmd *cobra.Command, args []string) error {
	table, err := scoring.LoadTableFile(args[0])
	if err != nil {
		return err
	}
	return changeWeights(cmd, func(p *scoring.Provider) error {
		return p.Import(cmd.Context(), table)
	})
}
