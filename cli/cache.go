package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/scope"
)

// NewCacheCmd creates the "cache" subcommand.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache <expression>...",
		Short:   "Evaluate expressions and report the accessor cache occupancy",
		Example: `  govel cache -d order.json 'items[0].price' 'customer.name.length()'`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runCache,
	}
	addDataFlags(cmd)
	cmd.Flags().Int("repeat", 1, "Evaluate every expression this many times")
	cmd.Flags().Bool("clear", false, "Clear the caches before printing the report")
	cmd.Flags().Bool("stats", false, "Also print hit and eviction counters of the compile caches")
	return cmd
}

func runCache(cmd *cobra.Command, args []string) error {
	data, err := loadData(cmd)
	if err != nil {
		return err
	}
	repeat, _ := cmd.Flags().GetInt("repeat")
	clearCaches, _ := cmd.Flags().GetBool("clear")
	withStats, _ := cmd.Flags().GetBool("stats")

	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, expression := range args {
		for i := 0; i < repeat; i++ {
			if _, err := e.Eval(expression, data, scope.New(nil)); err != nil {
				return exitError(exitEval, "%s: %s", expression, err)
			}
		}
	}
	if clearCaches {
		e.ClearCaches()
	}

	report := e.CacheReport()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tOWNER\tENTRIES")
	total := 0
	for _, occ := range report {
		fmt.Fprintf(w, "%s\t%s\t%d\n", occ.Table, occ.Owner, occ.Entries)
		total += occ.Entries
	}
	fmt.Fprintf(w, "total\t\t%d\n", total)
	if withStats {
		st := e.CacheStats()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "CACHE\tENTRIES\tCAPACITY\tHITS\tMISSES\tEVICTIONS")
		writeStats(w, "expressions", st.Expressions)
		writeStats(w, "subexpressions", st.Subexpressions)
	}
	return w.Flush()
}

func writeStats(w io.Writer, name string, st cache.Stats) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", name, st.Entries, st.Capacity, st.Hits, st.Misses, st.Evictions)
}
