package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	fsAdapter "github.com/bft-labs/rowship/internal/adapters/fs"
	"github.com/bft-labs/rowship/internal/cliconfig"
	"github.com/bft-labs/rowship/internal/domain"
)

func newStateCommand(cfg *cliconfig.Config) *cobra.Command {
	state := &cobra.Command{
		Use:   "state",
		Short: "Show saved sync progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := fsAdapter.NewStateFileRepository(stateDir(cfg))
			st, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), repo.Path(), st, time.Now())
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset [table...]",
		Short: "Forget watermarks so the next run starts those tables from the beginning",
		Long:  "Forget the watermarks of the named tables, or of every table when none is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := fsAdapter.NewStateFileRepository(stateDir(cfg))
			st, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			tables := args
			if len(tables) == 0 {
				for t := range st.Watermarks {
					tables = append(tables, t)
				}
			}
			sort.Strings(tables)
			for _, t := range tables {
				st.ResetWatermark(t)
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", t)
			}
			return repo.Save(cmd.Context(), st)
		},
	}

	state.AddCommand(reset)
	return state
}

func stateDir(cfg *cliconfig.Config) string {
	if cfg.StateDir != "" {
		return cfg.StateDir
	}
	return cliconfig.DefaultStateDir()
}

func printState(out io.Writer, path string, st *domain.State, now time.Time) {
	fmt.Fprintf(out, "state file: %s\n", path)
	if !st.LastRunAt.IsZero() {
		fmt.Fprintf(out, "last run:   %s\n", st.LastRunAt.Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Fprintf(out, "last error: %s\n", st.LastError)
	}
	switch {
	case st.Token == nil:
		fmt.Fprintln(out, "token:      none")
	case st.TokenIsStale(now):
		fmt.Fprintf(out, "token:      expired (issued %s)\n", st.Token.IssuedAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(out, "token:      valid until %s\n", st.Token.IssuedAt.Add(domain.TokenLifetime).Format(time.RFC3339))
	}

	tables := make([]string, 0, len(st.Watermarks))
	for t := range st.Watermarks {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nTABLE\tWATERMARK")
	for _, t := range tables {
		fmt.Fprintf(w, "%s\t%d\n", t, st.Watermarks[t])
	}
	w.Flush()
}
