package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/preloadkit/preloader/internal/lister"
	"github.com/preloadkit/preloader/internal/preloader"
	"github.com/preloadkit/preloader/internal/script"
	"github.com/preloadkit/preloader/internal/status"
)

func newStatsCommand(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print opcache statistics and how much of the cache fits the memory limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			p, err := a.newProvider(cfg.Status)
			if err != nil {
				return err
			}
			st, err := p.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			// The list comes from the same path generate takes, against this one read.
			list, err := preloader.New(status.Static{Status: st}).
				List(cmd.Context(), preloader.OptionsFromConfig(cfg.Preloader))
			if err != nil {
				return err
			}
			ranked := lister.Rank(lister.WithoutSentinel(st.Snapshot()))
			kept := lister.Truncate(ranked, cfg.Preloader.MemoryLimitBytes())

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Enabled:\t%t\n", st.IsEnabled())
			fmt.Fprintf(w, "Used memory:\t%s\n", mib(st.Memory.Used))
			fmt.Fprintf(w, "Free memory:\t%s\n", mib(st.Memory.Free))
			fmt.Fprintf(w, "Wasted memory:\t%s\n", mib(st.Memory.Wasted))
			fmt.Fprintf(w, "Cached scripts:\t%d\n", st.CachedEntryCount())
			fmt.Fprintf(w, "Hits:\t%d\n", st.Statistics.Hits)
			fmt.Fprintf(w, "Misses:\t%d\n", st.Statistics.Misses)
			fmt.Fprintf(w, "Hit rate:\t%.2f%%\n", st.Statistics.HitRate)
			fmt.Fprintf(w, "Memory limit:\t%s\n", script.MemoryLimit(cfg.Preloader.MemoryLimitMB))
			fmt.Fprintf(w, "Within limit (before exclusions):\t%d of %d scripts (%s)\n", len(kept), len(ranked), mib(lister.MemoryOf(kept)))
			fmt.Fprintf(w, "Preload list:\t%d files\n", len(list))
			if cs := status.CheckCert(cmd.Context(), cfg.Status); cs != nil {
				if cs.Status == status.CertUnreachable {
					fmt.Fprintf(w, "Certificate:\t%s\n", cs.Status)
				} else {
					fmt.Fprintf(w, "Certificate:\t%s, %d days left (%s)\n", cs.Status, cs.DaysLeft, cs.Issuer)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if top <= 0 || len(ranked) == 0 {
				return nil
			}
			if top > len(ranked) {
				top = len(ranked)
			}
			fmt.Fprintln(a.stdout)
			w = tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HITS\tMEMORY\tPATH")
			for _, r := range ranked[:top] {
				fmt.Fprintf(w, "%d\t%s\t%s\n", r.Hits, mib(r.MemoryConsumption), r.Path)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "also print the N highest ranked scripts (0 to disable)")
	return cmd
}

func mib(b int64) string {
	return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
}
