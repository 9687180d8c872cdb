package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli"

	"github.com/dw/acid/pkg/store"
)

func runList(ctx *cli.Context, s *store.Store) error {
	stats, err := s.Stats()
	if err != nil {
		return fmt.Errorf("collecting stats: %w", err)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

	w := ctx.App.Writer
	for _, stat := range stats {
		fmt.Fprintf(w, "%s\tphysical=%d\tlogical=%d\n", stat.Name, stat.PhysicalCount, stat.LogicalCount)
		names := make([]string, 0, len(stat.IndexCounts))
		for name := range stat.IndexCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  index %s\tentries=%d\n", name, stat.IndexCounts[name])
		}
	}
	return nil
}
