package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/dw/acid/pkg/store"
)

func runDump(ctx *cli.Context, s *store.Store) error {
	coll, err := s.Collection(ctx.String("collection"), store.CollectionOptions{})
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}

	opts := store.ScanOptions{
		Reverse:   ctx.Bool("reverse"),
		Max:       ctx.Int("limit"),
		IncludeLo: ctx.Bool("include-lo"),
		IncludeHi: ctx.Bool("include-hi"),
	}
	if v := ctx.String("prefix-key"); v != "" {
		opts.Prefix = parseKeyArg(v)
	} else {
		if v := ctx.String("lo"); v != "" {
			opts.Lo = parseKeyArg(v)
		}
		if v := ctx.String("hi"); v != "" {
			opts.Hi = parseKeyArg(v)
		}
	}

	recs, err := coll.Items(opts)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", coll.Name(), err)
	}
	w := ctx.App.Writer
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%v\n", r.Key, r.Value)
	}
	fmt.Fprintf(w, "# %d records\n", len(recs))
	return nil
}
