package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/dw/acid/pkg/store"
)

// indexFuncs names the index-derivation functions this tool knows how to
// re-register before a rebuild. A real index can be derived from
// arbitrary application logic that only the process which created it
// knows; objstore only ships the trivial one most test fixtures in this
// repo use (an index keyed on the record's value itself), since it has
// no way to learn an arbitrary caller's function from the command line.
// A deployment with richer index functions calls Collection.RebuildIndex
// directly from its own Go code instead of through this tool.
var indexFuncs = map[string]func(value any) (any, error){
	"identity": func(value any) (any, error) { return value, nil },
}

func runRebuildIndex(ctx *cli.Context, s *store.Store) error {
	fnName := ctx.String("fn")
	fn, ok := indexFuncs[fnName]
	if !ok {
		return fmt.Errorf("unknown index function %q (known: identity)", fnName)
	}

	coll, err := s.Collection(ctx.String("collection"), store.CollectionOptions{})
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}

	indexName := ctx.String("index")
	if _, err := coll.AddIndex(indexName, fn); err != nil {
		return fmt.Errorf("registering index %s: %w", indexName, err)
	}

	if err := coll.RebuildIndex(indexName); err != nil {
		return fmt.Errorf("rebuilding index %s: %w", indexName, err)
	}
	fmt.Fprintf(ctx.App.Writer, "rebuilt index %s on collection %s\n", indexName, coll.Name())
	return nil
}
