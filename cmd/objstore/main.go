// Command objstore opens a store by YAML configuration and lets an
// operator inspect it from the shell: list collections and indices, dump
// a key range, or rebuild a stale index.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dw/acid/pkg/store"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "objstore\nGoVersion: %s\n", runtime.Version())
}

func main() {
	cli.VersionPrinter = versionPrinter
	app := cli.NewApp()
	app.Name = "objstore"
	app.Usage = "inspect and maintain an acid object store"
	app.Version = "0.1.0"
	app.ErrWriter = os.Stdout

	configFlag := cli.StringFlag{
		Name:     "config, c",
		Usage:    "path to a YAML engine configuration file",
		Required: true,
	}
	prefixFlag := cli.StringFlag{
		Name:  "prefix",
		Usage: "hex-encoded store namespace prefix (must match the one the store was opened with)",
	}
	debugFlag := cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug-level logging",
	}

	app.Commands = []cli.Command{
		{
			Name:  "list",
			Usage: "list known collections, their indices, and record counts",
			Flags: []cli.Flag{configFlag, prefixFlag, debugFlag},
			Action: withStore(func(ctx *cli.Context, s *store.Store) error {
				return runList(ctx, s)
			}),
		},
		{
			Name:      "dump",
			Usage:     "dump a range of records from one collection",
			UsageText: "objstore dump -c <config.yml> --collection <name> [--prefix-key <val>] [--lo <val>] [--hi <val>] [--reverse] [--limit <n>]",
			Flags: []cli.Flag{
				configFlag, prefixFlag, debugFlag,
				cli.StringFlag{Name: "collection", Required: true, Usage: "collection name"},
				cli.StringFlag{Name: "prefix-key", Usage: "scope the dump to keys sharing this tuple prefix (integer element if numeric, otherwise text)"},
				cli.StringFlag{Name: "lo", Usage: "lower key bound (integer element if numeric, otherwise text)"},
				cli.StringFlag{Name: "hi", Usage: "upper key bound (integer element if numeric, otherwise text)"},
				cli.BoolFlag{Name: "include-lo", Usage: "include the lower bound"},
				cli.BoolFlag{Name: "include-hi", Usage: "include the upper bound"},
				cli.BoolFlag{Name: "reverse", Usage: "walk in descending key order"},
				cli.IntFlag{Name: "limit", Usage: "maximum number of records to print, 0 = unlimited"},
			},
			Action: withStore(func(ctx *cli.Context, s *store.Store) error {
				return runDump(ctx, s)
			}),
		},
		{
			Name:      "rebuild-index",
			Usage:     "drop and re-derive one index from a full collection scan",
			UsageText: "objstore rebuild-index -c <config.yml> --collection <name> --index <name> [--fn identity]",
			Flags: []cli.Flag{
				configFlag, prefixFlag, debugFlag,
				cli.StringFlag{Name: "collection", Required: true, Usage: "collection name"},
				cli.StringFlag{Name: "index", Required: true, Usage: "index name"},
				cli.StringFlag{
					Name:  "fn",
					Value: "identity",
					Usage: "named index-derivation function to re-register before rebuilding (see indexFuncs)",
				},
			},
			Action: withStore(func(ctx *cli.Context, s *store.Store) error {
				return runRebuildIndex(ctx, s)
			}),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStore wraps a sub-command action with config loading, logger setup,
// and the store's open/close lifecycle, so each command body only deals
// with its own logic.
func withStore(fn func(ctx *cli.Context, s *store.Store) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logger, err := newLogger(ctx.Bool("debug"))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer logger.Sync()

		cfg, err := loadDBConfig(ctx.String("config"))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("loading config: %w", err), 1)
		}

		prefix, err := decodeHexPrefix(ctx.String("prefix"))
		if err != nil {
			return cli.NewExitError(err, 1)
		}

		s, err := store.Open(cfg, store.Options{Prefix: prefix, Logger: logger})
		if err != nil {
			return cli.NewExitError(fmt.Errorf("opening store: %w", err), 1)
		}
		defer s.Close()

		if err := fn(ctx, s); err != nil {
			return cli.NewExitError(err, 1)
		}
		return nil
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = "console"
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cc.Build()
}
