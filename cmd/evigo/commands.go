package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/evigo"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	fixture  string
	logLevel string
	cache    bool
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "evigo",
		Short: "Run filter queries against an in-memory entity database",
		Long: `evigo loads schemas, entities and a query from a YAML fixture,
compiles the query into index alternatives and runs the cheapest one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.fixture, "fixture", "f", "",
		"YAML fixture with schemas, entities and query")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "error",
		"log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.cache, "cache", false,
		"enable the formula result cache")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0,
		"query timeout (0 = unlimited)")
	_ = root.MarkPersistentFlagRequired("fixture")

	root.AddCommand(newQueryCmd(flags), newExplainCmd(flags))
	return root
}

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var (
		repeat     int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run the fixture query and print the matching primary keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, fx, err := open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer db.Close()

			q, err := fx.BuildQuery()
			if err != nil {
				return err
			}

			var res *evigo.Result
			for range max(repeat, 1) {
				if res, err = db.Query(cmd.Context(), q); err != nil {
					return err
				}
			}
			return printResult(cmd.OutOrStdout(), res, db.CacheStats(), jsonOutput)
		},
	}
	cmd.Flags().IntVar(&repeat, "repeat", 1,
		"run the query n times (exercises the cache)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false,
		"print the result as JSON")
	return cmd
}

func newExplainCmd(flags *rootFlags) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the compared index alternatives and the chosen formula",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, fx, err := open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer db.Close()

			q, err := fx.BuildQuery()
			if err != nil {
				return err
			}
			out, err := db.Explain(cmd.Context(), q, verbose)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"compute and print the value of every formula node")
	return cmd
}

func open(ctx context.Context, flags *rootFlags) (*evigo.DB, *Fixture, error) {
	fx, err := LoadFixture(flags.fixture)
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	opts := []evigo.Option{evigo.WithLogLevel(level)}
	if flags.cache {
		opts = append(opts, evigo.WithCache(evigo.DefaultCacheConfig()))
	}
	if flags.timeout > 0 {
		opts = append(opts, evigo.WithQueryTimeout(flags.timeout))
	}

	db := evigo.New(opts...)
	if err := fx.Load(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, fx, nil
}

type resultOutput struct {
	QueryID       string           `json:"query_id"`
	PrimaryKeys   []uint32         `json:"primary_keys"`
	Count         int              `json:"count"`
	Plan          string           `json:"plan"`
	EstimatedCost int64            `json:"estimated_cost"`
	Cost          int64            `json:"cost"`
	Duration      string           `json:"duration"`
	Cache         evigo.CacheStats `json:"cache"`
}

func printResult(w io.Writer, res *evigo.Result, stats evigo.CacheStats, jsonOutput bool) error {
	out := resultOutput{
		QueryID:       res.QueryID,
		PrimaryKeys:   res.PrimaryKeys,
		Count:         len(res.PrimaryKeys),
		Plan:          res.Plan,
		EstimatedCost: res.EstimatedCost,
		Cost:          res.Cost,
		Duration:      res.Duration.String(),
		Cache:         stats,
	}
	if out.PrimaryKeys == nil {
		out.PrimaryKeys = []uint32{}
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	keys := make([]string, len(out.PrimaryKeys))
	for i, pk := range out.PrimaryKeys {
		keys[i] = fmt.Sprint(pk)
	}
	_, err := fmt.Fprintf(w, "%d result(s): [%s]\nplan: %s\ncost: %d (estimated %d)\n",
		out.Count, strings.Join(keys, " "), out.Plan, out.Cost, out.EstimatedCost)
	return err
}
