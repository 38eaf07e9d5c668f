package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/neo4jsync"
)

// neo4jOptions holds flags shared by the neo4j subcommands.
type neo4jOptions struct {
	uri string
}

// connectRunner opens the Neo4j connection; tests swap it for a recorder.
var connectRunner = connectNeo4j

func connectNeo4j(ctx context.Context, opts *RootOptions, uri string) (neo4jsync.Runner, func(), error) {
	cfg := opts.Config.Neo4j
	if uri != "" {
		cfg.URI = uri
	}
	client, err := neo4jsync.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Logger.Warnw("Error closing neo4j driver", logger.FieldError, err)
		}
	}
	return client, closeFn, nil
}

// NewNeo4jCommand creates the neo4j command group.
func NewNeo4jCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &neo4jOptions{}

	cmd := &cobra.Command{
		Use:   "neo4j",
		Short: "Mirror graphs into a Neo4j database",
		Long: `Mirror graphs into Neo4j. Connection settings come from the neo4j
section of the config or GRAPHWALKER_NEO4J_* variables.`,
	}
	cmd.PersistentFlags().StringVar(&opts.uri, "uri", "", "Neo4j URI (overrides config)")
	cmd.AddCommand(newNeo4jPushCommand(rootOpts, opts), newNeo4jResetCommand(rootOpts, opts))
	return cmd
}

type pushResult struct {
	GraphID     int64  `json:"graph_id"`
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
}

func newNeo4jPushCommand(rootOpts *RootOptions, opts *neo4jOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "push <graph-id>",
		Short: "Replace the Neo4j copy of a graph",
		Long: `Push a graph into Neo4j in one write transaction. Everything
previously pushed under the same key is replaced. The key defaults to
"graph-<id>".`,
		Args: cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			if key == "" {
				key = fmt.Sprintf("graph-%d", graphID)
			}
			doc, err := interchange.Export(s.ctx, s.repo, graphID)
			if err != nil {
				return err
			}
			fp, err := interchange.Fingerprint(doc)
			if err != nil {
				return err
			}

			runner, closeFn, err := connectRunner(s.ctx, rootOpts, opts.uri)
			if err != nil {
				return errors.WithHint(err, "set neo4j.uri, neo4j.username and neo4j.password in the config")
			}
			defer closeFn()

			if err := neo4jsync.Push(s.ctx, runner, key, doc); err != nil {
				return err
			}
			return s.out.Render(pushResult{GraphID: graphID, Key: key, Fingerprint: fp}, func(w io.Writer) {
				fmt.Fprintf(w, "Pushed graph %d to neo4j as %q\n", graphID, key)
			})
		}),
	}
	cmd.Flags().StringVar(&key, "key", "", "key the graph is stored under in neo4j")
	return cmd
}

func newNeo4jResetCommand(rootOpts *RootOptions, opts *neo4jOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Delete a pushed graph from Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			runner, closeFn, err := connectRunner(ctx, rootOpts, opts.uri)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := neo4jsync.Reset(ctx, runner, args[0]); err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"key": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %q from neo4j\n", args[0])
			})
		},
	}
}
