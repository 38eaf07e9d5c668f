package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and WebSocket API",
		Long: `Serve the database over HTTP until interrupted.

REST endpoints live under /api; /ws streams live views to WebSocket
clients that subscribe with {"type":"subscribe","view":"full_graph","id":1}.

Example:
  graphwalker serve --addr 127.0.0.1:8787`,
		Args: cobra.NoArgs,
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := server.New(s.repo, cfg, server.WithLogger(logger.Named("server")))

			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", rootOpts.Config.Database.Path, cfg.Addr)
			fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl-C to stop.")
			if err := srv.Run(s.ctx); err != nil {
				return WrapExitError(ExitCommandError, "server error", err)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
