package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewConnectorCommand creates the connector command group.
func NewConnectorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connector",
		Aliases: []string{"conn"},
		Short:   "Manage the connectors of nodes",
	}
	cmd.AddCommand(
		newConnectorAddCommand(rootOpts),
		newConnectorListCommand(rootOpts),
		newConnectorRenameCommand(rootOpts),
		newConnectorDeleteCommand(rootOpts),
		newConnectorEdgesCommand(rootOpts),
		newUnconnectedCommand(rootOpts),
	)
	return cmd
}

func newConnectorAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <node-id> <name>",
		Short: "Add a connector to a node",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			nodeID, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			id, err := s.repo.AddConnector(s.ctx, nodeID, args[1])
			if err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Added connector %d\n", id)
			})
		}),
	}
}

func newConnectorListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <node-id>",
		Short: "List the connectors of a node",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			nodeID, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			conns, err := s.repo.NodeConnectors(nodeID).Get(s.ctx)
			if err != nil {
				return err
			}
			counts, err := s.repo.EdgeCounts(nodeID).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(conns, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEDGES")
				for _, c := range conns {
					fmt.Fprintf(tw, "%d\t%s\t%d\n", c.ID, connectorLabel(c), counts[c.ID])
				}
				tw.Flush()
			})
		}),
	}
}

func newConnectorRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <connector-id> <name>",
		Short: "Rename a connector",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "connector")
			if err != nil {
				return err
			}
			if err := s.repo.RenameConnector(s.ctx, id, args[1]); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Renamed connector %d\n", id)
			})
		}),
	}
}

func newConnectorDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <connector-id>",
		Short: "Delete a connector and its edges",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "connector")
			if err != nil {
				return err
			}
			if err := s.repo.DeleteConnector(s.ctx, id); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted connector %d\n", id)
			})
		}),
	}
}

func newConnectorEdgesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edges <connector-id>",
		Short: "List the edges of a connector with their other ends",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "connector")
			if err != nil {
				return err
			}
			edges, err := s.repo.ConnectorEdges(id).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(edges, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EDGE\tOTHER END\tNAME\tWEIGHT")
				for _, e := range edges {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%g\n", e.ID, e.DisplayName, e.Name, e.Weight)
				}
				tw.Flush()
			})
		}),
	}
}

func newUnconnectedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unconnected <graph-id>",
		Short: "List connectors no edge touches",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			list, err := s.repo.UnconnectedConnectors(graphID).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "Every connector has an edge")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CONNECTOR\tNAME\tNODE")
				for _, u := range list {
					node := "Unknown"
					if u.Node != nil {
						node = u.Node.Name
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", u.Connector.ID, connectorLabel(u.Connector), node)
				}
				tw.Flush()
			})
		}),
	}
}
