package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/model"
)

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, rename, delete and tag nodes",
	}
	cmd.AddCommand(
		newNodeAddCommand(rootOpts),
		newNodeShowCommand(rootOpts),
		newNodeRenameCommand(rootOpts),
		newNodeDeleteCommand(rootOpts),
		newTagCommand(rootOpts),
	)
	return cmd
}

type nodeCreated struct {
	ID          int64  `json:"id"`
	ConnectorID *int64 `json:"connector_id,omitempty"`
}

func newNodeAddCommand(rootOpts *RootOptions) *cobra.Command {
	var tags []string
	var connector string

	cmd := &cobra.Command{
		Use:   "add <graph-id> <name>",
		Short: "Add a node to a graph",
		Long: `Add a node to a graph, optionally with tags and a first connector.

Example:
  graphwalker node add 1 Hub --tag central --tag busy
  graphwalker node add 1 Depot --connector north`,
		Args: cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}

			res := nodeCreated{}
			if cmd.Flags().Changed("connector") {
				nodeID, connID, err := s.repo.CreateNodeAndConnector(s.ctx, graphID, args[1], connector)
				if err != nil {
					return err
				}
				for _, t := range tags {
					if _, err := s.repo.AddTag(s.ctx, nodeID, t); err != nil {
						return err
					}
				}
				res = nodeCreated{ID: nodeID, ConnectorID: &connID}
			} else {
				if res.ID, err = s.repo.AddNode(s.ctx, graphID, args[1], tags...); err != nil {
					return err
				}
			}

			return s.out.Render(res, func(w io.Writer) {
				fmt.Fprintf(w, "Added node %d\n", res.ID)
				if res.ConnectorID != nil {
					fmt.Fprintf(w, "Added connector %d\n", *res.ConnectorID)
				}
			})
		}),
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag to add (repeatable)")
	cmd.Flags().StringVar(&connector, "connector", "", "create a connector with this name")
	return cmd
}

// nodeDetail is the payload of node show.
type nodeDetail struct {
	*model.NodeWithCliques
	Connectors []model.Connector `json:"connectors"`
}

func newNodeShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <node-id>",
		Short: "Show a node with its connectors and cliques",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			n, err := getOne(s, s.repo.NodeWithCliques(id), "node", id)
			if err != nil {
				return err
			}
			conns, err := s.repo.NodeConnectors(id).Get(s.ctx)
			if err != nil {
				return err
			}
			d := nodeDetail{NodeWithCliques: n, Connectors: conns}
			return s.out.Render(d, func(w io.Writer) {
				fmt.Fprintf(w, "Node %d: %s (graph %d)\n", n.ID, n.Name, n.GraphID)
				if len(n.Tags) > 0 {
					fmt.Fprintf(w, "Tags: %s\n", strings.Join(n.Tags, ", "))
				}
				for _, c := range conns {
					fmt.Fprintf(w, "Connector %d: %s\n", c.ID, connectorLabel(c))
				}
				for _, c := range n.Cliques {
					fmt.Fprintf(w, "Clique %d: %s\n", c.ID, c.Name)
				}
			})
		}),
	}
}

func connectorLabel(c model.Connector) string {
	if c.IsDefault() {
		return "(default)"
	}
	return c.Name
}

func newNodeRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <node-id> <name>",
		Short: "Rename a node",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			if err := s.repo.RenameNode(s.ctx, id, args[1]); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Renamed node %d\n", id)
			})
		}),
	}
}

func newNodeDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Delete a node with its connectors, edges and memberships",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			if err := s.repo.DeleteNode(s.ctx, id); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted node %d\n", id)
			})
		}),
	}
}

func newTagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add, remove and rename node tags",
	}

	type tagResult struct {
		Changed bool `json:"changed"`
	}
	report := func(s *session, changed bool, done, noop string) error {
		return s.out.Render(tagResult{Changed: changed}, func(w io.Writer) {
			if changed {
				fmt.Fprintln(w, done)
				return
			}
			fmt.Fprintln(w, noop)
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <node-id> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			changed, err := s.repo.AddTag(s.ctx, id, args[1])
			if err != nil {
				return err
			}
			return report(s, changed, "Tag added", "Tag already present")
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <node-id> <tag>",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			changed, err := s.repo.RemoveTag(s.ctx, id, args[1])
			if err != nil {
				return err
			}
			return report(s, changed, "Tag removed", "Tag not present")
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mv <node-id> <old> <new>",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(3),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			changed, err := s.repo.UpdateTag(s.ctx, id, args[1], args[2])
			if err != nil {
				return err
			}
			return report(s, changed, "Tag renamed", "Nothing to rename")
		}),
	})

	return cmd
}
