package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/model"
)

// NewEdgeCommand creates the edge command group.
func NewEdgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Create, change and delete edges",
	}
	cmd.AddCommand(
		newEdgeAddCommand(rootOpts),
		newEdgeConnectCommand(rootOpts),
		newEdgeUpdateCommand(rootOpts),
		newEdgeListCommand(rootOpts),
		newEdgeDeleteCommand(rootOpts),
	)
	return cmd
}

// edgeOptions are the attribute flags shared by edge add, connect and update.
type edgeOptions struct {
	name          string
	weight        float64
	bidirectional bool
}

func (o *edgeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.name, "name", "", "edge label")
	cmd.Flags().Float64Var(&o.weight, "weight", model.DefaultWeight, "edge weight")
	cmd.Flags().BoolVar(&o.bidirectional, "bidirectional", false, "edge can be walked both ways")
}

func (o *edgeOptions) edge() model.Edge {
	return model.Edge{Name: o.name, Weight: o.weight, Bidirectional: o.bidirectional}
}

func newEdgeAddCommand(rootOpts *RootOptions) *cobra.Command {
	var opts edgeOptions

	cmd := &cobra.Command{
		Use:   "add <from-connector-id> <to-connector-id>",
		Short: "Create an edge between two connectors",
		Long: `Create an edge between two connectors of the same graph. Labels and
weights are dropped when the graph does not use them.

Example:
  graphwalker edge add 3 7 --name "Line 1" --weight 2.5`,
		Args: cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0], "connector")
			if err != nil {
				return err
			}
			to, err := parseID(args[1], "connector")
			if err != nil {
				return err
			}
			e := opts.edge()
			e.FromConnectorID, e.ToConnectorID = from, to
			id, err := s.repo.CreateEdge(s.ctx, e)
			if err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Created edge %d\n", id)
			})
		}),
	}
	opts.bind(cmd)
	return cmd
}

func newEdgeConnectCommand(rootOpts *RootOptions) *cobra.Command {
	var opts edgeOptions

	cmd := &cobra.Command{
		Use:   "connect <from-node-id> <to-node-id>",
		Short: "Create an edge between two nodes through their default connectors",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			to, err := parseID(args[1], "node")
			if err != nil {
				return err
			}
			id, err := s.repo.ConnectNodes(s.ctx, from, to, opts.edge())
			if err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Created edge %d\n", id)
			})
		}),
	}
	opts.bind(cmd)
	return cmd
}

func newEdgeUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var opts edgeOptions
	var from, to int64

	cmd := &cobra.Command{
		Use:   "update <edge-id>",
		Short: "Change the endpoints or attributes of an edge",
		Long: `Change an edge. Only the flags given on the command line change.

Example:
  graphwalker edge update 4 --to 9 --weight 3`,
		Args: cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "edge")
			if err != nil {
				return err
			}
			e, err := getOne(s, s.repo.Edge(id), "edge", id)
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("from") {
				e.FromConnectorID = from
			}
			if changed("to") {
				e.ToConnectorID = to
			}
			if changed("name") {
				e.Name = opts.name
			}
			if changed("weight") {
				e.Weight = opts.weight
			}
			if changed("bidirectional") {
				e.Bidirectional = opts.bidirectional
			}
			if err := s.repo.UpdateEdge(s.ctx, *e); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Updated edge %d\n", id)
			})
		}),
	}
	opts.bind(cmd)
	cmd.Flags().Int64Var(&from, "from", 0, "new source connector id")
	cmd.Flags().Int64Var(&to, "to", 0, "new target connector id")
	return cmd
}

func newEdgeListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <graph-id>",
		Short: "List the edges of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			edges, err := s.repo.GraphEdges(graphID).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(edges, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tFROM\tTO\tNAME\tWEIGHT\tBIDIRECTIONAL")
				for _, e := range edges {
					fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%g\t%t\n", e.ID, e.FromConnectorID, e.ToConnectorID, e.Name, e.Weight, e.Bidirectional)
				}
				tw.Flush()
			})
		}),
	}
}

func newEdgeDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <edge-id>",
		Short: "Delete an edge",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "edge")
			if err != nil {
				return err
			}
			if err := s.repo.DeleteEdge(s.ctx, id); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted edge %d\n", id)
			})
		}),
	}
}
