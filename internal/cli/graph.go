package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// NewGraphCommand creates the graph command group.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Create, inspect and modify graphs",
	}
	cmd.AddCommand(
		newGraphCreateCommand(rootOpts),
		newGraphListCommand(rootOpts),
		newGraphShowCommand(rootOpts),
		newGraphRenameCommand(rootOpts),
		newGraphSetCommand(rootOpts),
		newGraphDeleteCommand(rootOpts),
		newGraphStartCommand(rootOpts),
		newGraphCheckCommand(rootOpts),
	)
	return cmd
}

// flagOptions binds the four graph feature flags.
type flagOptions struct {
	directed    bool
	weights     bool
	labels      bool
	connectors  bool
	flagsSource *cobra.Command
}

func (f *flagOptions) bind(cmd *cobra.Command, defaults model.GraphFlags) {
	cmd.Flags().BoolVar(&f.directed, "directed", defaults.Directed, "edges have a direction")
	cmd.Flags().BoolVar(&f.weights, "weights", defaults.HasEdgeWeights, "edges carry weights")
	cmd.Flags().BoolVar(&f.labels, "labels", defaults.HasEdgeLabels, "edges carry labels")
	cmd.Flags().BoolVar(&f.connectors, "connectors", defaults.HasConnectors, "nodes have named connectors")
	f.flagsSource = cmd
}

// apply overwrites the fields of base whose flags were given explicitly.
func (f *flagOptions) apply(base model.GraphFlags) model.GraphFlags {
	changed := f.flagsSource.Flags().Changed
	if changed("directed") {
		base.Directed = f.directed
	}
	if changed("weights") {
		base.HasEdgeWeights = f.weights
	}
	if changed("labels") {
		base.HasEdgeLabels = f.labels
	}
	if changed("connectors") {
		base.HasConnectors = f.connectors
	}
	return base
}

func (f *flagOptions) any() bool {
	for _, name := range []string{"directed", "weights", "labels", "connectors"} {
		if f.flagsSource.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func flagSummary(f model.GraphFlags) string {
	var parts []string
	if f.Directed {
		parts = append(parts, "directed")
	} else {
		parts = append(parts, "undirected")
	}
	if f.HasEdgeWeights {
		parts = append(parts, "weights")
	}
	if f.HasEdgeLabels {
		parts = append(parts, "labels")
	}
	if f.HasConnectors {
		parts = append(parts, "connectors")
	}
	return strings.Join(parts, ",")
}

type createdResult struct {
	ID int64 `json:"id"`
}

func newGraphCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var flags flagOptions
	var start string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a graph",
		Long: `Create a graph. Graphs are directed by default; enable edge weights,
edge labels and connectors with flags.

Example:
  graphwalker graph create Metro --weights --labels --connectors --start Hub`,
		Args: cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := s.repo.CreateGraph(s.ctx, args[0], flags.apply(model.DefaultFlags()))
			if err != nil {
				return err
			}
			if start != "" {
				if _, err := s.repo.CreateStartingNode(s.ctx, id, start); err != nil {
					return err
				}
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Created graph %d\n", id)
			})
		}),
	}
	flags.bind(cmd, model.DefaultFlags())
	cmd.Flags().StringVar(&start, "start", "", "also create a starting node with this name")
	return cmd
}

func newGraphListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List graphs",
		Args:  cobra.NoArgs,
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphs, err := s.repo.AllFullGraphs().Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(graphs, func(w io.Writer) {
				if len(graphs) == 0 {
					fmt.Fprintln(w, "No graphs")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tNODES\tSTART\tFLAGS")
				for _, g := range graphs {
					startName := "-"
					if g.StartingNode != nil {
						startName = g.StartingNode.Name
					}
					fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", g.ID, g.Name, len(g.Nodes), startName, flagSummary(g.GraphFlags))
				}
				tw.Flush()
			})
		}),
	}
}

// graphDetail is the payload of graph show.
type graphDetail struct {
	Graph   *model.FullGraph        `json:"graph"`
	Nodes   []model.NodeWithCliques `json:"nodes"`
	Edges   []model.Edge            `json:"edges"`
	Cliques []model.CliqueWithNodes `json:"cliques"`
}

func newGraphShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <graph-id>",
		Short: "Show a graph with its nodes, edges and cliques",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			d, err := loadGraphDetail(s, id)
			if err != nil {
				return err
			}
			return s.out.Render(d, func(w io.Writer) { printGraphDetail(w, d) })
		}),
	}
}

func loadGraphDetail(s *session, id int64) (*graphDetail, error) {
	g, err := getOne(s, s.repo.FullGraph(id), "graph", id)
	if err != nil {
		return nil, err
	}
	d := &graphDetail{Graph: g}
	if d.Nodes, err = s.repo.NodesWithCliques(id).Get(s.ctx); err != nil {
		return nil, err
	}
	if d.Edges, err = s.repo.GraphEdges(id).Get(s.ctx); err != nil {
		return nil, err
	}
	if d.Cliques, err = s.repo.CliquesWithNodes(id).Get(s.ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func printGraphDetail(w io.Writer, d *graphDetail) {
	g := d.Graph
	fmt.Fprintf(w, "Graph %d: %s (%s)\n", g.ID, g.Name, flagSummary(g.GraphFlags))
	if g.StartingNode != nil {
		fmt.Fprintf(w, "Start: %s (%d)\n", g.StartingNode.Name, g.StartingNode.ID)
	}

	fmt.Fprintf(w, "\nNodes (%d)\n", len(d.Nodes))
	for _, n := range d.Nodes {
		line := fmt.Sprintf("  %d  %s", n.ID, n.Name)
		if len(n.Tags) > 0 {
			line += "  [" + strings.Join(n.Tags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nEdges (%d)\n", len(d.Edges))
	for _, e := range d.Edges {
		arrow := "->"
		if e.Bidirectional || !g.Directed {
			arrow = "<->"
		}
		line := fmt.Sprintf("  %d  %d %s %d", e.ID, e.FromConnectorID, arrow, e.ToConnectorID)
		if g.HasEdgeLabels && e.Name != "" {
			line += "  " + e.Name
		}
		if g.HasEdgeWeights {
			line += fmt.Sprintf("  w=%g", e.Weight)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nCliques (%d)\n", len(d.Cliques))
	for _, c := range d.Cliques {
		names := make([]string, len(c.Nodes))
		for i, n := range c.Nodes {
			names[i] = n.Name
		}
		fmt.Fprintf(w, "  %d  %s  w=%g  {%s}\n", c.ID, c.Name, c.EdgeWeight, strings.Join(names, ", "))
	}
}

func newGraphRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <graph-id> <name>",
		Short: "Rename a graph",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			if err := s.repo.RenameGraph(s.ctx, id, args[1]); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Renamed graph %d\n", id)
			})
		}),
	}
}

func newGraphSetCommand(rootOpts *RootOptions) *cobra.Command {
	var flags flagOptions

	cmd := &cobra.Command{
		Use:   "set <graph-id>",
		Short: "Change graph feature flags",
		Long: `Change the feature flags of a graph. Only flags given on the command
line change; existing edges keep their weights and labels.

Example:
  graphwalker graph set 1 --directed=false --weights`,
		Args: cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			if !flags.any() {
				return NewExitError(ExitCommandError, "no flags given")
			}
			g, err := getOne(s, s.repo.Graph(id), "graph", id)
			if err != nil {
				return err
			}
			next := flags.apply(g.GraphFlags)
			if err := s.repo.SetFlags(s.ctx, id, next); err != nil {
				return err
			}
			return s.out.Render(next, func(w io.Writer) {
				fmt.Fprintf(w, "Graph %d is now %s\n", id, flagSummary(next))
			})
		}),
	}
	flags.bind(cmd, model.GraphFlags{})
	return cmd
}

func newGraphDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <graph-id>",
		Short: "Delete a graph with all of its nodes, edges and cliques",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			if err := s.repo.DeleteGraph(s.ctx, id); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted graph %d\n", id)
			})
		}),
	}
}

func newGraphStartCommand(rootOpts *RootOptions) *cobra.Command {
	var clearStart bool
	var create string

	cmd := &cobra.Command{
		Use:   "start <graph-id> [node-id]",
		Short: "Set, create or clear the starting node",
		Long: `Set the starting node of a graph to an existing node, create a new
node and make it the start, or clear the start.

Example:
  graphwalker graph start 1 4
  graphwalker graph start 1 --create Hub
  graphwalker graph start 1 --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}

			var nodeID *int64
			switch {
			case create != "":
				n, err := s.repo.CreateStartingNode(s.ctx, id, create)
				if err != nil {
					return err
				}
				nodeID = &n
			case clearStart:
				if err := s.repo.SetStartingNode(s.ctx, id, nil); err != nil {
					return err
				}
			case len(args) == 2:
				n, err := parseID(args[1], "node")
				if err != nil {
					return err
				}
				if err := s.repo.SetStartingNode(s.ctx, id, &n); err != nil {
					return err
				}
				nodeID = &n
			default:
				return NewExitError(ExitCommandError, "give a node id, --create or --clear")
			}

			return s.out.Render(map[string]*int64{"starting_node_id": nodeID}, func(w io.Writer) {
				if nodeID == nil {
					fmt.Fprintf(w, "Cleared starting node of graph %d\n", id)
					return
				}
				fmt.Fprintf(w, "Starting node of graph %d is %d\n", id, *nodeID)
			})
		}),
	}
	cmd.Flags().BoolVar(&clearStart, "clear", false, "clear the starting node")
	cmd.Flags().StringVar(&create, "create", "", "create a node with this name and make it the start")
	cmd.MarkFlagsMutuallyExclusive("clear", "create")
	return cmd
}

func newGraphCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report rows that cross graph boundaries",
		Long: `Check the database for edges, clique memberships and starting nodes
that reference another graph. Exits with status 1 when problems exist.`,
		Args: cobra.NoArgs,
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			var problems []store.Problem
			err := s.repo.Transact(s.ctx, func(q *store.Queries) error {
				var err error
				problems, err = q.CheckIntegrity(s.ctx)
				return err
			})
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				return s.out.Render([]store.Problem{}, func(w io.Writer) {
					fmt.Fprintln(w, "No problems found")
				})
			}
			if err := s.out.Error(ErrCodeIntegrity, fmt.Sprintf("%d integrity problem(s)", len(problems)), problems); err != nil {
				return err
			}
			if s.out.Format != "json" {
				for _, p := range problems {
					fmt.Fprintf(s.out.Writer, "  %s graph=%d id=%d: %s\n", p.Kind, p.GraphID, p.ID, p.Detail)
				}
			}
			return reported(ExitFailure, "integrity check failed")
		}),
	}
}
