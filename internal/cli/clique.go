package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/model"
)

// NewCliqueCommand creates the clique command group.
func NewCliqueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clique",
		Short: "Group nodes into weighted cliques",
	}
	cmd.AddCommand(
		newCliqueCreateCommand(rootOpts),
		newCliqueListCommand(rootOpts),
		newCliqueShowCommand(rootOpts),
		newCliqueMembersCommand(rootOpts, "add"),
		newCliqueMembersCommand(rootOpts, "rm"),
		newCliqueUpdateCommand(rootOpts),
		newCliqueDeleteCommand(rootOpts),
		newCliqueClearCommand(rootOpts),
	)
	return cmd
}

func newCliqueCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var weight float64

	cmd := &cobra.Command{
		Use:   "create <graph-id> <name>",
		Short: "Create a clique",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			id, err := s.repo.CreateClique(s.ctx, graphID, args[1], weight)
			if err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Created clique %d\n", id)
			})
		}),
	}
	cmd.Flags().Float64Var(&weight, "weight", model.DefaultWeight, "edge weight between members")
	return cmd
}

func memberNames(nodes []model.Node) string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return strings.Join(names, ", ")
}

func newCliqueListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <graph-id>",
		Short: "List the cliques of a graph with their members",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			cliques, err := s.repo.CliquesWithNodes(graphID).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(cliques, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tWEIGHT\tMEMBERS")
				for _, c := range cliques {
					fmt.Fprintf(tw, "%d\t%s\t%g\t%s\n", c.ID, c.Name, c.EdgeWeight, memberNames(c.Nodes))
				}
				tw.Flush()
			})
		}),
	}
}

func newCliqueShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <clique-id>",
		Short: "Show a clique with its members",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "clique")
			if err != nil {
				return err
			}
			c, err := getOne(s, s.repo.CliqueWithNodes(id), "clique", id)
			if err != nil {
				return err
			}
			return s.out.Render(c, func(w io.Writer) {
				fmt.Fprintf(w, "Clique %d: %s (weight %g)\n", c.ID, c.Name, c.EdgeWeight)
				for _, n := range c.Nodes {
					fmt.Fprintf(w, "  %d  %s\n", n.ID, n.Name)
				}
			})
		}),
	}
}

// newCliqueMembersCommand builds clique add and clique rm, which take any
// number of node ids.
func newCliqueMembersCommand(rootOpts *RootOptions, verb string) *cobra.Command {
	short := "Add nodes to a clique"
	if verb == "rm" {
		short = "Remove nodes from a clique"
	}
	return &cobra.Command{
		Use:   verb + " <clique-id> <node-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			cliqueID, err := parseID(args[0], "clique")
			if err != nil {
				return err
			}
			nodeIDs := make([]int64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := parseID(raw, "node")
				if err != nil {
					return err
				}
				nodeIDs = append(nodeIDs, id)
			}
			for _, id := range nodeIDs {
				if verb == "add" {
					err = s.repo.AddNodeToClique(s.ctx, cliqueID, id)
				} else {
					err = s.repo.RemoveNodeFromClique(s.ctx, cliqueID, id)
				}
				if err != nil {
					return err
				}
			}
			return s.out.Render(map[string][]int64{"nodes": nodeIDs}, func(w io.Writer) {
				if verb == "add" {
					fmt.Fprintf(w, "Added %d node(s) to clique %d\n", len(nodeIDs), cliqueID)
					return
				}
				fmt.Fprintf(w, "Removed %d node(s) from clique %d\n", len(nodeIDs), cliqueID)
			})
		}),
	}
}

func newCliqueUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	var weight float64

	cmd := &cobra.Command{
		Use:   "update <clique-id>",
		Short: "Rename a clique or change its edge weight",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "clique")
			if err != nil {
				return err
			}
			c, err := getOne(s, s.repo.CliqueWithNodes(id), "clique", id)
			if err != nil {
				return err
			}
			next := c.Clique
			if cmd.Flags().Changed("name") {
				next.Name = name
			}
			if cmd.Flags().Changed("weight") {
				next.EdgeWeight = weight
			}
			if err := s.repo.UpdateClique(s.ctx, next); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Updated clique %d\n", id)
			})
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Float64Var(&weight, "weight", model.DefaultWeight, "new edge weight")
	return cmd
}

func newCliqueDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <clique-id>",
		Short: "Delete a clique; its nodes stay",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "clique")
			if err != nil {
				return err
			}
			if err := s.repo.DeleteClique(s.ctx, id); err != nil {
				return err
			}
			return s.out.Render(createdResult{ID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted clique %d\n", id)
			})
		}),
	}
}

func newCliqueClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <clique-id>",
		Short: "Remove every member of a clique",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "clique")
			if err != nil {
				return err
			}
			n, err := s.repo.ClearClique(s.ctx, id)
			if err != nil {
				return err
			}
			return s.out.Render(map[string]int64{"removed": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d member(s) from clique %d\n", n, id)
			})
		}),
	}
}
