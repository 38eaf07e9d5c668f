package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/search"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "search <graph-id> <text>",
		Short: "Search node names and tags, connectors, edge labels and cliques",
		Long: `Search a graph case-insensitively. The filter narrows the result to one
kind; connectors can only be searched in graphs with connectors and edges
only in graphs with edge labels.

Example:
  graphwalker search 1 hub
  graphwalker search 1 "line" --filter edges`,
		Args: cobra.ExactArgs(2),
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, args []string) error {
			graphID, err := parseID(args[0], "graph")
			if err != nil {
				return err
			}
			f, err := search.ParseFilter(filter)
			if err != nil {
				return errors.WithHintf(err, "filters: %s, %s, %s, %s, %s",
					search.FilterAll, search.FilterNodes, search.FilterConnectors, search.FilterEdges, search.FilterCliques)
			}
			results, err := s.repo.Search(graphID, args[1], f).Get(s.ctx)
			if err != nil {
				return err
			}
			return s.out.Render(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "No matches")
					return
				}
				for _, r := range results {
					fmt.Fprintf(w, "%-9s %d  %s\n", r.Kind, r.ID, r.Title)
					if len(r.Context) > 0 {
						fmt.Fprintf(w, "          %s\n", strings.Join(r.Context, " | "))
					}
				}
			})
		}),
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "all|nodes|connectors|edges|cliques")
	return cmd
}
