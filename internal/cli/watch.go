package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/repository"
)

// WatchEvent is one line of watch output.
type WatchEvent struct {
	View  string    `json:"view"`
	At    time.Time `json:"at"`
	Data  any       `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var args repository.ViewArgs
	var count int
	var list bool

	cmd := &cobra.Command{
		Use:   "watch <view>",
		Short: "Stream a live view as JSON lines",
		Long: `Print the current value of a view, then a new line every time it
changes, until interrupted. Changes made by other processes are not seen;
run the server and subscribe over /ws to share a live database.

Example:
  graphwalker watch unconnected --id 1
  graphwalker watch search --id 1 --text hub --filter nodes
  graphwalker watch --list`,
		Args: func(cmd *cobra.Command, a []string) error {
			if list {
				return cobra.NoArgs(cmd, a)
			}
			return cobra.ExactArgs(1)(cmd, a)
		},
		RunE: withRepo(rootOpts, func(s *session, cmd *cobra.Command, a []string) error {
			if list {
				names := repository.ViewNames()
				return s.out.Render(names, func(w io.Writer) {
					for _, n := range names {
						fmt.Fprintln(w, n)
					}
				})
			}

			view := a[0]
			q, err := s.repo.View(view, args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(s.ctx)
			defer cancel()
			return streamView(ctx, s.out.Writer, view, q.Watch(ctx, s.repo.Feed()), count)
		}),
	}
	cmd.Flags().Int64Var(&args.ID, "id", 0, "graph, node, connector, edge or clique id the view is about")
	cmd.Flags().StringVar(&args.Text, "text", "", "search text (search view)")
	cmd.Flags().StringVar(&args.Filter, "filter", "", "search filter (search view)")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many updates (0 = until interrupted)")
	cmd.Flags().BoolVar(&list, "list", false, "list the available views")
	return cmd
}

// streamView writes one JSON line per update until the channel closes or
// count updates were written.
func streamView(ctx context.Context, w io.Writer, view string, updates <-chan live.Update[any], count int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	written := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			ev := WatchEvent{View: view, At: time.Now().UTC(), Data: u.Value}
			if u.Err != nil {
				ev.Data, ev.Error = nil, u.Err.Error()
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
			written++
			if count > 0 && written >= count {
				return nil
			}
		}
	}
}
