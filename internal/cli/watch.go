package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"utvibe/internal/client"

	"github.com/spf13/cobra"
)

type postEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

func (a *App) watchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream feed events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "count", "n", 0, "exit after this many events (0 streams forever)")
	return cmd
}

func (a *App) watch(ctx context.Context, limit int) error {
	f := a.format()
	seen := 0
	muted.Fprintln(a.out, "Watching the feed. Ctrl-C to stop.")
	return a.client().Stream(ctx, func(ev client.Event) error {
		if done, err := encode(a.out, f, ev); done {
			if err != nil {
				return err
			}
		} else {
			a.printEvent(ev)
		}
		seen++
		if limit > 0 && seen >= limit {
			return client.ErrStopStream
		}
		return nil
	})
}

func (a *App) printEvent(ev client.Event) {
	var p postEvent
	_ = json.Unmarshal(ev.Payload, &p)
	stamp := muted.Sprint(time.Now().Format(time.Kitchen))
	switch ev.Type {
	case "post_created":
		fmt.Fprintf(a.out, "%s %s %s %q\n", stamp, likeC.Sprint("new"), shortID(p.ID), p.Title)
	case "post_updated":
		fmt.Fprintf(a.out, "%s %s %s %q\n", stamp, header.Sprint("edit"), shortID(p.ID), p.Title)
	case "post_deleted":
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, dislike.Sprint("gone"), shortID(p.ID))
	case "post_reaction_updated":
		fmt.Fprintf(a.out, "%s %s %s %s %s\n", stamp, expired.Sprint("vote"), shortID(p.ID),
			likeC.Sprintf("▲ %d", p.Likes), dislike.Sprintf("▼ %d", p.Dislikes))
	default:
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, ev.Type, string(ev.Payload))
	}
}
