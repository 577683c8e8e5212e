package cli

import (
	"context"
	"fmt"
	"strconv"

	"utvibe/internal/models"
	"utvibe/internal/reaction"

	"github.com/spf13/cobra"
)

func (a *App) listCmd(use, short string, fetch func(a *App, ctx context.Context) ([]*models.Post, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := fetch(a, cmd.Context())
			if err != nil {
				return err
			}
			return a.printPosts(posts, a.member(cmd.Context()))
		},
	}
}

func (a *App) feedCmd() *cobra.Command {
	return a.listCmd("feed", "Show active posts, newest first",
		func(a *App, ctx context.Context) ([]*models.Post, error) { return a.client().Feed(ctx) })
}

func (a *App) bookmarksCmd() *cobra.Command {
	return a.listCmd("bookmarks", "Show posts you bookmarked",
		func(a *App, ctx context.Context) ([]*models.Post, error) { return a.client().Bookmarked(ctx) })
}

func (a *App) mineCmd() *cobra.Command {
	return a.listCmd("mine", "Show your own posts",
		func(a *App, ctx context.Context) ([]*models.Post, error) { return a.client().MyPosts(ctx) })
}

// member is the caller's ID as it appears in likedBy and dislikedBy, or ""
// when signed out.
func (a *App) member(ctx context.Context) string {
	if a.cfg.GetString(keyToken) == "" {
		return ""
	}
	u, err := a.client().Me(ctx)
	if err != nil || u == nil {
		a.logger.Debug("could not resolve current user", "err", err)
		return ""
	}
	return strconv.FormatUint(uint64(u.ID), 10)
}

func (a *App) reactionCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " POST_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reaction.ParseKind(name)
			if err != nil {
				return err
			}
			res, err := a.client().Toggle(cmd.Context(), args[0], kind)
			if err != nil {
				return fmt.Errorf("%s %s: %w", name, args[0], err)
			}
			return a.printReaction(res)
		},
	}
}
