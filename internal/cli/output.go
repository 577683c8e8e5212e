package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"utvibe/internal/client"
	"utvibe/internal/models"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

func (a *App) format() format {
	f, _ := parseFormat(a.cfg.GetString(keyOutput))
	return f
}

// encode writes v as JSON or YAML. It reports false for table output.
func encode(w io.Writer, f format, v any) (bool, error) {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		// Round trip through JSON so YAML keys match the API field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return true, err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return true, enc.Encode(generic)
	}
	return false, nil
}

var (
	header  = color.New(color.Bold, color.FgHiWhite)
	likeC   = color.New(color.FgGreen)
	dislike = color.New(color.FgRed)
	muted   = color.New(color.FgHiBlack)
	expired = color.New(color.FgYellow)
)

func (a *App) printPosts(posts []*models.Post, member string) error {
	if done, err := encode(a.out, a.format(), posts); done {
		return err
	}
	if len(posts) == 0 {
		muted.Fprintln(a.out, "No posts.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	header.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHOR\tLIKES\tDISLIKES\tEXPIRES")
	now := time.Now()
	for _, p := range posts {
		author := "anonymous"
		if p.Author != nil {
			author = p.Author.Name
		}
		likes := fmt.Sprintf("%d", p.Likes)
		if member != "" && slices.Contains(p.LikedBy, member) {
			likes = likeC.Sprintf("%d ♥", p.Likes)
		}
		dislikes := fmt.Sprintf("%d", p.Dislikes)
		if member != "" && slices.Contains(p.DislikedBy, member) {
			dislikes = dislike.Sprintf("%d ✗", p.Dislikes)
		}
		expires := humanize(p.ExpiresAt.Sub(now))
		if p.IsExpired(now) {
			expires = expired.Sprint("expired")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(p.ID), truncate(p.Title, 40), p.Category, author, likes, dislikes, expires)
	}
	return tw.Flush()
}

func (a *App) printReaction(res *client.ReactionResult) error {
	if done, err := encode(a.out, a.format(), res); done {
		return err
	}
	c := likeC
	if !res.Active {
		c = muted
	}
	c.Fprintln(a.out, res.Message)
	switch res.Kind {
	case "bookmark":
		fmt.Fprintf(a.out, "bookmarked by %d\n", len(res.Bookmarks.BookmarkedBy))
	default:
		fmt.Fprintf(a.out, "%s  %s\n",
			likeC.Sprintf("▲ %d", res.Counts.Likes),
			dislike.Sprintf("▼ %d", res.Counts.Dislikes))
	}
	return nil
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	if client.IsUnauthorized(err) {
		muted.Fprintln(w, "Run `vibectl login` first.")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanize(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
