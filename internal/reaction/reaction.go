// Package reaction holds the like/dislike/bookmark toggle rules shared by the
// server and the client widget.
package reaction

import (
	"fmt"
	"slices"

	"utvibe/internal/models"

	"github.com/lib/pq"
)

// Kind identifies a reaction a user can toggle on a post.
type Kind string

const (
	Like     Kind = "like"
	Dislike  Kind = "dislike"
	Bookmark Kind = "bookmark"
)

// Kinds lists every reaction kind.
var Kinds = []Kind{Like, Dislike, Bookmark}

// ParseKind validates a reaction name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds, k) {
		return "", fmt.Errorf("unknown reaction %q", s)
	}
	return k, nil
}

// Message is the success message for a toggle that left the reaction active or not.
func (k Kind) Message(active bool) string {
	if active {
		return "Post " + k.pastTense()
	}
	return "Post un" + k.pastTense()
}

// FailureMessage is shown when the toggle could not be persisted.
func (k Kind) FailureMessage() string {
	return fmt.Sprintf("Failed to update %s. Please try again.", k)
}

var pastTenses = map[Kind]string{
	Like:     "liked",
	Dislike:  "disliked",
	Bookmark: "bookmarked",
}

func (k Kind) pastTense() string {
	if s, ok := pastTenses[k]; ok {
		return s
	}
	return string(k) + "ed"
}

// Counts is the like/dislike view of a post returned after a like or dislike toggle.
type Counts struct {
	ID         string   `json:"id"`
	Likes      int      `json:"likes"`
	LikedBy    []string `json:"likedBy"`
	Dislikes   int      `json:"dislikes"`
	DislikedBy []string `json:"dislikedBy"`
}

// Bookmarks is the bookmark view of a post returned after a bookmark toggle.
type Bookmarks struct {
	ID           string   `json:"id"`
	BookmarkedBy []string `json:"bookmarkedBy"`
}

// CountsOf snapshots the like/dislike state of p.
func CountsOf(p *models.Post) Counts {
	return Counts{
		ID:         p.ID,
		Likes:      p.Likes,
		LikedBy:    nonNil(p.LikedBy),
		Dislikes:   p.Dislikes,
		DislikedBy: nonNil(p.DislikedBy),
	}
}

// BookmarksOf snapshots the bookmark state of p.
func BookmarksOf(p *models.Post) Bookmarks {
	return Bookmarks{ID: p.ID, BookmarkedBy: nonNil(p.BookmarkedBy)}
}

// Has reports whether member currently holds kind on p.
func Has(p *models.Post, member string, kind Kind) bool {
	switch kind {
	case Like:
		return slices.Contains(p.LikedBy, member)
	case Dislike:
		return slices.Contains(p.DislikedBy, member)
	case Bookmark:
		return slices.Contains(p.BookmarkedBy, member)
	}
	return false
}

// Toggle flips member's kind reaction on p in place and reports whether the
// reaction is held afterwards. Taking a like drops an existing dislike and
// vice versa. Bookmarks never touch the other sets. Counters are rewritten
// from the set sizes so likes == |likedBy| and dislikes == |dislikedBy|.
func Toggle(p *models.Post, member string, kind Kind) bool {
	var active bool
	switch kind {
	case Like:
		active = flip(&p.LikedBy, member)
		if active {
			p.DislikedBy = remove(p.DislikedBy, member)
		}
	case Dislike:
		active = flip(&p.DislikedBy, member)
		if active {
			p.LikedBy = remove(p.LikedBy, member)
		}
	case Bookmark:
		active = flip(&p.BookmarkedBy, member)
	}
	p.Likes = len(p.LikedBy)
	p.Dislikes = len(p.DislikedBy)
	return active
}

func flip(set *pq.StringArray, member string) bool {
	if slices.Contains(*set, member) {
		*set = remove(*set, member)
		return false
	}
	*set = append(remove(*set, member), member)
	return true
}

// remove drops every occurrence of member, returning a fresh slice.
func remove(set pq.StringArray, member string) pq.StringArray {
	out := make(pq.StringArray, 0, len(set))
	for _, v := range set {
		if v != member {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
