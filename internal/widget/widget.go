// Package widget is the optimistic like/dislike/bookmark control shown under
// a post. A click renders the predicted outcome immediately, then either
// adopts the server snapshot or restores what was shown before the click.
package widget

import (
	"context"
	"errors"
	"slices"
	"sync"

	"utvibe/internal/client"
	"utvibe/internal/models"
	"utvibe/internal/reaction"
)

type State string

const (
	Idle       State = "idle"
	Pending    State = "pending"
	Committed  State = "committed"
	RolledBack State = "rolled-back"
)

// ErrBusy is returned when a click arrives while a request is in flight.
var ErrBusy = errors.New("widget: request already in flight")

// Toggler sends a reaction toggle to the server. *client.Client satisfies it.
type Toggler interface {
	Toggle(ctx context.Context, postID string, kind reaction.Kind) (*client.ReactionResult, error)
}

// View is what the control displays for the signed in user.
type View struct {
	Likes      int
	Dislikes   int
	Liked      bool
	Disliked   bool
	Bookmarked bool
}

// ViewOf derives the view of p for member.
func ViewOf(p *models.Post, member string) View {
	return View{
		Likes:      p.Likes,
		Dislikes:   p.Dislikes,
		Liked:      slices.Contains(p.LikedBy, member),
		Disliked:   slices.Contains(p.DislikedBy, member),
		Bookmarked: slices.Contains(p.BookmarkedBy, member),
	}
}

// Predict applies the toggle rules to v without the server. Counters never go
// below zero.
func Predict(v View, kind reaction.Kind) View {
	switch kind {
	case reaction.Like:
		if v.Liked {
			v.Liked, v.Likes = false, max(v.Likes-1, 0)
			break
		}
		v.Liked, v.Likes = true, v.Likes+1
		if v.Disliked {
			v.Disliked, v.Dislikes = false, max(v.Dislikes-1, 0)
		}
	case reaction.Dislike:
		if v.Disliked {
			v.Disliked, v.Dislikes = false, max(v.Dislikes-1, 0)
			break
		}
		v.Disliked, v.Dislikes = true, v.Dislikes+1
		if v.Liked {
			v.Liked, v.Likes = false, max(v.Likes-1, 0)
		}
	case reaction.Bookmark:
		v.Bookmarked = !v.Bookmarked
	}
	return v
}

// Widget is safe for concurrent use. At most one request is in flight.
type Widget struct {
	postID  string
	member  string
	toggler Toggler
	render  func(View, State)

	mu    sync.Mutex
	view  View
	state State
}

// New builds a widget for postID as seen by member. render, when not nil, is
// called with every state the control passes through.
func New(t Toggler, postID, member string, initial View, render func(View, State)) *Widget {
	return &Widget{
		postID:  postID,
		member:  member,
		toggler: t,
		render:  render,
		view:    initial,
		state:   Idle,
	}
}

func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Click runs one optimistic toggle and returns the state it settled in.
// The toggle error, if any, is returned alongside RolledBack.
func (w *Widget) Click(ctx context.Context, kind reaction.Kind) (State, error) {
	w.mu.Lock()
	if w.state == Pending {
		w.mu.Unlock()
		return Pending, ErrBusy
	}
	before := w.view
	w.set(Predict(before, kind), Pending)
	w.mu.Unlock()

	res, err := w.toggler.Toggle(ctx, w.postID, kind)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.set(before, RolledBack)
		return RolledBack, err
	}
	w.set(w.adopt(res), Committed)
	return Committed, nil
}

// adopt overwrites the view with the parts of the server snapshot the
// response carries.
func (w *Widget) adopt(res *client.ReactionResult) View {
	v := w.view
	switch res.Kind {
	case reaction.Like, reaction.Dislike:
		v.Likes = res.Counts.Likes
		v.Dislikes = res.Counts.Dislikes
		v.Liked = slices.Contains(res.Counts.LikedBy, w.member)
		v.Disliked = slices.Contains(res.Counts.DislikedBy, w.member)
	case reaction.Bookmark:
		v.Bookmarked = slices.Contains(res.Bookmarks.BookmarkedBy, w.member)
	}
	return v
}

// set must be called with mu held.
func (w *Widget) set(v View, s State) {
	w.view, w.state = v, s
	if w.render != nil {
		w.render(v, s)
	}
}
