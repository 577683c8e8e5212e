package server

import (
	"context"
	"log/slog"

	"utvibe/internal/featureflags"
	"utvibe/internal/middleware"
	"utvibe/internal/models"
	"utvibe/internal/notifications"
)

func (s *Server) realtimeEnabled() bool {
	return s.hub != nil && s.featureFlags.Enabled(featureflags.RealtimeEvents, 0)
}

// publishBroadcastEvent delivers an event to local clients and, through Redis,
// to clients of every other instance.
func (s *Server) publishBroadcastEvent(ctx context.Context, eventType string, payload any) {
	if !s.realtimeEnabled() {
		return
	}
	message, err := notifications.Event{Type: eventType, Payload: payload}.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", slog.String("error", err.Error()))
		return
	}
	if s.notifier.Enabled() {
		// The subscriber delivers to this instance's hub as well.
		if err = s.notifier.PublishBroadcast(ctx, message); err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", eventType), slog.String("error", err.Error()))
	}
	s.hub.BroadcastAll(message)
}

func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload any) {
	if !s.realtimeEnabled() {
		return
	}
	message, err := notifications.Event{Type: eventType, Payload: payload}.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", slog.String("error", err.Error()))
		return
	}
	if s.notifier.Enabled() {
		if err = s.notifier.PublishUser(ctx, userID, message); err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", eventType), slog.String("error", err.Error()))
	}
	s.hub.Broadcast(userID, message)
}

// publishPostEvent broadcasts post as any other viewer would see it.
func (s *Server) publishPostEvent(ctx context.Context, eventType string, post *models.Post) {
	if post == nil {
		return
	}
	public := *post
	if public.IsAnonymous {
		public.Author = nil
		public.AuthorID = 0
	}
	s.publishBroadcastEvent(ctx, eventType, public)
}
