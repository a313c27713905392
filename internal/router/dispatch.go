package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/wsgate/internal/model"
)

// dispatch hands a request for a protected component to its handler
func (r *Router) dispatch(ctx context.Context, client *model.Client, req *model.Request) error {
	log := r.logger.With(
		slog.String("client_id", string(client.ID)),
		slog.String("request_component", req.Component),
		slog.String("action", req.Action))

	if !client.Authenticated() {
		log.Warn("unauthenticated client requested protected component")
		return fmt.Errorf("%s: %w", req.Component, model.ErrUnauthorizedComponent)
	}
	user, err := r.sessions.User(client.UserID)
	if err != nil {
		log.Warn("client bound to unknown user", slog.String("user_id", string(client.UserID)))
		return fmt.Errorf("%s: %w", req.Component, model.ErrUnauthorizedComponent)
	}

	r.handlersMu.RLock()
	handler, ok := r.handlers[req.Component]
	r.handlersMu.RUnlock()
	if !ok {
		log.Warn("request for unknown component")
		return fmt.Errorf("%s: %w", req.Component, model.ErrUnknownComponent)
	}

	err = r.invoke(ctx, handler, &Request{
		Component: req.Component,
		Action:    req.Action,
		Data:      req.Data,
		User:      user,
		Client:    client,
	})
	if err != nil {
		log.Error("component handler failed", slog.Any("error", err))
		return err
	}
	return nil
}

// invoke runs a handler, converting errors and panics into ErrHandlerFailure
func (r *Router) invoke(ctx context.Context, h Handler, req *Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in component handler",
				slog.String("request_component", req.Component),
				slog.String("action", req.Action),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %s/%s: panic: %v", model.ErrHandlerFailure, req.Component, req.Action, p)
		}
	}()

	if herr := h.Handle(ctx, req); herr != nil {
		return fmt.Errorf("%w: %s/%s: %w", model.ErrHandlerFailure, req.Component, req.Action, herr)
	}
	return nil
}
