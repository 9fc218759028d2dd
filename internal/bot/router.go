package bot

import (
	"context"
	"strings"

	"cardfill/internal/telegram"
)

type HandlerFunc func(ctx context.Context, u *telegram.Update) error

// Route pairs a predicate with the handler it selects.
type Route struct {
	Name   string
	Match  func(u *telegram.Update) bool
	Handle HandlerFunc
}

// Router dispatches an update to the first route whose predicate holds.
// Routes are tried in registration order.
type Router struct {
	routes []Route
}

func (r *Router) Handle(name string, match func(*telegram.Update) bool, h HandlerFunc) {
	r.routes = append(r.routes, Route{Name: name, Match: match, Handle: h})
}

// Dispatch returns the matched route name, or "" when nothing matched.
func (r *Router) Dispatch(ctx context.Context, u *telegram.Update) (string, error) {
	for _, rt := range r.routes {
		if rt.Match(u) {
			return rt.Name, rt.Handle(ctx, u)
		}
	}
	return "", nil
}

func (r *Router) Routes() []string {
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.Name
	}
	return names
}

func isText(u *telegram.Update) bool {
	return u.Message != nil && u.Message.Text != "" && u.Message.From != nil
}

func isReplyTo(prefix string) func(*telegram.Update) bool {
	return func(u *telegram.Update) bool {
		return isText(u) && u.Message.ReplyToMessage != nil &&
			strings.HasPrefix(u.Message.ReplyToMessage.Text, prefix)
	}
}

func isCallback(prefix string) func(*telegram.Update) bool {
	return func(u *telegram.Update) bool {
		return u.CallbackQuery != nil && u.CallbackQuery.Message != nil &&
			strings.HasPrefix(u.CallbackQuery.Data, prefix)
	}
}

func isCallbackExact(data string) func(*telegram.Update) bool {
	return func(u *telegram.Update) bool {
		return u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Data == data
	}
}
