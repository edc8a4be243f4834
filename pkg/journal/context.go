package journal

import (
	"context"

	"github.com/prerender-tools/cachectl/pkg/models"
)

type actionKey struct{}

// WithAction tags ctx with the user action that store calls belong to.
func WithAction(ctx context.Context, a models.Action) context.Context {
	return context.WithValue(ctx, actionKey{}, a)
}

// ActionFrom returns the action set by WithAction, or ActionSubmit.
func ActionFrom(ctx context.Context) models.Action {
	if a, ok := ctx.Value(actionKey{}).(models.Action); ok {
		return a
	}
	return models.ActionSubmit
}
