package locale

import "context"

type ctxKey struct{}

// WithLocale returns a copy of ctx carrying the active request locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// FromContext returns the locale stored by WithLocale, if any.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	l, ok := ctx.Value(ctxKey{}).(string)
	return l, ok && l != ""
}

// Provider yields the ambient locale of the current request or session.
type Provider interface {
	Current(ctx context.Context) string
}

// ContextProvider reads the locale from the context and falls back to
// Default when none was set.
type ContextProvider struct {
	Default string
}

// Current implements Provider.
func (p ContextProvider) Current(ctx context.Context) string {
	if l, ok := FromContext(ctx); ok {
		return l
	}
	return p.Default
}

// Static always reports the same locale. Handy for CLI runs and tests.
type Static string

// Current implements Provider.
func (s Static) Current(context.Context) string { return string(s) }
