package modelgateway

import (
	"context"
	"fmt"
)

// UnaryMiddleware wraps a Client.Complete call to add cross-cutting
// behavior (logging, metrics, retries, rate limiting). Middleware is
// applied in registration order: the first one registered wraps every
// later one, with the named provider client as the innermost layer.
type UnaryMiddleware func(Client) Client

// Gateway is the single entry point the Plan/Act loop calls through: one
// function from {systemPrompt, messages, modelHints, credentials} to a
// completion, regardless of which concrete provider services the call.
type Gateway struct {
	providers map[string]Client
	// order records provider-priority insertion order for the
	// first-provider-with-credentials fallback rule.
	order []string
	// defaultProvider is used when a request does not explicitly name one.
	defaultProvider string
	middleware      []UnaryMiddleware
}

// NewGateway builds an empty Gateway. Register providers with
// RegisterProvider, then middleware with Use, before calling Complete.
func NewGateway() *Gateway {
	return &Gateway{providers: make(map[string]Client)}
}

// RegisterProvider adds a named provider client. The first provider
// registered becomes the implicit default unless SetDefault overrides it.
func (g *Gateway) RegisterProvider(name string, c Client) {
	if _, exists := g.providers[name]; !exists {
		g.order = append(g.order, name)
	}
	g.providers[name] = c
	if g.defaultProvider == "" {
		g.defaultProvider = name
	}
}

// SetDefault overrides the configured-default provider used when a
// request names none explicitly.
func (g *Gateway) SetDefault(name string) { g.defaultProvider = name }

// Use appends middleware to the gateway's chain, applied in registration
// order (onion: first registered wraps everything after it).
func (g *Gateway) Use(mw UnaryMiddleware) { g.middleware = append(g.middleware, mw) }

// ErrNoProvider is returned when the gateway has no provider that can
// service a request (none registered, or an explicit override names an
// unregistered provider).
type ErrNoProvider struct{ Requested string }

func (e *ErrNoProvider) Error() string {
	if e.Requested == "" {
		return "modelgateway: no configured provider available"
	}
	return fmt.Sprintf("modelgateway: requested provider %q is not registered", e.Requested)
}

// Complete chooses a provider per the deterministic priority rule
// (explicit override > configured default > first registered provider)
// and calls it through the middleware chain.
//
// overrideProvider, when non-empty, forces a specific provider name and
// fails fast via ErrNoProvider if it is not registered — per spec.md
// §4.7, a provider explicitly requested never silently falls back.
func (g *Gateway) Complete(ctx context.Context, overrideProvider string, req *Request) (*Response, error) {
	name, client, err := g.choose(overrideProvider)
	if err != nil {
		return nil, err
	}
	chain := client
	for i := len(g.middleware) - 1; i >= 0; i-- {
		chain = g.middleware[i](chain)
	}
	resp, err := chain.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("modelgateway: provider %q: %w", name, err)
	}
	if resp == nil || resp.Content == "" {
		return nil, fmt.Errorf("modelgateway: provider %q: %w", name, ErrEmptyCompletion)
	}
	return resp, nil
}

func (g *Gateway) choose(overrideProvider string) (string, Client, error) {
	if overrideProvider != "" {
		c, ok := g.providers[overrideProvider]
		if !ok {
			return "", nil, &ErrNoProvider{Requested: overrideProvider}
		}
		return overrideProvider, c, nil
	}
	if g.defaultProvider != "" {
		if c, ok := g.providers[g.defaultProvider]; ok {
			return g.defaultProvider, c, nil
		}
	}
	for _, name := range g.order {
		if c, ok := g.providers[name]; ok {
			return name, c, nil
		}
	}
	return "", nil, &ErrNoProvider{}
}
