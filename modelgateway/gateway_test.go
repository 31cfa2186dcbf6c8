package modelgateway

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	resp *Response
	err  error
	n    int
}

func (f *fakeClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	f.n++
	return f.resp, f.err
}

func TestGateway_Complete_UsesFirstRegisteredAsDefault(t *testing.T) {
	g := NewGateway()
	a := &fakeClient{resp: &Response{Content: "a"}}
	b := &fakeClient{resp: &Response{Content: "b"}}
	g.RegisterProvider("first", a)
	g.RegisterProvider("second", b)

	resp, err := g.Complete(context.Background(), "", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "a" {
		t.Fatalf("expected first-registered provider to service the default request, got %q", resp.Content)
	}
}

func TestGateway_Complete_ExplicitOverrideWins(t *testing.T) {
	g := NewGateway()
	a := &fakeClient{resp: &Response{Content: "a"}}
	b := &fakeClient{resp: &Response{Content: "b"}}
	g.RegisterProvider("first", a)
	g.RegisterProvider("second", b)
	g.SetDefault("first")

	resp, err := g.Complete(context.Background(), "second", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "b" {
		t.Fatalf("expected explicit override to take priority over configured default, got %q", resp.Content)
	}
}

func TestGateway_Complete_UnregisteredOverrideFailsFast(t *testing.T) {
	g := NewGateway()
	g.RegisterProvider("first", &fakeClient{resp: &Response{Content: "a"}})

	_, err := g.Complete(context.Background(), "missing", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	var noProvider *ErrNoProvider
	if !errors.As(err, &noProvider) {
		t.Fatalf("expected ErrNoProvider for an unregistered explicit override, got %v", err)
	}
}

func TestGateway_Complete_NoProvidersRegistered(t *testing.T) {
	g := NewGateway()
	_, err := g.Complete(context.Background(), "", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	var noProvider *ErrNoProvider
	if !errors.As(err, &noProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestGateway_Complete_EmptyContentBecomesErrEmptyCompletion(t *testing.T) {
	g := NewGateway()
	g.RegisterProvider("only", &fakeClient{resp: &Response{Content: ""}})

	_, err := g.Complete(context.Background(), "", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGateway_Complete_MiddlewareWrapsInRegistrationOrder(t *testing.T) {
	g := NewGateway()
	g.RegisterProvider("only", &fakeClient{resp: &Response{Content: "ok"}})

	var order []string
	mark := func(name string) UnaryMiddleware {
		return func(next Client) Client {
			return clientFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.Complete(ctx, req)
			})
		}
	}
	g.Use(mark("outer"))
	g.Use(mark("inner"))

	_, err := g.Complete(context.Background(), "", &Request{Messages: []*Message{NewTextMessage(RoleUser, "hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("expected outer middleware to run before inner, got %v", order)
	}
}

type clientFunc func(ctx context.Context, req *Request) (*Response, error)

func (f clientFunc) Complete(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }
