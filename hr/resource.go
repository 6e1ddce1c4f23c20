package hr

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/kadrohq/kadro-go/transport"
)

// doer is the request surface the services need. transport.Client satisfies
// it.
type doer interface {
	Do(ctx context.Context, method, path string, body, out any, options ...transport.RequestOption) error
}

// response is the backend's success envelope.
type response[T any] struct {
	Data T `json:"data"`
}

// resource is the shared CRUD plumbing over one REST collection.
type resource[T any] struct {
	client doer
	path   string
}

func (r resource[T]) List(ctx context.Context, options ...transport.RequestOption) ([]T, error) {
	var resp response[[]T]
	if err := r.client.Do(ctx, http.MethodGet, r.path, nil, &resp, options...); err != nil {
		return nil, errors.Wrapf(err, "[hr] list %s", r.path)
	}
	return resp.Data, nil
}

func (r resource[T]) Get(ctx context.Context, id string) (T, error) {
	var resp response[T]
	if err := r.client.Do(ctx, http.MethodGet, r.path+"/"+id, nil, &resp); err != nil {
		return resp.Data, errors.Wrapf(err, "[hr] get %s/%s", r.path, id)
	}
	return resp.Data, nil
}

func (r resource[T]) Create(ctx context.Context, in T) (T, error) {
	var resp response[T]
	if err := r.client.Do(ctx, http.MethodPost, r.path, in, &resp); err != nil {
		return resp.Data, errors.Wrapf(err, "[hr] create %s", r.path)
	}
	return resp.Data, nil
}

func (r resource[T]) Update(ctx context.Context, id string, in T) (T, error) {
	var resp response[T]
	if err := r.client.Do(ctx, http.MethodPut, r.path+"/"+id, in, &resp); err != nil {
		return resp.Data, errors.Wrapf(err, "[hr] update %s/%s", r.path, id)
	}
	return resp.Data, nil
}

func (r resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.Do(ctx, http.MethodDelete, r.path+"/"+id, nil, nil); err != nil {
		return errors.Wrapf(err, "[hr] delete %s/%s", r.path, id)
	}
	return nil
}
