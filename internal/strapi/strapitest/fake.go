// Package strapitest provides an in-memory strapi.Finder for tests.
package strapitest

import (
	"context"
	"net/http"
	"sync"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/strapi"
)

// Call records one request made against the fake.
type Call struct {
	Collection string
	ID         string
	Query      strapi.Query
}

// FindFunc answers a list request with a raw JSON data payload.
type FindFunc func(ctx context.Context, q strapi.Query) (string, error)

// Fake serves canned payloads. Payloads may use either the nested or the flat
// response shape; they are flattened like real responses.
type Fake struct {
	mu    sync.Mutex
	finds map[string]FindFunc
	ones  map[string]string
	fails map[string]error
	calls []Call
}

// New returns an empty fake. Unknown lists answer [] and unknown entries 404.
func New() *Fake {
	return &Fake{
		finds: map[string]FindFunc{},
		ones:  map[string]string{},
		fails: map[string]error{},
	}
}

// OnFind installs the handler for list requests on collection.
func (f *Fake) OnFind(collection string, fn FindFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds[collection] = fn
	return f
}

// List answers every list request on collection with data.
func (f *Fake) List(collection, data string) *Fake {
	return f.OnFind(collection, func(context.Context, strapi.Query) (string, error) { return data, nil })
}

// One registers the payload of collection/id.
func (f *Fake) One(collection, id, data string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ones[collection+"/"+id] = data
	return f
}

// Fail makes requests for collection/id fail with err.
func (f *Fake) Fail(collection, id string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[collection+"/"+id] = err
	return f
}

// Calls returns the recorded requests for collection, in order.
func (f *Fake) Calls(collection string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Collection == collection {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Find(ctx context.Context, collection string, q strapi.Query) (strapi.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Collection: collection, Query: q})
	fn, ok := f.finds[collection]
	f.mu.Unlock()
	if !ok {
		return strapi.Response{Data: []byte("[]")}, nil
	}
	data, err := fn(ctx, q)
	if err != nil {
		return strapi.Response{}, err
	}
	return respond(data)
}

func (f *Fake) FindOne(_ context.Context, collection, id string, q strapi.Query) (strapi.Response, error) {
	key := collection + "/" + id
	f.mu.Lock()
	f.calls = append(f.calls, Call{Collection: collection, ID: id, Query: q})
	err := f.fails[key]
	data, ok := f.ones[key]
	f.mu.Unlock()
	if err != nil {
		return strapi.Response{}, err
	}
	if !ok {
		return strapi.Response{}, &strapi.APIError{Status: http.StatusNotFound, Name: "NotFoundError", Message: "Not Found"}
	}
	return respond(data)
}

func respond(data string) (strapi.Response, error) {
	flat, err := cafe.Flatten([]byte(data))
	if err != nil {
		return strapi.Response{}, err
	}
	return strapi.Response{Data: flat}, nil
}
