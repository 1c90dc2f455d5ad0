package api

import (
	"net/http"

	"github.com/clickplanet/clickplanet/internal/apierr"
)

// resourcePool bounds how many requests may touch the store and bus
// concurrently. Exhaustion makes requests queue up to their deadline,
// then fail instead of piling onto the backing connections.
type resourcePool struct {
	sem chan struct{}
}

func newResourcePool(size int) *resourcePool {
	if size <= 0 {
		size = 64
	}
	return &resourcePool{sem: make(chan struct{}, size)}
}

// withSlot acquires a pool slot before running fn, releasing it
// afterward. If the request's deadline/cancellation fires first, it
// writes ResourceExhausted and returns without calling fn.
func (p *resourcePool) withSlot(w http.ResponseWriter, r *http.Request, fn func()) {
	select {
	case p.sem <- struct{}{}:
	case <-r.Context().Done():
		writeAPIError(w, apierr.New(apierr.ResourceExhausted, "store/bus connection pool exhausted before acquire"))
		return
	}
	defer func() { <-p.sem }()
	fn()
}
