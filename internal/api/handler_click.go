package api

import (
	"net/http"

	"github.com/clickplanet/clickplanet/internal/clickpb"
	"github.com/clickplanet/clickplanet/internal/coordinator"
)

// HandleClick returns a handler for POST /api/click. Access to the
// coordinator is gated by pool, bounding concurrent store and bus usage.
func HandleClick(c *coordinator.Coordinator, pool *resourcePool, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readEnvelope(w, r, maxBodyBytes)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}

		req, err := clickpb.UnmarshalClickRequest(payload)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}

		pool.withSlot(w, r, func() {
			resp, err := c.Click(req)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			writeEnvelope(w, http.StatusOK, clickpb.MarshalClickResponse(resp))
		})
	}
}
