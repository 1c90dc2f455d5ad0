package api

import (
	"net/http"

	"github.com/clickplanet/clickplanet/internal/clickpb"
	"github.com/clickplanet/clickplanet/internal/query"
)

// HandleOwnershipsByBatch returns a handler for POST
// /api/ownerships-by-batch.
func HandleOwnershipsByBatch(e *query.Engine, pool *resourcePool, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readEnvelope(w, r, maxBodyBytes)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}

		req, err := clickpb.UnmarshalBatchRequest(payload)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}

		pool.withSlot(w, r, func() {
			ownerships, err := e.OwnershipsByBatch(req)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			writeEnvelope(w, http.StatusOK, clickpb.MarshalOwnershipState(ownerships))
		})
	}
}

// HandleOwnershipsAll returns a handler for GET /api/ownerships, the
// legacy full dump.
func HandleOwnershipsAll(e *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerships, err := e.OwnershipsAll()
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, clickpb.MarshalOwnershipState(ownerships))
	}
}

// HandleLeaderboard returns a handler for GET /v2/rpc/leaderboard.
func HandleLeaderboard(e *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := e.Leaderboard()
		writeEnvelope(w, http.StatusOK, clickpb.MarshalLeaderboardResponse(entries))
	}
}
