// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/unknowntpo/scylladb/pkg/log"
	"github.com/unknowntpo/scylladb/server/limiter"
	"github.com/unknowntpo/scylladb/server/locator"
)

// API exposes a read-only view of the ring over HTTP: which endpoints a
// token maps to today, which are pending, and the current ring version.
// It never mutates anything — every mutation this module supports goes
// through locator.SharedTokenMetadata directly, from within the process,
// not over the wire.
type API struct {
	shared *locator.SharedTokenMetadata[uint64]
	limit  *limiter.Limiter
}

// NewAPI returns an API serving shared's current snapshot, rate limited
// by limit.
func NewAPI(shared *locator.SharedTokenMetadata[uint64], limit *limiter.Limiter) *API {
	return &API{shared: shared, limit: limit}
}

// NewRouter builds the /api/v1 router this API answers under.
func (a *API) NewRouter() *Router {
	router := New().WithPrefix("/api/v1").WithInstrumentation(a.instrument)

	router.Get("/ring/version", a.ringVersion)
	router.Get("/ring/owner", a.owner)
	router.Get("/ring/pending", a.pending)
	router.Get("/ring/primary-ranges", a.primaryRanges)

	return router
}

func (a *API) instrument(handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !a.limit.Allow(handlerName) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		body, err := io.ReadAll(req.Body)
		if err != nil {
			log.Error("read http body failed", zap.String("handlerName", handlerName))
			body = []byte("")
		}
		log.Info("receive http request", zap.String("handlerName", handlerName),
			zap.String("client", req.RemoteAddr), zap.String("query", req.URL.RawQuery), zap.Int("bodyLen", len(body)))
		handler.ServeHTTP(w, req)
	}
}

type ringVersionResponse struct {
	Version int64 `json:"version"`
}

func (a *API) ringVersion(w http.ResponseWriter, _ *http.Request) {
	snap := a.shared.Load()
	writeJSON(w, ringVersionResponse{Version: snap.RingVersion()})
}

type ownerResponse struct {
	Endpoint string `json:"endpoint"`
	Found    bool   `json:"found"`
}

func (a *API) owner(w http.ResponseWriter, req *http.Request) {
	tok, err := parseToken(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap := a.shared.Load()
	first, ok := snap.Ring.FirstToken(tok)
	if !ok {
		writeJSON(w, ownerResponse{Found: false})
		return
	}
	endpoint, ok := snap.Ring.EndpointFor(first)
	writeJSON(w, ownerResponse{Endpoint: string(endpoint), Found: ok})
}

type pendingResponse struct {
	Endpoints []string `json:"endpoints"`
}

func (a *API) pending(w http.ResponseWriter, req *http.Request) {
	tok, err := parseToken(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	keyspace := req.URL.Query().Get("keyspace")
	snap := a.shared.Load()
	endpoints := snap.Pending.PendingEndpointsFor(keyspace, tok)
	out := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		out = append(out, string(e))
	}
	writeJSON(w, pendingResponse{Endpoints: out})
}

type rangeResponse struct {
	Ranges []string `json:"ranges"`
}

func (a *API) primaryRanges(w http.ResponseWriter, req *http.Request) {
	endpoint := locator.Endpoint(req.URL.Query().Get("endpoint"))
	snap := a.shared.Load()
	ranges := snap.Ring.PrimaryRangesFor(endpoint)
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, formatRange(r))
	}
	writeJSON(w, rangeResponse{Ranges: out})
}

func formatRange(r locator.TokenRange[uint64]) string {
	open, closeBracket := "[", "]"
	start, end := "-inf", "+inf"
	if r.Start != nil {
		start = strconv.FormatUint(r.Start.Token, 10)
		if !r.Start.Inclusive {
			open = "("
		}
	}
	if r.End != nil {
		end = strconv.FormatUint(r.End.Token, 10)
		if !r.End.Inclusive {
			closeBracket = ")"
		}
	}
	return open + start + ", " + end + closeBracket
}

func parseToken(req *http.Request) (uint64, error) {
	return strconv.ParseUint(req.URL.Query().Get("token"), 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode http response failed", zap.Error(err))
	}
}
