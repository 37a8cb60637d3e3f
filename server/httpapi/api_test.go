// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unknowntpo/scylladb/server/limiter"
	"github.com/unknowntpo/scylladb/server/locator"
)

func newTestAPI(t *testing.T) (*API, *locator.SharedTokenMetadata[uint64]) {
	shared := locator.NewSharedTokenMetadata(locator.NewRingSnapshot[uint64](locator.Murmur3Partitioner{}))
	lim := limiter.NewLimiter(limiter.Config{Enable: false})
	return NewAPI(shared, lim), shared
}

func get(t *testing.T, router *Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRingVersionEndpoint(t *testing.T) {
	re := require.New(t)
	api, _ := newTestAPI(t)
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/version")
	re.Equal(http.StatusOK, rec.Code)

	var resp ringVersionResponse
	re.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	re.NotZero(resp.Version)
}

func TestOwnerEndpointFound(t *testing.T) {
	re := require.New(t)
	api, shared := newTestAPI(t)
	re.NoError(shared.MutateTokenMetadata(context.Background(), func(s *locator.RingSnapshot[uint64]) error {
		s.Topology.AddOrUpdateLocation("n1", locator.Location{}, nil)
		return s.Ring.UpdateNormalTokens(s.Topology, "n1", []uint64{100})
	}))
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/owner?token=50")
	re.Equal(http.StatusOK, rec.Code)

	var resp ownerResponse
	re.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	re.True(resp.Found)
	re.Equal("n1", resp.Endpoint)
}

func TestOwnerEndpointEmptyRing(t *testing.T) {
	re := require.New(t)
	api, _ := newTestAPI(t)
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/owner?token=50")
	re.Equal(http.StatusOK, rec.Code)

	var resp ownerResponse
	re.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	re.False(resp.Found)
}

func TestOwnerEndpointBadToken(t *testing.T) {
	re := require.New(t)
	api, _ := newTestAPI(t)
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/owner?token=notanumber")
	re.Equal(http.StatusBadRequest, rec.Code)
}

func TestPendingEndpoint(t *testing.T) {
	re := require.New(t)
	api, shared := newTestAPI(t)
	re.NoError(shared.MutateTokenMetadata(context.Background(), func(s *locator.RingSnapshot[uint64]) error {
		s.Topology.AddOrUpdateLocation("n1", locator.Location{}, nil)
		return s.Ring.UpdateNormalTokens(s.Topology, "n1", []uint64{100})
	}))
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/pending?token=50&keyspace=ks")
	re.Equal(http.StatusOK, rec.Code)

	var resp pendingResponse
	re.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	re.Empty(resp.Endpoints)
}

func TestPrimaryRangesEndpoint(t *testing.T) {
	re := require.New(t)
	api, shared := newTestAPI(t)
	re.NoError(shared.MutateTokenMetadata(context.Background(), func(s *locator.RingSnapshot[uint64]) error {
		s.Topology.AddOrUpdateLocation("n1", locator.Location{}, nil)
		return s.Ring.UpdateNormalTokens(s.Topology, "n1", []uint64{100})
	}))
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/primary-ranges?endpoint=n1")
	re.Equal(http.StatusOK, rec.Code)

	var resp rangeResponse
	re.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	re.NotEmpty(resp.Ranges)
}

func TestInstrumentRejectsWhenRateLimited(t *testing.T) {
	re := require.New(t)
	shared := locator.NewSharedTokenMetadata(locator.NewRingSnapshot[uint64](locator.Murmur3Partitioner{}))
	lim := limiter.NewLimiter(limiter.Config{Enable: true, TokenBucketFillRate: 0, TokenBucketBurstEventCapacity: 0})
	api := NewAPI(shared, lim)
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/owner?token=1")
	re.Equal(http.StatusTooManyRequests, rec.Code)
}

func TestInstrumentBypassesVersionEndpoint(t *testing.T) {
	re := require.New(t)
	shared := locator.NewSharedTokenMetadata(locator.NewRingSnapshot[uint64](locator.Murmur3Partitioner{}))
	lim := limiter.NewLimiter(limiter.Config{Enable: true, TokenBucketFillRate: 0, TokenBucketBurstEventCapacity: 0})
	api := NewAPI(shared, lim)
	router := api.NewRouter()

	rec := get(t, router, "/api/v1/ring/version")
	re.Equal(http.StatusOK, rec.Code, "the version endpoint is always bypassed regardless of the token bucket")
}
