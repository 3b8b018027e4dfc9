package crimefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_ParsesEventsAcrossTiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]wireEvent{
			{ExternalID: "1", Category: "burglary", Lon: -0.1, Lat: 51.5, ForceID: "met", OutputArea: "E01", LocationTxt: "on or near x"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	events, err := c.Fetch(context.Background(), 2024, time.March, []Tile{
		{MinLon: -1, MinLat: 50, MaxLon: 1, MaxLat: 52},
		{MinLon: -2, MinLat: 49, MaxLon: 2, MaxLat: 53},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected one event per tile (2 tiles), got %d", len(events))
	}
	for _, e := range events {
		if e.ExternalID != "1" || e.Category != "burglary" {
			t.Fatalf("unexpected event: %+v", e)
		}
		if !e.Month.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected month: %v", e.Month)
		}
	}
}

func TestFetch_RetriesTransientErrorsThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]wireEvent{{ExternalID: "2", Category: "theft"}})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	events, err := c.Fetch(context.Background(), 2024, time.January, []Tile{{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ExternalID != "2" {
		t.Fatalf("expected retry to eventually succeed, got %+v (err=%v)", events, err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
}

func TestFetch_PermanentErrorOnNonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), 2024, time.January, []Tile{{}})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetch_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), 2024, time.January, []Tile{{}})
	if err == nil {
		t.Fatal("expected error after retries are exhausted")
	}
}

func TestFetch_NoTilesReturnsEmpty(t *testing.T) {
	c := New("http://unused.invalid", nil)
	events, err := c.Fetch(context.Background(), 2024, time.January, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for no tiles, got %d", len(events))
	}
}
