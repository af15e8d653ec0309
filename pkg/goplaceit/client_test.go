package goplaceit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	return srv, c
}

func TestSearchProperties_SinglePage(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("location"); got != "Concón, Valparaíso" {
			t.Errorf("location = %q", got)
		}
		if got := r.URL.Query().Get("transaction_type"); got != "arriendo" {
			t.Errorf("transaction_type = %q", got)
		}
		json.NewEncoder(w).Encode(searchResponse{
			Properties: []Property{
				{Title: "Depto A", Price: "2.300.000", Currency: "CLP"},
				{Title: "Depto B", Price: "6.900", Currency: "UF"},
			},
			Page:       1,
			TotalPages: 1,
		})
	})

	props, err := c.SearchProperties(context.Background(), SearchParams{
		PropertyType:    "departamento",
		TransactionType: "arriendo",
		Location:        "Concón, Valparaíso",
		MaxPages:        3,
	})
	if err != nil {
		t.Fatalf("SearchProperties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("len = %d, want 2", len(props))
	}
	if props[0].Price != "2.300.000" {
		t.Errorf("price = %q", props[0].Price)
	}
}

func TestSearchProperties_WalksPages(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(searchResponse{
			Properties: []Property{{Title: "p" + strconv.Itoa(page)}},
			Page:       page,
			TotalPages: 2,
		})
	})

	props, err := c.SearchProperties(context.Background(), SearchParams{MaxPages: 5})
	if err != nil {
		t.Fatalf("SearchProperties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("len = %d, want 2 (stop at total_pages)", len(props))
	}
}

func TestSearchProperties_FirstPageErrorFails(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := c.SearchProperties(context.Background(), SearchParams{MaxPages: 1}); err == nil {
		t.Error("502 on first page must fail")
	}
}

func TestSearchProperties_LaterPageErrorKeepsPartial(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{
			Properties: []Property{{Title: "only"}},
			Page:       1,
			TotalPages: 4,
		})
	})

	props, err := c.SearchProperties(context.Background(), SearchParams{MaxPages: 3})
	if err != nil {
		t.Fatalf("partial results must not error: %v", err)
	}
	if len(props) != 1 || props[0].Title != "only" {
		t.Errorf("props = %+v", props)
	}
}
