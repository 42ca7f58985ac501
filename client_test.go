package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchCreditsSuccess(t *testing.T) {
	var gotCookie, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"usageUnitsRemaining":750,"usageUnitsConsumedThisBillingCycle":250}`))
	}))
	defer srv.Close()

	snap, err := fetchCredits(srv.URL, map[string]string{"_session": "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Remaining != 750 || snap.Consumed != 250 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Total() != 1000 {
		t.Fatalf("total: want 1000 got %d", snap.Total())
	}
	if snap.Percentage() != 75.0 {
		t.Fatalf("percentage: want 75.0 got %v", snap.Percentage())
	}
	if snap.Permille() != 750 {
		t.Fatalf("permille: want 750 got %d", snap.Permille())
	}
	if !strings.Contains(gotCookie, "_session=tok") {
		t.Fatalf("cookie header missing session: %q", gotCookie)
	}
	if gotAccept != "application/json" {
		t.Fatalf("accept header: %q", gotAccept)
	}
}

func TestFetchCreditsMissingFieldsDefaultZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	snap, err := fetchCredits(srv.URL, map[string]string{"_session": "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Remaining != 0 || snap.Consumed != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Percentage() != 0.0 {
		t.Fatalf("zero total must not divide: got %v", snap.Percentage())
	}
}

func TestFetchCreditsAuthStatuses(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := fetchCredits(srv.URL, map[string]string{"_session": "expired"})
		srv.Close()
		if !errors.Is(err, errAuthRequired) {
			t.Fatalf("status %d: want errAuthRequired got %v", status, err)
		}
	}
}

func TestFetchCreditsEmptyJarSkipsNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	_, err := fetchCredits(srv.URL, nil)
	if !errors.Is(err, errAuthRequired) {
		t.Fatalf("want errAuthRequired got %v", err)
	}
	if hits != 0 {
		t.Fatalf("empty jar must not hit the network")
	}
}

func TestFetchCreditsTransientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := fetchCredits(srv.URL, map[string]string{"_session": "tok"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if errors.Is(err, errAuthRequired) {
				t.Fatalf("transient failure must not demand login: %v", err)
			}
		})
	}
}

func TestFetchCreditsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	_, err := fetchCredits(srv.URL, map[string]string{"_session": "tok"})
	if err == nil || errors.Is(err, errAuthRequired) {
		t.Fatalf("want transient network error, got %v", err)
	}
}

func TestFetchCreditsClampsNegatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"usageUnitsRemaining":-5,"usageUnitsConsumedThisBillingCycle":100}`))
	}))
	defer srv.Close()

	snap, err := fetchCredits(srv.URL, map[string]string{"_session": "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Remaining != 0 {
		t.Fatalf("remaining is non-negative, got %d", snap.Remaining)
	}
}
