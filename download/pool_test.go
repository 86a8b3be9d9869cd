package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/biobricks-ai/openfda/manifest"
)

func TestFetchAllIndependentFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	root := t.TempDir()
	f := newTestFetcher(t, root)

	entries := []manifest.Entry{
		{DataType: "drug", Field: "event", Index: 0, URL: srv.URL + "/drug/event/q1/good-1.json", ExportDate: "2024-01-12"},
		{DataType: "drug", Field: "event", Index: 1, URL: srv.URL + "/drug/event/q1/bad-1.json", ExportDate: "2024-01-12"},
		{DataType: "drug", Field: "event", Index: 2, URL: srv.URL + "/drug/event/q1/good-2.json", ExportDate: "2024-01-12"},
	}
	var mu sync.Mutex
	var results []Result
	sum := f.FetchAll(context.Background(), entries, 4, false, func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})
	if sum.Updated != 2 || sum.Failed != 1 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestFetchAllBoundedConcurrency(t *testing.T) {
	var inFlight, maxInFlight int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			max := atomic.LoadInt64(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt64(&maxInFlight, max, n) {
				break
			}
		}
		defer atomic.AddInt64(&inFlight, -1)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	root := t.TempDir()
	f := newTestFetcher(t, root)

	var entries []manifest.Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, manifest.Entry{
			DataType: "drug", Field: "event", Index: i,
			URL:        fmt.Sprintf("%s/drug/event/q1/part-%04d.json", srv.URL, i),
			ExportDate: "2024-01-12",
		})
	}
	sum := f.FetchAll(context.Background(), entries, 2, false, nil)
	if sum.Updated != 20 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if got := atomic.LoadInt64(&maxInFlight); got > 2 {
		t.Fatalf("concurrency bound violated: saw %d in flight", got)
	}
}

func TestFetchAllFailFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	root := t.TempDir()
	f := newTestFetcher(t, root)

	var entries []manifest.Entry
	for i := 0; i < 50; i++ {
		entries = append(entries, manifest.Entry{
			DataType: "drug", Field: "event", Index: i,
			URL:        fmt.Sprintf("%s/drug/event/q1/part-%04d.json", srv.URL, i),
			ExportDate: "2024-01-12",
		})
	}
	sum := f.FetchAll(context.Background(), entries, 1, true, nil)
	if sum.Failed == 0 {
		t.Fatal("expected at least one failure")
	}
	total := sum.Updated + sum.Skipped + sum.Failed
	if total == 50 {
		t.Log("all entries were attempted before cancellation took effect")
	}
	if total > 50 {
		t.Fatalf("more results than entries: %d", total)
	}
}

func TestSidecarStore(t *testing.T) {
	root := t.TempDir()
	s := NewSidecarStore(root)
	if _, ok, err := s.Get("drug/q1/part.json"); err != nil || ok {
		t.Fatalf("missing marker: ok=%v err=%v", ok, err)
	}
	if err := s.Put("drug/q1/part.json", "Fri, 12 Jan 2024 10:30:00 GMT"); err != nil {
		t.Fatalf("putting marker: %v", err)
	}
	v, ok, err := s.Get("drug/q1/part.json")
	if err != nil || !ok {
		t.Fatalf("getting marker: ok=%v err=%v", ok, err)
	}
	if v != "Fri, 12 Jan 2024 10:30:00 GMT" {
		t.Fatalf("unexpected marker: %q", v)
	}
	if err := s.Put("drug/q1/part.json", "Sat, 13 Jan 2024 10:30:00 GMT"); err != nil {
		t.Fatalf("overwriting marker: %v", err)
	}
	v, _, _ = s.Get("drug/q1/part.json")
	if v != "Sat, 13 Jan 2024 10:30:00 GMT" {
		t.Fatalf("marker not overwritten: %q", v)
	}
}
