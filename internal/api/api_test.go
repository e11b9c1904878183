package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

// testEnv wires a temp SQLite archive, a fast-debounce engine, both caches,
// and the router.
func testEnv(t *testing.T) (*engine.Engine, store.Archive, http.Handler) {
	t.Helper()

	db := testutil.Archive(t)

	eng := engine.New(engine.Options{DebounceMs: 10}, nil)
	t.Cleanup(eng.Close)

	h := NewHandler(eng, db, engine.NewQueryCache(4), engine.NewBlobCache(1<<20))
	return eng, db, NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func ingestDrive(t *testing.T, router http.Handler) {
	t.Helper()
	batch := []map[string]any{
		{"id": "p1", "lat": 48.1000, "lon": 11.50, "sequence": "Drive-1", "timestamp": 100},
		{"id": "p2", "lat": 48.1004, "lon": 11.50, "sequence": "Drive-1", "timestamp": 200},
		{"id": "p3", "lat": 48.1008, "lon": 11.50, "sequence": "Drive-1", "timestamp": 300},
	}
	w := doJSON(t, router, http.MethodPost, "/points", batch)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestIngestReportsSkips(t *testing.T) {
	_, db, router := testEnv(t)

	batch := []map[string]any{
		{"id": "p1", "lat": 48.1, "lon": 11.5, "sequence": "drive-1"},
		{"id": "p2", "lat": 48.2, "lon": 11.6, "sequence": "drive-1"},
		{"id": "", "lat": 1.0, "lon": 1.0},
		{"id": "no-coords"},
	}
	w := doJSON(t, router, http.MethodPost, "/points", batch)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 2 || res.Updated != 0 || len(res.Skipped) != 2 {
		t.Errorf("result = %+v", res)
	}

	// Skipped records never reach the archive.
	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("archive count = %d, want 2", n)
	}
}

func TestIngestValidation(t *testing.T) {
	_, _, router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/points", []map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/points", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestListSequencesAndOrder(t *testing.T) {
	_, _, router := testEnv(t)
	ingestDrive(t, router)

	w := doJSON(t, router, http.MethodGet, "/sequences", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sequences status = %d", w.Code)
	}
	var list SequenceListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Sequences) != 1 || list.Sequences[0].ID != "drive-1" || list.Sequences[0].Size != 3 {
		t.Errorf("sequences = %+v", list.Sequences)
	}

	// Tag lookup is case-insensitive; order follows timestamps.
	w = doJSON(t, router, http.MethodGet, "/sequences/Drive-1/order", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("order status = %d, body = %s", w.Code, w.Body.String())
	}
	var order OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatal(err)
	}
	want := []string{"p1", "p2", "p3"}
	if order.Sequence != "drive-1" || len(order.Order) != 3 {
		t.Fatalf("order = %+v", order)
	}
	for i, id := range want {
		if order.Order[i] != id {
			t.Errorf("order[%d] = %q, want %q", i, order.Order[i], id)
		}
	}

	w = doJSON(t, router, http.MethodGet, "/sequences/nope/order", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown sequence status = %d, want 404", w.Code)
	}
}

func TestSequenceSegments(t *testing.T) {
	_, _, router := testEnv(t)
	ingestDrive(t, router)

	w := doJSON(t, router, http.MethodGet, "/sequences/drive-1/segments?zoom=18", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("segments status = %d, body = %s", w.Code, w.Body.String())
	}
	var res SegmentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Zoom != 18 || len(res.Segments) != 1 || len(res.Segments[0].Points) != 3 {
		t.Errorf("segments = %+v", res)
	}

	w = doJSON(t, router, http.MethodGet, "/sequences/drive-1/segments", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing zoom status = %d, want 400", w.Code)
	}

	// The overview endpoint covers every sequence at once.
	w = doJSON(t, router, http.MethodGet, "/segments?zoom=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("all segments status = %d", w.Code)
	}
	var all struct {
		Segments []models.Segment `json:"segments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all.Segments) != 1 || all.Segments[0].SequenceID != "drive-1" {
		t.Errorf("all segments = %+v", all.Segments)
	}
}

func TestPointLinksAndPick(t *testing.T) {
	_, _, router := testEnv(t)
	ingestDrive(t, router)

	w := doJSON(t, router, http.MethodGet, "/points/p2/links", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("links status = %d, body = %s", w.Code, w.Body.String())
	}
	var links struct {
		Next *struct {
			To string `json:"to"`
		} `json:"next"`
		Prev *struct {
			To string `json:"to"`
		} `json:"prev"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &links); err != nil {
		t.Fatal(err)
	}
	if links.Next == nil || links.Next.To != "p3" {
		t.Errorf("next = %+v", links.Next)
	}
	if links.Prev == nil || links.Prev.To != "p1" {
		t.Errorf("prev = %+v", links.Prev)
	}

	// Looking north from p2 picks the northward neighbor p3.
	w = doJSON(t, router, http.MethodGet, "/points/p2/pick?yaw=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pick status = %d, body = %s", w.Code, w.Body.String())
	}
	var pick PickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &pick); err != nil {
		t.Fatal(err)
	}
	if pick.Link == nil || pick.Link.To != "p3" {
		t.Errorf("pick = %+v", pick.Link)
	}

	// A tight tolerance looking east matches nothing; still 200 with null.
	w = doJSON(t, router, http.MethodGet, "/points/p2/pick?yaw=90&maxDelta=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pick status = %d", w.Code)
	}
	pick = PickResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &pick); err != nil {
		t.Fatal(err)
	}
	if pick.Link != nil {
		t.Errorf("pick = %+v, want null", pick.Link)
	}

	w = doJSON(t, router, http.MethodGet, "/points/ghost/pick?yaw=0", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown point status = %d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/points/p2/pick", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing yaw status = %d, want 400", w.Code)
	}
}

func TestDeletePoint(t *testing.T) {
	_, db, router := testEnv(t)
	ingestDrive(t, router)

	w := doJSON(t, router, http.MethodDelete, "/points/p2", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/points/p2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("archive count = %d, want 2", n)
	}
}

func TestQueryViewportCaching(t *testing.T) {
	_, _, router := testEnv(t)
	ingestDrive(t, router)

	url := "/points?bbox=48.0,11.0,48.2,12.0&zoom=14"
	w := doJSON(t, router, http.MethodGet, url, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("viewport status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ViewportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != 3 || res.Cached {
		t.Errorf("first query = %d points, cached=%v", len(res.Points), res.Cached)
	}

	// Same bucket again: served from cache.
	w = doJSON(t, router, http.MethodGet, url, nil)
	res = ViewportResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != 3 || !res.Cached {
		t.Errorf("second query = %d points, cached=%v", len(res.Points), res.Cached)
	}

	w = doJSON(t, router, http.MethodGet, "/points?bbox=48.0,11.0,48.2&zoom=14", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad bbox status = %d, want 400", w.Code)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	_, _, router := testEnv(t)

	blob := []byte("fake-jpeg-bytes")
	req := httptest.NewRequest(http.MethodPut, "/blobs/p1.jpg", bytes.NewReader(blob))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	w2 := doJSON(t, router, http.MethodGet, "/blobs/p1.jpg", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("get status = %d", w2.Code)
	}
	if !bytes.Equal(w2.Body.Bytes(), blob) {
		t.Errorf("blob = %q", w2.Body.String())
	}

	w2 = doJSON(t, router, http.MethodGet, "/blobs/missing.jpg", nil)
	if w2.Code != http.StatusNotFound {
		t.Errorf("missing blob status = %d, want 404", w2.Code)
	}
}

func TestIngestUpdatesExisting(t *testing.T) {
	eng, _, router := testEnv(t)
	ingestDrive(t, router)

	batch := []map[string]any{
		{"id": "p1", "lat": 48.1001, "lon": 11.50, "sequence": "drive-1", "timestamp": 100},
	}
	w := doJSON(t, router, http.MethodPost, "/points", batch)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Errorf("result = %+v", res)
	}

	p, err := eng.Point("p1")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%.4f", p.Lat) != "48.1001" {
		t.Errorf("lat = %v", p.Lat)
	}
}
