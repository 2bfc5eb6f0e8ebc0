// Package testutil provides a fake content API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/models"
)

// TestKey is the shared secret the fake content API expects.
const TestKey = "test-key"

type failure struct {
	method  string
	status  int
	message string
}

// ContentAPI is an in-memory stand-in for the remote content store.
type ContentAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	nextID    int
	docs      map[string][]map[string]any
	singleton map[string]any
	failures  []failure
	requests  map[string]int
	lastQuery url.Values
}

// NewContentAPI starts a fake content API that is closed on test cleanup.
func NewContentAPI(t *testing.T) *ContentAPI {
	t.Helper()
	f := &ContentAPI{
		docs:      make(map[string][]map[string]any),
		singleton: map[string]any{},
		requests:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(f.middleware)
	r.Get("/content", f.getContent)
	r.Put("/content", f.putContent)
	r.Get("/{res}", f.list)
	r.Post("/{res}", f.create)
	r.Put("/{res}/reorder", f.reorder)
	r.Get("/{res}/{id}", f.get)
	r.Patch("/{res}/{id}", f.patch)
	r.Delete("/{res}/{id}", f.remove)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake API.
func (f *ContentAPI) URL() string {
	return f.Server.URL
}

// Seed stores records in a collection and returns their assigned ids.
func (f *ContentAPI) Seed(t *testing.T, res string, records ...any) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		doc := toMap(t, rec)
		f.nextID++
		id := strconv.Itoa(f.nextID)
		doc["_id"] = id
		f.docs[res] = append(f.docs[res], doc)
		ids = append(ids, id)
	}
	return ids
}

// FailNext makes the next request with method fail with status and message.
func (f *ContentAPI) FailNext(method string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, failure{method: method, status: status, message: message})
}

// Requests returns how many requests hit "METHOD /path".
func (f *ContentAPI) Requests(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

// LastQuery returns the query string of the most recent request.
func (f *ContentAPI) LastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

// Doc returns a stored record, or nil.
func (f *ContentAPI) Doc(res, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(res, id); i >= 0 {
		return f.docs[res][i]
	}
	return nil
}

// Count returns the number of records in a collection.
func (f *ContentAPI) Count(res string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[res])
}

func (f *ContentAPI) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.Method+" "+r.URL.Path]++
		f.lastQuery = r.URL.Query()
		var fail *failure
		for i, fl := range f.failures {
			if fl.method == r.Method {
				fl := fl
				fail = &fl
				f.failures = append(f.failures[:i:i], f.failures[i+1:]...)
				break
			}
		}
		f.mu.Unlock()

		if r.Header.Get("x-api-key") != TestKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid api key"})
			return
		}
		if fail != nil {
			writeJSON(w, fail.status, map[string]string{"message": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *ContentAPI) index(res, id string) int {
	for i, d := range f.docs[res] {
		if d["_id"] == id {
			return i
		}
	}
	return -1
}

func (f *ContentAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := chi.URLParam(r, "res")
	filter, search := r.URL.Query().Get("filter"), r.URL.Query().Get("search")
	items := []map[string]any{}
	for _, doc := range f.docs[res] {
		if matches(res, doc, filter, search) {
			items = append(items, doc)
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// matches applies the server-side filter and search the way the real store
// does for the record type behind res.
func matches(res string, doc map[string]any, filter, search string) bool {
	if filter == "" && search == "" {
		return true
	}
	switch res {
	case "messages":
		return matchesAs[models.Message](doc, filter, search)
	case "reviews":
		return matchesAs[models.Review](doc, filter, search)
	case "blogs":
		return matchesAs[models.BlogPost](doc, filter, search)
	case "skills":
		return matchesAs[models.Skill](doc, filter, search)
	case "education":
		return matchesAs[models.Education](doc, filter, search)
	case "projects":
		return matchesAs[models.Project](doc, filter, search)
	case "experience":
		return matchesAs[models.Experience](doc, filter, search)
	}
	return true
}

func matchesAs[T models.Record](doc map[string]any, filter, search string) bool {
	var rec T
	b, err := json.Marshal(doc)
	if err != nil || json.Unmarshal(b, &rec) != nil {
		return false
	}
	return (filter == "" || rec.MatchesFilter(filter)) && models.MatchesSearch(rec, search)
}

func (f *ContentAPI) create(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	res := chi.URLParam(r, "res")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	doc["_id"] = strconv.Itoa(f.nextID)
	f.docs[res] = append(f.docs[res], doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (f *ContentAPI) get(w http.ResponseWriter, r *http.Request) {
	res, id := chi.URLParam(r, "res"), chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(res, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, f.docs[res][i])
}

func (f *ContentAPI) patch(w http.ResponseWriter, r *http.Request) {
	var p map[string]any
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	res, id := chi.URLParam(r, "res"), chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(res, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "record not found"})
		return
	}
	for k, v := range p {
		if k == "_id" {
			continue
		}
		f.docs[res][i][k] = v
	}
	writeJSON(w, http.StatusOK, f.docs[res][i])
}

func (f *ContentAPI) remove(w http.ResponseWriter, r *http.Request) {
	res, id := chi.URLParam(r, "res"), chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(res, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "record not found"})
		return
	}
	f.docs[res] = append(f.docs[res][:i], f.docs[res][i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (f *ContentAPI) reorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	res := chi.URLParam(r, "res")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(body.IDs) != len(f.docs[res]) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "ids must list every record"})
		return
	}
	ordered := make([]map[string]any, 0, len(body.IDs))
	for pos, id := range body.IDs {
		i := f.index(res, id)
		if i < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("unknown id %s", id)})
			return
		}
		doc := f.docs[res][i]
		doc["order"] = pos
		ordered = append(ordered, doc)
	}
	f.docs[res] = ordered
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

func (f *ContentAPI) getContent(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.singleton)
}

func (f *ContentAPI) putContent(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc["_id"] = "site"
	f.singleton = doc
	writeJSON(w, http.StatusOK, doc)
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatal(err)
	}
	if d, ok := v.(interface{ DerivedFields() []string }); ok {
		for _, k := range d.DerivedFields() {
			delete(m, k)
		}
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
