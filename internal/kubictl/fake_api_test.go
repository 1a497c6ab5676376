package kubictl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeAPI is an in-memory core API covering the routes kubictl calls.
type fakeAPI struct {
	mu         sync.Mutex
	services   map[string][]map[string]any // project -> services
	variables  map[string]map[string]any   // service -> key -> body
	references map[string]bool             // consumer|source|key
	created    []string
	nextID     int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		services:   map[string][]map[string]any{},
		variables:  map[string]map[string]any{},
		references: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/{projectID}/services", f.listServices)
	mux.HandleFunc("POST /api/v1/projects/{projectID}/services", f.createService)
	mux.HandleFunc("PUT /api/v1/services/{id}/variables/{key}", f.setVariable)
	mux.HandleFunc("POST /api/v1/services/{id}/references", f.addReference)

	srv := httptest.NewServer(requireToken(mux))
	t.Cleanup(srv.Close)
	return f, srv
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) listServices(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.services[r.PathValue("projectID")]
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *fakeAPI) createService(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	body["id"] = fmt.Sprintf("svc-%d", f.nextID)
	body["subdomain"] = fmt.Sprintf("%s-x7k2p9", body["name"])
	project := r.PathValue("projectID")
	f.services[project] = append(f.services[project], body)
	f.created = append(f.created, body["name"].(string))
	writeJSON(w, http.StatusCreated, body)
}

func (f *fakeAPI) setVariable(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if f.variables[id] == nil {
		f.variables[id] = map[string]any{}
	}
	f.variables[id][r.PathValue("key")] = body
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) addReference(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%s", r.PathValue("id"), body["source_service_id"], body["key"])
	if f.references[key] {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict: reference already exists"})
		return
	}
	f.references[key] = true
	writeJSON(w, http.StatusCreated, map[string]any{"id": "ref-1"})
}
