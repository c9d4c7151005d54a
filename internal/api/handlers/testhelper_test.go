package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aifeed/aifeed/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. The
// database is closed when the test completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// withURLParam attaches a chi route context carrying one URL parameter.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshalling body: %v", err)
	}
	return bytes.NewBuffer(b)
}
