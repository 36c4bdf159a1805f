package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"usint/api/internal/obscat"
	"usint/api/internal/store"
)

func newTestServer(svc *Service) *httptest.Server {
	httpServer := NewHTTPServer(svc, "*", "X-Remote-User")
	return httptest.NewServer(httpServer.Handler())
}

func get(t *testing.T, server *httptest.Server, path, remoteUser string) (*http.Response, map[string]any) {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if remoteUser != "" {
		request.Header.Set("X-Remote-User", remoteUser)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer response.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response, payload
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}, &fakeSource{}, nil))
	defer server.Close()

	response, payload := get(t, server, "/api/health", "")
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want ok", payload)
	}
}

func TestMissingRemoteUserIsUnauthorized(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}, &fakeSource{}, nil))
	defer server.Close()

	response, payload := get(t, server, "/api/status", "")
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", response.StatusCode)
	}
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("payload = %v, want UNAUTHORIZED", payload)
	}
}

func TestObservationNotFoundMapsTo404(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}, &fakeSource{
		getObservationFn: func(_ context.Context, obsid int) (map[string]any, error) {
			return nil, fmt.Errorf("obsid %d: %w", obsid, obscat.ErrNotFound)
		},
	}, nil))
	defer server.Close()

	response, payload := get(t, server, "/api/observations/26123", "mta")
	if response.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", response.StatusCode)
	}
	if payload["code"] != "OBSID_NOT_FOUND" {
		t.Fatalf("payload = %v, want OBSID_NOT_FOUND", payload)
	}
}

func TestSignoffRouteSignsTrack(t *testing.T) {
	st := &fakeStore{
		ensureUserByUsernameFn: func(_ context.Context, username string) (store.User, error) {
			return store.User{ID: "u1", Username: username, Groups: "usint"}, nil
		},
		getSignoffFn: func(_ context.Context, signoffID string) (store.Signoff, error) {
			return store.Signoff{ID: signoffID, RevisionID: "rev1", General: store.TrackState{Status: store.StatusSigned}}, nil
		},
	}
	server := newTestServer(newTestService(st, &fakeSource{}, nil))
	defer server.Close()

	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/signoffs/so1/general", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("X-Remote-User", "mta")
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
}

func TestObsidValidation(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}, &fakeSource{}, nil))
	defer server.Close()

	response, payload := get(t, server, "/api/observations/notanumber", "mta")
	if response.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", response.StatusCode)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("payload = %v, want VALIDATION_ERROR", payload)
	}
}
