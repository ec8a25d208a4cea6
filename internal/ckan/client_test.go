package ckan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espaidedades/ingest/pkg/dataset"
	"github.com/espaidedades/ingest/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(server.URL, "test-key")
	client.http.RetryMax = 0
	return client, server
}

func TestGroupShowFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/action/group_show", r.URL.Path)
		assert.Equal(t, "salut", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]string{"id": "abc", "name": "salut", "title": "Salut"},
		})
	})

	group, err := client.GroupShow(context.Background(), "salut")
	require.NoError(t, err)
	assert.Equal(t, "Salut", group.Title)
}

func TestNotFoundEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"__type": "Not Found Error", "message": "Not found"},
		})
	})

	err := client.PackageShow(context.Background(), "renda")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestNotFoundTypeWithOKStatus(t *testing.T) {
	// Some proxies rewrite the status; the __type marker alone must be
	// enough to classify the response as not found.
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"__type": "Not Found Error", "message": "Not found"},
		})
	})

	err := client.PackageShow(context.Background(), "renda")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestOtherAPIErrorIsNotNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"__type": "Validation Error", "message": "name taken"},
		})
	})

	err := client.PackageCreate(context.Background(), &dataset.Payload{Name: "renda"})
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "package_create", apiErr.Action)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestPackageCreateSendsPayload(t *testing.T) {
	var received dataset.Payload
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/3/action/package_create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": received})
	})

	payload := &dataset.Payload{
		Name:  "renda",
		Title: "Renda",
		State: "active",
		Type:  "dataset",
		Tags:  []dataset.Tag{{Name: "social"}},
	}
	require.NoError(t, client.PackageCreate(context.Background(), payload))
	assert.Equal(t, "renda", received.Name)
	assert.Equal(t, []dataset.Tag{{Name: "social"}}, received.Tags)
}

func TestNonJSONBodyCarriesStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	err := client.PackageShow(context.Background(), "renda")
	require.Error(t, err)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestAnonymousClientOmitsAuthHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	client.apiKey = ""

	require.NoError(t, client.PackageShow(context.Background(), "renda"))
}
