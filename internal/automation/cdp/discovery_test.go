package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VersionInfo{Browser: "AuroraView/1.0", ProtocolVersion: "1.3"})
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Target{
			{ID: "a", Type: "page", Title: "Tab A", URL: "https://a"},
			{ID: "b", Type: "background_page", Title: "Worker", URL: "https://b"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoveryVersion(t *testing.T) {
	srv := newDiscoveryServer(t)
	d := NewDiscovery(strings.TrimPrefix(srv.URL, "http://"))

	info, err := d.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AuroraView/1.0", info.Browser)
}

func TestDiscoveryTargetsFiltersByType(t *testing.T) {
	srv := newDiscoveryServer(t)
	d := NewDiscovery(strings.TrimPrefix(srv.URL, "http://"))

	pages, err := d.Targets(context.Background(), "page")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "a", pages[0].ID)
}

func TestDiscoveryTargetsReturnsAllWhenTypeEmpty(t *testing.T) {
	srv := newDiscoveryServer(t)
	d := NewDiscovery(strings.TrimPrefix(srv.URL, "http://"))

	all, err := d.Targets(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDiscoveryErrorsOnUnreachableHost(t *testing.T) {
	d := NewDiscovery("127.0.0.1:1")
	_, err := d.Version(context.Background())
	assert.Error(t, err)
}
