package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/learnpreview/internal/adapter/driven/github"
)

func TestRawContentProber_Probe(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "present", status: http.StatusOK},
		{name: "missing", status: http.StatusNotFound},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodHead, r.Method)
				assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
				assert.Equal(t, "/MicrosoftDocs/azure-docs/main/.openpublishing.publish.config.json", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			prober := ghAdapter.NewRawContentProber(server.Client())
			status, err := prober.Probe(context.Background(),
				server.URL+"/MicrosoftDocs/azure-docs/main/.openpublishing.publish.config.json")

			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestRawContentProber_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	prober := ghAdapter.NewRawContentProber(nil)
	_, err := prober.Probe(context.Background(), url+"/x")

	require.Error(t, err)
}

func TestRawContentProber_InvalidURL(t *testing.T) {
	prober := ghAdapter.NewRawContentProber(nil)
	_, err := prober.Probe(context.Background(), "://bad")

	require.Error(t, err)
}
