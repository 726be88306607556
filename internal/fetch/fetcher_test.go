package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	content, err := fetcher.Fetch(context.Background(), server.URL+"/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), content)
}

func TestHTTPFetcher_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.jpg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}
