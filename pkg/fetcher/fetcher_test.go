package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	resp, err := New().Get(context.Background(), srv.URL+"/a.mp3")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, DefaultHeaders["User-Agent"], got.Get("User-Agent"))
	assert.Equal(t, DefaultHeaders["Referer"], got.Get("Referer"))
	assert.Equal(t, "audio/mpeg", resp.ContentType)
	assert.EqualValues(t, 3, resp.ContentLength)
}

func TestGet_WithHeadersOverrides(t *testing.T) {
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
	}))
	defer srv.Close()

	resp, err := New(WithHeaders(map[string]string{"Referer": "https://other.example/"})).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://other.example/", referer)
}

func TestGet_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new.mp3", http.StatusFound)
	})
	mux.HandleFunc("/new.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New().Get(context.Background(), srv.URL+"/old.mp3")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data", string(body))
	assert.Equal(t, srv.URL+"/new.mp3", resp.FinalURL)
}

func TestGet_HTTPErrors(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		forbidden bool
	}{
		{http.StatusForbidden, ErrorTypeForbidden, true},
		{http.StatusNotFound, ErrorTypeHTTP, false},
		{http.StatusInternalServerError, ErrorTypeHTTP, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New().Get(context.Background(), srv.URL)
			require.Error(t, err)

			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.forbidden, httpErr.Forbidden())
			assert.Equal(t, tt.wantType, ErrorType(err))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(WithTimeout(50*time.Millisecond)).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, ErrorType(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestGet_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Get(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCanceled, ErrorType(err))
}

func TestGet_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New().Get(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeNetwork, ErrorType(err))
}

func TestGet_SlowSteadyBodyIsNotCutOff(t *testing.T) {
	const chunks = 10
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		chunk := make([]byte, 1024)
		for i := 0; i < chunks; i++ {
			_, _ = w.Write(chunk)
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer srv.Close()

	// The whole transfer takes about a second, far past the timeout.
	resp, err := New(WithTimeout(400*time.Millisecond)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, chunks*1024)
}

func TestGet_StalledBodyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(make([]byte, 512))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	resp, err := New(WithTimeout(150*time.Millisecond)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdleTimeout)
	assert.Equal(t, ErrorTypeTimeout, ErrorType(err))
	assert.Len(t, body, 512)
}
