package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/regwatchio/regwatch/internal/monitor"
)

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "regwatch-test/1.0", r.UserAgent())
		_, _ = w.Write([]byte("regulation v1"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "regwatch-test/1.0", Timeout: 5 * time.Second})
	res := f.Fetch(context.Background(), monitor.Source{ID: "src-1", URL: srv.URL})

	require.Equal(t, monitor.FetchOK, res.Kind)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []byte("regulation v1"), res.Body)
}

func TestFetchConcurrent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("regulation v1"))
	}))
	defer srv.Close()

	// Collector clones share the HTTP backend; parallel fetches must not
	// touch shared client state.
	f := New(Config{Timeout: 5 * time.Second})
	var wg sync.WaitGroup
	results := make([]monitor.FetchResult, 8)
	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = f.Fetch(context.Background(), monitor.Source{ID: "src-1", URL: srv.URL})
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.Equal(t, monitor.FetchOK, res.Kind)
		require.Equal(t, []byte("regulation v1"), res.Body)
	}
}

func TestFetchHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "server exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	res := f.Fetch(context.Background(), monitor.Source{ID: "src-1", URL: srv.URL})

	require.Equal(t, monitor.FetchHTTPFailure, res.Kind)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Empty(t, res.Body)
}

func TestFetchTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	res := f.Fetch(context.Background(), monitor.Source{ID: "src-1", URL: url})

	require.Equal(t, monitor.FetchTransportFailure, res.Kind)
	require.Error(t, res.Err)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	ok := classify(http.StatusOK, []byte("body"), nil, nil)
	require.Equal(t, monitor.FetchOK, ok.Kind)

	notFound := classify(http.StatusNotFound, nil, errors.New("Not Found"), nil)
	require.Equal(t, monitor.FetchHTTPFailure, notFound.Kind)
	require.Equal(t, http.StatusNotFound, notFound.StatusCode)

	timeout := classify(0, nil, errors.New("context deadline exceeded"), nil)
	require.Equal(t, monitor.FetchTransportFailure, timeout.Kind)
	require.Error(t, timeout.Err)
}
