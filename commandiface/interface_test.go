package commandiface_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/commandiface"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	c     *unify.Container
	iface *commandiface.Interface
	cache *testutil.Cache
}

func start(t *testing.T, opts ...unify.ComponentOption) fixture {
	t.Helper()

	settings := append([]unify.ComponentOption{unify.WithSetting("address", "127.0.0.1:0")}, opts...)
	cfg := testutil.NewConfigBuilder(t).
		WithComponent(unify.CommandInterfaceName, (*commandiface.Interface)(nil), settings...).
		WithComponent("cache", (*testutil.Cache)(nil)).
		WithProperty(unify.PropertyCommandInterface, true).
		Build()

	c := testutil.Start(t, cfg, unify.WithRegisterer(prometheus.NewRegistry()))
	return fixture{
		c:     c,
		iface: testutil.Get[*commandiface.Interface](t, c, unify.CommandInterfaceName),
		cache: testutil.Get[*testutil.Cache](t, c, "cache"),
	}
}

func (f fixture) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	f.iface.Handler().ServeHTTP(rec, req)
	return rec
}

func TestInterface_Diagnostics(t *testing.T) {
	f := start(t)

	t.Run("health", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, f.c.ID(), body["id"])
	})

	t.Run("request context", func(t *testing.T) {
		tests := []struct {
			name    string
			header  []string
			locale  string
			session string
		}{
			{"container locale", nil, "en", ""},
			{"accept language", []string{"Accept-Language", "fr-CH, fr;q=0.9"}, "fr-CH", ""},
			{"session header", []string{commandiface.SessionHeader, "s-1"}, "en", "s-1"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodGet, "/health", "", tt.header...)
				require.Equal(t, http.StatusOK, rec.Code)

				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.locale, body["locale"])
				if tt.session != "" {
					assert.Equal(t, tt.session, body["session"])
				} else {
					assert.NotEmpty(t, body["session"], "falls back to the request id")
				}
			})
		}
	})

	t.Run("info", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/info", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["started"])
		assert.Equal(t, []any{unify.CommandInterfaceName}, body["interfaces"])
		assert.Contains(t, body["broadcasts"], "cache.Invalidate")
	})

	t.Run("graph", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/graph", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "digraph")
		assert.Contains(t, rec.Header().Get("Content-Type"), "graphviz")
	})

	t.Run("metrics", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "unify_container_instantiations_total")
	})
}

func TestInterface_Commands(t *testing.T) {
	f := start(t)

	t.Run("params from the body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/commands/cache.Invalidate", `{"params":["a","b"]}`)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		testutil.WaitFor(t, func() bool { return len(f.cache.Invalidated()) == 1 })
		assert.Equal(t, []string{"a", "b"}, f.cache.Invalidated()[0])
	})

	t.Run("params from the query", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/commands/cache.Invalidate?param=x&param=y", "")
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		testutil.WaitFor(t, func() bool { return len(f.cache.Invalidated()) == 2 })
		assert.Equal(t, []string{"x", "y"}, f.cache.Invalidated()[1])
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/commands/cache.Flush", `{"params":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/commands/cache.Flush", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestInterface_Token(t *testing.T) {
	f := start(t, unify.WithSetting("token", "s3cr3t"))

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"not bearer", []string{"Authorization", "Basic s3cr3t"}, http.StatusUnauthorized},
		{"valid", []string{"Authorization", "Bearer s3cr3t"}, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/commands/cache.Flush", "", tt.header...)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("diagnostics stay open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	})
}

func TestInterface_Serving(t *testing.T) {
	f := start(t)

	require.True(t, f.iface.IsServicingRequests())
	addr := f.iface.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post("http://"+addr.String()+"/commands/"+unify.ShutdownCommand, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	testutil.WaitFor(t, func() bool {
		_, err := f.c.GetComponent("cache")
		return errors.Is(err, unify.ErrContainerShutdown)
	})
	testutil.WaitFor(t, func() bool { return !f.iface.IsServicingRequests() })
	assert.Nil(t, f.iface.Addr())

	rec := f.do(t, http.MethodPost, "/commands/cache.Flush", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
