package traceback

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracer(log LogSource) *Tracer {
	intro := fakeIntrospector{defs: map[string][]string{
		"FuncA": {
			"   function FuncA()",
			"Last set from /tmp/a.vim line 10",
		},
	}}
	fs := fakeFS{files: map[string][]string{"/tmp/a.vim": {""}}}
	return NewTracer(log, intro, fs, WriterSink{W: io.Discard})
}

func newTestServer(log LogSource) *Server {
	return NewServer(newTestTracer(log), "127.0.0.1:0", zap.NewNop())
}

func TestServer(t *testing.T) {
	goodLog := StringLogSource("Error detected while processing function FuncA:\n" +
		"line 2:\n" +
		"E121: Undefined variable: x\n")

	t.Run("trace as JSON", func(t *testing.T) {
		s := newTestServer(goodLog)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

		var list EntryList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Equal(t, DefaultTitle, list.Title)
		require.Len(t, list.Items, 2)
		assert.Equal(t, "0. FuncA[2]", list.Items[1].Text)
		assert.Equal(t, "/tmp/a.vim", list.Items[1].File)
		assert.Equal(t, 12, list.Items[1].Line)
	})

	t.Run("trace as plain text", func(t *testing.T) {
		s := newTestServer(goodLog)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/trace", nil)
		req.Header.Set("Accept", "text/plain")
		s.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, "E121: Undefined variable: x\n/tmp/a.vim:12: 0. FuncA[2]\n", rec.Body.String())
	})

	t.Run("no trace", func(t *testing.T) {
		s := newTestServer(StringLogSource("nothing\nto\nsee"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unparseable trace", func(t *testing.T) {
		s := newTestServer(StringLogSource("Error detected while processing function FuncA\n" +
			"line 1:\n" +
			"E000: whatever\n"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("invalid distance", func(t *testing.T) {
		s := newTestServer(goodLog)
		for _, q := range []string{"distance=zero", "distance=0", "distance=-1"} {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("distance widens the scan", func(t *testing.T) {
		log := StringLogSource("Error detected while processing function FuncA:\n" +
			"line 1:\n" +
			"E100: first\n" +
			"some unrelated output\n" +
			"more unrelated output\n" +
			"Error detected while processing function FuncA:\n" +
			"line 2:\n" +
			"E200: second\n")
		s := newTestServer(log)

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace", nil))
		var list EntryList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list.Items, 2)

		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/trace?distance=5", nil))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list.Items, 4)
	})

	t.Run("bind address falls back to configuration", func(t *testing.T) {
		tracer := newTestTracer(goodLog)
		tracer.Config.HTTPListenAddr = "127.0.0.1:9999"

		s := NewServer(tracer, "", zap.NewNop())
		assert.Equal(t, "127.0.0.1:9999", s.server.Addr)

		// An explicit address still wins over the configured one.
		s = NewServer(tracer, "127.0.0.1:7000", zap.NewNop())
		assert.Equal(t, "127.0.0.1:7000", s.server.Addr)
	})

	t.Run("healthz", func(t *testing.T) {
		s := newTestServer(goodLog)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
