package connector

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/cti-comb/app/source"
)

func sourceKind(s string) source.Kind {
	return source.Kind(s)
}

// serve returns a test server answering every request with body.
func serve(t *testing.T, contentType, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
