package plugins

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/reqctx"
	"github.com/stretchr/testify/require"
)

func newCtxFromQuery(t *testing.T, q dnswire.Query) *reqctx.Context {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/dns-query", nil)
	return reqctx.New(r, q.Raw)
}
