package reqctx

import (
	"net/http/httptest"
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/stretchr/testify/require"
)

func TestQueryDomainAndType(t *testing.T) {
	q, err := dnswire.ParseQueryFromJSON("Example.COM.", "A")
	require.NoError(t, err)
	ctx := New(httptest.NewRequest("GET", "/dns-query", nil), q.Raw)
	require.Equal(t, "example.com", ctx.QueryDomain())
	require.Equal(t, uint16(dnswire.TypeA), ctx.QueryType())
}

func TestAddTagIdempotent(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/dns-query", nil), nil)
	ctx.AddTag("a")
	ctx.AddTag("b")
	ctx.AddTag("a")
	require.Equal(t, []string{"a", "b"}, ctx.Metadata.Tags)
	require.True(t, ctx.HasTag("a"))
	require.False(t, ctx.HasTag("c"))
}

func TestSetResponseResolvesAndRunsHooks(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/dns-query", nil), nil)
	var captured []byte
	ctx.RegisterOnResponse(func(resp []byte) { captured = resp })
	ctx.SetResponse([]byte("hello"))
	require.True(t, ctx.Resolved)
	require.Equal(t, []byte("hello"), ctx.Response)
	require.Equal(t, []byte("hello"), captured)
}

func TestSetErrorDoesNotResolve(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/dns-query", nil), nil)
	ctx.SetError(dnswire.RCodeServFail)
	require.False(t, ctx.Resolved)
	require.NotNil(t, ctx.Error)
	require.Equal(t, dnswire.RCodeServFail, *ctx.Error)
}

func TestCloneIsIndependentAndDoesNotRunParentHooks(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/dns-query", nil), nil)
	var hookCalls int
	ctx.RegisterOnResponse(func([]byte) { hookCalls++ })

	clone := ctx.Clone()
	clone.SetResponse([]byte("from clone"))

	require.True(t, clone.Resolved)
	require.False(t, ctx.Resolved, "parent must be unaffected by a clone's own resolution")
	require.Equal(t, 0, hookCalls, "parent hooks must not fire from a clone's SetResponse")

	ctx.SetResponse(clone.Response)
	require.True(t, ctx.Resolved)
	require.Equal(t, 1, hookCalls, "merging the clone's response via the parent's SetResponse should run parent hooks")
}
