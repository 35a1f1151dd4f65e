package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	values map[string]string
	calls  int
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.calls++
	v, ok := f.values[key]
	return v, ok, nil
}

func TestLoadDomainsParsesAndCaches(t *testing.T) {
	fk := &fakeKV{values: map[string]string{
		"domains/block": "# comment\nads.example.com\n\nTRACKER.example.com\n",
	}}
	l := NewLoader(fk, nil)

	set, err := l.LoadDomains(context.Background(), "block")
	require.NoError(t, err)
	require.Contains(t, set, "ads.example.com")
	require.Contains(t, set, "tracker.example.com")
	require.Equal(t, 1, fk.calls)

	_, err = l.LoadDomains(context.Background(), "block")
	require.NoError(t, err)
	require.Equal(t, 1, fk.calls, "second load should hit the in-process cache, not the KV")
}

func TestLoadDomainsMissingKeyReturnsEmptySet(t *testing.T) {
	fk := &fakeKV{values: map[string]string{}}
	l := NewLoader(fk, nil)

	set, err := l.LoadDomains(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, set)
}

func TestLoadIPsParsesLines(t *testing.T) {
	fk := &fakeKV{values: map[string]string{
		"ips/allow": "192.0.2.0/24\n10.0.0.1\n# comment\n",
	}}
	l := NewLoader(fk, nil)

	ips, err := l.LoadIPs(context.Background(), "allow")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"192.0.2.0/24", "10.0.0.1"}, ips)
}

func TestLoadHostsParsesTwoFieldLines(t *testing.T) {
	fk := &fakeKV{values: map[string]string{
		"hosts/local": "127.0.0.1 router.lan\nmalformed-line-one-field\n10.0.0.2 nas.lan\n",
	}}
	l := NewLoader(fk, nil)

	hosts, err := l.LoadHosts(context.Background(), "local")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", hosts["router.lan"])
	require.Equal(t, "10.0.0.2", hosts["nas.lan"])
	require.Len(t, hosts, 2)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	fk := &fakeKV{values: map[string]string{"domains/x": "a.com\n"}}
	l := NewLoader(fk, nil).WithFamilyTTL(FamilyDomains, time.Millisecond)

	_, err := l.LoadDomains(context.Background(), "x")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = l.LoadDomains(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, 2, fk.calls, "expired entry should re-fetch from KV")
}

func TestClearCacheForcesReload(t *testing.T) {
	fk := &fakeKV{values: map[string]string{"domains/x": "a.com\n"}}
	l := NewLoader(fk, nil)

	_, _ = l.LoadDomains(context.Background(), "x")
	l.ClearCache(FamilyDomains)
	_, _ = l.LoadDomains(context.Background(), "x")
	require.Equal(t, 2, fk.calls)
}

func TestStatsCountsCachedKeys(t *testing.T) {
	fk := &fakeKV{values: map[string]string{
		"domains/a": "x.com\n",
		"ips/b":     "1.2.3.4\n",
	}}
	l := NewLoader(fk, nil)

	_, _ = l.LoadDomains(context.Background(), "a")
	_, _ = l.LoadIPs(context.Background(), "b")

	stats := l.Stats()
	require.Equal(t, 1, stats["domains"])
	require.Equal(t, 1, stats["ips"])
	require.Equal(t, 0, stats["hosts"])
}
