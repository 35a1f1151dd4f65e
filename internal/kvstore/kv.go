// Package kvstore implements the Data Loader (spec §4.D): three storage
// families (domains, ips, hosts) backed by an external KV collaborator,
// with a TTL-bounded in-process cache in front of it. It also ships a
// concrete SQLite-backed KV implementation so the proxy is runnable
// standalone.
package kvstore

import (
	"context"
	"fmt"
)

// KV is the external collaborator the core depends on (spec §6): a flat
// text store keyed by opaque strings. Keys are conventionally
// `<family>/<name>` but the core never inspects that structure itself.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Family identifies one of the three data-loader storage families (spec
// §4.D).
type Family string

const (
	FamilyDomains Family = "domains"
	FamilyIPs     Family = "ips"
	FamilyHosts   Family = "hosts"
)

func key(family Family, name string) string {
	return fmt.Sprintf("%s/%s", family, name)
}
