// Package dnswire implements the RFC 1035 DNS wire format: parsing queries,
// synthesizing responses, and extracting answer records. It also implements
// the DoH-specific base64url encoding (RFC 4648 §5, no padding).
package dnswire

import "errors"

// ErrWire is the sentinel for wire-format violations. Wrap it with
// fmt.Errorf("...: %w", ErrWire) to add context.
var ErrWire = errors.New("dns wire error")
