package dnswire

import "encoding/binary"

// EDNS UDP payload size constants (RFC 6891).
const (
	DefaultUDPPayloadSize = 512
	MaxUDPPayloadSize     = 4096
)

// ExtractOPT finds the OPT pseudo-record in a records slice (normally
// Additionals) and reports its advertised UDP size and DO (DNSSEC OK) bit.
// It only reads an existing OPT record and never synthesizes ECS data;
// Forward's edns_client_subnet stub (spec §4.F) does not call it.
func ExtractOPT(additionals []Record) (rec Record, udpSize uint16, do bool, ok bool) {
	for _, r := range additionals {
		if RecordType(r.Type) != TypeOPT {
			continue
		}
		ttl := r.TTL
		return r, r.Class, (ttl>>15)&0x1 == 1, true
	}
	return Record{}, 0, false, false
}

// ClientMaxUDPSize returns the client's advertised EDNS UDP payload size,
// or DefaultUDPPayloadSize if no OPT record is present.
func ClientMaxUDPSize(p Packet) int {
	_, sz, _, ok := ExtractOPT(p.Additionals)
	if !ok || sz < DefaultUDPPayloadSize {
		return DefaultUDPPayloadSize
	}
	return int(sz)
}

// IsTruncated reports whether the TC bit is set in a wire-format message's
// flags.
func IsTruncated(msg []byte) bool {
	if len(msg) < 4 {
		return false
	}
	flags := binary.BigEndian.Uint16(msg[2:4])
	return flags&TCFlag != 0
}
