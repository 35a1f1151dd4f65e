package dnswire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Limits on incoming client queries, to bound resource use before the
// message is even parsed.
const (
	MaxIncomingMessageSize = 4096
	MaxQuestions           = 4
	MaxRRPerSection        = 100
	MaxTotalRR             = 200
)

// Query is a parsed client query plus its original wire bytes, retained
// verbatim for forwarding per spec §3.
type Query struct {
	Packet
	Raw []byte
}

// Question0 returns the query's single question; callers may assume it
// exists once ParseQuery has returned successfully.
func (q Query) Question0() Question {
	if len(q.Packet.Questions) == 0 {
		return Question{}
	}
	return q.Packet.Questions[0]
}

// ParseQuery parses and bounds-checks a client query (spec §4.A
// parse_query): a 12-byte header at fixed offsets, exactly one question
// whose name rejects compression pointers as FORMERR, and section counts
// within the limits above. The original bytes are retained on the
// returned Query for forwarding.
func ParseQuery(raw []byte) (Query, error) {
	if len(raw) > MaxIncomingMessageSize {
		return Query{}, fmt.Errorf("%w: message too large", ErrWire)
	}

	off := 0
	h, err := ParseHeader(raw, &off)
	if err != nil {
		return Query{}, err
	}
	if isResponse(h.Flags) {
		return Query{}, fmt.Errorf("%w: QR flag set on a query", ErrWire)
	}
	if opc := extractOpcode(h.Flags); opc != 0 {
		return Query{}, fmt.Errorf("%w: unsupported opcode %d", ErrWire, opc)
	}
	if err := validateSectionCounts(h); err != nil {
		return Query{}, err
	}

	questions := make([]Question, 0, 1)
	for range h.QDCount {
		q, err := ParseQuestionStrict(raw, &off)
		if err != nil {
			return Query{}, err
		}
		questions = append(questions, q)
	}
	ans, err := parseRecords(raw, &off, h.ANCount)
	if err != nil {
		return Query{}, err
	}
	auth, err := parseRecords(raw, &off, h.NSCount)
	if err != nil {
		return Query{}, err
	}
	add, err := parseRecords(raw, &off, h.ARCount)
	if err != nil {
		return Query{}, err
	}

	return Query{
		Packet: Packet{Header: h, Questions: questions, Answers: ans, Authorities: auth, Additionals: add},
		Raw:    raw,
	}, nil
}

func isResponse(flags uint16) bool { return (flags & QRFlag) != 0 }

func extractOpcode(flags uint16) uint16 { return (flags & OpcodeMask) >> 11 }

func validateSectionCounts(h Header) error {
	qd, an, ns, ar := int(h.QDCount), int(h.ANCount), int(h.NSCount), int(h.ARCount)
	if qd > MaxQuestions {
		return fmt.Errorf("%w: too many questions", ErrWire)
	}
	if qd != 1 {
		return fmt.Errorf("%w: unsupported question count %d", ErrWire, qd)
	}
	if an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection {
		return fmt.Errorf("%w: too many resource records in a section", ErrWire)
	}
	if an+ns+ar > MaxTotalRR {
		return fmt.Errorf("%w: too many total resource records", ErrWire)
	}
	return nil
}

// ParseQueryFromJSON synthesizes a Query from a `?name=`/JSON-form request
// (spec §4.A parse_query_from_json): type is accepted as an RR mnemonic
// (case-insensitive, unknown falls back to A) or as a bare number, the
// synthesized header carries a random id and flags=0x0100 (RD set), and
// exactly one question with qdcount=1 and all other counts zero.
func ParseQueryFromJSON(name, typ string) (Query, error) {
	qtype := resolveQueryType(typ)
	q := Question{Name: NormalizeName(name), Type: qtype, Class: uint16(ClassIN)}

	id, err := randomID()
	if err != nil {
		return Query{}, err
	}
	h := Header{ID: id, Flags: 0x0100, QDCount: 1}
	qb, err := q.Marshal()
	if err != nil {
		return Query{}, err
	}
	raw := append(h.Marshal(), qb...)

	return Query{
		Packet: Packet{Header: h, Questions: []Question{q}},
		Raw:    raw,
	}, nil
}

func resolveQueryType(typ string) uint16 {
	if typ == "" {
		return uint16(TypeA)
	}
	if n, err := strconv.ParseUint(typ, 10, 16); err == nil {
		return uint16(n)
	}
	if v, ok := rrTypeNames[strings.ToUpper(typ)]; ok {
		return v
	}
	return uint16(TypeA)
}

func randomID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: generating transaction id: %v", ErrWire, err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// BuildErrorResponse clones the query's id/RD/question and writes rcode
// into the response flags (spec §4.A build_error_response): QR is set,
// RD is preserved, and the low 4 bits carry rcode. No answer records are
// produced.
func BuildErrorResponse(q Query, rcode RCode) []byte {
	flags := buildResponseFlags(q.Header.Flags, uint16(rcode))
	h := Header{
		ID:      q.Header.ID,
		Flags:   flags,
		QDCount: uint16(len(q.Questions)),
	}
	p := Packet{Header: h, Questions: q.Questions}
	b, err := p.Marshal()
	if err != nil {
		// Questions were already validated when the query was parsed;
		// this can only fail if Marshal itself regresses.
		return h.Marshal()
	}
	return b
}

func buildResponseFlags(reqFlags, rcode uint16) uint16 {
	flags := QRFlag
	flags |= reqFlags & RDFlag
	rcode &= RCodeMask
	return (flags &^ RCodeMask) | rcode
}
