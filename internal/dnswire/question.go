package dnswire

import (
	"encoding/binary"
	"fmt"
)

// Question is a single DNS question-section entry (RFC 1035 §4.1.2).
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Marshal serializes the question to wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(name)+4)
	b = append(b, name...)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], q.Type)
	binary.BigEndian.PutUint16(buf[2:4], q.Class)
	return append(b, buf...), nil
}

// ParseQuestion parses a question, following compression pointers in its
// name if present — used when parsing upstream responses, which may echo
// the question compressed against the header.
func ParseQuestion(msg []byte, off *int) (Question, error) {
	return parseQuestion(msg, off, DecodeName)
}

// ParseQuestionStrict parses a question, rejecting any compression pointer
// in its name — used when parsing client queries, where the core's own
// questions never use compression (spec §4.A).
func ParseQuestionStrict(msg []byte, off *int) (Question, error) {
	return parseQuestion(msg, off, DecodeNameNoCompression)
}

func parseQuestion(msg []byte, off *int, decode func([]byte, *int) (string, error)) (Question, error) {
	name, err := decode(msg, off)
	if err != nil {
		return Question{}, err
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: unexpected EOF reading question", ErrWire)
	}
	q := Question{
		Name:  NormalizeName(name),
		Type:  binary.BigEndian.Uint16(msg[*off : *off+2]),
		Class: binary.BigEndian.Uint16(msg[*off+2 : *off+4]),
	}
	*off += 4
	return q, nil
}
