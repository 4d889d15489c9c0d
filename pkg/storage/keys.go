package storage

import (
	"encoding/binary"
	"fmt"
)

// Key schema:
//
//	run:<runID>               → RunRecord (JSON)
//	evt:<runID>:<8-byte seq>  → flow.Event (gob)
//
// Sequence numbers are big-endian so a prefix scan returns events in
// emission order.
const (
	prefixRun   = "run:"
	prefixEvent = "evt:"
)

func runKey(runID string) []byte {
	return []byte(prefixRun + runID)
}

func runPrefix() []byte {
	return []byte(prefixRun)
}

func eventPrefix(runID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixEvent, runID))
}

func eventKey(runID string, seq uint64) []byte {
	k := eventPrefix(runID)
	return append(k, seqKey(seq)...)
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
