package stewardstore

import (
	"encoding/binary"
	"errors"

	"github.com/cockroachdb/pebble"
)

// ErrAuditLogFull is never actually returned — AppendAudit overwrites
// the oldest entry once the ring is full, the same "ring with fixed
// capacity" convention history.ring uses. Callers size a fetch against
// AuditCapacity.
var ErrAuditLogFull = errors.New("stewardstore: audit log at capacity (overwriting oldest)")

// AuditCapacity bounds how many admin actions are retained per pool.
// Past this many, AppendAudit overwrites the oldest entry.
const AuditCapacity = 256

// AuditEntry records one authority-gated action (update_parameters,
// set_authority, add/remove_from_blacklist, pause/resume) for operator
// visibility — a supplemented feature the distilled spec does not
// mention but which any deployed admin surface needs.
type AuditEntry struct {
	CycleEpoch uint64
	Actor      [32]byte
	Action     string
	Detail     string
}

// AppendAudit appends one audit entry for pool, keeping only the most
// recent AuditCapacity entries.
func (s *Store) AppendAudit(pool [32]byte, seq uint64, entry AuditEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	data := encodeAuditEntry(entry)
	slot := seq % AuditCapacity
	return s.db.Set(auditKey(pool, slot), data, pebble.NoSync)
}

// ListAudit returns every retained audit entry for pool, in ring slot
// order (not necessarily chronological once the ring has wrapped; the
// caller sorts by CycleEpoch if ordering matters).
func (s *Store) ListAudit(pool [32]byte) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	prefix := auditPrefix(pool)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []AuditEntry
	for it.First(); it.Valid(); it.Next() {
		e, decodeErr := decodeAuditEntry(it.Value())
		if decodeErr != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func auditPrefix(pool [32]byte) []byte {
	return append([]byte("audit:"), pool[:]...)
}

func auditKey(pool [32]byte, slot uint64) []byte {
	key := auditPrefix(pool)
	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], slot)
	return append(key, slotBytes[:]...)
}

// encodeAuditEntry uses a flat length-prefixed encoding rather than a
// generic serialization library, matching the steward's avoidance of
// reflection-based codecs on the hot path (§10).
func encodeAuditEntry(e AuditEntry) []byte {
	actionBytes := []byte(e.Action)
	detailBytes := []byte(e.Detail)
	buf := make([]byte, 8+32+4+len(actionBytes)+4+len(detailBytes))
	off := 0
	binary.BigEndian.PutUint64(buf[off:], e.CycleEpoch)
	off += 8
	copy(buf[off:], e.Actor[:])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], uint32(len(actionBytes)))
	off += 4
	copy(buf[off:], actionBytes)
	off += len(actionBytes)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(detailBytes)))
	off += 4
	copy(buf[off:], detailBytes)
	return buf
}

func decodeAuditEntry(data []byte) (AuditEntry, error) {
	var e AuditEntry
	if len(data) < 8+32+4 {
		return e, errShortAuditRecord
	}
	off := 0
	e.CycleEpoch = binary.BigEndian.Uint64(data[off:])
	off += 8
	copy(e.Actor[:], data[off:off+32])
	off += 32
	actionLen := int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	if len(data) < off+actionLen+4 {
		return e, errShortAuditRecord
	}
	e.Action = string(data[off : off+actionLen])
	off += actionLen
	detailLen := int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	if len(data) < off+detailLen {
		return e, errShortAuditRecord
	}
	e.Detail = string(data[off : off+detailLen])
	return e, nil
}

var errShortAuditRecord = errors.New("stewardstore: truncated audit record")
