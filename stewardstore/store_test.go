package stewardstore

import "testing"

func TestPutGetSnapshotRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pool := [32]byte{9}
	if err := s.PutSnapshot(pool, 5, []byte("cycle-5-state")); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	got, err := s.GetSnapshot(pool, 5)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if string(got) != "cycle-5-state" {
		t.Fatalf("got %q, want %q", got, "cycle-5-state")
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.GetSnapshot([32]byte{1}, 1); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLatestSnapshotPicksHighestEpoch(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pool := [32]byte{3}
	for _, e := range []uint64{1, 5, 3} {
		if err := s.PutSnapshot(pool, e, []byte{byte(e)}); err != nil {
			t.Fatalf("PutSnapshot(%d): %v", e, err)
		}
	}

	epoch, data, err := s.LatestSnapshot(pool)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if epoch != 5 {
		t.Fatalf("epoch = %d, want 5", epoch)
	}
	if len(data) != 1 || data[0] != 5 {
		t.Fatalf("data = %v, want [5]", data)
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.PutSnapshot([32]byte{1}, 1, nil); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestAuditAppendAndList(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pool := [32]byte{4}
	if err := s.AppendAudit(pool, 0, AuditEntry{CycleEpoch: 1, Action: "pause"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := s.AppendAudit(pool, 1, AuditEntry{CycleEpoch: 2, Action: "resume"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	entries, err := s.ListAudit(pool)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
}

func TestAuditRingOverwritesOldest(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pool := [32]byte{5}
	for i := uint64(0); i < AuditCapacity+10; i++ {
		if err := s.AppendAudit(pool, i, AuditEntry{CycleEpoch: i, Action: "update_parameters"}); err != nil {
			t.Fatalf("AppendAudit(%d): %v", i, err)
		}
	}
	entries, err := s.ListAudit(pool)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != AuditCapacity {
		t.Fatalf("len(entries) = %d, want %d (ring capacity)", len(entries), AuditCapacity)
	}
}
