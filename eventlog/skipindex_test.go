package eventlog

import "testing"

func TestSkipIndexLookupMiss(t *testing.T) {
	s := NewSkipIndex()

	if _, ok := s.Lookup(1); ok {
		t.Fatalf("expected miss on empty index")
	}
}

func TestSkipIndexRecordAndLookup(t *testing.T) {
	s := NewSkipIndex()

	s.Record(10, 100)
	s.Record(20, 200)
	s.Record(5, 50)

	cases := []struct {
		idx, want uint64
	}{
		{5, 50},
		{10, 100},
		{20, 200},
	}
	for _, c := range cases {
		got, ok := s.Lookup(c.idx)
		if !ok || got != c.want {
			t.Fatalf("Lookup(%d) = (%d, %v), want (%d, true)", c.idx, got, ok, c.want)
		}
	}

	if _, ok := s.Lookup(15); ok {
		t.Fatalf("expected miss for unrecorded index")
	}
}

func TestSkipIndexRecordOverwrites(t *testing.T) {
	s := NewSkipIndex()

	s.Record(1, 100)
	s.Record(1, 200)

	got, ok := s.Lookup(1)
	if !ok || got != 200 {
		t.Fatalf("expected overwritten value 200, got (%d, %v)", got, ok)
	}
}

func TestSkipIndexManyInsertsStayOrdered(t *testing.T) {
	s := NewSkipIndex()

	for i := uint64(0); i < 500; i++ {
		s.Record(i, i*10)
	}

	for i := uint64(0); i < 500; i++ {
		got, ok := s.Lookup(i)
		if !ok || got != i*10 {
			t.Fatalf("Lookup(%d) = (%d, %v), want (%d, true)", i, got, ok, i*10)
		}
	}
}
