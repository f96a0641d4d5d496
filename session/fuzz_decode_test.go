package session

import (
	"errors"
	"testing"
	"time"
)

// FuzzDecodeRecord exercises the binary record decoder with arbitrary input.
func FuzzDecodeRecord(f *testing.F) {
	encoded, err := encodeRecord(&Session{
		OwnerID:   "user1",
		IssuedAt:  time.UnixMilli(1_700_000_000_000),
		ExpiresAt: time.UnixMilli(1_700_003_600_000),
	})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{recordVersion})
	f.Add([]byte{recordVersion, 0})
	f.Add([]byte{recordVersion, 0xff, 0xff, 0xff, 0xff})
	f.Add([]byte{1, 5, 'u', 's', 'e', 'r', '1'})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := decodeRecord("tok", data)
		if err != nil {
			return
		}
		if s.OwnerID == "" {
			t.Fatal("decoded record without owner")
		}
		if _, err := encodeRecord(s); err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
	})
}

func TestRecordRoundTrip(t *testing.T) {
	in := &Session{
		OwnerID:   "u-1",
		IssuedAt:  time.UnixMilli(1_700_000_000_123),
		ExpiresAt: time.UnixMilli(1_700_086_400_123),
	}
	data, err := encodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeRecord("tok", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token != "tok" || out.OwnerID != in.OwnerID ||
		!out.IssuedAt.Equal(in.IssuedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	for name, bad := range map[string][]byte{
		"trailing":  append(append([]byte{}, data...), 0),
		"truncated": data[:len(data)-1],
		"version":   append([]byte{recordVersion + 1}, data[1:]...),
	} {
		if _, err := decodeRecord("tok", bad); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}
