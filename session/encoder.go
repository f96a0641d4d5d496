package session

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Record layout, version 2:
//
//	[1]    version
//	[var]  uvarint owner length, then the owner bytes
//	[8]    issued at, unix millis, big endian
//	[8]    expires at, unix millis, big endian
//
// The token is never written; rows are addressed by its hash.
const (
	recordVersion  byte = 2
	maxOwnerIDSize      = 1024
)

func encodeRecord(s *Session) ([]byte, error) {
	n := len(s.OwnerID)
	if n == 0 || n > maxOwnerIDSize {
		return nil, fmt.Errorf("session: owner id length %d out of range", n)
	}
	out := make([]byte, 0, 1+binary.MaxVarintLen16+n+16)
	out = append(out, recordVersion)
	out = binary.AppendUvarint(out, uint64(n))
	out = append(out, s.OwnerID...)
	out = binary.BigEndian.AppendUint64(out, uint64(s.IssuedAt.UnixMilli()))
	out = binary.BigEndian.AppendUint64(out, uint64(s.ExpiresAt.UnixMilli()))
	return out, nil
}

func decodeRecord(token string, data []byte) (*Session, error) {
	if len(data) == 0 || data[0] != recordVersion {
		return nil, fmt.Errorf("%w: unknown version", ErrCorrupt)
	}
	rest := data[1:]

	n, w := binary.Uvarint(rest)
	if w <= 0 || n == 0 || n > maxOwnerIDSize {
		return nil, fmt.Errorf("%w: owner length", ErrCorrupt)
	}
	rest = rest[w:]
	if uint64(len(rest)) != n+16 {
		return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
	}

	owner, stamps := rest[:n], rest[n:]
	return &Session{
		Token:     token,
		OwnerID:   string(owner),
		IssuedAt:  time.UnixMilli(int64(binary.BigEndian.Uint64(stamps[:8]))),
		ExpiresAt: time.UnixMilli(int64(binary.BigEndian.Uint64(stamps[8:]))),
	}, nil
}
