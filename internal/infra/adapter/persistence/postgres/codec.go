// Package postgres implements the repository interfaces on database/sql
// with the pgx stdlib driver.
package postgres

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// encodeMinHash packs a MinHash signature as little-endian uint64 bytes
// for the BYTEA content_minhash column.
func encodeMinHash(sig []uint64) []byte {
	if len(sig) == 0 {
		return nil
	}
	buf := make([]byte, len(sig)*8)
	for i, v := range sig {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

// decodeMinHash is the inverse of encodeMinHash.
func decodeMinHash(buf []byte) []uint64 {
	if len(buf) == 0 || len(buf)%8 != 0 {
		return nil
	}
	sig := make([]uint64, len(buf)/8)
	for i := range sig {
		sig[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return sig
}

// jsonb marshals a value for a JSONB column, mapping nil-able configs to
// SQL NULL.
func jsonb(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return data, nil
}

// scanJSONB unmarshals a JSONB column into dst, treating NULL and empty
// as absent.
func scanJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}

// nullTime maps a zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// timeOf unwraps a nullable timestamp column.
func timeOf(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}
