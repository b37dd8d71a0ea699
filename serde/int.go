package serde

import (
	"encoding/binary"
	"fmt"

	"github.com/cachefall/cachefall"
)

// Int64Serializer serializes int64 to big-endian bytes
var Int64Serializer = func(data int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(data))
	return buf, nil
}

// Int64Deserializer deserializes big-endian bytes to int64
var Int64Deserializer = func(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("int64 serde: expected 8 bytes, got %d", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

// Int64 is a SerDe for int64 values
var Int64 = cachefall.SerDe[int64]{
	Serializer:   Int64Serializer,
	Deserializer: Int64Deserializer,
}
