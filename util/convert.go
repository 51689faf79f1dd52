package util

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// ToByteSlice encodes obj into a zero padded page image.
func ToByteSlice[T any](obj T) ([]byte, error) {
	res := make([]byte, PAGE_SIZE)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > PAGE_SIZE {
		return nil, fmt.Errorf("%w: encoded size %d", ErrPageOverflow, len(data))
	}
	copy(res, data)

	return res, nil
}

// ToStruct decodes a page image produced by ToByteSlice. Trailing padding is
// ignored by the decoder.
func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("decoding page: %w", err)
	}

	return res, nil
}
