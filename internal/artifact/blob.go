package artifact

import (
	"encoding"
	"encoding/base64"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/roach88/waterline/internal/ir"
)

// Blob encodes opaque binary data (ciphertexts, keys) with a BLAKE3 checksum:
//
//	{"blake3":"<hex>","data":"<base64>","size":123}
func Blob(data []byte) ir.Object {
	sum := blake3.Sum256(data)
	return ir.Object{
		"data":   ir.Str(base64.StdEncoding.EncodeToString(data)),
		"size":   ir.Int(len(data)),
		"blake3": ir.Str(hex.EncodeToString(sum[:])),
	}
}

// MarshalBlob encodes a binary-marshalable value as a Blob.
func MarshalBlob(v encoding.BinaryMarshaler) (ir.Object, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return Blob(data), nil
}

// OpenBlob decodes a Blob and verifies its size and checksum.
func OpenBlob(obj ir.Object) ([]byte, error) {
	encoded, err := obj.Str("data")
	if err != nil {
		return nil, ir.NewValidationError("blob: %v", err)
	}
	want, err := obj.Str("blake3")
	if err != nil {
		return nil, ir.NewValidationError("blob: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ir.NewValidationError("blob data is not base64: %v", err)
	}
	if size, err := obj.Int("size"); err != nil || size != len(data) {
		return nil, ir.NewValidationError("blob size mismatch: header %d, data %d bytes", size, len(data))
	}
	sum := blake3.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != want {
		return nil, ir.NewValidationError("blob checksum mismatch: got %s, want %s", got, want)
	}
	return data, nil
}

// UnmarshalBlob decodes a Blob into v.
func UnmarshalBlob(obj ir.Object, v encoding.BinaryUnmarshaler) error {
	data, err := OpenBlob(obj)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(data)
}
