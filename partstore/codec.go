package partstore

import "github.com/ugorji/go/codec"

var valueHandle codec.Handle = new(codec.BincHandle)

// EncodeValue serializes v (any struct tagged the way ugorji/go/codec
// expects) using the binc handle, for callers that want to pack
// structured values into the trailing bytes of a splitkv.Row rather than
// a raw byte blob. This mirrors how wtsi-hgi/wrstat-ui's bolt writer
// encodes its "children" lists.
func EncodeValue(v interface{}) ([]byte, error) {
	var buf []byte

	enc := codec.NewEncoderBytes(&buf, valueHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf, nil
}

// DecodeValue deserializes b (as produced by EncodeValue) into out, which
// must be a pointer.
func DecodeValue(b []byte, out interface{}) error {
	dec := codec.NewDecoderBytes(b, valueHandle)
	return dec.Decode(out)
}
