package splitkv

import "bytes"

// Row is one fixed-length serialized record: a RowDef.KeySize-byte primary
// key prefix followed by the remaining value bytes, for a total length of
// RowDef.RowSize.
type Row []byte

// Key returns the primary-key prefix of the row, per the owning RowDef.
func (r Row) Key(def RowDef) []byte {
	return r[:def.KeySize]
}

// CompareFunc orders two byte strings, returning <0, 0 or >0 the way
// bytes.Compare does.
type CompareFunc func(a, b []byte) int

// RowDef is the fixed schema shared by every partition of one split table.
type RowDef struct {
	// RowSize is the total serialized size in bytes of one row.
	RowSize int

	// KeySize is the length in bytes of the primary key prefix of a row.
	KeySize int

	// KeyOrder is the total order over primary keys. If nil, defaults to
	// bytes.Compare (the natural order bbolt and most ordered stores use).
	KeyOrder CompareFunc

	// RowOrder is the total order over full rows. If nil, it is derived
	// from KeyOrder applied to each row's key prefix.
	RowOrder CompareFunc
}

// Normalized returns a copy of def with KeyOrder/RowOrder defaulted.
func (def RowDef) Normalized() RowDef {
	if def.KeyOrder == nil {
		def.KeyOrder = bytes.Compare
	}

	if def.RowOrder == nil {
		keyOrder := def.KeyOrder
		keySize := def.KeySize
		def.RowOrder = func(a, b []byte) int {
			return keyOrder(a[:keySize], b[:keySize])
		}
	}

	return def
}

// CompareKeys orders two keys using def.KeyOrder, defaulting to
// bytes.Compare when unset.
func (def RowDef) CompareKeys(a, b []byte) int {
	if def.KeyOrder != nil {
		return def.KeyOrder(a, b)
	}

	return bytes.Compare(a, b)
}

// CompareRows orders two rows using def.RowOrder, deriving it from
// CompareKeys over the key prefix when unset.
func (def RowDef) CompareRows(a, b []byte) int {
	if def.RowOrder != nil {
		return def.RowOrder(a, b)
	}

	return def.CompareKeys(a[:def.KeySize], b[:def.KeySize])
}
