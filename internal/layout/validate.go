package layout

import (
	"fmt"

	"fortio.org/safecast"
)

// FieldSlot is one field as the oracle reported it: bit offset plus the
// byte size of the field type.
type FieldSlot struct {
	Name       string
	OffsetBits int64
	SizeBytes  int64
}

// PaddingBits computes the trailing padding after each field given the
// record's total size. For unions every field pads to the union size.
// The invariant checked downstream is sum(size+padding) == record size
// (structs) and per-field size+padding == record size (unions).
func PaddingBits(fields []FieldSlot, recordSizeBytes int64, isUnion bool) ([]int64, error) {
	totalBits := recordSizeBytes * 8
	out := make([]int64, len(fields))
	for i, f := range fields {
		sizeBits := f.SizeBytes * 8
		var nextOffset int64
		if isUnion || i == len(fields)-1 {
			nextOffset = totalBits
		} else {
			nextOffset = fields[i+1].OffsetBits
		}
		pad := nextOffset - f.OffsetBits - sizeBits
		if pad < 0 {
			return nil, fmt.Errorf("layout: field %q overlaps its successor (offset %d bits, size %d bits, next %d bits)",
				f.Name, f.OffsetBits, sizeBits, nextOffset)
		}
		out[i] = pad
	}
	return out, nil
}

// ValidateRecord checks the oracle-reported layout: fields in declared order,
// no field past the end of the record, offsets within bounds.
func ValidateRecord(fields []FieldSlot, recordSizeBytes int64, isUnion bool) error {
	totalBits := recordSizeBytes * 8
	prevOffset := int64(-1)
	for _, f := range fields {
		if !isUnion && f.OffsetBits < prevOffset {
			return fmt.Errorf("layout: field %q out of declaration order (offset %d bits)", f.Name, f.OffsetBits)
		}
		if f.OffsetBits+f.SizeBytes*8 > totalBits {
			return fmt.Errorf("layout: field %q exceeds record size (%d+%d bits > %d bits)",
				f.Name, f.OffsetBits, f.SizeBytes*8, totalBits)
		}
		if !isUnion {
			prevOffset = f.OffsetBits
		}
	}
	return nil
}

// BitsToBytes converts a non-negative bit count to whole bytes.
func BitsToBytes(bits int64) (int64, error) {
	if bits%8 != 0 {
		return 0, fmt.Errorf("layout: %d bits is not byte-aligned", bits)
	}
	return bits / 8, nil
}

// MustUint32 narrows a non-negative int64 for serialized surfaces.
func MustUint32(n int64) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("layout: value overflow: %w", err))
	}
	return v
}
