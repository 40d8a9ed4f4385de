package dataset

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 64-bit content hash of the dataset. Column names,
// column types and every cell contribute, in order, so two datasets with the
// same fingerprint are (with overwhelming probability) identical snapshots.
func (d *Dataset) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [9]byte
	writeLen := func(n int) {
		binary.LittleEndian.PutUint64(buf[:8], uint64(n))
		_, _ = h.Write(buf[:8])
	}
	writeLen(d.Width())
	for _, c := range d.Columns {
		writeLen(len(c.Name))
		_, _ = h.WriteString(c.Name)
		buf[0] = byte(c.Type)
		_, _ = h.Write(buf[:1])
	}
	writeLen(d.Len())
	for _, r := range d.Rows {
		for _, v := range r {
			buf[0] = byte(v.kind)
			switch v.kind {
			case KindNumber:
				binary.LittleEndian.PutUint64(buf[1:9], math.Float64bits(v.num))
				_, _ = h.Write(buf[:9])
			case KindText:
				_, _ = h.Write(buf[:1])
				writeLen(len(v.str))
				_, _ = h.WriteString(v.str)
			default:
				_, _ = h.Write(buf[:1])
			}
		}
	}
	return h.Sum64()
}
