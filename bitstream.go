package ncw

import "fmt"

// bitUnpacker extracts signed fields packed LSB first: bit 0 of byte 0 is
// the lowest bit of the first value and values follow each other without
// padding. Bytes are fed into a rolling accumulator so fields may straddle
// any number of byte boundaries.
type bitUnpacker struct {
	data  []byte
	pos   int
	width uint
	acc   uint64
	nbits uint
}

func newBitUnpacker(data []byte, width int) (*bitUnpacker, error) {
	if width < 1 || width > maxBitWidth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitWidth, width)
	}

	return &bitUnpacker{data: data, width: uint(width)}, nil
}

// next returns the next sign extended field, or false once the data is
// exhausted.
func (u *bitUnpacker) next() (int32, bool) {
	for u.nbits < u.width {
		if u.pos >= len(u.data) {
			return 0, false
		}

		u.acc |= uint64(u.data[u.pos]) << u.nbits
		u.nbits += 8
		u.pos++
	}

	v := u.acc & (1<<u.width - 1)
	u.acc >>= u.width
	u.nbits -= u.width

	if v&(1<<(u.width-1)) != 0 {
		v |= ^uint64(0) << u.width
	}

	return int32(v), true
}

// unpackSigned decodes count fields of the given width from data.
func unpackSigned(data []byte, width, count int) ([]int32, error) {
	u, err := newBitUnpacker(data, width)
	if err != nil {
		return nil, err
	}

	values := make([]int32, count)
	for i := range values {
		v, ok := u.next()
		if !ok {
			return nil, fmt.Errorf("%w: %d bit stream of %d bytes holds %d of %d values",
				ErrShortRead, width, len(data), i, count)
		}

		values[i] = v
	}

	return values, nil
}
