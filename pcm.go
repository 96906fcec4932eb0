package ncw

import (
	"fmt"

	"github.com/go-audio/audio"
)

// NarrowPolicy decides what happens to samples that don't fit the output
// bit depth.
type NarrowPolicy int

const (
	// Truncate keeps the low bits of a sample, sign extended.
	Truncate NarrowPolicy = iota
	// Strict fails with ErrSampleOutOfRange.
	Strict
)

// NarrowBuffer narrows every sample of buf to buf.SourceBitDepth in place.
func NarrowBuffer(buf *audio.IntBuffer, policy NarrowPolicy) error {
	if buf == nil {
		return nil
	}

	bitDepth := buf.SourceBitDepth
	if !supportedBitDepth(bitDepth) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	for i, v := range buf.Data {
		n, err := narrowSample(v, bitDepth, policy)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}

		buf.Data[i] = n
	}

	return nil
}

func narrowSample(v, bitDepth int, policy NarrowPolicy) (int, error) {
	lo, hi := pcmRange(bitDepth)
	if v >= lo && v <= hi {
		return v, nil
	}

	if policy == Strict {
		return 0, fmt.Errorf("%w: %d doesn't fit %d bits", ErrSampleOutOfRange, v, bitDepth)
	}

	shift := 32 - bitDepth

	return int(int32(uint32(v)<<shift) >> shift), nil
}

func pcmRange(bitDepth int) (int, int) {
	switch bitDepth {
	case 8:
		return -128, 127
	case 16:
		return -32768, 32767
	case 24:
		return -8388608, 8388607
	default:
		return -2147483648, 2147483647
	}
}
