package ncw

import (
	"errors"
	"math"
	"time"
)

const (
	// HeaderSize is the size in bytes of the fixed file header.
	HeaderSize = 120
	// BlockHeaderSize is the size in bytes of the header preceding every block.
	BlockHeaderSize = 16
	// SamplesPerBlock is the sample capacity of a single block.
	SamplesPerBlock = 512

	// FileMagicV1 and FileMagicV2 are the two accepted file signatures.
	FileMagicV1 uint64 = 0x01A89ED631010000
	FileMagicV2 uint64 = 0x01A89ED630010000
	// BlockMagic opens every block header.
	BlockMagic uint32 = 0x160C9A3E

	maxBitWidth = 32
)

var (
	// ErrInvalidFileSignature is returned when the file magic is unknown.
	ErrInvalidFileSignature = errors.New("invalid NCW file signature")
	// ErrInvalidBlockSignature is returned when a block header magic is wrong.
	ErrInvalidBlockSignature = errors.New("invalid NCW block signature")
	// ErrShortRead is returned when the source ends inside a fixed size read.
	ErrShortRead = errors.New("short read")
	// ErrIO wraps failures of the underlying byte source.
	ErrIO = errors.New("i/o failure")
	// ErrUnsupportedChannelEncoding is returned for mid/side encoded blocks.
	ErrUnsupportedChannelEncoding = errors.New("unsupported channel encoding")
	// ErrUnsupportedSampleFormat is returned for floating point blocks.
	ErrUnsupportedSampleFormat = errors.New("unsupported sample format")
	// ErrInvalidHeader is returned when the header fields can't describe
	// any audio.
	ErrInvalidHeader = errors.New("invalid NCW header")
	// ErrInvalidOffsetTable is returned when the header offsets don't
	// describe a valid block offset table.
	ErrInvalidOffsetTable = errors.New("invalid block offset table")
	// ErrInvalidBitWidth is returned when a block declares more than 32 bits
	// per packed value.
	ErrInvalidBitWidth = errors.New("invalid block bit width")
	// ErrUnsupportedBitDepth is returned when raw blocks use a bit depth
	// other than 8, 16, 24 or 32.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	// ErrSampleCountMismatch is returned when the blocks don't hold as many
	// samples as the header declares.
	ErrSampleCountMismatch = errors.New("decoded sample count doesn't match header")
	// ErrSampleOutOfRange is returned by strict narrowing when a sample
	// doesn't fit the target bit depth.
	ErrSampleOutOfRange = errors.New("sample out of range")
	// ErrNilDecoder is returned when calling methods on a nil decoder.
	ErrNilDecoder = errors.New("nil decoder")
)

func samplesDuration(numSamples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	return time.Duration(math.Round(float64(numSamples) * float64(time.Second) / float64(sampleRate)))
}
