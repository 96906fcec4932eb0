package ncw

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/audio"
)

const (
	flagMidSide uint16 = 1 << 0
	flagFloat   uint16 = 1 << 1
)

// BlockMode is the compression scheme of a single block.
type BlockMode int

const (
	// ModeRaw blocks store samples at the file's native bit depth.
	ModeRaw BlockMode = iota
	// ModeDelta blocks store a base value and packed signed increments.
	ModeDelta
	// ModeTruncated blocks store samples packed at a reduced bit width.
	ModeTruncated
)

func (m BlockMode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeDelta:
		return "delta"
	case ModeTruncated:
		return "truncated"
	default:
		return fmt.Sprintf("BlockMode(%d)", int(m))
	}
}

// ChannelEncoding tells how the channels of a block-group relate.
type ChannelEncoding int

const (
	// LeftRight blocks carry one independent channel each.
	LeftRight ChannelEncoding = iota
	// MidSide blocks carry sum and difference channels. Decoding them isn't
	// supported.
	MidSide
)

func (e ChannelEncoding) String() string {
	if e == MidSide {
		return "mid/side"
	}

	return "left/right"
}

// SampleFormat is the numeric type of the block payload.
type SampleFormat int

const (
	// PCM payloads hold signed integer samples.
	PCM SampleFormat = iota
	// Float payloads hold floating point samples. Decoding them isn't
	// supported.
	Float
)

func (f SampleFormat) String() string {
	if f == Float {
		return "float"
	}

	return "pcm"
}

// BlockHeader precedes every channel block of a block-group.
type BlockHeader struct {
	// BaseValue seeds delta decoding. Other modes ignore it.
	BaseValue int32
	// Bits selects the mode: >0 delta width, <0 truncated width, 0 raw.
	Bits  int16
	Flags uint16
}

// Mode returns the compression scheme selected by Bits.
func (h BlockHeader) Mode() BlockMode {
	switch {
	case h.Bits > 0:
		return ModeDelta
	case h.Bits < 0:
		return ModeTruncated
	default:
		return ModeRaw
	}
}

// Width returns the packed field width in bits, zero for raw blocks.
func (h BlockHeader) Width() int {
	if h.Bits < 0 {
		return -int(h.Bits)
	}

	return int(h.Bits)
}

// ChannelEncoding reports the mid/side flag.
func (h BlockHeader) ChannelEncoding() ChannelEncoding {
	if h.Flags&flagMidSide != 0 {
		return MidSide
	}

	return LeftRight
}

// SampleFormat reports the float flag.
func (h BlockHeader) SampleFormat() SampleFormat {
	if h.Flags&flagFloat != 0 {
		return Float
	}

	return PCM
}

// payloadSize returns the number of payload bytes following the header.
// Packed blocks hold SamplesPerBlock fields of Width bits, raw blocks hold
// SamplesPerBlock samples at the file bit depth.
func (h BlockHeader) payloadSize(bitsPerSample int) int {
	if h.Mode() == ModeRaw {
		return bitsPerSample / 8 * SamplesPerBlock
	}

	return h.Width() * SamplesPerBlock / 8
}

// validate rejects blocks this package can't decode to integer PCM.
func (h BlockHeader) validate(bitsPerSample int) error {
	if h.ChannelEncoding() == MidSide {
		return fmt.Errorf("%w: %s (flags %#04x)", ErrUnsupportedChannelEncoding, MidSide, h.Flags)
	}

	if h.SampleFormat() == Float {
		return fmt.Errorf("%w: %s (flags %#04x)", ErrUnsupportedSampleFormat, Float, h.Flags)
	}

	if h.Width() > maxBitWidth {
		return fmt.Errorf("%w: %d", ErrInvalidBitWidth, h.Bits)
	}

	if h.Mode() == ModeRaw && !supportedBitDepth(bitsPerSample) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitsPerSample)
	}

	return nil
}

func readBlockHeader(br *byteReader) (BlockHeader, error) {
	buf, err := br.readExact(BlockHeaderSize)
	if err != nil {
		return BlockHeader{}, err
	}

	return parseBlockHeader(buf)
}

func parseBlockHeader(buf []byte) (BlockHeader, error) {
	if len(buf) < BlockHeaderSize {
		return BlockHeader{}, fmt.Errorf("%w: block header is %d bytes, want %d",
			ErrShortRead, len(buf), BlockHeaderSize)
	}

	cur := newByteReader(bytes.NewReader(buf[:BlockHeaderSize]))

	magic, err := cur.readU32BE()
	if err != nil {
		return BlockHeader{}, fmt.Errorf("failed to read block signature: %w", err)
	}

	if magic != BlockMagic {
		return BlockHeader{}, fmt.Errorf("%w: %#08x", ErrInvalidBlockSignature, magic)
	}

	var h BlockHeader

	if h.BaseValue, err = cur.readI32LE(); err != nil {
		return BlockHeader{}, fmt.Errorf("failed to read base value: %w", err)
	}

	if h.Bits, err = cur.readI16LE(); err != nil {
		return BlockHeader{}, fmt.Errorf("failed to read bit width: %w", err)
	}

	if h.Flags, err = cur.readU16LE(); err != nil {
		return BlockHeader{}, fmt.Errorf("failed to read flags: %w", err)
	}

	return h, nil
}

// readBlock reads one channel block at the cursor and decodes its samples.
func readBlock(br *byteReader, bitsPerSample int) ([]int32, error) {
	h, err := readBlockHeader(br)
	if err != nil {
		return nil, err
	}

	if err := h.validate(bitsPerSample); err != nil {
		return nil, err
	}

	payload, err := br.readExact(h.payloadSize(bitsPerSample))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s payload: %w", h.Mode(), err)
	}

	return decodeBlock(h, payload, bitsPerSample)
}

// decodeBlock turns a block payload into SamplesPerBlock samples.
func decodeBlock(h BlockHeader, payload []byte, bitsPerSample int) ([]int32, error) {
	switch mode := h.Mode(); mode {
	case ModeDelta:
		return decodeDeltaBlock(h.BaseValue, payload, h.Width())
	case ModeTruncated:
		return unpackSigned(payload, h.Width(), SamplesPerBlock)
	case ModeRaw:
		return decodeRawBlock(payload, bitsPerSample)
	default:
		return nil, fmt.Errorf("unhandled block mode %s", mode)
	}
}

// decodeDeltaBlock rebuilds samples from a base value and packed deltas.
// The last delta leads into the next block and has no sample here.
func decodeDeltaBlock(base int32, payload []byte, width int) ([]int32, error) {
	deltas, err := unpackSigned(payload, width, SamplesPerBlock)
	if err != nil {
		return nil, err
	}

	samples := make([]int32, SamplesPerBlock)
	samples[0] = base

	for i := 1; i < SamplesPerBlock; i++ {
		samples[i] = samples[i-1] + deltas[i-1]
	}

	return samples, nil
}

// decodeRawBlock reads little endian signed samples at the native depth.
func decodeRawBlock(payload []byte, bitsPerSample int) ([]int32, error) {
	decodeF, err := sampleDecodeFunc(bitsPerSample)
	if err != nil {
		return nil, err
	}

	size := bitsPerSample / 8
	if len(payload) < size*SamplesPerBlock {
		return nil, fmt.Errorf("%w: raw payload is %d bytes, want %d",
			ErrShortRead, len(payload), size*SamplesPerBlock)
	}

	samples := make([]int32, SamplesPerBlock)
	for i := range samples {
		samples[i] = decodeF(payload[i*size : (i+1)*size])
	}

	return samples, nil
}

func supportedBitDepth(bitsPerSample int) bool {
	switch bitsPerSample {
	case 8, 16, 24, 32:
		return true
	default:
		return false
	}
}

// sampleDecodeFunc returns a function converting one little endian sample
// into a sign extended int32.
func sampleDecodeFunc(bitsPerSample int) (func([]byte) int32, error) {
	switch bitsPerSample {
	case 8:
		return func(b []byte) int32 { return int32(int8(b[0])) }, nil
	case 16:
		return func(b []byte) int32 { return int32(int16(binary.LittleEndian.Uint16(b))) }, nil
	case 24:
		return audio.Int24LETo32, nil
	case 32:
		return func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitsPerSample)
	}
}
