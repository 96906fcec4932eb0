package ncw

import (
	"bytes"
	"fmt"

	"github.com/go-audio/riff"
)

var headerChunkID = [4]byte{'n', 'c', 'w', 'h'}

// FileHeader is the fixed 120 byte preamble of an NCW file.
type FileHeader struct {
	// Magic is the signature the file was written with, FileMagicV1 or
	// FileMagicV2.
	Magic         uint64
	Channels      uint16
	BitsPerSample uint16
	SampleRate    uint32
	// NumSamples is the number of samples per channel.
	NumSamples uint32
	// BlocksOffset and DataOffset delimit the block offset table.
	BlocksOffset uint32
	// DataOffset is the position every block offset is relative to.
	DataOffset uint32
	DataSize   uint32
}

// TotalSamples returns the number of samples across all channels.
func (h *FileHeader) TotalSamples() int {
	return int(h.NumSamples) * int(h.Channels)
}

// numBlocks returns the number of 32 bit entries between BlocksOffset and
// DataOffset.
func (h *FileHeader) numBlocks() (int, error) {
	if h.DataOffset < h.BlocksOffset {
		return 0, fmt.Errorf("%w: data offset %d precedes blocks offset %d",
			ErrInvalidOffsetTable, h.DataOffset, h.BlocksOffset)
	}

	size := h.DataOffset - h.BlocksOffset
	if size%4 != 0 {
		return 0, fmt.Errorf("%w: table size %d is not a multiple of 4", ErrInvalidOffsetTable, size)
	}

	return int(size / 4), nil
}

func readFileHeader(br *byteReader) (*FileHeader, error) {
	buf, err := br.readExact(HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	return parseFileHeader(buf)
}

func parseFileHeader(buf []byte) (*FileHeader, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes, want %d", ErrShortRead, len(buf), HeaderSize)
	}

	magic, err := newByteReader(bytes.NewReader(buf[:8])).readU64BE()
	if err != nil {
		return nil, fmt.Errorf("failed to read file signature: %w", err)
	}

	if magic != FileMagicV1 && magic != FileMagicV2 {
		return nil, fmt.Errorf("%w: %#016x", ErrInvalidFileSignature, magic)
	}

	// The remaining fields are little endian and decoded the same way a
	// RIFF fmt chunk is.
	chunk := &riff.Chunk{
		ID:   headerChunkID,
		Size: HeaderSize - 8,
		R:    bytes.NewReader(buf[8:HeaderSize]),
	}

	h := &FileHeader{Magic: magic}

	fields := []struct {
		name string
		dst  any
	}{
		{"channels", &h.Channels},
		{"bits per sample", &h.BitsPerSample},
		{"sample rate", &h.SampleRate},
		{"sample count", &h.NumSamples},
		{"blocks offset", &h.BlocksOffset},
		{"data offset", &h.DataOffset},
		{"data size", &h.DataSize},
	}

	for _, f := range fields {
		if err := chunk.ReadLE(f.dst); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
	}

	return h, nil
}
