package ncw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// byteReader is the cursor a decoding session threads through every read.
// It tracks the absolute offset so errors can point at the failing byte.
type byteReader struct {
	r   io.ReadSeeker
	pos int64
}

func newByteReader(r io.ReadSeeker) *byteReader {
	return &byteReader{r: r}
}

func (b *byteReader) offset() int64 {
	return b.pos
}

func (b *byteReader) seek(offset int64) error {
	pos, err := b.r.Seek(offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: failed to seek to %d: %w", ErrIO, offset, err)
	}

	b.pos = pos

	return nil
}

// readExact reads n bytes or fails with ErrShortRead.
func (b *byteReader) readExact(n int) ([]byte, error) {
	start := b.pos
	buf := make([]byte, n)

	read, err := io.ReadFull(b.r, buf)
	b.pos += int64(read)

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes at offset %d, got %d", ErrShortRead, n, start, read)
		}

		return nil, fmt.Errorf("%w: failed to read %d bytes at offset %d: %w", ErrIO, n, start, err)
	}

	return buf, nil
}

func (b *byteReader) readU16LE() (uint16, error) {
	buf, err := b.readExact(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(buf), nil
}

func (b *byteReader) readI16LE() (int16, error) {
	v, err := b.readU16LE()
	return int16(v), err
}

func (b *byteReader) readU32LE() (uint32, error) {
	buf, err := b.readExact(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf), nil
}

func (b *byteReader) readU32BE() (uint32, error) {
	buf, err := b.readExact(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(buf), nil
}

func (b *byteReader) readI32LE() (int32, error) {
	v, err := b.readU32LE()
	return int32(v), err
}

func (b *byteReader) readU64BE() (uint64, error) {
	buf, err := b.readExact(8)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(buf), nil
}
