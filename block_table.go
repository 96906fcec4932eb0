package ncw

import "fmt"

// readBlockOffsets reads the block offset table. The table holds one entry
// per 32 bit slot between BlocksOffset and DataOffset but only the first
// numBlocks-1 entries are read, each the start of a block-group relative
// to DataOffset.
func readBlockOffsets(br *byteReader, h *FileHeader) ([]uint32, error) {
	numBlocks, err := h.numBlocks()
	if err != nil {
		return nil, err
	}

	if numBlocks < 2 {
		return nil, nil
	}

	if err := br.seek(int64(h.BlocksOffset)); err != nil {
		return nil, fmt.Errorf("failed to seek to block offsets: %w", err)
	}

	var offsets []uint32
	for i := 1; i < numBlocks; i++ {
		offset, err := br.readU32LE()
		if err != nil {
			return nil, fmt.Errorf("failed to read block offset %d: %w", i-1, err)
		}

		offsets = append(offsets, offset)
	}

	return offsets, nil
}
