package ncw

import "fmt"

// sampleAssembler collects decoded blocks per channel and interleaves them
// once every channel holds numSamples samples.
type sampleAssembler struct {
	numSamples int
	channels   [][]int32
}

// newSampleAssembler doesn't reserve numSamples up front. The count comes
// from the file header and channels grow only with decoded blocks.
func newSampleAssembler(numChans, numSamples int) *sampleAssembler {
	return &sampleAssembler{numSamples: numSamples, channels: make([][]int32, numChans)}
}

// add appends the leading samples of a block to a channel. Only the final
// block-group is partially filled; its trailing padding is dropped so no
// channel grows past numSamples.
func (a *sampleAssembler) add(channel int, samples []int32) {
	keep := min(len(samples), a.numSamples-len(a.channels[channel]))
	if keep <= 0 {
		return
	}

	a.channels[channel] = append(a.channels[channel], samples[:keep]...)
}

// interleave returns the samples frame by frame:
// out[frame*numChans+channel].
func (a *sampleAssembler) interleave() ([]int32, error) {
	for c, samples := range a.channels {
		if len(samples) != a.numSamples {
			return nil, fmt.Errorf("%w: channel %d has %d samples, header declares %d",
				ErrSampleCountMismatch, c, len(samples), a.numSamples)
		}
	}

	numChans := len(a.channels)
	out := make([]int32, a.numSamples*numChans)

	for c, samples := range a.channels {
		for f, v := range samples {
			out[f*numChans+c] = v
		}
	}

	return out, nil
}
