package chunkupload

import "fmt"

// Slice splits blob into exactly chunks ordered Blob values. Chunk i covers
// bytes [i*chunkSize, min((i+1)*chunkSize, blob.Size())); the last chunk is
// the remainder, even when shorter than chunkSize. Pure, deterministic, no
// I/O — it only carves up byte ranges.
//
// Callers must already know chunks/chunkSize satisfy
// chunkSize*(chunks-1) < blob.Size() <= chunkSize*chunks (FileMeta's
// invariant, spec §3); Slice returns an error instead of panicking if they
// don't, since chunks/chunkSize normally come from a server response.
func Slice(blob Blob, chunks uint32, chunkSize uint64) ([]Blob, error) {
	if chunks == 0 {
		return nil, fmt.Errorf("chunkupload: slice: chunks must be positive")
	}

	if chunkSize == 0 {
		return nil, fmt.Errorf("chunkupload: slice: chunkSize must be positive")
	}

	size := blob.Size()

	lastStart := int64(chunkSize) * int64(chunks-1)
	if lastStart >= size {
		return nil, fmt.Errorf(
			"chunkupload: slice: chunkSize*(chunks-1)=%d must be < blob size %d", lastStart, size,
		)
	}

	if size > int64(chunkSize)*int64(chunks) {
		return nil, fmt.Errorf(
			"chunkupload: slice: blob size %d exceeds chunkSize*chunks=%d", size, int64(chunkSize)*int64(chunks),
		)
	}

	out := make([]Blob, chunks)

	for i := uint32(0); i < chunks; i++ {
		from := int64(chunkSize) * int64(i)

		to := from + int64(chunkSize)
		if to > size {
			to = size
		}

		out[i] = blob.Slice(from, to)
	}

	return out, nil
}
