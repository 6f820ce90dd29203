package chunkupload

import "io"

// Blob is an externally supplied, byte-addressable handle with a known
// total size. It must be immutable for the duration of the upload — the
// engine may read overlapping ranges from concurrent goroutines.
type Blob interface {
	// Size returns the total byte length of the blob.
	Size() int64

	// Slice returns a Blob covering bytes [from, to) of the parent. The
	// returned Blob is itself immutable and safe for concurrent reads.
	Slice(from, to int64) Blob

	// Reader returns a fresh io.Reader over the blob's bytes, starting at
	// offset 0 of this (possibly already-sliced) Blob. Each call returns an
	// independent reader so a retried chunk attempt never races a previous
	// attempt's in-flight reader — mirrors the teacher's io.NewSectionReader
	// pattern in internal/graph/upload.go, which creates a fresh
	// io.SectionReader per retry for the same reason.
	Reader() io.Reader
}

// FileBlob adapts an io.ReaderAt with a known size into a Blob. The zero
// value is not usable; construct with NewFileBlob.
type FileBlob struct {
	ra     io.ReaderAt
	offset int64
	size   int64
}

// NewFileBlob wraps ra (typically an *os.File) as a Blob covering its first
// size bytes.
func NewFileBlob(ra io.ReaderAt, size int64) *FileBlob {
	return &FileBlob{ra: ra, size: size}
}

func (b *FileBlob) Size() int64 { return b.size }

func (b *FileBlob) Slice(from, to int64) Blob {
	return &FileBlob{ra: b.ra, offset: b.offset + from, size: to - from}
}

func (b *FileBlob) Reader() io.Reader {
	return io.NewSectionReader(b.ra, b.offset, b.size)
}
