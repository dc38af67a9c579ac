// Package logfile provides positioned access to the append-only command log.
//
// The write side and the read side are separate handles on the same file.
// A Writer knows its end-of-file cursor and returns the exact position of
// every append; a Reader serves exact byte ranges at positions a Writer
// handed out earlier, plus a sequential stream of the whole file for replay.
package logfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrShortRead is returned when the file holds fewer bytes than a requested range.
var ErrShortRead = errors.New("short read")

// Pos locates one serialized command within a log file. A Pos is only
// meaningful for the file instance that produced it.
type Pos struct {
	Offset uint64 // Byte offset where the record starts
	Length uint64 // Total size of the record on disk
}

// End returns the offset just past the record.
func (p Pos) End() uint64 {
	return p.Offset + p.Length
}

// Appender is the write capability of a positioned log.
type Appender interface {
	Append(data []byte) (Pos, error)
	Offset() uint64
	Flush() error
	Sync() error
	Close() error
}

// RangeReader is the read capability of a positioned log.
type RangeReader interface {
	ReadRange(pos Pos) ([]byte, error)
	Close() error
}

// Writer appends to a log file through a buffer. Appended bytes are only
// visible to a Reader after Flush.
type Writer struct {
	file   *os.File
	buf    *bufio.Writer
	offset uint64
}

// OpenWriter opens (creating if needed) the file at path for appending,
// with the cursor placed at offset.
func OpenWriter(path string, offset uint64) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return &Writer{
		file:   f,
		buf:    bufio.NewWriterSize(f, 64*1024),
		offset: offset,
	}, nil
}

// CreateWriter creates an empty file at path, replacing any existing one.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &Writer{
		file: f,
		buf:  bufio.NewWriterSize(f, 64*1024),
	}, nil
}

func (w *Writer) Append(data []byte) (Pos, error) {
	n, err := w.buf.Write(data)
	if err != nil {
		return Pos{}, err
	}

	pos := Pos{Offset: w.offset, Length: uint64(n)}
	w.offset += uint64(n)
	return pos, nil
}

// Offset returns the current end-of-file cursor.
func (w *Writer) Offset() uint64 {
	return w.offset
}

func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Sync flushes the buffer and forces the file contents to stable storage.
func (w *Writer) Sync() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *Writer) Name() string {
	return w.file.Name()
}

func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Reader serves exact ranges of a log file.
type Reader struct {
	file *os.File
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f}, nil
}

// ReadRange reads exactly pos.Length bytes starting at pos.Offset.
func (r *Reader) ReadRange(pos Pos) ([]byte, error) {
	buf := make([]byte, pos.Length)

	n, err := r.file.ReadAt(buf, int64(pos.Offset))
	if n == len(buf) {
		return buf, nil
	}
	if err != nil && err != io.EOF {
		return nil, err
	}

	return nil, fmt.Errorf("%w: wanted %d bytes at offset %d, got %d", ErrShortRead, pos.Length, pos.Offset, n)
}

// Stream returns a buffered reader over the whole file from offset 0 and
// the file size at the time of the call.
func (r *Reader) Stream() (io.Reader, int64, error) {
	info, err := r.file.Stat()
	if err != nil {
		return nil, 0, err
	}

	section := io.NewSectionReader(r.file, 0, info.Size())
	return bufio.NewReaderSize(section, 64*1024), info.Size(), nil
}

func (r *Reader) Name() string {
	return r.file.Name()
}

func (r *Reader) Close() error {
	return r.file.Close()
}
