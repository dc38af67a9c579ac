package logfile_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/0xRadioAc7iv/go-kvs/internal/logfile"
)

func TestAppendReturnsPositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := logfile.OpenWriter(path, 0)
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	defer w.Close()

	chunks := [][]byte{[]byte("hello"), []byte(""), []byte("world!"), bytes.Repeat([]byte("x"), 100*1024)}
	var positions []logfile.Pos

	var want uint64
	for _, chunk := range chunks {
		pos, err := w.Append(chunk)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if pos.Offset != want || pos.Length != uint64(len(chunk)) {
			t.Fatalf("Append returned %+v, want offset %d length %d", pos, want, len(chunk))
		}
		want = pos.End()
		positions = append(positions, pos)
	}

	if w.Offset() != want {
		t.Fatalf("Offset() = %d, want %d", w.Offset(), want)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	r, err := logfile.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer r.Close()

	for i, pos := range positions {
		got, err := r.ReadRange(pos)
		if err != nil {
			t.Fatalf("ReadRange(%+v) failed: %v", pos, err)
		}
		if !bytes.Equal(got, chunks[i]) {
			t.Errorf("chunk %d mismatch", i)
		}
	}
}

func TestReadRangePastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := logfile.OpenWriter(path, 0)
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if _, err := w.Append([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := logfile.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	tests := []logfile.Pos{
		{Offset: 0, Length: 4},
		{Offset: 2, Length: 2},
		{Offset: 10, Length: 1},
	}

	for _, pos := range tests {
		if _, err := r.ReadRange(pos); !errors.Is(err, logfile.ErrShortRead) {
			t.Errorf("ReadRange(%+v): expected ErrShortRead, got %v", pos, err)
		}
	}
}

func TestOpenWriterResumesAtOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := logfile.OpenWriter(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	w.Append([]byte("first"))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = logfile.OpenWriter(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := w.Append([]byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	if pos.Offset != 5 {
		t.Fatalf("expected append at offset 5, got %d", pos.Offset)
	}
	if err := w.Sync(); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, err := logfile.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	stream, size, err := r.Stream()
	if err != nil {
		t.Fatal(err)
	}
	all, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}

	if size != 11 || string(all) != "firstsecond" {
		t.Fatalf("unexpected file contents %q (size %d)", all, size)
	}
}

func TestCreateWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := logfile.OpenWriter(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	w.Append([]byte("stale contents"))
	w.Close()

	w, err = logfile.CreateWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.Offset() != 0 {
		t.Fatalf("expected fresh writer at offset 0, got %d", w.Offset())
	}
	w.Append([]byte("new"))
	w.Close()

	r, err := logfile.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	_, size, err := r.Stream()
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 {
		t.Fatalf("expected size 3 after recreate, got %d", size)
	}
}

func TestWriterAndReaderSatisfyInterfaces(t *testing.T) {
	var _ logfile.Appender = (*logfile.Writer)(nil)
	var _ logfile.RangeReader = (*logfile.Reader)(nil)
}
