package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/0xRadioAc7iv/go-kvs/internal/logfile"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

// replay reads the log sequentially from offset 0 and rebuilds the index.
// It returns the index, the number of stale bytes in the log, and the offset
// just past the last record, which becomes the write cursor.
//
// A truncated or corrupt record anywhere in the log fails the replay; nothing
// after it is salvaged.
func replay(r *logfile.Reader) (KeyDir, uint64, uint64, error) {
	stream, size, err := r.Stream()
	if err != nil {
		return nil, 0, 0, ioError("stat", r.Name(), err)
	}

	keyDir := make(KeyDir)
	var offset, stale uint64

	for {
		frame, err := record.ReadFrame(stream, size-int64(offset))
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, record.ErrTruncated) {
				return nil, 0, 0, serializationError(fmt.Sprintf("replay at offset %d", offset), err)
			}
			return nil, 0, 0, ioError("read", r.Name(), err)
		}

		cmd, err := record.DecodeCommandFromBytes(frame)
		if err != nil {
			return nil, 0, 0, serializationError(fmt.Sprintf("replay at offset %d", offset), err)
		}

		pos := logfile.Pos{Offset: offset, Length: uint64(len(frame))}

		switch cmd.Kind {
		case record.KindSet:
			if prev, ok := keyDir.Insert(cmd.Key, pos); ok {
				stale += prev.Length
			}
		case record.KindRemove:
			if prev, ok := keyDir.Remove(cmd.Key); ok {
				stale += prev.Length
			}
			stale += pos.Length
		}

		offset = pos.End()
	}

	return keyDir, stale, offset, nil
}
