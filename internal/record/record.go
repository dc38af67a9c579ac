package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrCorrupt is returned when a frame fails its checksum or its body cannot be decoded.
	ErrCorrupt = errors.New("corrupt record")

	// ErrTruncated is returned when fewer bytes are available than the frame header declares.
	ErrTruncated = errors.New("truncated record")

	// ErrTooLarge is returned when an encoded body does not fit the frame's size field.
	ErrTooLarge = errors.New("record too large")
)

// Kind tags the variant of a Command.
type Kind uint8

const (
	KindSet    Kind = 1
	KindRemove Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is a single mutation appended to the log. Commands are never
// edited once written; a later command for the same key supersedes it.
type Command struct {
	Kind  Kind   `msgpack:"k"`
	Key   string `msgpack:"key"`
	Value []byte `msgpack:"val,omitempty"`
}

// Frame layout:
//
//	Checksum (8) + Codec (1) + BodySize (4) + Body
//
// Checksum is xxh3 over everything that follows it.
const FrameHeaderSizeBytes = 13

// MaxBodySizeBytes is the largest (possibly compressed) body a frame can carry.
const MaxBodySizeBytes = math.MaxUint32

func NewSet(key string, value []byte) Command {
	return Command{Kind: KindSet, Key: key, Value: value}
}

func NewRemove(key string) Command {
	return Command{Kind: KindRemove, Key: key}
}

// EncodeCommandToBytes serializes cmd into a complete frame. The length of the
// returned slice is exactly what the frame occupies on disk.
func EncodeCommandToBytes(cmd *Command, codec Codec) ([]byte, error) {
	body, err := msgpack.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", cmd.Kind, err)
	}

	body, err = compress(codec, body)
	if err != nil {
		return nil, err
	}

	if err := checkBodySize(uint64(len(body))); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.Grow(FrameHeaderSizeBytes + len(body))

	// checksum placeholder, patched below
	if err := binary.Write(buf, binary.LittleEndian, uint64(0)); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(byte(codec)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(body))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(body); err != nil {
		return nil, err
	}

	frame := buf.Bytes()
	binary.LittleEndian.PutUint64(frame[0:8], Checksum(frame[8:]))

	return frame, nil
}

func checkBodySize(n uint64) error {
	if n > MaxBodySizeBytes {
		return fmt.Errorf("%w: body is %d bytes, limit is %d", ErrTooLarge, n, uint64(MaxBodySizeBytes))
	}
	return nil
}

// DecodeCommandFromBytes parses exactly one frame. The slice must contain
// the whole frame and nothing else.
func DecodeCommandFromBytes(frame []byte) (*Command, error) {
	if len(frame) < FrameHeaderSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(frame), FrameHeaderSizeBytes)
	}

	checksum := binary.LittleEndian.Uint64(frame[0:8])
	codec := Codec(frame[8])
	bodySize := binary.LittleEndian.Uint32(frame[9:13])

	if want := uint64(FrameHeaderSizeBytes) + uint64(bodySize); uint64(len(frame)) < want {
		return nil, fmt.Errorf("%w: %d bytes, frame needs %d", ErrTruncated, len(frame), want)
	} else if uint64(len(frame)) > want {
		return nil, fmt.Errorf("%w: %d trailing bytes after frame", ErrCorrupt, uint64(len(frame))-want)
	}

	if !ValidateChecksum(frame[8:], checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	body, err := decompress(codec, frame[FrameHeaderSizeBytes:])
	if err != nil {
		return nil, err
	}

	cmd := &Command{}
	if err := msgpack.Unmarshal(body, cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if cmd.Kind != KindSet && cmd.Kind != KindRemove {
		return nil, fmt.Errorf("%w: unknown command %s", ErrCorrupt, cmd.Kind)
	}

	return cmd, nil
}

// ReadFrame reads the next complete frame from r. limit is the number of
// bytes still available in the underlying source; a header that claims more
// than that is reported as truncated instead of being allocated.
//
// io.EOF is returned only when r is exhausted exactly on a frame boundary.
func ReadFrame(r io.Reader, limit int64) ([]byte, error) {
	header := make([]byte, FrameHeaderSizeBytes)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: partial frame header", ErrTruncated)
		}
		return nil, err
	}

	bodySize := int64(binary.LittleEndian.Uint32(header[9:13]))
	if FrameHeaderSizeBytes+bodySize > limit {
		return nil, fmt.Errorf("%w: frame needs %d bytes, %d remain", ErrTruncated, FrameHeaderSizeBytes+bodySize, limit)
	}

	frame := make([]byte, FrameHeaderSizeBytes+bodySize)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[FrameHeaderSizeBytes:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: partial frame body", ErrTruncated)
		}
		return nil, err
	}

	return frame, nil
}
