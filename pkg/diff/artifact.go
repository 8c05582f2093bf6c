package diff

import (
	"encoding/binary"
	"io"
)

// artifact wire format: a flat, self-contained encoding of a Delta, with no
// external framing. The engine never inspects these bytes once written; only
// MakeDiff/ApplyDiff below do.
//
//	uint64  sourceSize
//	uint64  targetSize
//	uint32  operation count
//	for each operation:
//	  uint8   type (0 = copy, 1 = insert)
//	  int64   offset
//	  uint32  size
//	  if copy:   int64 srcOffset
//	  if insert: size raw bytes follow

// MakeDiff produces a self-contained artifact describing how to reconstruct
// new from old. level is an opaque hint: higher values trade CPU time for a
// smaller artifact by shrinking the chunking block size.
func MakeDiff(old, new []byte, level int) ([]byte, error) {
	engine, err := NewEngine(ConfigForLevel(level))
	if err != nil {
		return nil, err
	}
	delta := engine.GenerateDelta(old, new)
	return encodeDelta(delta)
}

// ApplyDiff reconstructs new content from old content and an artifact
// produced by MakeDiff.
func ApplyDiff(old, artifact []byte) ([]byte, error) {
	delta, err := decodeDelta(artifact)
	if err != nil {
		return nil, err
	}
	return Apply(old, delta)
}

func encodeDelta(d *Delta) ([]byte, error) {
	buf := make([]byte, 0, 20+len(d.Operations)*24)
	var tmp [8]byte

	binary.BigEndian.PutUint64(tmp[:], uint64(d.SourceSize))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], uint64(d.TargetSize))
	buf = append(buf, tmp[:]...)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(d.Operations)))
	buf = append(buf, tmp4[:]...)

	for _, op := range d.Operations {
		buf = append(buf, byte(op.Type))

		binary.BigEndian.PutUint64(tmp[:], uint64(op.Offset))
		buf = append(buf, tmp[:]...)

		binary.BigEndian.PutUint32(tmp4[:], uint32(op.Size))
		buf = append(buf, tmp4[:]...)

		switch op.Type {
		case OpCopy:
			binary.BigEndian.PutUint64(tmp[:], uint64(op.SrcOffset))
			buf = append(buf, tmp[:]...)
		case OpInsert:
			buf = append(buf, op.Data...)
		default:
			return nil, NewError("encode", "", ErrInvalidOperation)
		}
	}

	return buf, nil
}

func decodeDelta(artifact []byte) (*Delta, error) {
	r := &byteReader{data: artifact}

	sourceSize, err := r.uint64()
	if err != nil {
		return nil, NewError("decode", "", ErrCorruptedArtifact)
	}
	targetSize, err := r.uint64()
	if err != nil {
		return nil, NewError("decode", "", ErrCorruptedArtifact)
	}
	count, err := r.uint32()
	if err != nil {
		return nil, NewError("decode", "", ErrCorruptedArtifact)
	}

	delta := NewDelta(int64(sourceSize), int64(targetSize))

	for i := uint32(0); i < count; i++ {
		typeByte, err := r.byte()
		if err != nil {
			return nil, NewError("decode", "", ErrCorruptedArtifact)
		}
		offset, err := r.uint64()
		if err != nil {
			return nil, NewError("decode", "", ErrCorruptedArtifact)
		}
		size, err := r.uint32()
		if err != nil {
			return nil, NewError("decode", "", ErrCorruptedArtifact)
		}

		op := Operation{
			Type:   OperationType(typeByte),
			Offset: int64(offset),
			Size:   int(size),
		}

		switch op.Type {
		case OpCopy:
			srcOffset, err := r.uint64()
			if err != nil {
				return nil, NewError("decode", "", ErrCorruptedArtifact)
			}
			op.SrcOffset = int64(srcOffset)
		case OpInsert:
			data, err := r.bytes(int(size))
			if err != nil {
				return nil, NewError("decode", "", ErrCorruptedArtifact)
			}
			op.Data = data
		default:
			return nil, NewError("decode", "", ErrInvalidOperation)
		}

		delta.AddOperation(op)
	}

	if !r.exhausted() {
		return nil, NewError("decode", "", ErrCorruptedArtifact)
	}

	return delta, nil
}

// byteReader is a minimal, allocation-free cursor over an artifact buffer.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) byte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) exhausted() bool {
	return r.pos == len(r.data)
}
