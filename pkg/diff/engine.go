// Package diff implements the binary diff primitive: producing a compact
// artifact describing how to reconstruct new content from old content, and
// replaying that artifact to perform the reconstruction. The algorithm is a
// content-defined-chunking block differ: the old content is indexed into
// fixed-size blocks keyed by a fast rolling hash, and the new content is
// scanned block by block looking for matches, emitting copy operations for
// matches and insert operations for everything else.
package diff

import (
	"crypto/sha256"
	"hash/crc32"

	hexhash "github.com/sam-mfb/graft/pkg/rollinghash"
)

// Engine drives signature generation and delta computation for one
// chunking configuration.
type Engine struct {
	config *Config
}

// NewEngine creates a diff engine. A nil config uses DefaultConfig.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: config}, nil
}

// GenerateSignature builds a block-hash index over old content.
func (e *Engine) GenerateSignature(old []byte) *Signature {
	signature := NewSignature(e.config.BlockSize, int64(len(old)))

	var offset int64
	for offset < int64(len(old)) {
		end := offset + int64(e.config.BlockSize)
		if end > int64(len(old)) {
			end = int64(len(old))
		}
		block := old[offset:end]

		var checksum uint32
		if e.config.EnableCRC32 {
			checksum = crc32.ChecksumIEEE(block)
		}

		signature.AddBlock(Block{
			Offset:   offset,
			Size:     len(block),
			Hash:     hexhash.FastHash(block),
			Checksum: checksum,
		})

		offset = end
	}

	if e.config.EnableSHA256 {
		signature.Checksum = sha256.Sum256(old)
	}

	return signature
}

// GenerateDelta computes the ordered operations that reconstruct new from old.
func (e *Engine) GenerateDelta(old, new []byte) *Delta {
	signature := e.GenerateSignature(old)
	delta := NewDelta(int64(len(old)), int64(len(new)))

	var (
		offset         int64
		unmatchedStart int64
		unmatchedData  []byte
	)

	for offset < int64(len(new)) {
		end := offset + int64(e.config.BlockSize)
		if end > int64(len(new)) {
			end = int64(len(new))
		}
		block := new[offset:end]

		matched := e.matchBlock(block, offset, signature, delta, &unmatchedStart, &unmatchedData)
		if !matched {
			unmatchedData = append(unmatchedData, block...)
		}

		offset = end
	}

	if len(unmatchedData) > 0 {
		delta.AddOperation(Operation{
			Type:   OpInsert,
			Offset: unmatchedStart,
			Size:   len(unmatchedData),
			Data:   unmatchedData,
		})
	}

	delta.SetChecksum(new)
	return delta
}

// matchBlock looks up block in signature and, on a hit, flushes any pending
// unmatched bytes followed by a copy operation. It reports whether a match
// was found.
func (e *Engine) matchBlock(block []byte, offset int64, signature *Signature, delta *Delta, unmatchedStart *int64, unmatchedData *[]byte) bool {
	blockHash := hexhash.FastHash(block)
	matchedBlock := signature.FindBlock(blockHash, block)
	if matchedBlock == nil {
		if len(*unmatchedData) == 0 {
			*unmatchedStart = offset
		}
		return false
	}

	if len(*unmatchedData) > 0 {
		delta.AddOperation(Operation{
			Type:   OpInsert,
			Offset: *unmatchedStart,
			Size:   len(*unmatchedData),
			Data:   *unmatchedData,
		})
		*unmatchedData = nil
	}

	delta.AddOperation(Operation{
		Type:      OpCopy,
		Offset:    offset,
		Size:      matchedBlock.Size,
		SrcOffset: matchedBlock.Offset,
	})
	*unmatchedStart = offset + int64(matchedBlock.Size)
	return true
}

// Apply replays a delta's operations against old content to reconstruct new content.
func Apply(old []byte, delta *Delta) ([]byte, error) {
	out := make([]byte, 0, delta.TargetSize)
	for _, op := range delta.Operations {
		switch op.Type {
		case OpCopy:
			if op.SrcOffset < 0 || op.SrcOffset+int64(op.Size) > int64(len(old)) {
				return nil, NewError("apply", "", ErrCorruptedArtifact)
			}
			out = append(out, old[op.SrcOffset:op.SrcOffset+int64(op.Size)]...)
		case OpInsert:
			out = append(out, op.Data...)
		default:
			return nil, NewError("apply", "", ErrCorruptedArtifact)
		}
	}
	if int64(len(out)) != delta.TargetSize {
		return nil, NewError("apply", "", ErrCorruptedArtifact)
	}
	return out, nil
}

