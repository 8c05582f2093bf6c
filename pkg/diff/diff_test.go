package diff

import (
	"bytes"
	"testing"
)

func TestMakeApplyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		old  []byte
		new  []byte
	}{
		{"empty to empty", nil, nil},
		{"empty to content", nil, []byte("new content")},
		{"content to empty", []byte("old content"), nil},
		{"identical", []byte("same bytes here"), []byte("same bytes here")},
		{"small edit", []byte("the quick brown fox jumps over the lazy dog"), []byte("the quick brown fox leaps over the lazy dog")},
		{"prefix insert", []byte("tail content stays the same across versions"), []byte("PREFIX-tail content stays the same across versions")},
		{"fully different", bytes.Repeat([]byte{0xAA}, 5000), bytes.Repeat([]byte{0xBB}, 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, level := range []int{1, 5, 9} {
				artifact, err := MakeDiff(tt.old, tt.new, level)
				if err != nil {
					t.Fatalf("MakeDiff level=%d: %v", level, err)
				}

				got, err := ApplyDiff(tt.old, artifact)
				if err != nil {
					t.Fatalf("ApplyDiff level=%d: %v", level, err)
				}

				if !bytes.Equal(got, tt.new) {
					t.Fatalf("level=%d: round-trip mismatch\nwant: %q\ngot:  %q", level, tt.new, got)
				}
			}
		})
	}
}

func TestApplyDiffCorruptedArtifact(t *testing.T) {
	_, err := ApplyDiff([]byte("old"), []byte{0x01, 0x02})
	if err == nil {
		t.Fatal("expected error decoding truncated artifact")
	}
}

func TestApplyRejectsOutOfRangeCopy(t *testing.T) {
	delta := NewDelta(3, 10)
	delta.AddOperation(Operation{Type: OpCopy, Offset: 0, Size: 10, SrcOffset: 0})
	if _, err := Apply([]byte("abc"), delta); err == nil {
		t.Fatal("expected error for copy beyond old content bounds")
	}
}

func TestConfigForLevelStaysInBounds(t *testing.T) {
	for level := 0; level <= 10; level++ {
		cfg := ConfigForLevel(level)
		if cfg.BlockSize < MinBlockSize || cfg.BlockSize > MaxBlockSize {
			t.Fatalf("level %d: block size %d out of bounds", level, cfg.BlockSize)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("level %d: invalid config: %v", level, err)
		}
	}
}
