package persistence

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"gsd/internal/persistence/interfaces"
	"gsd/internal/structures"
)

// SnapshotCompressor compresses store snapshots with zstd. The encoder
// level comes from storage.compressionLevel on the zstd 1-22 scale,
// 0 meaning the library default.
type SnapshotCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (c *SnapshotCompressor) Compress(val []byte) ([]byte, error) {
	// Snapshots are JSON; halving the input size is a decent first guess.
	return c.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

func (c *SnapshotCompressor) Decompress(val []byte) ([]byte, error) {
	return c.decoder.DecodeAll(val, nil)
}

func NewZstdCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	level := zstd.SpeedDefault
	if n := conf.Storage.CompressionLevel; n != 0 {
		if n < 1 || n > 22 {
			return nil, fmt.Errorf("invalid compression level %d, expected 1-22", n)
		}
		level = zstd.EncoderLevelFromZstd(n)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &SnapshotCompressor{encoder: encoder, decoder: decoder}, nil
}
