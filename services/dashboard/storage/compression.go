package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const seqSize = 8

var errShortValue = errors.New("stored value is too short")

// compressor packs document bodies with zstd, prefixed by their insertion sequence
type compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCompressor(level int) (*compressor, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (c *compressor) pack(seq uint64, body []byte) []byte {
	out := make([]byte, seqSize, seqSize+len(body))
	binary.BigEndian.PutUint64(out, seq)
	return c.encoder.EncodeAll(body, out)
}

func (c *compressor) unpack(value []byte) (uint64, []byte, error) {
	if len(value) < seqSize {
		return 0, nil, errShortValue
	}

	seq := binary.BigEndian.Uint64(value[:seqSize])
	body, err := c.decoder.DecodeAll(value[seqSize:], nil)
	if err != nil {
		return 0, nil, fmt.Errorf("decompression failed: %w", err)
	}

	return seq, body, nil
}

func (c *compressor) close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}
