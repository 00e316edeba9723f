// Package encoder writes archived copies of assembled recordings.
package encoder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	EncodeTime() time.Duration
}

// EncodePCM16 compresses little-endian mono int16 PCM in BlockSize frames.
func EncodePCM16(enc Encoder, pcm []byte) error {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	return enc.Close()
}

// ArchiveName is the file name used for a recording captured at t.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("recording-%s-%s.flac", t.Format("20060102-150405"), uuid.NewString()[:8])
}

// WriteArchive stores pcm as FLAC under dir and returns the file path.
func WriteArchive(dir string, pcm []byte, sampleRate int) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	enc, err := NewFlac(sampleRate)
	if err != nil {
		return "", err
	}
	if err := EncodePCM16(enc, pcm); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ArchiveName(time.Now()))
	if err := os.WriteFile(path, enc.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}
