package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bytesPerSample = 2

var ErrEmptyAudio = errors.New("empty audio buffer")

// DecodePCM16 turns an assembled recording into float samples in [-1, 1).
// The buffer is raw s16le mono as delivered by a capture device, or a
// complete WAV file. Multi-channel WAV input keeps the first channel.
func DecodePCM16(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, ErrEmptyAudio
	}
	if bytes.HasPrefix(blob, []byte("RIFF")) {
		buf, err := decodeWAV(bytes.NewReader(blob))
		if err != nil {
			return nil, err
		}
		return intBufferToFloat32(buf), nil
	}
	if len(blob)%bytesPerSample != 0 {
		return nil, fmt.Errorf("pcm buffer length %d is not a whole number of 16-bit samples", len(blob))
	}
	out := make([]float32, len(blob)/bytesPerSample)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(blob[i*2:]))
		out[i] = float32(s) / 32768
	}
	return out, nil
}

func decodeWAV(r io.ReadSeeker) (*goaudio.IntBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav container")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav pcm: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wav has no channels")
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(d.BitDepth)
	}
	return buf, nil
}

func intBufferToFloat32(buf *goaudio.IntBuffer) []float32 {
	chans := buf.Format.NumChannels
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data)/chans)
	for i := range out {
		out[i] = float32(buf.Data[i*chans]) / scale
	}
	return out
}

// Float32Bytes reinterprets samples as little-endian IEEE-754 bytes, the
// layout the decode engine reads its input in.
func Float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// BytesToFloat32 is the inverse of Float32Bytes.
func BytesToFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("float32 buffer length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Stats returns the peak and mean absolute amplitude.
func Stats(samples []float32) (peak, mean float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range samples {
		a := math.Abs(float64(s))
		sum += a
		if a > peak {
			peak = a
		}
	}
	return peak, sum / float64(len(samples))
}

// PCM16ToFloat32 converts s16le bytes, dropping a trailing odd byte.
func PCM16ToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/bytesPerSample)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return out
}

// ReadWAV loads a WAV file as s16le mono PCM plus its sample rate.
func ReadWAV(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	buf, err := decodeWAV(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	samples := intBufferToFloat32(buf)
	pcm := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(toInt16(s)))
	}
	return pcm, buf.Format.SampleRate, nil
}

// WriteWAV stores float samples as a 16-bit mono WAV.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(toInt16(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile creates path and writes samples into it.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toInt16(s float32) int16 {
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
