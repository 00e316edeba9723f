package controller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"voxverify/audio"
	"voxverify/decoder"
	"voxverify/log"
	"voxverify/recorder"
	"voxverify/validate"
)

// process turns the recorded chunks into an outcome: decode the audio, pull
// the acoustic payload out of it and have the server verify the signature.
func (c *Controller) process(ctx context.Context, sess *Session, chunks [][]byte, dur time.Duration) Outcome {
	out := Outcome{SessionID: sess.ID, Duration: dur}
	finish := func(status string, err error) Outcome {
		out.Status = status
		out.Err = err
		c.status(status)
		return out
	}

	c.log.Infof("Processing %d audio chunks...", len(chunks))
	blob := recorder.Assemble(chunks)
	c.log.Infof("Created audio buffer of size: %d bytes", len(blob))

	if c.deps.Archive != nil && len(blob) > 0 {
		if err := c.deps.Archive(blob, c.cfg.SampleRate); err != nil {
			c.log.Warnf("Could not archive recording: %v", err)
		}
	}

	c.log.Info("Decoding audio data...")
	samples, err := audio.DecodePCM16(blob)
	if err != nil {
		c.log.Errorf("Error decoding audio data: %v", err)
		return finish(StatusFormat, err)
	}
	c.log.Infof("Audio decoded: %d samples at %dHz", len(samples), c.cfg.SampleRate)

	peak, mean := audio.Stats(samples)
	c.log.Infof("Audio stats: max amplitude = %.4f, avg amplitude = %.4f", peak, mean)

	if !sess.HasInstance() {
		c.log.Warn("Decoder not initialized, attempting initialization...")
		if err := sess.setupDecoder(ctx, c.deps.Decoder, c.cfg.SampleRate); err != nil {
			c.log.Errorf("Failed to initialize decoder: %v", err)
			return finish(StatusDecoderRefresh, err)
		}
	}

	c.log.Infof("Decoding with %s...", sess.Module.Name())
	decodeStart := time.Now()
	payload, err := sess.Module.Decode(sess.Instance, audio.Float32Bytes(samples))
	decodeTime := time.Since(decodeStart)
	if err != nil {
		c.log.Errorf("Error in decode: %v", err)
		return finish(StatusDecode, err)
	}
	if len(payload) == 0 {
		c.log.Warn("No acoustic payload detected in audio")
		return finish(StatusNoSignal, nil)
	}

	text, ok := decoder.PayloadText(payload)
	if !ok {
		c.log.Warn("Payload is not valid UTF-8, using raw bytes")
	}
	out.Text = text
	out.Raw = !ok
	c.log.Infof("Decoded text found: %s", text)
	c.status(decoder.Truncate(text, StatusTextLimit))

	if c.deps.Validator == nil {
		c.log.Error("Error communicating with server: no validator")
		return finish(StatusServer, errors.New("no validator"))
	}
	c.log.Infof("Sending decoded text to server for validation: %s", text)
	result, err := c.deps.Validator.Validate(ctx, text)
	if err != nil {
		c.log.Errorf("Error communicating with server: %v", err)
		return finish(StatusServer, err)
	}
	out.Result = result
	c.log.Infof("Server response status: %d", result.StatusCode)
	if raw, err := json.Marshal(result); err == nil {
		c.log.Infof("Server validation result: %s", raw)
	}
	c.logMetrics(result, len(chunks), len(blob), dur, decodeTime)

	if !result.Success() {
		c.log.Errorf("Server error: %s", result.Message)
		if result.Message != "" {
			return finish(result.Message, nil)
		}
		return finish(StatusInvalid, nil)
	}
	if !result.Verified {
		c.log.Warn("Signature verification failed")
		return finish(StatusUnverified, nil)
	}
	c.log.Info("Signature verification successful!")
	out.Verified = true
	log.Signature(result.ExtractedMessage)
	return finish(result.ExtractedMessage, nil)
}

func (c *Controller) logMetrics(r *validate.Result, chunks, size int, dur, decodeTime time.Duration) {
	m := log.Metrics{
		AudioLengthS: dur.Seconds(),
		ChunkCount:   chunks,
		RawSizeKB:    float64(size) / 1024,
		DecodeTimeMs: msec(decodeTime),
		StatusCode:   r.StatusCode,
	}
	var reused bool
	var proto string
	if nm := r.Metrics; nm != nil {
		m.DNSTimeMs = msec(nm.DNS)
		m.TLSTimeMs = msec(nm.TLS)
		m.TTFBMs = msec(nm.TTFB)
		m.TotalTimeMs = msec(nm.Total)
		reused = nm.ConnReused
		proto = nm.TLSProtocol
	}
	log.ValidationMetrics(m, r.RequestID, reused, proto)
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
