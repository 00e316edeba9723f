//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	outputOnce sync.Once

	// Playback state, read from the device callback
	playing atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initOutput() {
	outputOnce.Do(func() {
		var err error
		malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return
		}
		if err := initDevice(); err != nil {
			malgoCtx.Uninit()
			malgoCtx = nil
		}
	})
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	clear(pOutput)
	samples := playing.Load()
	if samples == nil {
		return
	}
	pos := playPos.Load()
	remaining := uint32(len(*samples)) - pos
	if remaining == 0 {
		playing.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(pOutput[:n], (*samples)[pos:pos+n])
	playPos.Store(pos + n)
}

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func play(samples []int16) {
	initOutput()
	if malgoCtx == nil || len(samples) == 0 {
		return
	}
	buf := toBytes(samples)

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}
	device.Stop()
	playPos.Store(0)
	playing.Store(&buf)

	if err := device.Start(); err != nil {
		// recreate the device, e.g. after sleep/wake
		device.Uninit()
		if err := initDevice(); err != nil {
			playing.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playing.Store(nil)
		}
	}
}
