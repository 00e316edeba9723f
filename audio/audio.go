package audio

import "strings"

// DefaultSampleRate matches the decode engine's expected input rate.
const DefaultSampleRate = 48000

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth reports whether a device name looks like a headset. Headset
// microphones run a narrowband codec that cuts off the ultrasonic carrier.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives little-endian signed 16-bit mono PCM.
type DataCallback func(data []byte, frameCount uint32)

// Constraints mirror the capture processing switches of a browser
// getUserMedia call. Every switch must stay off for acoustic payloads.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Raw is the only constraint set the validator records with.
var Raw = Constraints{}

type CaptureConfig struct {
	SampleRate  uint32
	Channels    uint32
	Constraints Constraints
}

func DefaultCaptureConfig(sampleRate int) CaptureConfig {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return CaptureConfig{SampleRate: uint32(sampleRate), Channels: 1, Constraints: Raw}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context is an audio host session at a fixed sample rate.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
