package controller

type State int

const (
	Idle State = iota
	Initializing
	Ready
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	}
	return "unknown"
}

// Status lines shown to the user.
const (
	StatusWelcome        = "Press Validate to start"
	StatusInitializing   = "Initializing audio system..."
	StatusReady          = "Ready to record"
	StatusListening      = "Listening..."
	StatusProcessing     = "Processing..."
	StatusAudioInit      = "Error initializing audio system. Please try again."
	StatusDecoderInit    = "Decoder initialization failed. Please try again."
	StatusDecoderRefresh = "Decoder initialization failed. Please refresh."
	StatusMicrophone     = "Cannot access microphone. Please check permissions."
	StatusFormat         = "Error processing audio format. Please try again."
	StatusProcessFailed  = "Error processing audio. Please try again."
	StatusDecode         = "Error decoding audio. Please try again."
	StatusNoSignal       = "No signal detected. Please try again."
	StatusServer         = "Error communicating with the server."
	StatusUnverified     = "Signature could not be verified."
	StatusInvalid        = "Error validating the signature."
)

// StatusTextLimit is the number of runes of decoded text shown while the
// server is consulted.
const StatusTextLimit = 40
