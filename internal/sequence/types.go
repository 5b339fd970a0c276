package sequence

// Keyframe is a value at time T (seconds into the clip) with the easing
// applied on the way to the next keyframe.
type Keyframe struct {
	T    float64 `json:"t" yaml:"t"`
	V    float64 `json:"v" yaml:"v"`
	Ease string  `json:"ease,omitempty" yaml:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a list of keyframes sorted by T; Eval(t) interpolates a value.
type Envelope []Keyframe

// Clip shows one named frame for DurationS seconds, optionally crossfading
// into the NEXT clip over its last XFadeS seconds.
type Clip struct {
	Frame     string  `json:"frame" yaml:"frame"`
	DurationS float64 `json:"durationS" yaml:"duration_s"`
	XFadeS    float64 `json:"xFadeS,omitempty" yaml:"xfade_s,omitempty"`
	// XFadeEase shapes the crossfade alpha.
	XFadeEase string `json:"xFadeEase,omitempty" yaml:"xfade_ease,omitempty"`
	// Gain scales the clip's levels over time, 0..1. Empty means 1.
	Gain Envelope `json:"gain,omitempty" yaml:"gain,omitempty"`
}

// Program is a full sequence of clips.
type Program struct {
	Loop  bool   `json:"loop,omitempty" yaml:"loop,omitempty"`
	Clips []Clip `json:"clips" yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are callbacks into whatever composes the displayed frame.
type Hooks struct {
	// Show a frame immediately.
	SetFrame func(name string)
	// Level scale for the ACTIVE frame, 0..1.
	SetGain func(v float64)
	// Prepare the next frame for crossfade.
	ArmNext      func(name string)
	SetCrossfade func(alpha float64) // 0..1 mix between active and armed
}

// Player owns the current Program timeline and uses Hooks to drive the display.
type Player struct {
	State PlayerState

	prog Program
	nowS float64 // position within program
	idx  int     // current clip index

	// crossfade bookkeeping
	armedIndex int  // which clip is armed next (-1 means none)
	armed      bool // whether next is armed
	lastAlpha  float64

	hooks Hooks
}
