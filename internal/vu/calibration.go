// Package vu implements the level-measurement pipeline for an analog
// stereo VU meter: per-buffer RMS extraction and mechanical needle
// ballistics. All tuning constants live in a Calibration so a meter
// can be re-voiced without touching the DSP code.
package vu

// Calibration holds every tuning constant of the metering pipeline.
// Zero values are replaced by the defaults, so partial overrides from
// a config file compose with DefaultCalibration.
type Calibration struct {
	// Needle ballistics time constants in seconds.
	AttackTau  float64 `json:"attack_tau"`
	ReleaseTau float64 `json:"release_tau"`

	// Peak follower time constants in seconds.
	PeakAttackTau  float64 `json:"peak_attack_tau"`
	PeakReleaseTau float64 `json:"peak_release_tau"`

	// OvershootMix is the fraction of the needle-to-peak gap blended
	// into the output to reproduce transient overshoot.
	OvershootMix float64 `json:"overshoot_mix"`

	// JitterDb bounds the random needle perturbation (± meter units).
	JitterDb float64 `json:"jitter_db"`

	// IntegrationTau is the RMS power smoothing time constant.
	IntegrationTau float64 `json:"integration_tau"`

	// MaxDt caps the per-buffer elapsed time fed into the filters so
	// oversized buffers cannot destabilize the smoothing.
	MaxDt float64 `json:"max_dt"`

	// PreEmphasis is the transient pre-emphasis coefficient k in
	// emphasized = raw + k*(raw - previous).
	PreEmphasis float64 `json:"pre_emphasis"`

	// WakeThreshold is the linear RMS above which the smoothing state
	// snaps to the instantaneous power (fast re-acquisition after
	// silence). 0.002 is roughly -54 dBFS.
	WakeThreshold float64 `json:"wake_threshold"`

	// NoiseFloor is the linear RMS below which the integrated value is
	// forced to exactly zero before the log conversion.
	NoiseFloor float64 `json:"noise_floor"`

	// MeterMin and MeterMax bound the published display range.
	MeterMin float64 `json:"meter_min"`
	MeterMax float64 `json:"meter_max"`

	// Reference defaults in dBFS, applied when no override is set.
	// Monitored output is typically much hotter than a live mic.
	MonitorRefDbfs    float64 `json:"monitor_ref_dbfs"`
	MicrophoneRefDbfs float64 `json:"microphone_ref_dbfs"`
}

// logEpsilon guards the dB conversion against log10(0).
const logEpsilon = 1e-12

// minDt is the smallest elapsed time accepted by the filters.
const minDt = 1e-6

// DefaultCalibration returns the vintage hi-fi voicing: Pioneer-style
// fast attack with a gentle release and ~7% transient overshoot.
func DefaultCalibration() Calibration {
	return Calibration{
		AttackTau:         0.080,
		ReleaseTau:        0.320,
		PeakAttackTau:     0.010,
		PeakReleaseTau:    0.200,
		OvershootMix:      0.07,
		JitterDb:          0.001,
		IntegrationTau:    0.020,
		MaxDt:             0.050,
		PreEmphasis:       0.15,
		WakeThreshold:     0.002,
		NoiseFloor:        0.001,
		MeterMin:          -22.0,
		MeterMax:          3.0,
		MonitorRefDbfs:    -14.0,
		MicrophoneRefDbfs: 0.0,
	}
}

// Merge returns c with zero-valued fields replaced by defaults.
// MicrophoneRefDbfs defaults to zero, so an explicit zero override is
// indistinguishable from unset; both resolve to the same value.
func (c Calibration) Merge() Calibration {
	d := DefaultCalibration()
	if c.AttackTau != 0 {
		d.AttackTau = c.AttackTau
	}
	if c.ReleaseTau != 0 {
		d.ReleaseTau = c.ReleaseTau
	}
	if c.PeakAttackTau != 0 {
		d.PeakAttackTau = c.PeakAttackTau
	}
	if c.PeakReleaseTau != 0 {
		d.PeakReleaseTau = c.PeakReleaseTau
	}
	if c.OvershootMix != 0 {
		d.OvershootMix = c.OvershootMix
	}
	if c.JitterDb != 0 {
		d.JitterDb = c.JitterDb
	}
	if c.IntegrationTau != 0 {
		d.IntegrationTau = c.IntegrationTau
	}
	if c.MaxDt != 0 {
		d.MaxDt = c.MaxDt
	}
	if c.PreEmphasis != 0 {
		d.PreEmphasis = c.PreEmphasis
	}
	if c.WakeThreshold != 0 {
		d.WakeThreshold = c.WakeThreshold
	}
	if c.NoiseFloor != 0 {
		d.NoiseFloor = c.NoiseFloor
	}
	if c.MeterMin != 0 {
		d.MeterMin = c.MeterMin
	}
	if c.MeterMax != 0 {
		d.MeterMax = c.MeterMax
	}
	if c.MonitorRefDbfs != 0 {
		d.MonitorRefDbfs = c.MonitorRefDbfs
	}
	if c.MicrophoneRefDbfs != 0 {
		d.MicrophoneRefDbfs = c.MicrophoneRefDbfs
	}
	return d
}
