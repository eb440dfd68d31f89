package server

// SwitchDeviceRequest selects a capture device by UID. An empty UID
// returns to the platform default.
type SwitchDeviceRequest struct {
	UID string `json:"uid" validate:"max=512"`
}

// ReferenceUpdateRequest pins the 0 VU reference level.
type ReferenceUpdateRequest struct {
	Dbfs float64 `json:"dbfs" validate:"gte=-60,lte=6"`
}

// SilenceUpdateRequest adjusts silence detection settings. Nil fields
// keep their current values.
type SilenceUpdateRequest struct {
	Threshold  *float64 `json:"threshold,omitempty" validate:"omitempty,gte=-60,lte=6"`
	DurationMs *int64   `json:"duration_ms,omitempty" validate:"omitempty,gte=100,lte=3600000"`
	RecoveryMs *int64   `json:"recovery_ms,omitempty" validate:"omitempty,gte=100,lte=3600000"`
}
