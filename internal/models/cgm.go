package models

// CgmProperties is the sticky per-user description of the current CGM device.
// A device without real-time capability makes the historic stream alone
// authoritative for the merged view.
type CgmProperties struct {
	HasRealTime bool `json:"has-real-time"`
}

// Device identifies the uploading hardware; scans recorded without one fall
// back to an unknown model and the zero device id.
type Device struct {
	ModelName string `json:"model_name"`
	DeviceID  string `json:"device_id"`
}
