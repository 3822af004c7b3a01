package model

// ControlState is the observed state of a resource's power controls.
// A missing control is recorded as not present rather than as an error.
type ControlState struct {
	StartPresent  bool
	StartDisabled bool
	StopPresent   bool
	StopDisabled  bool
}

// NeedsRestart reports whether the resource is stopped. An enabled start
// control or a disabled stop control is each sufficient on its own.
func (c ControlState) NeedsRestart() bool {
	if c.StartPresent && !c.StartDisabled {
		return true
	}
	if c.StopPresent && c.StopDisabled {
		return true
	}
	return false
}

// RenewalOffer is what the settings page advertises about renewal.
type RenewalOffer struct {
	Balance      string
	Expiration   string
	Label        string
	Price        string
	Free         bool
	ControlFound bool
}

// InspectionResult is the per-resource outcome of one run. It is produced
// fresh for every resource and never reused.
type InspectionResult struct {
	Running       bool
	RestartNeeded bool
	Restarted     bool
	RenewalNeeded bool
	Renewed       bool
	Balance       string
	Price         string
	Expiration    string
	Message       string
}
