package model

// AuthMode selects how a session is established. A deployment uses exactly one.
type AuthMode string

const (
	AuthModeCookie AuthMode = "cookie"
	AuthModeLogin  AuthMode = "login"
)

// Stage names a phase of the run; it appears in notifications and outcome lines.
type Stage string

const (
	StageInit      Stage = "init"
	StageAuth      Stage = "authentication"
	StageDiscover  Stage = "discovery"
	StageDirective Stage = "directive"
	StageInspect   Stage = "inspection"
	StageAct       Stage = "action"
	StageEvidence  Stage = "evidence"
	StageRotate    Stage = "rotation"
	StageReport    Stage = "report"
)

// WaitPolicy tells the browser when a navigation counts as finished.
type WaitPolicy string

const (
	WaitLoad        WaitPolicy = "load"
	WaitNetworkIdle WaitPolicy = "networkidle"
)
