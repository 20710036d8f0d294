package cycle

// State is the step the cycle worker is currently executing.
//
//go:generate go tool enumer -type=State -trimprefix=State
type State int32

const (
	StateIdle State = iota
	StateAdmitting
	StateFollowing
	StateUnfollowing
	StateSweeping
)
