package domain

import "fmt"

// ConnectionState is the lifecycle state of a driver's physical connection.
type ConnectionState int

const (
	// StateDisconnected is the zero value: no active connection attempt.
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// CanConnect reports whether a connection attempt may be started from s.
func (s ConnectionState) CanConnect() bool {
	return s == StateDisconnected || s == StateFailed
}

// CanReconnect reports whether a reconnect attempt may be started from s.
func (s ConnectionState) CanReconnect() bool {
	return s == StateDisconnected || s == StateFailed
}

// IsConnected reports whether s is the fully connected state.
func (s ConnectionState) IsConnected() bool {
	return s == StateConnected
}

// IsTransitioning reports whether s is an in-flight connect/reconnect.
func (s ConnectionState) IsTransitioning() bool {
	return s == StateConnecting || s == StateReconnecting
}

// ToConnecting transitions to Connecting. Only legal from Disconnected or Failed.
func (s ConnectionState) ToConnecting() (ConnectionState, error) {
	if s == StateDisconnected || s == StateFailed {
		return StateConnecting, nil
	}
	return s, fmt.Errorf("can only connect from disconnected or failed state, got %s", s)
}

// ToConnected transitions to Connected. Only legal from Connecting or Reconnecting.
func (s ConnectionState) ToConnected() (ConnectionState, error) {
	if s == StateConnecting || s == StateReconnecting {
		return StateConnected, nil
	}
	return s, fmt.Errorf("can only complete connection from connecting or reconnecting state, got %s", s)
}

// ToDisconnected transitions to Disconnected unconditionally.
func (s ConnectionState) ToDisconnected() ConnectionState {
	return StateDisconnected
}

// ToReconnecting transitions to Reconnecting. Only legal from Connected or Disconnected.
func (s ConnectionState) ToReconnecting() (ConnectionState, error) {
	if s == StateConnected || s == StateDisconnected {
		return StateReconnecting, nil
	}
	return s, fmt.Errorf("can only reconnect from connected or disconnected state, got %s", s)
}

// ToFailed transitions to Failed unconditionally.
func (s ConnectionState) ToFailed() ConnectionState {
	return StateFailed
}
