package ecc

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrMissingProfile is returned when a node is built without a profile.
	ErrMissingProfile = errors.New("missing profile")
	// ErrInvalidConfig is returned for a malformed controller configuration.
	ErrInvalidConfig = errors.New("invalid controller config")
)

// Switch is the external control surface shared by all four levels of the tree.
type Switch interface {
	PID() uuid.UUID
	Name() string
	SwitchedOn() bool
	SetSwitchedOn(bool)
	Toggle() bool
	HasPower() bool
	Operating() bool
}

// node holds the identity and switch state embedded in every tree level.
type node struct {
	pid        uuid.UUID
	switchedOn bool
}

func newNode() (node, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return node{}, err
	}
	return node{pid: pid, switchedOn: true}, nil
}

// PID is an accessor for the node's process id.
func (n *node) PID() uuid.UUID {
	return n.pid
}

// SwitchedOn reports the manual switch position.
func (n *node) SwitchedOn() bool {
	return n.switchedOn
}

// SetSwitchedOn sets the manual switch position.
func (n *node) SetSwitchedOn(b bool) {
	n.switchedOn = b
}

// Toggle flips the switch and returns the new position.
func (n *node) Toggle() bool {
	n.switchedOn = !n.switchedOn
	return n.switchedOn
}

// removeByPID deletes the first element with a matching pid, preserving order.
func removeByPID[T interface{ PID() uuid.UUID }](list []T, pid uuid.UUID) ([]T, bool) {
	for i, v := range list {
		if v.PID() == pid {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

// byIndex returns the element at index i, or the zero value when out of range.
func byIndex[T any](list []T, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(list) {
		return zero, false
	}
	return list[i], true
}
