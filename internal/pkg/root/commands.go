package root

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

// Status returns a snapshot of the tree as of the last evaluation.
func (s *System) Status() (ecc.Status, error) {
	var status ecc.Status
	err := s.do(func(c *ecc.Controller) {
		status = c.Status()
	})
	return status, err
}

// SetSwitch sets the switch of the node with the given pid. The change takes
// effect on the next evaluation.
func (s *System) SetSwitch(pid uuid.UUID, on bool) error {
	var err error
	if doErr := s.do(func(c *ecc.Controller) {
		sw, ok := c.Find(pid)
		if !ok {
			err = fmt.Errorf("%w %v", ErrUnknownNode, pid)
			return
		}
		if sw.SwitchedOn() == on {
			return
		}
		sw.SetSwitchedOn(on)
		s.log.WithField("node", sw.Name()).WithField("on", on).Info("switch set")
		s.publishStatus(c)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Toggle flips the switch of the node with the given pid and returns the new
// position.
func (s *System) Toggle(pid uuid.UUID) (bool, error) {
	var on bool
	var err error
	if doErr := s.do(func(c *ecc.Controller) {
		sw, ok := c.Find(pid)
		if !ok {
			err = fmt.Errorf("%w %v", ErrUnknownNode, pid)
			return
		}
		on = sw.Toggle()
		s.log.WithField("node", sw.Name()).WithField("on", on).Info("switch toggled")
		s.publishStatus(c)
	}); doErr != nil {
		return false, doErr
	}
	return on, err
}

// Resolve returns the pid of the node at the named path.
func (s *System) Resolve(path ...string) (uuid.UUID, error) {
	var pid uuid.UUID
	var err error
	if doErr := s.do(func(c *ecc.Controller) {
		sw, ok := c.Resolve(path...)
		if !ok {
			err = fmt.Errorf("%w %q", ErrUnknownNode, path)
			return
		}
		pid = sw.PID()
	}); doErr != nil {
		return uuid.UUID{}, doErr
	}
	return pid, err
}

// Advance steps the controller by d immediately, outside the tick cadence.
func (s *System) Advance(d time.Duration) error {
	return s.do(func(*ecc.Controller) {
		s.advance(d)
	})
}

// Settings returns the current controller settings.
func (s *System) Settings() (Settings, error) {
	var settings Settings
	err := s.do(func(c *ecc.Controller) {
		settings = s.settings(c)
	})
	return settings, err
}

// SetTimeMultiplier changes the energy time scale and publishes the new
// settings on msg.Config.
func (s *System) SetTimeMultiplier(m float64) error {
	var err error
	if doErr := s.do(func(c *ecc.Controller) {
		if err = c.SetTimeMultiplier(m); err != nil {
			return
		}
		s.publisher.Publish(msg.Config, s.settings(c))
	}); doErr != nil {
		return doErr
	}
	return err
}
