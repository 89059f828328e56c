package scenario

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

func TestLoad(t *testing.T) {
	s, err := Load("./testdata/flashlight.json")
	assert.NilError(t, err)

	assert.Equal(t, s.Controller.RefreshRate(), 500*time.Millisecond)
	assert.Equal(t, s.Controller.Multiplier(), 60.0)
	assert.Equal(t, len(s.Profiles.Consumers), 2)
	assert.Equal(t, s.Profiles.Consumers[1].Custom["Wavelength"], 630.0)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("./testdata/missing.json")
	assert.Assert(t, err != nil)
}

func TestBuild(t *testing.T) {
	s, err := Load("./testdata/flashlight.json")
	assert.NilError(t, err)

	ctrl, err := s.Build(nil, quietLogger())
	assert.NilError(t, err)
	assert.Equal(t, ctrl.RefreshRate(), 500*time.Millisecond)
	assert.Equal(t, ctrl.TimeMultiplier(), 60.0)

	n, ok := ctrl.FirstNetwork()
	assert.Assert(t, ok)
	assert.Assert(t, n.SwitchedOn())

	src, ok := n.PowerSourceByName("AAA Battery")
	assert.Assert(t, ok)
	assert.Equal(t, src.AmpHoursUsed(), 0.2)

	c, ok := src.FirstCircuit()
	assert.Assert(t, ok)
	assert.Equal(t, c.ConsumerCount(), 3)

	red, ok := c.ConsumerByName("Red LED")
	assert.Assert(t, ok)
	assert.Assert(t, !red.SwitchedOn())

	// both White LEDs share a single profile
	first, _ := c.ConsumerByIndex(0)
	third, _ := c.ConsumerByIndex(2)
	assert.Assert(t, first.Profile() == third.Profile())
	assert.Assert(t, first.PID() != third.PID())
}

func TestBuildUnknownProfile(t *testing.T) {
	s, err := Load("./testdata/unknown_profile.json")
	assert.NilError(t, err)

	_, err = s.Build(nil, quietLogger())
	assert.Assert(t, errors.Is(err, ErrUnknownProfile))
	assert.ErrorContains(t, err, "D Cell")
}

func TestParseRejectsInvalidProfile(t *testing.T) {
	_, err := Parse([]byte(`{"Profiles": {"Sources": [{"Name": "Dead", "Volts": 0, "AmpHours": 1}]}}`))
	assert.Assert(t, errors.Is(err, profile.ErrInvalidProfile))
}

func TestParseRejectsDuplicate(t *testing.T) {
	_, err := Parse([]byte(`{"Profiles": {"Networks": [{"Name": "A"}, {"Name": "A"}]}}`))
	assert.Assert(t, errors.Is(err, ErrDuplicateProfile))
}

func TestDefaults(t *testing.T) {
	s, err := Parse([]byte(`{}`))
	assert.NilError(t, err)
	assert.Equal(t, s.Controller.Multiplier(), 1.0)
	assert.Equal(t, s.Controller.RefreshRate(), time.Duration(0))

	ctrl, err := s.Build(nil, quietLogger())
	assert.NilError(t, err)
	assert.Equal(t, ctrl.NetworkCount(), 0)
}

func TestBuildRejectsNegativeMultiplier(t *testing.T) {
	s, err := Parse([]byte(`{"Controller": {"TimeMultiplier": -1}}`))
	assert.NilError(t, err)

	_, err = s.Build(nil, quietLogger())
	assert.ErrorContains(t, err, "TimeMultiplier")
}
