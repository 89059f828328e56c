package modbuscomm

import (
	"fmt"
	stdlog "log"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
)

// System is the part of the running tree the poller drives.
type System interface {
	Resolve(path ...string) (uuid.UUID, error)
	SetSwitch(pid uuid.UUID, on bool) error
	Status() (ecc.Status, error)
}

// Config is the configuration format for Poller
type Config struct {
	IPAddr       string        `json:"IPAddr"`
	Port         string        `json:"Port"`
	SlaveID      byte          `json:"SlaveID"`
	Timeout      int           `json:"Timeout"`
	PollRate     int           `json:"PollRate"`
	EnableLogger bool          `json:"EnableLogger"`
	Switches     []SwitchInput `json:"Switches"`
	Meters       []Meter       `json:"Meters"`
}

// SwitchInput binds a coil to the switch of the node at Path.
type SwitchInput struct {
	Coil uint16   `json:"Coil"`
	Path []string `json:"Path"`
}

// Meter writes a reading of the node at Path into a holding register.
// Networks report 1 when operating, sources report amp hours remaining,
// circuits report load watts and consumers report 1 when powered.
type Meter struct {
	Register
	Path []string `json:"Path"`
}

type switchInput struct {
	coil uint16
	pid  uuid.UUID
	path string
}

type meter struct {
	register Register
	pid      uuid.UUID
}

// Poller mirrors a panel of switch coils into the tree and writes meter
// readings back to the panel.
type Poller struct {
	handler  *modbus.TCPClientHandler
	system   System
	pollRate time.Duration
	switches []switchInput
	meters   []meter
	first    uint16
	count    uint16
	last     map[uint16]bool
	stop     chan bool
	stopOnce *sync.Once
	log      *logrus.Entry
}

// New reads the poller config and resolves its node paths against system,
// which must already be processing commands.
func New(configPath string, system System, log *logrus.Entry) (*Poller, error) {
	cfg := Config{}
	if err := datastreams.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	p, err := newPoller(cfg, system, log)
	if err != nil {
		return nil, err
	}

	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID
	if cfg.EnableLogger {
		handler.Logger = stdlog.New(p.log.WriterLevel(logrus.DebugLevel), "modbus: ", 0)
	}
	p.handler = handler
	return p, nil
}

func newPoller(cfg Config, system System, log *logrus.Entry) (*Poller, error) {
	if cfg.PollRate <= 0 {
		return nil, fmt.Errorf("%w: modbus poll rate must be positive", ecc.ErrInvalidConfig)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &Poller{
		system:   system,
		pollRate: time.Duration(cfg.PollRate) * time.Millisecond,
		last:     make(map[uint16]bool),
		stop:     make(chan bool),
		stopOnce: &sync.Once{},
		log:      log.WithField("component", "Modbus").WithField("target", cfg.IPAddr+":"+cfg.Port),
	}

	for i, s := range cfg.Switches {
		pid, err := system.Resolve(s.Path...)
		if err != nil {
			return nil, fmt.Errorf("switch %v %q: %w", s.Coil, strings.Join(s.Path, "/"), err)
		}
		p.switches = append(p.switches, switchInput{coil: s.Coil, pid: pid, path: strings.Join(s.Path, "/")})
		if i == 0 || s.Coil < p.first {
			p.first = s.Coil
		}
	}
	for _, s := range p.switches {
		if n := s.coil - p.first + 1; n > p.count {
			p.count = n
		}
	}

	for _, m := range cfg.Meters {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ecc.ErrInvalidConfig, err)
		}
		pid, err := system.Resolve(m.Path...)
		if err != nil {
			return nil, fmt.Errorf("meter %v %q: %w", m.Address, strings.Join(m.Path, "/"), err)
		}
		p.meters = append(p.meters, meter{register: m.Register, pid: pid})
	}
	return p, nil
}

// Stop ends Process.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Process polls the target at the configured rate until stopped.
func (p *Poller) Process() {
	ticker := time.NewTicker(p.pollRate)
	defer ticker.Stop()

	p.log.Info("process started")
loop:
	for {
		select {
		case <-ticker.C:
			if err := p.cycle(); err != nil {
				p.log.WithError(err).Warn("poll failed")
			}
		case <-p.stop:
			break loop
		}
	}
	p.log.Info("process shutdown")
}

func (p *Poller) cycle() error {
	if err := p.handler.Connect(); err != nil {
		return err
	}
	defer p.handler.Close()
	return p.poll(modbus.NewClient(p.handler))
}

func (p *Poller) poll(client modbus.Client) error {
	if err := p.readSwitches(client); err != nil {
		return err
	}
	return p.writeMeters(client)
}

// readSwitches applies coils that changed since the last successful poll.
// Every coil is applied on the first poll.
func (p *Poller) readSwitches(client modbus.Client) error {
	if len(p.switches) == 0 {
		return nil
	}
	bits, err := client.ReadCoils(p.first, p.count)
	if err != nil {
		return err
	}

	for _, s := range p.switches {
		on := coil(bits, s.coil-p.first)
		if prev, seen := p.last[s.coil]; seen && prev == on {
			continue
		}
		if err := p.system.SetSwitch(s.pid, on); err != nil {
			return err
		}
		p.last[s.coil] = on
		p.log.WithFields(logrus.Fields{"coil": s.coil, "path": s.path, "on": on}).Info("switch input changed")
	}
	return nil
}

func (p *Poller) writeMeters(client modbus.Client) error {
	if len(p.meters) == 0 {
		return nil
	}
	status, err := p.system.Status()
	if err != nil {
		return err
	}

	values := readings(status)
	for _, m := range p.meters {
		v, ok := values[m.pid]
		if !ok {
			continue
		}
		_, err := client.WriteMultipleRegisters(m.register.Address, sizeOf(m.register.DataType), encode(v, m.register))
		if err != nil {
			return err
		}
	}
	return nil
}

func readings(status ecc.Status) map[uuid.UUID]float64 {
	values := make(map[uuid.UUID]float64)
	for _, n := range status.Networks {
		values[n.PID] = flag(n.Operating)
		for _, s := range n.Sources {
			values[s.PID] = s.AmpHoursRemaining
			for _, c := range s.Circuits {
				values[c.PID] = c.LoadWatts
				for _, consumer := range c.Consumers {
					values[consumer.PID] = flag(consumer.HasPower)
				}
			}
		}
	}
	return values
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
