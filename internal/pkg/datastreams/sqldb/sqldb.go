package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Handler keeps a circuit_status row per circuit and appends trips to overloads.
type Handler struct {
	pid      uuid.UUID
	system   msg.Publisher
	inbox    <-chan msg.Msg
	config   config
	dialect  dialect
	stop     chan bool
	stopOnce *sync.Once
	log      *logrus.Entry
}

type config struct {
	// Driver is "mysql" or "postgres".
	Driver   string `json:"Driver"`
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
	SSLMode  string `json:"SSLMode"`
	// Timeout bounds each write, in milliseconds.
	Timeout int `json:"Timeout"`
}

type dialect struct {
	createStatus    string
	createOverloads string
	upsertStatus    string
	insertOverload  string
}

var dialects = map[string]dialect{
	"mysql": {
		createStatus: `CREATE TABLE IF NOT EXISTS circuit_status(
			pid VARCHAR(36) PRIMARY KEY, name VARCHAR(255), source_pid VARCHAR(36),
			switched_on BOOLEAN, has_power BOOLEAN, load_watts DOUBLE, capacity_watts DOUBLE,
			updated_at TIMESTAMP)`,
		createOverloads: `CREATE TABLE IF NOT EXISTS overloads(
			id BIGINT AUTO_INCREMENT PRIMARY KEY, circuit_pid VARCHAR(36), circuit_name VARCHAR(255),
			load_watts DOUBLE, capacity_watts DOUBLE, tripped_at TIMESTAMP)`,
		upsertStatus: `INSERT INTO circuit_status
			(pid, name, source_pid, switched_on, has_power, load_watts, capacity_watts, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), source_pid = VALUES(source_pid),
			switched_on = VALUES(switched_on), has_power = VALUES(has_power),
			load_watts = VALUES(load_watts), capacity_watts = VALUES(capacity_watts),
			updated_at = VALUES(updated_at)`,
		insertOverload: `INSERT INTO overloads
			(circuit_pid, circuit_name, load_watts, capacity_watts, tripped_at)
			VALUES (?, ?, ?, ?, ?)`,
	},
	"postgres": {
		createStatus: `CREATE TABLE IF NOT EXISTS circuit_status(
			pid VARCHAR(36) PRIMARY KEY, name VARCHAR(255), source_pid VARCHAR(36),
			switched_on BOOLEAN, has_power BOOLEAN, load_watts DOUBLE PRECISION,
			capacity_watts DOUBLE PRECISION, updated_at TIMESTAMP)`,
		createOverloads: `CREATE TABLE IF NOT EXISTS overloads(
			id BIGSERIAL PRIMARY KEY, circuit_pid VARCHAR(36), circuit_name VARCHAR(255),
			load_watts DOUBLE PRECISION, capacity_watts DOUBLE PRECISION, tripped_at TIMESTAMP)`,
		upsertStatus: `INSERT INTO circuit_status
			(pid, name, source_pid, switched_on, has_power, load_watts, capacity_watts, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (pid) DO UPDATE SET name = EXCLUDED.name, source_pid = EXCLUDED.source_pid,
			switched_on = EXCLUDED.switched_on, has_power = EXCLUDED.has_power,
			load_watts = EXCLUDED.load_watts, capacity_watts = EXCLUDED.capacity_watts,
			updated_at = EXCLUDED.updated_at`,
		insertOverload: `INSERT INTO overloads
			(circuit_pid, circuit_name, load_watts, capacity_watts, tripped_at)
			VALUES ($1, $2, $3, $4, $5)`,
	},
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// New reads the handler config and subscribes to the system's broadcasts.
func New(configPath string, system msg.Publisher, log *logrus.Entry) (Handler, error) {
	cfg := config{}
	if err := datastreams.ReadConfig(configPath, &cfg); err != nil {
		return Handler{}, err
	}
	if cfg.Driver == "" {
		cfg.Driver = "mysql"
	}
	d, ok := dialects[cfg.Driver]
	if !ok {
		return Handler{}, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1000
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Handler{}, err
	}

	inbox, err := datastreams.Inbox(system, pid, msg.Status, msg.Overload)
	if err != nil {
		return Handler{}, err
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return Handler{
		pid:      pid,
		system:   system,
		inbox:    inbox,
		config:   cfg,
		dialect:  d,
		stop:     make(chan bool),
		stopOnce: &sync.Once{},
		log:      log.WithField("component", "SQL").WithField("driver", cfg.Driver),
	}, nil
}

// Stop ends Process.
func (h Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// DSN is the driver specific data source name.
func (h Handler) DSN() string {
	c := h.config
	if c.Driver == "postgres" {
		sslmode := c.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%v port=%v user=%v password=%v dbname=%v sslmode=%v",
			c.Server, c.Port, c.Username, c.Password, c.Database, sslmode)
	}
	return fmt.Sprintf("%v:%v@tcp(%v:%v)/%v?parseTime=true", c.Username, c.Password, c.Server, c.Port, c.Database)
}

// DB opens a handle to the configured database.
func (h Handler) DB() (*sql.DB, error) {
	return sql.Open(h.config.Driver, h.DSN())
}

// Process opens the database, creates the tables and writes until stopped.
func (h Handler) Process() {
	db, err := h.DB()
	if err != nil {
		h.log.WithError(err).Error("unable to open database")
		h.system.Unsubscribe(h.pid)
		return
	}
	defer db.Close()

	if err := h.initDBTables(db); err != nil {
		h.log.WithError(err).Error("unable to create tables")
		h.system.Unsubscribe(h.pid)
		return
	}
	h.run(db)
}

func (h Handler) run(db *sql.DB) {
	h.log.Info("process started")
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if err := h.write(db, m); err != nil {
				h.log.WithError(err).Warn("unable to update db")
			}
		case <-h.stop:
			break loop
		}
	}
	h.system.Unsubscribe(h.pid)
	h.log.Info("process shutdown")
}

func (h Handler) initDBTables(db *sql.DB) error {
	if _, err := db.Exec(h.dialect.createStatus); err != nil {
		return err
	}
	_, err := db.Exec(h.dialect.createOverloads)
	return err
}

func (h Handler) write(db *sql.DB, m msg.Msg) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Timeout)*time.Millisecond)
	defer cancel()

	switch payload := m.Payload().(type) {
	case ecc.Status:
		return h.updateRows(ctx, db, payload, time.Now().UTC())
	case ecc.Trip:
		_, err := db.ExecContext(ctx, h.dialect.insertOverload,
			payload.Circuit.String(), payload.CircuitName, payload.LoadWatts, payload.CapacityWatts, time.Now().UTC())
		return err
	}
	return nil
}

// updateRows upserts every circuit of the snapshot in one transaction.
func (h Handler) updateRows(ctx context.Context, db *sql.DB, status ecc.Status, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, n := range status.Networks {
		for _, s := range n.Sources {
			for _, c := range s.Circuits {
				_, err := tx.ExecContext(ctx, h.dialect.upsertStatus,
					c.PID.String(), c.Name, s.PID.String(), c.SwitchedOn, c.HasPower, c.LoadWatts, c.CapacityWatts, now)
				if err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}
	}
	return tx.Commit()
}
