package mongodb

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

const (
	statusCollection   = "networkStatus"
	overloadCollection = "overloads"
)

// Handler upserts one status document per network and appends trips.
type Handler struct {
	pid      uuid.UUID
	system   msg.Publisher
	inbox    <-chan msg.Msg
	config   config
	stop     chan bool
	stopOnce *sync.Once
	log      *logrus.Entry
}

type config struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
	Port     string `json:"Port"`
	// Timeout bounds each write, in milliseconds.
	Timeout int `json:"Timeout"`
}

// collection is the part of *mongo.Collection the handler uses.
type collection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
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
		stop:     make(chan bool),
		stopOnce: &sync.Once{},
		log:      log.WithField("component", "Mongo"),
	}, nil
}

// Stop ends Process.
func (h Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h Handler) uri() string {
	if h.config.Port == "" {
		return h.config.URI
	}
	return h.config.URI + ":" + h.config.Port
}

// Process connects to the database and writes until stopped.
func (h Handler) Process() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.uri()))
	if err != nil {
		h.log.WithError(err).Error("unable to connect to mongodb")
		h.system.Unsubscribe(h.pid)
		return
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			h.log.WithError(err).Warn("disconnect failed")
		}
	}()

	db := client.Database(h.config.Database)
	h.run(db.Collection(statusCollection), db.Collection(overloadCollection))
}

func (h Handler) run(status, overloads collection) {
	h.log.Info("process started")
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if err := h.write(status, overloads, m); err != nil {
				h.log.WithError(err).Warn("unable to write to mongodb")
			}
		case <-h.stop:
			break loop
		}
	}
	h.system.Unsubscribe(h.pid)
	h.log.Info("process shutdown")
}

func (h Handler) write(status, overloads collection, m msg.Msg) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Timeout)*time.Millisecond)
	defer cancel()

	switch payload := m.Payload().(type) {
	case ecc.Status:
		opts := options.Update().SetUpsert(true)
		for _, n := range payload.Networks {
			doc, err := toBSON(n)
			if err != nil {
				return err
			}
			_, err = status.UpdateOne(ctx, bson.M{"PID": n.PID.String()}, bson.D{{Key: "$set", Value: doc}}, opts)
			if err != nil {
				return err
			}
		}
	case ecc.Trip:
		doc, err := toBSON(payload)
		if err != nil {
			return err
		}
		doc["Time"] = time.Now().UTC()
		if _, err := overloads.InsertOne(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// toBSON converts through the json encoding so PIDs are stored as strings and
// field names match the http api.
func toBSON(v interface{}) (bson.M, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
