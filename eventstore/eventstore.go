// Package eventstore provides a light-weight event store that uses sqlite
// or postgres as a backing storage, along with an in-memory implementation
// of the same contract.
//
// Events are appended to streams (one stream per aggregate instance) with an
// optimistic concurrency check and read back in the order they were appended.
// Subscriptions and a projector are provided for building read models.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrStreamNotFound indicates that the requested stream does not exist in the event store
	ErrStreamNotFound = errors.New("stream not found")

	// ErrConcurrencyCheckFailed indicates that stream entry related to a particular version already exists
	ErrConcurrencyCheckFailed = errors.New("optimistic concurrency check failed: stream version exists")

	// ErrSubscriptionClosedByClient is produced by sub.Err if client cancels the subscription using sub.Close()
	ErrSubscriptionClosedByClient = errors.New("subscription closed by client")
)

// EncodedEvt represents encoded event used by a specific encoder implementation
type EncodedEvt struct {
	Data string
	Type string
}

// Encoder is used by the event store in order to correctly marshal
// and unmarshal event types
type Encoder interface {
	Encode(any) (*EncodedEvt, error)
	Decode(*EncodedEvt) (any, error)
}

// New constructs new event store
// enc - a specific encoder implementation (see bundled JSONEncoder)
// opts - exactly one of WithPostgresDB or WithSQLiteDB must be provided
func New(enc Encoder, opts ...Option) (*EventStore, error) {
	if enc == nil {
		return nil, fmt.Errorf("encoder implementation must be provided")
	}

	var cfg Cfg

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.PostgresDSN == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("either postgres dsn or sqlite path must be provided")
	}

	if cfg.PostgresDSN != "" && cfg.SQLitePath != "" {
		return nil, fmt.Errorf("only one of postgres dsn or sqlite path can be provided")
	}

	var dial gorm.Dialector

	if cfg.PostgresDSN != "" {
		dial = postgres.Open(cfg.PostgresDSN)
	}

	if cfg.SQLitePath != "" {
		dial = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&gormEvent{}); err != nil {
		return nil, fmt.Errorf("migrate event table: %w", err)
	}

	return &EventStore{
		db:  db,
		enc: enc,
	}, nil
}

// Cfg represents event store configuration
type Cfg struct {
	PostgresDSN string
	SQLitePath  string
}

// Option represents event store configuration option
type Option func(Cfg) Cfg

// WithPostgresDB is an event store option that can be used to configure
// the eventstore to use postgres as a backing storage (pgx driver)
func WithPostgresDB(dsn string) Option {
	return func(cfg Cfg) Cfg {
		cfg.PostgresDSN = dsn

		return cfg
	}
}

// WithSQLiteDB is an event store option that can be used to configure
// the eventstore to use sqlite as a backing storage
func WithSQLiteDB(path string) Option {
	return func(cfg Cfg) Cfg {
		cfg.SQLitePath = path

		return cfg
	}
}

// EventStore represents a gorm (sqlite or postgres) event store implementation
type EventStore struct {
	db  *gorm.DB
	enc Encoder
}

// Close should be called as a part of cleanup process
// in order to close the underlying sql connection
func (es *EventStore) Close() error {
	sqlDB, err := es.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

type gormEvent struct {
	ID                 string `gorm:"unique"`
	Sequence           uint64 `gorm:"autoIncrement;primaryKey"`
	Type               string
	Data               string
	Meta               *string
	CausationEventID   *string
	CorrelationEventID *string
	StreamID           string `gorm:"index:idx_optimistic_check,unique;index"`
	StreamVersion      int    `gorm:"index:idx_optimistic_check,unique"`
	OccurredOn         time.Time
}

// TableName returns gorm table name
func (ge *gormEvent) TableName() string { return "event" }

const (
	// InitialStreamVersion can be used as an initial expectedVer for
	// new streams (as an argument to AppendStream)
	InitialStreamVersion int = 0
)

// AppendStream will encode provided event slice and try to append them to
// an indicated stream. If the stream does not exist it will be created.
// If the stream already exists an optimistic concurrency check will be performed
// using a compound key (stream-expectedVer).
// expectedVer should be InitialStreamVersion for new streams and the latest
// stream version for existing streams, otherwise ErrConcurrencyCheckFailed
// will be returned. Either all events are appended or none.
func (es *EventStore) AppendStream(
	ctx context.Context,
	stream string,
	expectedVer int,
	events []EventToStore) error {

	records, err := encodeEvents(es.enc, stream, expectedVer, events)
	if err != nil {
		return err
	}

	err = es.db.WithContext(ctx).Create(&records).Error

	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrConcurrencyCheckFailed
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConcurrencyCheckFailed
	}

	return err
}

func encodeEvents(enc Encoder, stream string, expectedVer int, events []EventToStore) ([]gormEvent, error) {
	if len(stream) == 0 {
		return nil, fmt.Errorf("stream name must be provided")
	}

	if expectedVer < InitialStreamVersion {
		return nil, fmt.Errorf("expected version cannot be less than 0")
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("no events to append")
	}

	records := make([]gormEvent, len(events))

	for i, evt := range events {
		encoded, err := enc.Encode(evt.Event)
		if err != nil {
			return nil, err
		}

		expectedVer++

		event := gormEvent{
			ID:            evt.ID,
			Type:          encoded.Type,
			Data:          encoded.Data,
			StreamID:      stream,
			StreamVersion: expectedVer,
			OccurredOn:    evt.OccurredOn,
		}

		if evt.CorrelationEventID != "" {
			event.CorrelationEventID = &evt.CorrelationEventID
		}

		if evt.CausationEventID != "" {
			event.CausationEventID = &evt.CausationEventID
		}

		if evt.Meta != nil {
			m, err := json.Marshal(evt.Meta)
			if err != nil {
				return nil, err
			}

			ms := string(m)

			event.Meta = &ms
		}

		if event.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, err
			}

			event.ID = id.String()
		}

		if event.OccurredOn.IsZero() {
			event.OccurredOn = time.Now().UTC()
		}

		records[i] = event
	}

	return records, nil
}

// ReadStream will read all events associated with provided stream
// If there are no events stored for a given stream ErrStreamNotFound will be returned
func (es *EventStore) ReadStream(ctx context.Context, stream string) ([]StoredEvent, error) {
	var events []gormEvent

	if len(stream) == 0 {
		return nil, fmt.Errorf("stream name must be provided")
	}

	if err := es.db.
		WithContext(ctx).
		Where("stream_id = ?", stream).
		Order("stream_version asc").
		Find(&events).Error; err != nil {

		return nil, err
	}

	if len(events) == 0 {
		return nil, ErrStreamNotFound
	}

	return decodeEvents(es.enc, events)
}

// ReadAll will read all events from the event store by internally creating a
// a subscription and depleting it until io.EOF is encountered
// WARNING: Use with caution as this method will read the entire event store
// in a blocking fashion (probably best used in combination with offset option)
func (es *EventStore) ReadAll(ctx context.Context, opts ...SubAllOpt) ([]StoredEvent, error) {
	return readAll(ctx, es, opts...)
}

// SubscribeAll will create a subscription which can be used to stream all events in an
// orderly fashion. This mechanism should probably be mostly useful for building projections
func (es *EventStore) SubscribeAll(ctx context.Context, opts ...SubAllOpt) (Subscription, error) {
	return subscribe(ctx, es.enc, es.fetch, opts...)
}

func (es *EventStore) fetch(ctx context.Context, offset uint64, limit int) ([]gormEvent, error) {
	var evts []gormEvent

	err := es.db.
		WithContext(ctx).
		Where("sequence > ?", offset).
		Order("sequence asc").
		Limit(limit).
		Find(&evts).Error

	return evts, err
}

func decodeEvents(enc Encoder, events []gormEvent) ([]StoredEvent, error) {
	out := make([]StoredEvent, len(events))

	for i, evt := range events {
		data, err := enc.Decode(&EncodedEvt{
			Data: evt.Data,
			Type: evt.Type,
		})
		if err != nil {
			return nil, err
		}

		var meta map[string]string

		if evt.Meta != nil {
			err = json.Unmarshal([]byte(*evt.Meta), &meta)
			if err != nil {
				return nil, err
			}
		}

		out[i] = StoredEvent{
			Event:              data,
			Meta:               meta,
			ID:                 evt.ID,
			Sequence:           evt.Sequence,
			Type:               evt.Type,
			CausationEventID:   evt.CausationEventID,
			CorrelationEventID: evt.CorrelationEventID,
			StreamID:           evt.StreamID,
			StreamVersion:      evt.StreamVersion,
			OccurredOn:         evt.OccurredOn,
		}
	}

	return out, nil
}
