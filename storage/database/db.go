package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/ies/core"
)

// collections
const (
	UserCollection     = "users"
	FormCollection     = "evaluationforms"
	ResponseCollection = "evaluationresponses"
	EventCollection    = "calendarevents"
)

type DB struct {
	*mongo.Database
	client       *mongo.Client
	queryTimeout time.Duration
	supportsTx   bool
}

var _ core.Transactor = (*DB)(nil)

// Open connects to the database and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetConnectTimeout(conf.Database.ConnectTimeout).
		SetAppName(conf.AppName)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := &DB{
		Database:     client.Database(conf.Database.Name),
		client:       client,
		queryTimeout: conf.Database.QueryTimeout,
	}
	if db.supportsTx, err = supportsTransactions(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// supportsTransactions tells whether the deployment is a replica set or a sharded cluster.
func supportsTransactions(ctx context.Context, client *mongo.Client) (bool, error) {
	var res struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&res)
	if err != nil {
		return false, errors.Wrap(err, "running hello command")
	}
	return res.SetName != "" || res.Msg == "isdbgrid", nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DB) SupportsTransactions() bool { return db.supportsTx }

// WithTimeout returns a context bounded by the configured query timeout.
func (db *DB) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// WithTransaction runs fn in a transaction when the deployment supports them, sequentially otherwise.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !db.supportsTx {
		return fn(ctx)
	}
	sess, err := db.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// EnsureIndexes creates the indexes the repositories rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		FormCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ResponseCollection: {
			{
				Keys: bson.D{
					{Key: "evaluationForm", Value: 1},
					{Key: "student", Value: 1},
					{Key: "questionId", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("unique_submission"),
			},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "evaluationForm", Value: 1}, {Key: "instructor", Value: 1}}},
		},
		EventCollection: {
			{Keys: bson.D{{Key: "startDate", Value: 1}, {Key: "endDate", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}
