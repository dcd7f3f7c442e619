package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

const (
	EventPostCreated      = "post_created"
	EventPostRemoved      = "post_removed"
	EventOfferRegistered  = "offer_registered"
	EventOfferAccepted    = "offer_accepted"
	EventOfferDeclined    = "offer_declined"
	EventOfferInvalidated = "offer_invalidated"

	activityCollection = "trade_activity"
	activityTimeout    = 5 * time.Second
)

// ActivityLog records trade lifecycle events after they commit. Record never
// fails the caller; write errors are logged.
type ActivityLog interface {
	Record(ctx context.Context, event models.ActivityEvent)
}

// LogActivity writes events to the process logger
type LogActivity struct {
	log logrus.FieldLogger
}

func NewLogActivity(log logrus.FieldLogger) *LogActivity {
	return &LogActivity{log: log.WithField("component", "activity")}
}

func (a *LogActivity) Record(_ context.Context, e models.ActivityEvent) {
	a.log.WithFields(logrus.Fields{
		"event":         e.Type,
		"actor_id":      e.ActorID,
		"offer_id":      e.OfferID,
		"trade_post_id": e.TradePostID,
		"status":        e.Status,
	}).Info("trade activity")
}

// MongoActivity stores events in the trade_activity collection
type MongoActivity struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        logrus.FieldLogger
}

func NewMongoActivity(ctx context.Context, uri, database string, log logrus.FieldLogger) (*MongoActivity, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return newMongoActivity(client, database, log), nil
}

func newMongoActivity(client *mongo.Client, database string, log logrus.FieldLogger) *MongoActivity {
	return &MongoActivity{
		client:     client,
		collection: client.Database(database).Collection(activityCollection),
		log:        log.WithField("component", "activity"),
	}
}

func (a *MongoActivity) Record(ctx context.Context, e models.ActivityEvent) {
	// The request may already be finished; give the write its own deadline.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityTimeout)
	defer cancel()

	if _, err := a.collection.InsertOne(writeCtx, e); err != nil {
		metrics.ActivityLogErrors.Inc()
		a.log.WithError(err).WithField("event", e.Type).Warn("failed to record trade activity")
	}
}

func (a *MongoActivity) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
