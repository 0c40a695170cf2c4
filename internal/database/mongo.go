package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crud-benchmark/internal/vocab"
)

// MongoDriver is the document-store variant. MongoDB has no identity
// column, so event ids are allocated in blocks from the counters
// collection; ClearAll resets the counter the way TRUNCATE does.
type MongoDriver struct {
	client    *mongo.Client
	db        *mongo.Database
	chunkSize int
}

type eventDoc struct {
	ID          int64     `bson:"_id"`
	OccurredAt  time.Time `bson:"occurred_at"`
	Message     string    `bson:"message"`
	SeverityID  int       `bson:"severity_id"`
	EventTypeID int       `bson:"event_type_id"`
	SourceID    int       `bson:"source_id"`
}

const eventsCounter = "events"

func OpenMongo(ctx context.Context, uri, database string, opts Options) (*MongoDriver, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, wrap("open mongo", ErrUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, wrap("open mongo", ErrUnavailable, err)
	}
	return &MongoDriver{client: client, db: client.Database(database), chunkSize: opts.chunkSize()}, nil
}

func (md *MongoDriver) Close() error {
	return md.client.Disconnect(context.Background())
}

func (md *MongoDriver) events() *mongo.Collection { return md.db.Collection("events") }

func (md *MongoDriver) Setup(ctx context.Context, set vocab.Set) error {
	locations := md.db.Collection("locations")
	sources := md.db.Collection("sources")
	if _, err := locations.DeleteMany(ctx, bson.M{}); err != nil {
		return wrap("setup", ErrStorage, err)
	}
	if _, err := sources.DeleteMany(ctx, bson.M{}); err != nil {
		return wrap("setup", ErrStorage, err)
	}

	var locDocs []interface{}
	for i, loc := range set.Locations() {
		locDocs = append(locDocs, bson.M{"_id": i + 1, "city": loc.City, "country": loc.Country})
	}
	var srcDocs []interface{}
	for i, src := range set.Sources() {
		locationID, _ := set.LocationID(i + 1)
		srcDocs = append(srcDocs, bson.M{
			"_id":         i + 1,
			"name":        src.Name,
			"description": src.Description,
			"ip_address":  src.IPAddress,
			"location_id": locationID,
		})
	}
	if _, err := locations.InsertMany(ctx, locDocs); err != nil {
		return wrap("setup", ErrStorage, err)
	}
	if _, err := sources.InsertMany(ctx, srcDocs); err != nil {
		return wrap("setup", ErrStorage, err)
	}
	return nil
}

func (md *MongoDriver) Teardown(ctx context.Context) error {
	for _, name := range []string{"events", "sources", "locations", "counters"} {
		if err := md.db.Collection(name).Drop(ctx); err != nil {
			return wrap("teardown", ErrStorage, err)
		}
	}
	return nil
}

// reserveIDs allocates n consecutive ids and returns the first.
func (md *MongoDriver) reserveIDs(ctx context.Context, n int) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := md.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": eventsCounter},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq - int64(n) + 1, nil
}

func (md *MongoDriver) BulkInsert(ctx context.Context, events []Event) error {
	if err := ValidateEvents(events); err != nil {
		return wrap("bulk insert", ErrValidation, err)
	}
	for _, chunk := range chunks(events, md.chunkSize) {
		first, err := md.reserveIDs(ctx, len(chunk))
		if err != nil {
			return wrap("bulk insert", ErrStorage, err)
		}
		docs := make([]interface{}, len(chunk))
		for i, e := range chunk {
			docs[i] = eventDoc{
				ID:          first + int64(i),
				OccurredAt:  e.Timestamp.UTC(),
				Message:     e.Message,
				SeverityID:  e.SeverityID,
				EventTypeID: e.EventTypeID,
				SourceID:    e.SourceID,
			}
		}
		if _, err := md.events().InsertMany(ctx, docs); err != nil {
			return wrap("bulk insert", ErrStorage, err)
		}
	}
	return nil
}

func (md *MongoDriver) DeleteRange(ctx context.Context, count int) error {
	if count < 0 {
		return wrap("delete range", ErrValidation, errNegativeCount(count))
	}
	_, err := md.events().DeleteMany(ctx, bson.M{"_id": bson.M{"$gte": 1, "$lte": count}})
	return wrap("delete range", ErrStorage, err)
}

func (md *MongoDriver) ClearAll(ctx context.Context) error {
	if _, err := md.events().DeleteMany(ctx, bson.M{}); err != nil {
		return wrap("clear all", ErrStorage, err)
	}
	_, err := md.db.Collection("counters").DeleteOne(ctx, bson.M{"_id": eventsCounter})
	return wrap("clear all", ErrStorage, err)
}

// filter resolves the location predicate through sources and locations,
// the document equivalent of the SQL join.
func (md *MongoDriver) filter(ctx context.Context, pred Predicate) (bson.M, error) {
	f := bson.M{}
	if pred.SeverityID != 0 {
		f["severity_id"] = pred.SeverityID
	}
	if pred.EventTypeID != 0 {
		f["event_type_id"] = pred.EventTypeID
	}
	if pred.Country != "" {
		locationIDs, err := md.db.Collection("locations").Distinct(ctx, "_id", bson.M{"country": pred.Country})
		if err != nil {
			return nil, err
		}
		sourceIDs, err := md.db.Collection("sources").Distinct(ctx, "_id", bson.M{"location_id": bson.M{"$in": locationIDs}})
		if err != nil {
			return nil, err
		}
		f["source_id"] = bson.M{"$in": sourceIDs}
	}
	return f, nil
}

func (md *MongoDriver) Select(ctx context.Context, pred Predicate) ([]Event, error) {
	f, err := md.filter(ctx, pred)
	if err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	cursor, err := md.events().Find(ctx, f, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	events := make([]Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, Event{
			ID:          d.ID,
			Timestamp:   d.OccurredAt,
			Message:     d.Message,
			SeverityID:  d.SeverityID,
			EventTypeID: d.EventTypeID,
			SourceID:    d.SourceID,
		})
	}
	return events, nil
}

func (md *MongoDriver) Update(ctx context.Context, pred Predicate, change Change) (int64, error) {
	if err := validateChange(change); err != nil {
		return 0, wrap("update", ErrValidation, err)
	}
	f, err := md.filter(ctx, pred)
	if err != nil {
		return 0, wrap("update", ErrStorage, err)
	}
	set := bson.M{}
	if change.SeverityID != 0 {
		set["severity_id"] = change.SeverityID
	}
	if change.Message != "" {
		set["message"] = change.Message
	}
	res, err := md.events().UpdateMany(ctx, f, bson.M{"$set": set})
	if err != nil {
		return 0, wrap("update", ErrStorage, err)
	}
	return res.MatchedCount, nil
}
