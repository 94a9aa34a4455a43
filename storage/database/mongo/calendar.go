package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/ies/core/calendar"
	"github.com/trezcool/ies/storage/database"
)

type eventDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	StartDate   time.Time            `bson:"startDate"`
	EndDate     time.Time            `bson:"endDate"`
	Type        string               `bson:"type"`
	Location    string               `bson:"location"`
	Color       string               `bson:"color"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy,omitempty"`
	Attendees   []primitive.ObjectID `bson:"attendees"`
	IsAllDay    bool                 `bson:"isAllDay"`
	Status      string               `bson:"status"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type eventRepository struct {
	db   *database.DB
	coll *mongo.Collection
}

var _ calendar.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *database.DB) *eventRepository {
	return &eventRepository{db: db, coll: db.Collection(database.EventCollection)}
}

func (repo eventRepository) toDoc(evt calendar.Event) (eventDoc, error) {
	id, err := toOptionalObjectID(evt.ID)
	if err != nil {
		return eventDoc{}, err
	}
	createdBy, err := toOptionalObjectID(evt.CreatedBy)
	if err != nil {
		return eventDoc{}, errors.Wrap(err, "createdBy")
	}
	return eventDoc{
		ID:          id,
		Title:       evt.Title,
		Description: evt.Description,
		StartDate:   evt.StartDate.UTC(),
		EndDate:     evt.EndDate.UTC(),
		Type:        string(evt.Type),
		Location:    evt.Location,
		Color:       evt.Color,
		CreatedBy:   createdBy,
		Attendees:   objectIDs(evt.AttendeeIDs),
		IsAllDay:    evt.IsAllDay,
		Status:      string(evt.Status),
		CreatedAt:   evt.CreatedAt.UTC(),
		UpdatedAt:   evt.UpdatedAt.UTC(),
	}, nil
}

func (repo eventRepository) fromDoc(doc eventDoc) calendar.Event {
	attendees := make([]string, 0, len(doc.Attendees))
	for _, oid := range doc.Attendees {
		attendees = append(attendees, oid.Hex())
	}
	return calendar.Event{
		ID:          optionalID(doc.ID),
		Title:       doc.Title,
		Description: doc.Description,
		StartDate:   doc.StartDate.UTC(),
		EndDate:     doc.EndDate.UTC(),
		Type:        calendar.EventType(doc.Type),
		Location:    doc.Location,
		Color:       doc.Color,
		CreatedBy:   optionalID(doc.CreatedBy),
		AttendeeIDs: attendees,
		IsAllDay:    doc.IsAllDay,
		Status:      calendar.EventStatus(doc.Status),
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt calendar.Event) (calendar.Event, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(evt)
	if err != nil {
		return calendar.Event{}, errors.Wrap(err, "inserting event")
	}
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return calendar.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.fromDoc(doc), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *calendar.RangeFilter) ([]calendar.Event, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter != nil {
		query["startDate"] = bson.M{"$lte": filter.End.UTC()}
		query["endDate"] = bson.M{"$gte": filter.Start.UTC()}
	}
	cur, err := repo.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	var docs []eventDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding events")
	}
	events := make([]calendar.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, repo.fromDoc(doc))
	}
	return events, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (calendar.Event, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return calendar.Event{}, calendar.ErrNotFound
	}
	var doc eventDoc
	if err = repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return calendar.Event{}, calendar.ErrNotFound
		}
		return calendar.Event{}, errors.Wrap(err, "finding event")
	}
	return repo.fromDoc(doc), nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt calendar.Event) (calendar.Event, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(evt)
	if err != nil {
		return calendar.Event{}, errors.Wrap(err, "updating event")
	}
	if doc.ID.IsZero() {
		return calendar.Event{}, calendar.ErrNotFound
	}
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return calendar.Event{}, errors.Wrap(err, "updating event")
	}
	if res.MatchedCount == 0 {
		return calendar.Event{}, calendar.ErrNotFound
	}
	return repo.fromDoc(doc), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return calendar.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if res.DeletedCount == 0 {
		return calendar.ErrNotFound
	}
	return nil
}
