package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/storage/database"
)

type (
	questionDoc struct {
		ID      string   `bson:"_id"`
		Text    string   `bson:"text"`
		Type    string   `bson:"type"`
		Options []string `bson:"options,omitempty"`
	}

	periodDoc struct {
		StartDate time.Time `bson:"startDate"`
		EndDate   time.Time `bson:"endDate"`
	}

	formDoc struct {
		ID             primitive.ObjectID `bson:"_id,omitempty"`
		Title          string             `bson:"title"`
		Description    string             `bson:"description"`
		TargetAudience string             `bson:"targetAudience"`
		Type           string             `bson:"type,omitempty"`
		Status         string             `bson:"status"`
		Period         periodDoc          `bson:"evaluationPeriod"`
		Questions      []questionDoc      `bson:"questions"`
		CreatedBy      primitive.ObjectID `bson:"createdBy,omitempty"`
		CreatedAt      time.Time          `bson:"createdAt"`
		UpdatedAt      time.Time          `bson:"updatedAt"`
	}

	responseDoc struct {
		ID         primitive.ObjectID `bson:"_id,omitempty"`
		FormID     primitive.ObjectID `bson:"evaluationForm"`
		Instructor primitive.ObjectID `bson:"instructor"`
		Student    primitive.ObjectID `bson:"student"`
		QuestionID string             `bson:"questionId"`
		Rating     *int               `bson:"rating,omitempty"`
		Answer     *string            `bson:"answer,omitempty"`
		Period     periodDoc          `bson:"evaluationPeriod"`
		CreatedAt  time.Time          `bson:"createdAt"`
	}
)

func toPeriodDoc(p evaluation.Period) periodDoc {
	return periodDoc{StartDate: p.StartDate.UTC(), EndDate: p.EndDate.UTC()}
}

func fromPeriodDoc(p periodDoc) evaluation.Period {
	return evaluation.Period{StartDate: p.StartDate.UTC(), EndDate: p.EndDate.UTC()}
}

type formRepository struct {
	db   *database.DB
	coll *mongo.Collection
}

var _ evaluation.FormRepository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *database.DB) *formRepository {
	return &formRepository{db: db, coll: db.Collection(database.FormCollection)}
}

func (repo formRepository) toDoc(form evaluation.Form) (formDoc, error) {
	id, err := toOptionalObjectID(form.ID)
	if err != nil {
		return formDoc{}, err
	}
	createdBy, err := toOptionalObjectID(form.CreatedBy)
	if err != nil {
		return formDoc{}, errors.Wrap(err, "createdBy")
	}
	qs := make([]questionDoc, 0, len(form.Questions))
	for _, q := range form.Questions {
		qs = append(qs, questionDoc{ID: q.ID, Text: q.Text, Type: string(q.Type), Options: q.Options})
	}
	return formDoc{
		ID:             id,
		Title:          form.Title,
		Description:    form.Description,
		TargetAudience: string(form.TargetAudience),
		Type:           string(form.Type),
		Status:         string(form.Status),
		Period:         toPeriodDoc(form.Period),
		Questions:      qs,
		CreatedBy:      createdBy,
		CreatedAt:      form.CreatedAt.UTC(),
		UpdatedAt:      form.UpdatedAt.UTC(),
	}, nil
}

func (repo formRepository) fromDoc(doc formDoc) evaluation.Form {
	qs := make([]evaluation.Question, 0, len(doc.Questions))
	for _, q := range doc.Questions {
		qs = append(qs, evaluation.Question{ID: q.ID, Text: q.Text, Type: evaluation.QuestionType(q.Type), Options: q.Options})
	}
	return evaluation.Form{
		ID:             optionalID(doc.ID),
		Title:          doc.Title,
		Description:    doc.Description,
		TargetAudience: evaluation.TargetAudience(doc.TargetAudience),
		Type:           evaluation.FormType(doc.Type),
		Status:         evaluation.FormStatus(doc.Status),
		Period:         fromPeriodDoc(doc.Period),
		Questions:      qs,
		CreatedBy:      optionalID(doc.CreatedBy),
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
	}
}

func (repo formRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]evaluation.Form, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []formDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	forms := make([]evaluation.Form, 0, len(docs))
	for _, doc := range docs {
		forms = append(forms, repo.fromDoc(doc))
	}
	return forms, nil
}

func (repo formRepository) CreateForm(ctx context.Context, form evaluation.Form) (evaluation.Form, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(form)
	if err != nil {
		return evaluation.Form{}, errors.Wrap(err, "inserting form")
	}
	doc.ID = primitive.NewObjectID()
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return evaluation.Form{}, errors.Wrap(err, "inserting form")
	}
	return repo.fromDoc(doc), nil
}

func (repo formRepository) QueryForms(ctx context.Context, filter evaluation.FormFilter) ([]evaluation.Form, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.TargetAudience != "" {
		query["targetAudience"] = filter.TargetAudience
	}
	forms, err := repo.find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	return forms, errors.Wrap(err, "querying forms")
}

func (repo formRepository) GetForm(ctx context.Context, id string) (evaluation.Form, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return evaluation.Form{}, evaluation.ErrFormNotFound
	}
	var doc formDoc
	if err = repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return evaluation.Form{}, evaluation.ErrFormNotFound
		}
		return evaluation.Form{}, errors.Wrap(err, "finding form")
	}
	return repo.fromDoc(doc), nil
}

func (repo formRepository) GetFormsByID(ctx context.Context, ids ...string) ([]evaluation.Form, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []evaluation.Form{}, nil
	}
	forms, err := repo.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return forms, errors.Wrap(err, "getting forms by id")
}

func (repo formRepository) UpdateForm(ctx context.Context, form evaluation.Form) (evaluation.Form, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(form)
	if err != nil {
		return evaluation.Form{}, errors.Wrap(err, "updating form")
	}
	if doc.ID.IsZero() {
		return evaluation.Form{}, evaluation.ErrFormNotFound
	}
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return evaluation.Form{}, errors.Wrap(err, "updating form")
	}
	if res.MatchedCount == 0 {
		return evaluation.Form{}, evaluation.ErrFormNotFound
	}
	return repo.fromDoc(doc), nil
}

func (repo formRepository) DeleteForm(ctx context.Context, id string) error {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return evaluation.ErrFormNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting form")
	}
	if res.DeletedCount == 0 {
		return evaluation.ErrFormNotFound
	}
	return nil
}

type responseRepository struct {
	db   *database.DB
	coll *mongo.Collection
}

var _ evaluation.ResponseRepository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(db *database.DB) *responseRepository {
	return &responseRepository{db: db, coll: db.Collection(database.ResponseCollection)}
}

// toDoc requires the form, instructor and student references.
func (repo responseRepository) toDoc(r evaluation.Response) (responseDoc, error) {
	id, err := toOptionalObjectID(r.ID)
	if err != nil {
		return responseDoc{}, err
	}
	var refs [3]primitive.ObjectID
	for i, ref := range [...]struct{ name, id string }{
		{"evaluationForm", r.FormID},
		{"instructor", r.InstructorID},
		{"student", r.StudentID},
	} {
		if refs[i], err = toObjectID(ref.id); err != nil {
			return responseDoc{}, errors.Wrap(err, ref.name)
		}
	}
	return responseDoc{
		ID:         id,
		FormID:     refs[0],
		Instructor: refs[1],
		Student:    refs[2],
		QuestionID: r.QuestionID,
		Rating:     r.Rating,
		Answer:     r.Answer,
		Period:     toPeriodDoc(r.Period),
		CreatedAt:  r.CreatedAt.UTC(),
	}, nil
}

func (repo responseRepository) fromDoc(doc responseDoc) evaluation.Response {
	return evaluation.Response{
		ID:           optionalID(doc.ID),
		FormID:       optionalID(doc.FormID),
		InstructorID: optionalID(doc.Instructor),
		StudentID:    optionalID(doc.Student),
		QuestionID:   doc.QuestionID,
		Rating:       doc.Rating,
		Answer:       doc.Answer,
		Period:       fromPeriodDoc(doc.Period),
		CreatedAt:    doc.CreatedAt.UTC(),
	}
}

func (repo responseRepository) CreateResponses(ctx context.Context, responses ...evaluation.Response) ([]evaluation.Response, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, 0, len(responses))
	created := make([]evaluation.Response, 0, len(responses))
	for _, r := range responses {
		doc, err := repo.toDoc(r)
		if err != nil {
			return nil, errors.Wrap(err, "inserting responses")
		}
		doc.ID = primitive.NewObjectID()
		docs = append(docs, doc)
		created = append(created, repo.fromDoc(doc))
	}
	if len(docs) == 0 {
		return created, nil
	}
	if _, err := repo.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, evaluation.ErrDuplicateSubmission
		}
		return nil, errors.Wrap(err, "inserting responses")
	}
	return created, nil
}

func (repo responseRepository) ResponseExists(ctx context.Context, formID, studentID, questionID string) (bool, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	formOID, err := toObjectID(formID)
	if err != nil {
		return false, nil
	}
	studentOID, err := toObjectID(studentID)
	if err != nil {
		return false, nil
	}
	n, err := repo.coll.CountDocuments(ctx, bson.M{
		"evaluationForm": formOID,
		"student":        studentOID,
		"questionId":     questionID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting responses")
	}
	return n > 0, nil
}

func (repo responseRepository) QueryResponses(ctx context.Context, filter evaluation.ResponseFilter) ([]evaluation.Response, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	query := bson.M{}
	for key, id := range map[string]string{
		"evaluationForm": filter.FormID,
		"instructor":     filter.InstructorID,
		"student":        filter.StudentID,
	} {
		if id == "" {
			continue
		}
		oid, err := toObjectID(id)
		if err != nil {
			return []evaluation.Response{}, nil
		}
		query[key] = oid
	}
	created := bson.M{}
	if !filter.CreatedFrom.IsZero() {
		created["$gte"] = filter.CreatedFrom.UTC()
	}
	if !filter.CreatedTo.IsZero() {
		created["$lt"] = filter.CreatedTo.UTC()
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := repo.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	var docs []responseDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding responses")
	}
	responses := make([]evaluation.Response, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, repo.fromDoc(doc))
	}
	return responses, nil
}

func (repo responseRepository) GetResponse(ctx context.Context, id string) (evaluation.Response, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return evaluation.Response{}, evaluation.ErrResponseNotFound
	}
	var doc responseDoc
	if err = repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return evaluation.Response{}, evaluation.ErrResponseNotFound
		}
		return evaluation.Response{}, errors.Wrap(err, "finding response")
	}
	return repo.fromDoc(doc), nil
}

func (repo responseRepository) DeleteResponsesByForm(ctx context.Context, formID string) (int64, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oid, err := toObjectID(formID)
	if err != nil {
		return 0, nil
	}
	res, err := repo.coll.DeleteMany(ctx, bson.M{"evaluationForm": oid})
	if err != nil {
		return 0, errors.Wrap(err, "deleting responses")
	}
	return res.DeletedCount, nil
}
