package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
	"github.com/trezcool/ies/storage/database"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  []byte             `bson:"password,omitempty"`
	GoogleID  string             `bson:"googleId,omitempty"`
	Picture   string             `bson:"picture,omitempty"`
	Role      string             `bson:"role"`
	IsActive  bool               `bson:"isActive"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
	LastLogin time.Time          `bson:"lastLogin,omitempty"`
}

// user fields allowed in orderings
var userOrderFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "createdAt",
	"lastLogin": "lastLogin",
}

type userRepository struct {
	db   *database.DB
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *database.DB) *userRepository {
	return &userRepository{db: db, coll: db.Collection(database.UserCollection)}
}

func (repo userRepository) toDoc(usr user.User) (userDoc, error) {
	id, err := toOptionalObjectID(usr.ID)
	if err != nil {
		return userDoc{}, err
	}
	return userDoc{
		ID:        id,
		Name:      usr.Name,
		Email:     usr.Email,
		Password:  usr.PasswordHash,
		GoogleID:  usr.GoogleID,
		Picture:   usr.Picture,
		Role:      usr.Role,
		IsActive:  usr.IsActive,
		CreatedAt: usr.CreatedAt.UTC(),
		UpdatedAt: usr.UpdatedAt.UTC(),
		LastLogin: usr.LastLogin.UTC(),
	}, nil
}

func (repo userRepository) fromDoc(doc userDoc) user.User {
	usr := user.User{
		ID:           optionalID(doc.ID),
		Name:         doc.Name,
		Email:        doc.Email,
		GoogleID:     doc.GoogleID,
		Picture:      doc.Picture,
		Role:         doc.Role,
		IsActive:     doc.IsActive,
		PasswordHash: doc.Password,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	if !doc.LastLogin.IsZero() {
		usr.LastLogin = doc.LastLogin.UTC()
	}
	return usr
}

func (repo userRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]user.User, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, repo.fromDoc(doc))
	}
	return users, nil
}

// trapNoDocsErr maps mongo "no documents" err to user.ErrNotFound
func (repo userRepository) trapNoDocsErr(err error, msg string) error {
	if err == mongo.ErrNoDocuments {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"email": email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		filter["_id"] = bson.M{"$nin": objectIDs(ids)}
	}
	n, err := repo.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromDoc(doc), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			rx := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
			query["$or"] = bson.A{bson.M{"name": rx}, bson.M{"email": rx}}
		}
		if len(filter.Roles) > 0 {
			query["role"] = bson.M{"$in": filter.Roles}
		}
		if filter.IsActive != nil {
			query["isActive"] = *filter.IsActive
		}
	}

	sort := bson.D{}
	for _, ord := range ordering {
		if fld, ok := userOrderFields[ord.Field]; ok {
			sort = append(sort, bson.E{Key: fld, Value: ord.Direction()})
		}
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}

	users, err := repo.find(ctx, query, options.Find().SetSort(sort))
	return users, errors.Wrap(err, "querying users")
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	var query bson.M
	switch {
	case filter.ID != "":
		oid, err := primitive.ObjectIDFromHex(filter.ID)
		if err != nil {
			return user.User{}, user.ErrNotFound
		}
		query = bson.M{"_id": oid}
	case filter.Email != "":
		query = bson.M{"email": filter.Email}
	case filter.GoogleID != "":
		query = bson.M{"googleId": filter.GoogleID}
	default:
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		return user.User{}, repo.trapNoDocsErr(err, "finding user")
	}
	return repo.fromDoc(doc), nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids ...string) ([]user.User, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []user.User{}, nil
	}
	users, err := repo.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return users, errors.Wrap(err, "getting users by id")
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	doc, err := repo.toDoc(usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if doc.ID.IsZero() {
		return user.User{}, user.ErrNotFound
	}
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromDoc(doc), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	ctx, cancel := repo.db.WithTimeout(ctx)
	defer cancel()

	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil
	}
	_, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return errors.Wrap(err, "deleting users")
}
