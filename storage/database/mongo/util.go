package mongorepos

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInvalidID = errors.New("invalid object id")

// objectIDs parses the hex ids, skipping the invalid ones: they match no document.
func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

// optionalID returns the hex of oid, empty for the zero id.
func optionalID(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

// toObjectID parses a hex id. Malformed and empty ids are rejected.
func toObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(errInvalidID, "%q", id)
	}
	return oid, nil
}

// toOptionalObjectID is toObjectID, with the empty id mapped to the zero id.
func toOptionalObjectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, nil
	}
	return toObjectID(id)
}
