package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"emailbuilder/internal/domain"
)

// mongoCollections maps a pick kind to its collection and the field the
// reference is matched against.
var mongoCollections = map[domain.PickKind]struct {
	name, key string
	fields    []string
}{
	domain.PickProduct:    {"products", "_id", []string{"name", "price", "imageUrl", "url"}},
	domain.PickDiscount:   {"discounts", "code", []string{"code", "description", "expiresAt"}},
	domain.PickCollection: {"collections", "_id", []string{"title", "url", "imageUrl"}},
	domain.PickImage:      {"images", "_id", []string{"url", "alt"}},
}

type mongoCatalog struct {
	client *mongo.Client
	dbName string
	settings
}

func newMongoCatalog(src Source, s settings) (*mongoCatalog, error) {
	uri, dbName := buildMongoURI(src)
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s.logger.Debug("mongo catalog configured", zap.String("database", dbName))
	return &mongoCatalog{client: client, dbName: dbName, settings: s}, nil
}

// buildMongoURI accepts either a full connection string in Host or
// host/port parts, and returns the URI and database name.
func buildMongoURI(src Source) (string, string) {
	var uri string
	if strings.HasPrefix(src.Host, "mongodb+srv://") || strings.HasPrefix(src.Host, "mongodb://") {
		uri = src.Host
		if src.Password != "" {
			uri = strings.ReplaceAll(uri, "<password>", src.Password)
			uri = strings.ReplaceAll(uri, "<db_password>", src.Password)
		}
	} else {
		port := src.Port
		if port == 0 {
			port = 27017
		}
		if src.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", src.Username, src.Password, src.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", src.Host, port)
		}
	}

	dbName := src.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "store"
	}
	return uri, dbName
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		uri = strings.TrimPrefix(uri, prefix)
	}
	if at := strings.LastIndex(uri, "@"); at != -1 {
		uri = uri[at+1:]
	}
	_, path, ok := strings.Cut(uri, "/")
	if !ok {
		return ""
	}
	path, _, _ = strings.Cut(path, "?")
	return path
}

// mongoFilter matches _id as an ObjectID when ref is one, else as a string.
func mongoFilter(key, ref string) bson.M {
	if key == "_id" {
		if oid, err := bson.ObjectIDFromHex(ref); err == nil {
			return bson.M{"_id": oid}
		}
	}
	return bson.M{key: ref}
}

func (c *mongoCatalog) Lookup(ctx context.Context, kind domain.PickKind, ref string) (domain.PickedRecord, error) {
	coll, ok := mongoCollections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	var doc bson.M
	err := c.client.Database(c.dbName).Collection(coll.name).FindOne(ctx, mongoFilter(coll.key, ref)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %q: %w", kind, ref, ErrNotFound)
	}
	if err != nil {
		c.logger.Warn("catalog lookup failed", zap.String("driver", DriverMongoDB), zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("lookup %s: %w", kind, err)
	}
	return mongoRecord(kind, coll.fields, doc, c.now()), nil
}

// mongoRecord converts a document into a picked record with string fields.
func mongoRecord(kind domain.PickKind, fields []string, doc bson.M, now time.Time) domain.PickedRecord {
	rec := domain.PickedRecord{}
	if id, ok := doc["_id"]; ok {
		rec["id"] = bsonString(id)
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok && v != nil {
			rec[f] = bsonString(v)
		}
	}
	rec = compact(rec)
	if kind == domain.PickDiscount {
		rec["id"] = rec["code"]
		rec = labelDiscount(rec, now)
	}
	return rec
}

func bsonString(v any) string {
	switch t := v.(type) {
	case bson.ObjectID:
		return t.Hex()
	case bson.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bson.Decimal128:
		return t.String()
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (c *mongoCatalog) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
