package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/0x3a/crits/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Cursor interface for mocking
type Cursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

// SingleResult interface for mocking
type SingleResult interface {
	Decode(v interface{}) error
}

// Collection is the subset of *mongo.Collection the store uses
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// mongoCollection adapts *mongo.Collection to Collection
type mongoCollection struct {
	*mongo.Collection
}

func (m *mongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	return m.Collection.FindOne(ctx, filter, opts...)
}

func (m *mongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, dbName string, maxPoolSize uint64, logger *zap.SugaredLogger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetMaxPoolSize(maxPoolSize)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infow("Connected to MongoDB", "database", dbName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// HealthCheck performs a health check on the MongoDB connection
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Collection names
const (
	collIndicators    = "indicators"
	collActionTypes   = "action_types"
	collObjects       = "objects"
	collRelationships = "relationships"
)

// MongoStore implements Store using MongoDB
type MongoStore struct {
	mongoDB       *MongoDB
	Indicators    Collection
	ActionTypes   Collection
	Objects       Collection
	Relationships Collection
	timeout       time.Duration
	logger        *zap.SugaredLogger
}

// NewMongoStore creates a store over the indicator collections
func NewMongoStore(mongoDB *MongoDB, timeout time.Duration, logger *zap.SugaredLogger) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{
		mongoDB:       mongoDB,
		Indicators:    &mongoCollection{Collection: mongoDB.Database.Collection(collIndicators)},
		ActionTypes:   &mongoCollection{Collection: mongoDB.Database.Collection(collActionTypes)},
		Objects:       &mongoCollection{Collection: mongoDB.Database.Collection(collObjects)},
		Relationships: &mongoCollection{Collection: mongoDB.Database.Collection(collRelationships)},
		timeout:       timeout,
		logger:        logger,
	}
}

// EnsureIndexes creates the uniqueness and lookup indexes
func (ms *MongoStore) EnsureIndexes(ctx context.Context) error {
	if ms.mongoDB == nil {
		return nil
	}
	db := ms.mongoDB.Database

	specs := map[string][]mongo.IndexModel{
		collIndicators: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "lower_value", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created", Value: -1}}},
			{Keys: bson.D{{Key: "sources.name", Value: 1}}},
			{Keys: bson.D{{Key: "campaigns.name", Value: 1}}},
		},
		collActionTypes: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collObjects: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "value", Value: 1}}},
		},
		collRelationships: {
			{Keys: bson.D{
				{Key: "left_type", Value: 1}, {Key: "left_id", Value: 1},
				{Key: "right_type", Value: 1}, {Key: "right_id", Value: 1},
				{Key: "rel_type", Value: 1},
			}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "right_type", Value: 1}, {Key: "right_id", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	ms.logger.Infow("MongoDB indexes ensured")
	return nil
}

// HealthCheck pings the server
func (ms *MongoStore) HealthCheck(ctx context.Context) error {
	if ms.mongoDB == nil {
		return ErrDatabaseClosed
	}
	return ms.mongoDB.HealthCheck(ctx)
}

// Close disconnects the client
func (ms *MongoStore) Close() error {
	if ms.mongoDB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ms.timeout)
	defer cancel()
	return ms.mongoDB.Close(ctx)
}

// =============================================================================
// Indicators
// =============================================================================

// CreateIndicator inserts a new indicator
func (ms *MongoStore) CreateIndicator(ctx context.Context, ind *core.Indicator) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	if _, err := ms.Indicators.InsertOne(ctx, ind); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateIndicator
		}
		return fmt.Errorf("failed to create indicator: %w", err)
	}

	ms.logger.Infow("Indicator created", "indicator_id", ind.ID, "type", ind.Type)
	return nil
}

func (ms *MongoStore) findOneIndicator(ctx context.Context, filter bson.M) (*core.Indicator, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	var ind core.Indicator
	if err := ms.Indicators.FindOne(ctx, filter).Decode(&ind); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIndicatorNotFound
		}
		return nil, fmt.Errorf("failed to get indicator: %w", err)
	}
	return &ind, nil
}

// GetIndicator retrieves an indicator by ID
func (ms *MongoStore) GetIndicator(ctx context.Context, id string) (*core.Indicator, error) {
	return ms.findOneIndicator(ctx, bson.M{"_id": id})
}

// FindIndicator finds an indicator by type and lowercased value
func (ms *MongoStore) FindIndicator(ctx context.Context, indType core.IndicatorType, lowerValue string) (*core.Indicator, error) {
	return ms.findOneIndicator(ctx, bson.M{"type": indType, "lower_value": lowerValue})
}

// UpdateIndicator replaces an indicator if its version is unchanged
func (ms *MongoStore) UpdateIndicator(ctx context.Context, ind *core.Indicator) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	expected := ind.Version
	ind.Modified = core.Now()
	ind.Version = expected + 1

	result, err := ms.Indicators.ReplaceOne(ctx, bson.M{"_id": ind.ID, "version": expected}, ind)
	if err != nil {
		ind.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateIndicator
		}
		return fmt.Errorf("failed to update indicator: %w", err)
	}

	if result.MatchedCount == 0 {
		ind.Version = expected
		count, err := ms.Indicators.CountDocuments(ctx, bson.M{"_id": ind.ID})
		if err != nil {
			return fmt.Errorf("failed to check indicator: %w", err)
		}
		if count == 0 {
			return ErrIndicatorNotFound
		}
		return ErrConflict
	}

	ms.logger.Infow("Indicator updated", "indicator_id", ind.ID, "version", ind.Version)
	return nil
}

// DeleteIndicator removes an indicator by ID
func (ms *MongoStore) DeleteIndicator(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	result, err := ms.Indicators.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete indicator: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrIndicatorNotFound
	}

	ms.logger.Infow("Indicator deleted", "indicator_id", id)
	return nil
}

var mongoSortFields = map[string]string{
	"created":  "created",
	"modified": "modified",
	"value":    "lower_value",
	"type":     "type",
}

// buildIndicatorFilter translates listing filters into a query document
func buildIndicatorFilter(filters *core.IndicatorFilters) bson.M {
	filter := bson.M{}
	if filters.Type != "" {
		filter["type"] = filters.Type
	}
	if filters.Value != "" {
		filter["lower_value"] = primitive.Regex{Pattern: regexp.QuoteMeta(strings.ToLower(filters.Value))}
	}
	if filters.Source != "" {
		filter["sources.name"] = filters.Source
	}
	if filters.Campaign != "" {
		filter["campaigns.name"] = filters.Campaign
	}
	if filters.BucketList != "" {
		filter["bucket_list"] = filters.BucketList
	}
	if filters.Ticket != "" {
		filter["tickets.ticket_number"] = filters.Ticket
	}
	if filters.Search != "" {
		pattern := regexp.QuoteMeta(strings.ToLower(filters.Search))
		filter["$or"] = bson.A{
			bson.M{"lower_value": primitive.Regex{Pattern: pattern}},
			bson.M{"type": primitive.Regex{Pattern: pattern, Options: "i"}},
		}
	}
	return filter
}

// ListIndicators retrieves indicators with filtering and pagination
func (ms *MongoStore) ListIndicators(ctx context.Context, filters *core.IndicatorFilters) ([]*core.Indicator, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*ms.timeout)
	defer cancel()

	if filters == nil {
		filters = &core.IndicatorFilters{}
	}
	filters.Normalize()
	filter := buildIndicatorFilter(filters)

	total, err := ms.Indicators.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count indicators: %w", err)
	}

	field := mongoSortFields[filters.SortBy]
	if field == "" {
		field = "created"
	}
	dir := 1
	if filters.SortDesc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filters.Offset)).
		SetLimit(int64(filters.Limit))

	cursor, err := ms.Indicators.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list indicators: %w", err)
	}
	defer cursor.Close(ctx)

	indicators := make([]*core.Indicator, 0)
	if err := cursor.All(ctx, &indicators); err != nil {
		return nil, 0, fmt.Errorf("failed to decode indicators: %w", err)
	}
	return indicators, total, nil
}

// =============================================================================
// Action Types
// =============================================================================

// CreateActionType adds an action type option
func (ms *MongoStore) CreateActionType(ctx context.Context, at *core.ActionType) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	if _, err := ms.ActionTypes.InsertOne(ctx, at); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateActionType
		}
		return fmt.Errorf("failed to create action type: %w", err)
	}
	ms.logger.Infow("Action type created", "name", at.Name, "analyst", at.Analyst)
	return nil
}

// ListActionTypes returns action types ordered by name
func (ms *MongoStore) ListActionTypes(ctx context.Context, activeOnly bool) ([]core.ActionType, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cursor, err := ms.ActionTypes.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list action types: %w", err)
	}
	defer cursor.Close(ctx)

	types := make([]core.ActionType, 0)
	if err := cursor.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("failed to decode action types: %w", err)
	}
	return types, nil
}

// =============================================================================
// Objects and Relationships
// =============================================================================

// CreateObject stores a non-indicator top-level object
func (ms *MongoStore) CreateObject(ctx context.Context, obj *core.Object) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	if _, err := ms.Objects.InsertOne(ctx, obj); err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}
	ms.logger.Infow("Object created", "object_id", obj.ID, "type", obj.Type)
	return nil
}

func (ms *MongoStore) findOneObject(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*core.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	var obj core.Object
	if err := ms.Objects.FindOne(ctx, filter, opts...).Decode(&obj); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &obj, nil
}

// GetObject retrieves an object by type and ID
func (ms *MongoStore) GetObject(ctx context.Context, objType core.TLOType, id string) (*core.Object, error) {
	return ms.findOneObject(ctx, bson.M{"_id": id, "type": objType})
}

// FindObject retrieves the oldest object of a type with the given value
func (ms *MongoStore) FindObject(ctx context.Context, objType core.TLOType, value string) (*core.Object, error) {
	return ms.findOneObject(ctx, bson.M{"type": objType, "value": value},
		options.FindOne().SetSort(bson.D{{Key: "created", Value: 1}}))
}

// CreateRelationship upserts one edge
func (ms *MongoStore) CreateRelationship(ctx context.Context, rel *core.Relationship) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	key := bson.M{
		"left_type":  rel.LeftType,
		"left_id":    rel.LeftID,
		"right_type": rel.RightType,
		"right_id":   rel.RightID,
		"rel_type":   rel.RelType,
	}
	update := bson.M{"$setOnInsert": bson.M{
		"right_value": rel.RightValue,
		"analyst":     rel.Analyst,
		"date":        rel.Date,
	}}
	if _, err := ms.Relationships.UpdateOne(ctx, key, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// GetRelationships lists the edges leaving an object, oldest first
func (ms *MongoStore) GetRelationships(ctx context.Context, objType core.TLOType, id string) ([]core.Relationship, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	cursor, err := ms.Relationships.Find(ctx,
		bson.M{"left_type": objType, "left_id": id},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "right_type", Value: 1}, {Key: "right_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	defer cursor.Close(ctx)

	rels := make([]core.Relationship, 0)
	if err := cursor.All(ctx, &rels); err != nil {
		return nil, fmt.Errorf("failed to decode relationships: %w", err)
	}
	return rels, nil
}

// DeleteRelationships removes every edge in either direction touching the object
func (ms *MongoStore) DeleteRelationships(ctx context.Context, objType core.TLOType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"left_type": objType, "left_id": id},
		bson.M{"right_type": objType, "right_id": id},
	}}
	if _, err := ms.Relationships.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}
