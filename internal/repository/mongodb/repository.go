package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
	"github.com/mamadbah2/dairy/internal/repository"
)

const (
	farmersColl     = "farmers"
	rateConfigsColl = "rate_configs"
	collectionsColl = "collections"
	periodsColl     = "bill_periods"
	settingsColl    = "settings"
	statementsColl  = "statements"

	lockedPeriodsKey = "locked_periods"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// collectionDoc adds the shift ordinal used for ordering.
type collectionDoc struct {
	models.Collection `bson:",inline"`
	ShiftOrder        int `bson:"shiftOrder"`
}

type rateConfigDoc struct {
	models.RateConfig `bson:",inline"`
	Seq               int64 `bson:"seq"`
}

type periodDoc struct {
	Position          int `bson:"position"`
	models.BillPeriod `bson:",inline"`
}

type settingDoc struct {
	Key string   `bson:"_id"`
	IDs []string `bson:"ids"`
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, db: client.Database(dbName)}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(collectionsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "shiftOrder", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection indexes: %w", err)
	}
	_, err = r.db.Collection(statementsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "periodId", Value: 1}, {Key: "farmerId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create statement indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// GetFarmer returns the farmer with the given id.
func (r *MongoDBRepository) GetFarmer(ctx context.Context, id string) (*models.Farmer, error) {
	var farmer models.Farmer
	if err := r.findOne(ctx, farmersColl, id, &farmer); err != nil {
		return nil, fmt.Errorf("farmer %s: %w", id, err)
	}
	return &farmer, nil
}

// ListFarmers returns every farmer ordered by code.
func (r *MongoDBRepository) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	farmers := []models.Farmer{}
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}, {Key: "_id", Value: 1}})
	if err := r.findAll(ctx, farmersColl, bson.D{}, opts, &farmers); err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	return farmers, nil
}

// SaveFarmer inserts or replaces a farmer.
func (r *MongoDBRepository) SaveFarmer(ctx context.Context, farmer models.Farmer) error {
	if err := r.replace(ctx, farmersColl, farmer.ID, farmer); err != nil {
		return fmt.Errorf("failed to save farmer: %w", err)
	}
	return nil
}

// DeleteFarmer removes a farmer.
func (r *MongoDBRepository) DeleteFarmer(ctx context.Context, id string) error {
	return r.deleteOne(ctx, farmersColl, id)
}

// GetRateConfig returns the rate configuration with the given id.
func (r *MongoDBRepository) GetRateConfig(ctx context.Context, id string) (*models.RateConfig, error) {
	var doc rateConfigDoc
	if err := r.findOne(ctx, rateConfigsColl, id, &doc); err != nil {
		return nil, fmt.Errorf("rate config %s: %w", id, err)
	}
	return &doc.RateConfig, nil
}

// ListRateConfigs returns every rate configuration in insertion order.
func (r *MongoDBRepository) ListRateConfigs(ctx context.Context) ([]models.RateConfig, error) {
	var docs []rateConfigDoc
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if err := r.findAll(ctx, rateConfigsColl, bson.D{}, opts, &docs); err != nil {
		return nil, fmt.Errorf("failed to list rate configs: %w", err)
	}
	configs := make([]models.RateConfig, 0, len(docs))
	for _, d := range docs {
		configs = append(configs, d.RateConfig)
	}
	return configs, nil
}

// SaveRateConfig inserts or replaces a rate configuration. Replacing keeps
// the original position in the listing.
func (r *MongoDBRepository) SaveRateConfig(ctx context.Context, cfg models.RateConfig) error {
	coll := r.db.Collection(rateConfigsColl)

	seq := cfg.CreatedAt.UnixNano()
	var existing rateConfigDoc
	err := coll.FindOne(ctx, bson.M{"_id": cfg.ID}).Decode(&existing)
	switch {
	case err == nil:
		seq = existing.Seq
	case !errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("failed to load rate config: %w", err)
	}

	if err := r.replace(ctx, rateConfigsColl, cfg.ID, rateConfigDoc{RateConfig: cfg, Seq: seq}); err != nil {
		return fmt.Errorf("failed to save rate config: %w", err)
	}
	return nil
}

// DeleteRateConfig removes a rate configuration.
func (r *MongoDBRepository) DeleteRateConfig(ctx context.Context, id string) error {
	return r.deleteOne(ctx, rateConfigsColl, id)
}

// GetCollection returns the collection with the given id.
func (r *MongoDBRepository) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var doc collectionDoc
	if err := r.findOne(ctx, collectionsColl, id, &doc); err != nil {
		return nil, fmt.Errorf("collection %s: %w", id, err)
	}
	return &doc.Collection, nil
}

// ListCollections returns the collections matching filter ordered by date,
// shift and creation time.
func (r *MongoDBRepository) ListCollections(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, error) {
	query := bson.M{}
	dateRange := bson.M{}
	if filter.FromDate != "" {
		dateRange["$gte"] = filter.FromDate
	}
	if filter.ToDate != "" {
		dateRange["$lte"] = filter.ToDate
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}
	if filter.FarmerID != "" {
		query["farmerId"] = filter.FarmerID
	}

	var docs []collectionDoc
	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "shiftOrder", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	if err := r.findAll(ctx, collectionsColl, query, opts, &docs); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	collections := make([]models.Collection, 0, len(docs))
	for _, d := range docs {
		collections = append(collections, d.Collection)
	}
	return collections, nil
}

// SaveCollection inserts or replaces a collection.
func (r *MongoDBRepository) SaveCollection(ctx context.Context, c models.Collection) error {
	doc := collectionDoc{Collection: c, ShiftOrder: pricing.ShiftOrdinal(c.Shift)}
	if err := r.replace(ctx, collectionsColl, c.ID, doc); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// DeleteCollection removes a collection.
func (r *MongoDBRepository) DeleteCollection(ctx context.Context, id string) error {
	return r.deleteOne(ctx, collectionsColl, id)
}

// ListBillPeriods returns the period definitions in their saved order.
func (r *MongoDBRepository) ListBillPeriods(ctx context.Context) ([]models.BillPeriod, error) {
	var docs []periodDoc
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	if err := r.findAll(ctx, periodsColl, bson.D{}, opts, &docs); err != nil {
		return nil, fmt.Errorf("failed to list bill periods: %w", err)
	}
	periods := make([]models.BillPeriod, 0, len(docs))
	for _, d := range docs {
		periods = append(periods, d.BillPeriod)
	}
	return periods, nil
}

// SaveBillPeriods replaces every period definition.
func (r *MongoDBRepository) SaveBillPeriods(ctx context.Context, periods []models.BillPeriod) error {
	coll := r.db.Collection(periodsColl)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to clear bill periods: %w", err)
	}
	if len(periods) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(periods))
	for i, p := range periods {
		docs = append(docs, periodDoc{Position: i, BillPeriod: p})
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert bill periods: %w", err)
	}
	return nil
}

// LockedPeriodIDs returns the stored set of locked period ids.
func (r *MongoDBRepository) LockedPeriodIDs(ctx context.Context) ([]string, error) {
	var doc settingDoc
	err := r.db.Collection(settingsColl).FindOne(ctx, bson.M{"_id": lockedPeriodsKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load locked periods: %w", err)
	}
	if doc.IDs == nil {
		doc.IDs = []string{}
	}
	return doc.IDs, nil
}

// SetLockedPeriodIDs replaces the stored set of locked period ids.
func (r *MongoDBRepository) SetLockedPeriodIDs(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if err := r.replace(ctx, settingsColl, lockedPeriodsKey, settingDoc{Key: lockedPeriodsKey, IDs: ids}); err != nil {
		return fmt.Errorf("failed to save locked periods: %w", err)
	}
	return nil
}

// SaveStatement inserts or replaces a bill statement.
func (r *MongoDBRepository) SaveStatement(ctx context.Context, st models.BillStatement) error {
	if err := r.replace(ctx, statementsColl, st.ID, st); err != nil {
		return fmt.Errorf("failed to save statement: %w", err)
	}
	return nil
}

// ListStatements returns the statements of a period ordered by farmer.
func (r *MongoDBRepository) ListStatements(ctx context.Context, periodID string) ([]models.BillStatement, error) {
	statements := []models.BillStatement{}
	opts := options.Find().SetSort(bson.D{{Key: "farmerId", Value: 1}})
	if err := r.findAll(ctx, statementsColl, bson.M{"periodId": periodID}, opts, &statements); err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	return statements, nil
}

func (r *MongoDBRepository) findOne(ctx context.Context, coll, id string, dst interface{}) error {
	err := r.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return derrors.ErrNotFound
	}
	return err
}

func (r *MongoDBRepository) findAll(ctx context.Context, coll string, filter interface{}, opts *options.FindOptions, dst interface{}) error {
	cursor, err := r.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, dst)
}

func (r *MongoDBRepository) replace(ctx context.Context, coll, id string, doc interface{}) error {
	_, err := r.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoDBRepository) deleteOne(ctx context.Context, coll, id string) error {
	res, err := r.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", coll, id, derrors.ErrNotFound)
	}
	return nil
}
