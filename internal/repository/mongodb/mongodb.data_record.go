// FilePath: internal/repository/mongodb/mongodb.data_record.go
package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/ChilliBits/particulate-matter-api/internal/database"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/monitoring"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const timestampField = "timestamp"

var _ repository.DataRecordRepository = (*DataRecordRepo)(nil)

// DataRecordRepo reads raw records from one collection per chip,
// named by the decimal chip ID.
type DataRecordRepo struct {
	db database.DocumentDB
}

func NewDataRecordRepository(db database.DocumentDB) *DataRecordRepo {
	return &DataRecordRepo{db: db}
}

// CollectionName returns the name of the record collection of a chip.
func CollectionName(chipID uint64) string {
	return strconv.FormatUint(chipID, 10)
}

func (r *DataRecordRepo) collection(chipID uint64) *mongo.Collection {
	return r.db.Database().Collection(CollectionName(chipID))
}

// RangeFilter matches records with from <= timestamp <= to.
func RangeFilter(from, to int64) bson.M {
	return bson.M{
		timestampField: bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
}

func (r *DataRecordRepo) ScanRange(ctx context.Context, chipID uint64, from, to int64) ([]models.DataRecord, error) {
	records, err := r.find(ctx, chipID, RangeFilter(from, to))
	monitoring.ObserveStoreCall("scan_range", err)
	if err != nil {
		return nil, errors.NewDataAccessError(fmt.Sprintf("failed to scan records of sensor %d", chipID), err)
	}
	return records, nil
}

func (r *DataRecordRepo) ScanAll(ctx context.Context, chipID uint64) ([]models.DataRecord, error) {
	records, err := r.find(ctx, chipID, bson.M{})
	monitoring.ObserveStoreCall("scan_all", err)
	if err != nil {
		return nil, errors.NewDataAccessError(fmt.Sprintf("failed to scan all records of sensor %d", chipID), err)
	}
	return records, nil
}

func (r *DataRecordRepo) Latest(ctx context.Context, chipID uint64) (*models.DataRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: timestampField, Value: -1}})

	record := &models.DataRecord{}
	err := r.collection(chipID).FindOne(ctx, bson.M{}, opts).Decode(record)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		monitoring.ObserveStoreCall("latest", nil)
		return nil, nil
	}
	monitoring.ObserveStoreCall("latest", err)
	if err != nil {
		return nil, errors.NewDataAccessError(fmt.Sprintf("failed to get latest record of sensor %d", chipID), err)
	}
	if record.SensorDataValues == nil {
		record.SensorDataValues = []models.SensorDataValue{}
	}
	return record, nil
}

func (r *DataRecordRepo) find(ctx context.Context, chipID uint64, filter bson.M) ([]models.DataRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: timestampField, Value: 1}})

	cursor, err := r.collection(chipID).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.DataRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].SensorDataValues == nil {
			records[i].SensorDataValues = []models.SensorDataValue{}
		}
	}
	return records, nil
}
