package mongodb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/config"
	"github.com/ChilliBits/particulate-matter-api/internal/database"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository/mongodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMongoDB_CollectionName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1234", mongodb.CollectionName(1234))
	assert.Equal(t, "18446744073709551615", mongodb.CollectionName(^uint64(0)))
}

func TestMongoDB_RangeFilter(t *testing.T) {
	t.Parallel()

	filter := mongodb.RangeFilter(1_699_913_600_000, 1_700_000_000_000)

	assert.Equal(t, bson.M{
		"timestamp": bson.M{
			"$gte": int64(1_699_913_600_000),
			"$lte": int64(1_700_000_000_000),
		},
	}, filter)
}

func newDataRecordRepo(t *testing.T) (*mongodb.DataRecordRepo, database.DocumentDB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	db, err := database.NewMongoDB(config.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s:%d", host, port.Int()),
		Database:       "feinstaub",
		ConnectTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	return mongodb.NewDataRecordRepository(db), db
}

func insertRecords(t *testing.T, db database.DocumentDB, chipID uint64, records ...models.DataRecord) {
	t.Helper()
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = r
	}
	_, err := db.Database().Collection(mongodb.CollectionName(chipID)).InsertMany(context.Background(), docs)
	require.NoError(t, err)
}

func measurement(ts int64, p1 float64) models.DataRecord {
	return models.DataRecord{
		Timestamp:        ts,
		SensorDataValues: []models.SensorDataValue{{ValueType: "P1", Value: p1}},
	}
}

func TestDataRecordRepo_MongoDB(t *testing.T) {
	repo, db := newDataRecordRepo(t)
	ctx := context.Background()

	insertRecords(t, db, 1234,
		measurement(300, 3),
		measurement(100, 1),
		measurement(200, 2),
		measurement(400, 4),
	)
	insertRecords(t, db, 5678, measurement(250, 9))

	t.Run("collections are named by chip id", func(t *testing.T) {
		names, err := db.Database().ListCollectionNames(ctx, bson.M{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"1234", "5678"}, names)
	})

	t.Run("scan range includes both bounds", func(t *testing.T) {
		records, err := repo.ScanRange(ctx, 1234, 200, 300)
		require.NoError(t, err)
		assert.Equal(t, []models.DataRecord{measurement(200, 2), measurement(300, 3)}, records)

		records, err = repo.ScanRange(ctx, 1234, 101, 199)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NotNil(t, records)
	})

	t.Run("scan range stays within the chip collection", func(t *testing.T) {
		records, err := repo.ScanRange(ctx, 5678, 0, 1_000)
		require.NoError(t, err)
		assert.Equal(t, []models.DataRecord{measurement(250, 9)}, records)
	})

	t.Run("latest returns the newest record", func(t *testing.T) {
		record, err := repo.Latest(ctx, 1234)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, measurement(400, 4), *record)
	})

	t.Run("latest of an empty collection is nil", func(t *testing.T) {
		record, err := repo.Latest(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("scan all returns every record in timestamp order", func(t *testing.T) {
		records, err := repo.ScanAll(ctx, 1234)
		require.NoError(t, err)
		assert.Equal(t, []models.DataRecord{
			measurement(100, 1),
			measurement(200, 2),
			measurement(300, 3),
			measurement(400, 4),
		}, records)

		records, err = repo.ScanAll(ctx, 9999)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
