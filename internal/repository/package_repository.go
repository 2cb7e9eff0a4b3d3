package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carwash-app/wash-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var packageCacheTTL = 30 * time.Second

// PackageRepository читает справочник пакетов. Пакеты почти не меняются,
// поэтому чтение по ID идёт через Redis-кэш.
type PackageRepository struct {
	col   *mongo.Collection
	redis *redis.Client
}

func NewPackageRepository(db *mongo.Database, rdb *redis.Client) *PackageRepository {
	return &PackageRepository{col: db.Collection("packages"), redis: rdb}
}

func (r *PackageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	cacheKey := "package:" + id.Hex()
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var pkg models.Package
			if err := json.Unmarshal([]byte(cached), &pkg); err == nil {
				return &pkg, nil
			}
		}
	}

	var pkg models.Package
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&pkg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(&pkg); err == nil {
			r.redis.Set(ctx, cacheKey, string(data), packageCacheTTL)
		}
	}
	return &pkg, nil
}

func (r *PackageRepository) GetActive(ctx context.Context) ([]models.Package, error) {
	cursor, err := r.col.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var packages []models.Package
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *PackageRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *PackageRepository) InsertMany(ctx context.Context, packages []models.Package) error {
	docs := make([]interface{}, 0, len(packages))
	now := time.Now().UTC()
	for i := range packages {
		packages[i].CreatedAt = now
		docs = append(docs, packages[i])
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}
