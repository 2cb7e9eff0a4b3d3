package repository

import (
	"context"
	"errors"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WashLogRepository struct {
	col *mongo.Collection
}

func NewWashLogRepository(db *mongo.Database) *WashLogRepository {
	return &WashLogRepository{col: db.Collection("wash_logs")}
}

// subjectFilter строит базовый фильтр по ключу журнала (customer, vehicle).
// Для легаси-клиента vehicle_id в записях отсутствует.
func subjectFilter(customerID primitive.ObjectID, vehicleID *primitive.ObjectID) bson.M {
	filter := bson.M{"customer_id": customerID}
	if vehicleID != nil {
		filter["vehicle_id"] = *vehicleID
	} else {
		filter["vehicle_id"] = nil
	}
	return filter
}

func (r *WashLogRepository) Insert(ctx context.Context, entry *models.WashLog) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}

func (r *WashLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.WashLog, error) {
	var entry models.WashLog
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindCompletedOnDay ищет завершённую запись, закрывающую данный календарный
// день (по scheduled_date). Больше одной такой записи быть не может.
func (r *WashLogRepository) FindCompletedOnDay(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, day time.Time) (*models.WashLog, error) {
	start := models.DayOf(day)
	end := start.Add(24 * time.Hour)

	filter := subjectFilter(customerID, vehicleID)
	filter["status"] = models.WashCompleted
	filter["scheduled_date"] = bson.M{"$gte": start, "$lt": end}

	var entry models.WashLog
	err := r.col.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// CountCompletedInRange считает завершённые мойки по wash_date в [from, to].
func (r *WashLogRepository) CountCompletedInRange(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) (int, error) {
	filter := subjectFilter(customerID, vehicleID)
	filter["status"] = models.WashCompleted
	filter["wash_date"] = bson.M{"$gte": from, "$lte": to}

	n, err := r.col.CountDocuments(ctx, filter)
	return int(n), err
}

// FindCompletedInRange возвращает завершённые записи за диапазон дней
// расписания (для повестки).
func (r *WashLogRepository) FindCompletedInRange(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, from, to time.Time) ([]models.WashLog, error) {
	filter := subjectFilter(customerID, vehicleID)
	filter["status"] = models.WashCompleted
	filter["scheduled_date"] = bson.M{"$gte": models.DayOf(from), "$lte": models.DayOf(to)}

	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.WashLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkCancelled переводит запись completed -> cancelled. Условие по статусу
// стоит прямо в фильтре, чтобы двойная отмена не прошла.
func (r *WashLogRepository) MarkCancelled(ctx context.Context, id primitive.ObjectID, cancelledAt time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.WashCompleted},
		bson.M{"$set": bson.M{
			"status":       models.WashCancelled,
			"cancelled_at": cancelledAt,
			"updated_at":   time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// FindLatestCompleted возвращает самую свежую завершённую запись носителя
// (по wash_date) либо ErrNotFound. Нужна для пересчёта last_wash_date после
// отмены.
func (r *WashLogRepository) FindLatestCompleted(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (*models.WashLog, error) {
	filter := subjectFilter(customerID, vehicleID)
	filter["status"] = models.WashCompleted

	opts := options.FindOne().SetSort(bson.D{{Key: "wash_date", Value: -1}})
	var entry models.WashLog
	err := r.col.FindOne(ctx, filter, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByCustomer возвращает историю моек клиента, опционально за месяц.
func (r *WashLogRepository) FindByCustomer(ctx context.Context, customerID primitive.ObjectID, from, to *time.Time) ([]models.WashLog, error) {
	filter := bson.M{"customer_id": customerID}
	if from != nil && to != nil {
		filter["wash_date"] = bson.M{"$gte": *from, "$lte": *to}
	}

	opts := options.Find().SetSort(bson.D{{Key: "wash_date", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.WashLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
