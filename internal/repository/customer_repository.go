package repository

import (
	"context"
	"errors"
	"time"

	"carwash-app/wash-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CustomerRepository struct {
	col *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{col: db.Collection("customers")}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// UpdateWindowCAS выполняет условный апдейт окна: фильтр совпадает, только
// если текущий package_end_date равен expectedEnd (nil — окно ещё не
// стартовало). Так переходы окна сериализуются средствами Mongo, без
// блокировок: из гонящихся вызовов выигрывает ровно один, остальные просто
// не матчатся. Возвращает true, если апдейт применился.
func (r *CustomerRepository) UpdateWindowCAS(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, expectedEnd *time.Time, w models.WindowChange) (bool, error) {
	now := time.Now().UTC()

	var filter, set, push bson.M
	if vehicleID != nil {
		cond := bson.M{"_id": *vehicleID}
		if expectedEnd != nil {
			cond["package_end_date"] = *expectedEnd
		} else {
			cond["package_end_date"] = nil
		}
		filter = bson.M{"_id": customerID, "vehicles": bson.M{"$elemMatch": cond}}
		set = bson.M{
			"vehicles.$.package_start_date": w.StartDate,
			"vehicles.$.package_end_date":   w.EndDate,
			"vehicles.$.package_active":     w.Active,
			"vehicles.$.updated_at":         now,
			"updated_at":                    now,
		}
		if w.AutoRenew != nil {
			set["vehicles.$.auto_renew"] = *w.AutoRenew
		}
		if w.WashingDays != nil {
			set["vehicles.$.washing_schedule.washing_days"] = w.WashingDays
			set["vehicles.$.washing_schedule.wash_frequency_per_month"] = w.WashFrequency
		}
		push = bson.M{"vehicles.$.package_history": w.History}
	} else {
		filter = bson.M{"_id": customerID}
		if expectedEnd != nil {
			filter["package_end_date"] = *expectedEnd
		} else {
			filter["package_end_date"] = nil
		}
		set = bson.M{
			"package_start_date": w.StartDate,
			"package_end_date":   w.EndDate,
			"package_active":     w.Active,
			"updated_at":         now,
		}
		if w.AutoRenew != nil {
			set["auto_renew"] = *w.AutoRenew
		}
		if w.WashingDays != nil {
			set["washing_schedule.washing_days"] = w.WashingDays
			set["washing_schedule.wash_frequency_per_month"] = w.WashFrequency
		}
		push = bson.M{"package_history": w.History}
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set, "$push": push})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// SetLastWashDate обновляет производное поле last_wash_date носителя
// (t == nil очищает его — так бывает после отмены последней мойки).
func (r *CustomerRepository) SetLastWashDate(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, t *time.Time) error {
	now := time.Now().UTC()
	var filter, set bson.M
	if vehicleID != nil {
		filter = bson.M{"_id": customerID, "vehicles._id": *vehicleID}
		set = bson.M{"vehicles.$.washing_schedule.last_wash_date": t, "updated_at": now}
	} else {
		filter = bson.M{"_id": customerID}
		set = bson.M{"washing_schedule.last_wash_date": t, "updated_at": now}
	}
	_, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	return err
}

// FindWithExpiredVehicleWindows возвращает клиентов, у которых хотя бы одна
// машина с package_end_date <= before.
func (r *CustomerRepository) FindWithExpiredVehicleWindows(ctx context.Context, before time.Time) ([]models.Customer, error) {
	cursor, err := r.col.Find(ctx, bson.M{"vehicles.package_end_date": bson.M{"$lte": before}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var customers []models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// FindLegacyExpired возвращает легаси-клиентов (без vehicles) с истёкшим окном.
func (r *CustomerRepository) FindLegacyExpired(ctx context.Context, before time.Time) ([]models.Customer, error) {
	filter := bson.M{
		"package_end_date": bson.M{"$lte": before},
		"$or": bson.A{
			bson.M{"vehicles": bson.M{"$exists": false}},
			bson.M{"vehicles": bson.M{"$size": 0}},
		},
	}
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var customers []models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// FindExpiringBetween возвращает клиентов, чьё окно (на машине или легаси)
// заканчивается в интервале [from, to). Используется уведомлениями.
func (r *CustomerRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Customer, error) {
	rangeCond := bson.M{"$gte": from, "$lt": to}
	filter := bson.M{"$or": bson.A{
		bson.M{"vehicles.package_end_date": rangeCond},
		bson.M{"package_end_date": rangeCond},
	}}
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var customers []models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}
