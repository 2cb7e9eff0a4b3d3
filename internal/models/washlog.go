package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WashStatus string

const (
	WashCompleted WashStatus = "completed"
	WashCancelled WashStatus = "cancelled"
)

type WashType string

const (
	WashTypeExterior WashType = "exterior"
	WashTypeBoth     WashType = "both"
)

// WashLog — запись журнала моек. Журнал только дописывается: отмена не
// удаляет запись, а переводит её в cancelled (единственный разрешённый
// переход статуса).
type WashLog struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CustomerID primitive.ObjectID  `bson:"customer_id"   json:"customer_id"`
	VehicleID  *primitive.ObjectID `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	WasherID   primitive.ObjectID  `bson:"washer_id"     json:"washer_id"`
	PackageID  *primitive.ObjectID `bson:"package_id,omitempty" json:"package_id,omitempty"`

	WashType WashType `bson:"wash_type" json:"wash_type"`
	// ScheduledDate — календарный день расписания, который закрывает эта
	// запись; WashDate — фактический момент действия.
	ScheduledDate *time.Time `bson:"scheduled_date,omitempty" json:"scheduled_date,omitempty"`
	WashDate      time.Time  `bson:"wash_date"                json:"wash_date"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty"   json:"completed_at,omitempty"`
	CancelledAt   *time.Time `bson:"cancelled_at,omitempty"   json:"cancelled_at,omitempty"`

	Status WashStatus `bson:"status" json:"status"`
	// Early — мойку закрыли раньше её дня расписания.
	Early bool `bson:"early,omitempty" json:"early,omitempty"`

	Apartment string `bson:"apartment,omitempty" json:"apartment,omitempty"`
	DoorNo    string `bson:"door_no,omitempty"   json:"door_no,omitempty"`
	Notes     string `bson:"notes,omitempty"     json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// WashCounts — счётчики моек. Completed считается за текущий календарный
// месяц, хотя окно пакета длится 29 дней от произвольной даты — так вёл
// себя исходный бэкенд, и это поведение сохранено сознательно.
type WashCounts struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Total     int `json:"total"`
}

// DayEntry — одна строка повестки: день расписания с его состоянием.
type DayEntry struct {
	Date      time.Time `json:"date"`
	Weekday   string    `json:"weekday"`
	Completed bool      `json:"completed"`
	Missed    bool      `json:"missed"`
	WashType  WashType  `json:"wash_type"`
}
