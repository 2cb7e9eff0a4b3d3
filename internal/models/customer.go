package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

// PackageHistoryEntry — неизменяемый снимок окна подписки. Добавляется при
// старте, автопродлении и административной правке; никогда не правится и
// не удаляется.
type PackageHistoryEntry struct {
	PackageID      *primitive.ObjectID `bson:"package_id,omitempty"  json:"package_id,omitempty"`
	PackageName    string              `bson:"package_name"          json:"package_name"`
	StartDate      time.Time           `bson:"start_date"            json:"start_date"`
	EndDate        time.Time           `bson:"end_date"              json:"end_date"`
	AutoRenewed    bool                `bson:"auto_renewed"          json:"auto_renewed"`
	UpdatedByAdmin bool                `bson:"updated_by_admin,omitempty" json:"updated_by_admin,omitempty"`
	RenewedOn      time.Time           `bson:"renewed_on"            json:"renewed_on"`
}

type WashingSchedule struct {
	ScheduleType          ScheduleVariant `bson:"schedule_type"   json:"schedule_type"`
	WashingDays           []int           `bson:"washing_days"    json:"washing_days"`
	LastWashDate          *time.Time      `bson:"last_wash_date,omitempty" json:"last_wash_date,omitempty"`
	NextWashDate          *time.Time      `bson:"next_wash_date,omitempty" json:"next_wash_date,omitempty"`
	WashFrequencyPerMonth int             `bson:"wash_frequency_per_month" json:"wash_frequency_per_month"`
}

type Vehicle struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CarModel string             `bson:"car_model"     json:"car_model"`
	VehicleNo string            `bson:"vehicle_no"    json:"vehicle_no"`
	CarType  CarType            `bson:"car_type"      json:"car_type"`

	PackageID   *primitive.ObjectID `bson:"package_id,omitempty"   json:"package_id,omitempty"`
	PackageName string              `bson:"package_name,omitempty" json:"package_name,omitempty"`
	WasherID    *primitive.ObjectID `bson:"washer_id,omitempty"    json:"washer_id,omitempty"`

	// Окно подписки: включительно с обеих сторон, длина всегда 29 дней.
	PackageStartDate *time.Time `bson:"package_start_date,omitempty" json:"package_start_date,omitempty"`
	PackageEndDate   *time.Time `bson:"package_end_date,omitempty"   json:"package_end_date,omitempty"`
	PackageActive    bool       `bson:"package_active"               json:"package_active"`
	// nil трактуется как true: автопродление включается при старте пакета,
	// у старых документов поля нет вовсе.
	AutoRenew *bool `bson:"auto_renew,omitempty" json:"auto_renew,omitempty"`

	PackageHistory  []PackageHistoryEntry `bson:"package_history,omitempty" json:"package_history,omitempty"`
	WashingSchedule WashingSchedule       `bson:"washing_schedule"          json:"washing_schedule"`

	Status    CustomerStatus `bson:"status"     json:"status"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// Customer хранит либо список vehicles, либо (легаси, одна машина) тот же
// набор полей прямо на себе. Это один домен с двумя формами записи, выбор
// формы — по наличию vehicles.
type Customer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name"          json:"name"`
	MobileNo  string             `bson:"mobile_no"     json:"mobile_no"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Apartment string             `bson:"apartment"     json:"apartment"`
	DoorNo    string             `bson:"door_no"       json:"door_no"`

	Vehicles []Vehicle `bson:"vehicles,omitempty" json:"vehicles,omitempty"`

	// Легаси-поля для клиентов без vehicles.
	CarModel    string              `bson:"car_model,omitempty"    json:"car_model,omitempty"`
	VehicleNo   string              `bson:"vehicle_no,omitempty"   json:"vehicle_no,omitempty"`
	CarType     CarType             `bson:"car_type,omitempty"     json:"car_type,omitempty"`
	PackageID   *primitive.ObjectID `bson:"package_id,omitempty"   json:"package_id,omitempty"`
	PackageName string              `bson:"package_name,omitempty" json:"package_name,omitempty"`
	WasherID    *primitive.ObjectID `bson:"washer_id,omitempty"    json:"washer_id,omitempty"`

	PackageStartDate *time.Time            `bson:"package_start_date,omitempty" json:"package_start_date,omitempty"`
	PackageEndDate   *time.Time            `bson:"package_end_date,omitempty"   json:"package_end_date,omitempty"`
	PackageActive    bool                  `bson:"package_active"               json:"package_active"`
	AutoRenew        *bool                 `bson:"auto_renew,omitempty"         json:"auto_renew,omitempty"`
	PackageHistory   []PackageHistoryEntry `bson:"package_history,omitempty"    json:"package_history,omitempty"`
	WashingSchedule  WashingSchedule       `bson:"washing_schedule"             json:"washing_schedule"`

	Status    CustomerStatus `bson:"status"     json:"status"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// Subject — обобщённый носитель подписки: конкретная машина клиента либо
// сам клиент в легаси-форме (Vehicle == nil).
type Subject struct {
	Customer *Customer
	Vehicle  *Vehicle
}

// SubjectFor выбирает носителя подписки. vehicleID обязателен, если у
// клиента несколько машин; для клиента с одной машиной берётся она,
// для клиента без машин — легаси-поля самого клиента.
func (c *Customer) SubjectFor(vehicleID *primitive.ObjectID) (*Subject, error) {
	if len(c.Vehicles) == 0 {
		return &Subject{Customer: c}, nil
	}
	if vehicleID == nil {
		if len(c.Vehicles) == 1 {
			return &Subject{Customer: c, Vehicle: &c.Vehicles[0]}, nil
		}
		return nil, ErrValidation
	}
	for i := range c.Vehicles {
		if c.Vehicles[i].ID == *vehicleID {
			return &Subject{Customer: c, Vehicle: &c.Vehicles[i]}, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Subject) IsLegacy() bool { return s.Vehicle == nil }

// VehicleID — ключ журнала моек; nil для легаси-клиента.
func (s *Subject) VehicleID() *primitive.ObjectID {
	if s.Vehicle == nil {
		return nil
	}
	id := s.Vehicle.ID
	return &id
}

func (s *Subject) PackageID() *primitive.ObjectID {
	if s.Vehicle != nil {
		return s.Vehicle.PackageID
	}
	return s.Customer.PackageID
}

func (s *Subject) PackageName() string {
	if s.Vehicle != nil {
		return s.Vehicle.PackageName
	}
	return s.Customer.PackageName
}

func (s *Subject) WasherID() *primitive.ObjectID {
	if s.Vehicle != nil {
		return s.Vehicle.WasherID
	}
	return s.Customer.WasherID
}

func (s *Subject) StartDate() *time.Time {
	if s.Vehicle != nil {
		return s.Vehicle.PackageStartDate
	}
	return s.Customer.PackageStartDate
}

func (s *Subject) EndDate() *time.Time {
	if s.Vehicle != nil {
		return s.Vehicle.PackageEndDate
	}
	return s.Customer.PackageEndDate
}

func (s *Subject) Active() bool {
	if s.Vehicle != nil {
		return s.Vehicle.PackageActive
	}
	return s.Customer.PackageActive
}

func (s *Subject) AutoRenewEnabled() bool {
	var p *bool
	if s.Vehicle != nil {
		p = s.Vehicle.AutoRenew
	} else {
		p = s.Customer.AutoRenew
	}
	if p == nil {
		return true
	}
	return *p
}

func (s *Subject) Schedule() WashingSchedule {
	if s.Vehicle != nil {
		return s.Vehicle.WashingSchedule
	}
	return s.Customer.WashingSchedule
}

// Plan — рабочее расписание носителя: явно заданные washing_days, а если их
// нет — табличный план по тарифу.
func (s *Subject) Plan() WashPlan {
	ws := s.Schedule()
	plan := PlanFor(s.PackageName(), ws.ScheduleType)
	if len(ws.WashingDays) > 0 {
		plan.WashingDays = ws.WashingDays
	}
	return plan
}

// WithinWindow проверяет попадание дня в окно подписки (границы включительно).
func (s *Subject) WithinWindow(day time.Time) bool {
	start, end := s.StartDate(), s.EndDate()
	if start == nil || end == nil {
		return false
	}
	d := DayOf(day)
	return !d.Before(DayOf(*start)) && !d.After(DayOf(*end))
}

// DayOf усекает момент времени до календарного дня в UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
