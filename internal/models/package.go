package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CarType string

const (
	CarTypeSedan   CarType = "sedan"
	CarTypeSUV     CarType = "suv"
	CarTypePremium CarType = "premium"
	CarTypeHatch   CarType = "hatch"
)

// Названия тарифов фиксированы, уникальность — по паре (name, carType).
const (
	TierBasic     = "Basic"
	TierModerate  = "Moderate"
	TierClassic   = "Classic"
	TierHatchPack = "Hatch Pack"
)

type Package struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"       json:"id"`
	Name              string             `bson:"name"                json:"name"`
	CarType           CarType            `bson:"car_type"            json:"car_type"`
	PricePerMonth     float64            `bson:"price_per_month"     json:"price_per_month"`
	WashCountPerWeek  int                `bson:"wash_count_per_week" json:"wash_count_per_week"`
	WashCountPerMonth int                `bson:"wash_count_per_month" json:"wash_count_per_month"`
	// HasInterior — нормализованный флаг вместо разбора строки interior_cleaning
	// по всем контроллерам. Для Moderate всегда false.
	HasInterior      bool      `bson:"has_interior"          json:"has_interior"`
	InteriorCleaning string    `bson:"interior_cleaning,omitempty" json:"interior_cleaning,omitempty"`
	ExteriorWaxing   string    `bson:"exterior_waxing,omitempty"   json:"exterior_waxing,omitempty"`
	WashDays         []string  `bson:"wash_days,omitempty"   json:"wash_days,omitempty"`
	Description      string    `bson:"description"           json:"description"`
	IsActive         bool      `bson:"is_active"             json:"is_active"`
	CreatedAt        time.Time `bson:"created_at"            json:"created_at"`
}

// ParseInteriorCleaningValue разбирает легаси-значения вида "2 per month",
// "0 per month", "no" в число включённых интерьерных моек.
// Второй результат false, если значение нераспознано.
func ParseInteriorCleaningValue(val string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(val))
	if s == "" {
		return 0, false
	}
	if s == "no" || s == "none" || s == "n/a" {
		return 0, true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HasInteriorFromPackage — единственное место, где живёт строковое правило
// про Moderate: такие пакеты никогда не включают интерьер, что бы ни было
// записано в документе. Для остальных решает флаг HasInterior, а для
// документов, созданных до его появления, — легаси-строка interior_cleaning.
func HasInteriorFromPackage(pkg *Package) bool {
	if pkg == nil {
		return false
	}
	if strings.Contains(strings.ToLower(pkg.Name), "moderate") {
		return false
	}
	if pkg.HasInterior {
		return true
	}
	if n, ok := ParseInteriorCleaningValue(pkg.InteriorCleaning); ok {
		return n > 0
	}
	return false
}

// DefaultWashType — тип мойки по умолчанию для дня расписания.
func DefaultWashType(pkg *Package) WashType {
	if HasInteriorFromPackage(pkg) {
		return WashTypeBoth
	}
	return WashTypeExterior
}
