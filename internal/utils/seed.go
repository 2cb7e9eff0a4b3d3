package utils

import (
	"context"
	"log"

	"carwash-app/wash-service/internal/models"
)

type PackageSeeder interface {
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, packages []models.Package) error
}

// SeedPackages наполняет пустой справочник пакетов. Наполненный не трогает.
func SeedPackages(ctx context.Context, repo PackageSeeder) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[SEED] Seeding package catalog...")
	return repo.InsertMany(ctx, defaultPackages())
}

func defaultPackages() []models.Package {
	basic := func(carType models.CarType, price float64) models.Package {
		return models.Package{
			Name:              models.TierBasic,
			CarType:           carType,
			PricePerMonth:     price,
			WashCountPerWeek:  2,
			WashCountPerMonth: 8,
			HasInterior:       true,
			InteriorCleaning:  "2 per month",
			ExteriorWaxing:    "No",
			WashDays:          []string{"Monday", "Thursday"},
			Description:       "8 exterior washes + 2 interior washes per month",
			IsActive:          true,
		}
	}
	moderate := func(carType models.CarType, price float64) models.Package {
		return models.Package{
			Name:              models.TierModerate,
			CarType:           carType,
			PricePerMonth:     price,
			WashCountPerWeek:  3,
			WashCountPerMonth: 12,
			// Бизнес-правило: Moderate без салона, что бы ни было в полях.
			HasInterior:      false,
			InteriorCleaning: "0 per month",
			ExteriorWaxing:   "No",
			WashDays:         []string{"Monday", "Wednesday", "Friday"},
			Description:      "12 exterior washes per month (no interior)",
			IsActive:         true,
		}
	}
	classic := func(carType models.CarType, price float64) models.Package {
		return models.Package{
			Name:              models.TierClassic,
			CarType:           carType,
			PricePerMonth:     price,
			WashCountPerWeek:  3,
			WashCountPerMonth: 12,
			HasInterior:       true,
			InteriorCleaning:  "2 per month",
			ExteriorWaxing:    "Yes",
			WashDays:          []string{"Monday", "Wednesday", "Friday"},
			Description:       "12 exterior washes + waxing per month",
			IsActive:          true,
		}
	}

	return []models.Package{
		basic(models.CarTypeSedan, 900),
		basic(models.CarTypeSUV, 1000),
		basic(models.CarTypePremium, 1200),
		moderate(models.CarTypeSedan, 1000),
		moderate(models.CarTypeSUV, 1200),
		moderate(models.CarTypePremium, 1500),
		classic(models.CarTypeSedan, 900),
		classic(models.CarTypeSUV, 1100),
		classic(models.CarTypePremium, 1400),
		{
			Name:              models.TierHatchPack,
			CarType:           models.CarTypeHatch,
			PricePerMonth:     800,
			WashCountPerWeek:  3,
			WashCountPerMonth: 12,
			HasInterior:       true,
			InteriorCleaning:  "2 per month",
			ExteriorWaxing:    "No",
			WashDays:          []string{"Monday", "Wednesday", "Friday"},
			Description:       "12 exterior washes + 2 interior washes per month for hatchbacks",
			IsActive:          true,
		},
	}
}
