package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/ports"
	"time"
)

type CheckpointSeed struct {
	Status      string              `json:"status"`
	Location    string              `json:"location"`
	Coordinates *domain.Coordinates `json:"coordinates"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
	Time        string              `json:"time"`
}

type PackageSeed struct {
	TrackingNumber string            `json:"trackingNumber"`
	Description    string            `json:"description"`
	Weight         float64           `json:"weight"`
	Dimensions     domain.Dimensions `json:"dimensions"`
	Sender         domain.Party      `json:"sender"`
	Recipient      domain.Party      `json:"recipient"`
	Payment        domain.Payment    `json:"payment"`
	PackageType    string            `json:"packageType"`
	AdminID        string            `json:"adminId"`
	Checkpoints    []CheckpointSeed  `json:"checkpoints"`
}

// SeedFromJSON creates demo packages from a JSON file. Packages whose tracking
// number already exists are skipped. It returns the number created.
func SeedFromJSON(ctx context.Context, repo ports.PackageRepository, jsonPath string, now time.Time) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed packages: read %q: %w", jsonPath, err)
	}

	var data []PackageSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed packages: parse json: %w", err)
	}

	created := 0
	for i, item := range data {
		pkg, err := domain.NewPackage(domain.CreateInput{
			TrackingNumber: item.TrackingNumber,
			Description:    item.Description,
			Weight:         item.Weight,
			Dimensions:     item.Dimensions,
			Sender:         item.Sender,
			Recipient:      item.Recipient,
			Payment:        item.Payment,
			PackageType:    item.PackageType,
			AdminID:        item.AdminID,
		}, now)
		if err != nil {
			return created, fmt.Errorf("seed packages: item at index %d: %w", i+1, err)
		}

		for j, cp := range item.Checkpoints {
			_, err := pkg.AddCheckpoint(domain.CheckpointInput{
				Status:      domain.Status(cp.Status),
				Location:    cp.Location,
				Coordinates: cp.Coordinates,
				Description: cp.Description,
				Date:        cp.Date,
				Time:        cp.Time,
			}, now)
			if err != nil {
				return created, fmt.Errorf("seed packages: item %d checkpoint %d: %w", i+1, j+1, err)
			}
		}

		if err := repo.Create(ctx, pkg); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("seed packages: create %q: %w", pkg.TrackingNumber, err)
		}
		created++
	}

	return created, nil
}
