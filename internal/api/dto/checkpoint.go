package dto

import "package-tracking-service/internal/domain"

// CheckpointRequest is the body of POST .../checkpoints. date (YYYY-MM-DD) and
// time (HH:MM) backdate the checkpoint; both default to now.
type CheckpointRequest struct {
	ID          string              `json:"id"`
	Status      domain.Status       `json:"status"`
	Location    string              `json:"location"`
	Coordinates *domain.Coordinates `json:"coordinates"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
	Time        string              `json:"time"`
}

func (req CheckpointRequest) ToInput() domain.CheckpointInput {
	return domain.CheckpointInput{
		ID:          req.ID,
		Status:      req.Status,
		Location:    req.Location,
		Coordinates: req.Coordinates,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
	}
}

type CheckpointPatchRequest struct {
	Status      *domain.Status      `json:"status"`
	Location    *string             `json:"location"`
	Coordinates *domain.Coordinates `json:"coordinates"`
	Description *string             `json:"description"`
	Date        *string             `json:"date"`
	Time        *string             `json:"time"`
}

func (req CheckpointPatchRequest) ToPatch() domain.CheckpointPatch {
	return domain.CheckpointPatch{
		Status:      req.Status,
		Location:    req.Location,
		Coordinates: req.Coordinates,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
	}
}

type CheckpointResponse struct {
	Checkpoint domain.Checkpoint `json:"checkpoint"`
	Package    PackageResponse   `json:"package"`
}
