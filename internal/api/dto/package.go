package dto

import (
	"package-tracking-service/internal/domain"
	"time"
)

// CreatePackageRequest is the body of POST /admin/packages. An empty
// trackingNumber asks the server to issue one.
type CreatePackageRequest struct {
	TrackingNumber        string            `json:"trackingNumber"`
	Description           string            `json:"description"`
	Weight                float64           `json:"weight"`
	Dimensions            domain.Dimensions `json:"dimensions"`
	Sender                domain.Party      `json:"sender"`
	Recipient             domain.Party      `json:"recipient"`
	Payment               domain.Payment    `json:"payment"`
	CurrentLocation       *domain.Location  `json:"currentLocation"`
	Images                []string          `json:"images"`
	PDFs                  []string          `json:"pdfs"`
	PackageType           string            `json:"packageType"`
	DateShipped           *time.Time        `json:"dateShipped"`
	EstimatedDeliveryDate *time.Time        `json:"estimatedDeliveryDate"`
}

func (req CreatePackageRequest) ToInput(adminID string) domain.CreateInput {
	return domain.CreateInput{
		TrackingNumber:        req.TrackingNumber,
		Description:           req.Description,
		Weight:                req.Weight,
		Dimensions:            req.Dimensions,
		Sender:                req.Sender,
		Recipient:             req.Recipient,
		Payment:               req.Payment,
		CurrentLocation:       req.CurrentLocation,
		Images:                req.Images,
		PDFs:                  req.PDFs,
		AdminID:               adminID,
		PackageType:           req.PackageType,
		DateShipped:           req.DateShipped,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	}
}

// EditPackageRequest is the body of PATCH /admin/packages/{tn}. Absent fields
// are left unchanged.
type EditPackageRequest struct {
	TrackingNumber        *string            `json:"trackingNumber"`
	Status                *domain.Status     `json:"status"`
	Description           *string            `json:"description"`
	Weight                *float64           `json:"weight"`
	Dimensions            *domain.Dimensions `json:"dimensions"`
	Sender                *domain.Party      `json:"sender"`
	Recipient             *domain.Party      `json:"recipient"`
	Payment               *domain.Payment    `json:"payment"`
	CurrentLocation       *domain.Location   `json:"currentLocation"`
	Images                *[]string          `json:"images"`
	PDFs                  *[]string          `json:"pdfs"`
	PackageType           *string            `json:"packageType"`
	DateShipped           *time.Time         `json:"dateShipped"`
	EstimatedDeliveryDate *time.Time         `json:"estimatedDeliveryDate"`
}

func (req EditPackageRequest) ToPatch() domain.EditPatch {
	return domain.EditPatch{
		TrackingNumber:        req.TrackingNumber,
		Status:                req.Status,
		Description:           req.Description,
		Weight:                req.Weight,
		Dimensions:            req.Dimensions,
		Sender:                req.Sender,
		Recipient:             req.Recipient,
		Payment:               req.Payment,
		CurrentLocation:       req.CurrentLocation,
		Images:                req.Images,
		PDFs:                  req.PDFs,
		PackageType:           req.PackageType,
		DateShipped:           req.DateShipped,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	}
}

// PackageResponse is the operator view: the stored aggregate plus derived
// fields. CurrentLocation is the resolved location, never empty.
type PackageResponse struct {
	*domain.Package
	StatusText      string          `json:"statusText"`
	Progress        int             `json:"progress"`
	CurrentLocation domain.Location `json:"currentLocation"`
}

func NewPackageResponse(pkg *domain.Package) PackageResponse {
	d := domain.Derive(pkg)
	return PackageResponse{
		Package:         pkg,
		StatusText:      d.StatusText,
		Progress:        d.Progress,
		CurrentLocation: d.CurrentLocation,
	}
}

type ListPackagesResponse struct {
	Packages []PackageResponse `json:"packages"`
}

func NewListPackagesResponse(pkgs []*domain.Package) ListPackagesResponse {
	res := ListPackagesResponse{Packages: make([]PackageResponse, 0, len(pkgs))}
	for _, p := range pkgs {
		res.Packages = append(res.Packages, NewPackageResponse(p))
	}
	return res
}

// NotifyRequest is an operator message to the package recipient.
type NotifyRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type DocumentResponse struct {
	Ref     string          `json:"ref"`
	Package PackageResponse `json:"package"`
}
