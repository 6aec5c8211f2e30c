// Package composition evaluates proposed product-on-pallet arrangements
// against capacity constraints and suggests better alternatives.
package composition

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
)

// Violation types
const (
	ViolationWeight        = "weight"
	ViolationVolume        = "volume"
	ViolationHeight        = "height"
	ViolationCompatibility = "compatibility"
	ViolationDimensions    = "dimensions"
)

// Violation severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// warnThreshold: utilization above this (but not over capacity) is flagged
const warnThreshold = 0.9

// Line is one product line of a composition request. Quantity is expressed
// in the given packaging type when PackagingTypeID is set, otherwise in
// base units.
type Line struct {
	ProductID       uint  `json:"productId"`
	Quantity        int64 `json:"quantity"`
	PackagingTypeID *uint `json:"packagingTypeId,omitempty"`
}

// Overrides optionally tighten or relax the pallet constraints per request.
type Overrides struct {
	MaxWeightKg *float64 `json:"maxWeight,omitempty"`
	MaxVolumeM3 *float64 `json:"maxVolume,omitempty"`
	MaxHeightCm *float64 `json:"maxHeight,omitempty"`
}

// Request is a proposed arrangement of product lines on a pallet.
type Request struct {
	Lines     []Line     `json:"products"`
	PalletID  uint       `json:"palletId"`
	Overrides *Overrides `json:"constraints,omitempty"`
}

// Metrics are the computed physical totals of a composition.
type Metrics struct {
	TotalWeightKg float64 `json:"totalWeight"`
	TotalVolumeM3 float64 `json:"totalVolume"`
	TotalHeightCm float64 `json:"totalHeight"`
	Efficiency    float64 `json:"efficiency"`

	// raw (unclamped) utilizations, kept for the optimizer
	utilWeight float64
	utilVolume float64
	utilHeight float64
}

// Violation describes one broken or nearly-broken constraint.
type Violation struct {
	Type             string `json:"type"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	AffectedProducts []uint `json:"affectedProducts,omitempty"`
}

// Result is the outcome of validating a composition. An invalid composition
// is a normal business outcome, not an error.
type Result struct {
	IsValid    bool        `json:"isValid"`
	Metrics    Metrics     `json:"metrics"`
	Violations []Violation `json:"violations"`
	Warnings   []string    `json:"warnings"`
}

// Service validates and optimizes compositions.
type Service struct {
	db *database.DB
}

// NewService creates a composition service.
func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// constraints are the effective capacity limits after overrides.
type constraints struct {
	MaxWeightKg float64
	MaxVolumeM3 float64
	MaxHeightCm float64
}

// resolvedLine is a request line with its product loaded and its quantity
// normalized to base units.
type resolvedLine struct {
	Product   models.Product
	Packaging *models.PackagingType
	BaseUnits int64
}

// resolved is everything evaluate needs, fetched from storage up front.
type resolved struct {
	Pallet      models.Pallet
	Constraints constraints
	Lines       []resolvedLine
}

// Validate checks a composition request against the pallet's capacity.
// It is a pure function of stored state: identical requests yield
// identical results.
func (s *Service) Validate(ctx context.Context, req Request) (*Result, error) {
	r, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return evaluate(r), nil
}

func (s *Service) resolve(ctx context.Context, req Request) (*resolved, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.Validationf("composition request has no product lines")
	}

	var pallet models.Pallet
	if err := s.db.WithContext(ctx).First(&pallet, req.PalletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("pallet %d not found", req.PalletID)
		}
		return nil, apperr.Storage("load pallet", err)
	}

	c := constraints{
		MaxWeightKg: pallet.MaxWeightKg,
		MaxVolumeM3: pallet.MaxVolumeM3(),
		MaxHeightCm: pallet.MaxHeightCm,
	}
	if o := req.Overrides; o != nil {
		if o.MaxWeightKg != nil {
			c.MaxWeightKg = *o.MaxWeightKg
		}
		if o.MaxVolumeM3 != nil {
			c.MaxVolumeM3 = *o.MaxVolumeM3
		}
		if o.MaxHeightCm != nil {
			c.MaxHeightCm = *o.MaxHeightCm
		}
	}
	if c.MaxWeightKg <= 0 || c.MaxVolumeM3 <= 0 || c.MaxHeightCm <= 0 {
		return nil, apperr.Validationf("capacity constraints must be positive")
	}

	r := &resolved{Pallet: pallet, Constraints: c}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, apperr.Validationf("line quantity must be positive, got %d", line.Quantity)
		}

		var product models.Product
		if err := s.db.WithContext(ctx).First(&product, line.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFoundf("product %d not found", line.ProductID)
			}
			return nil, apperr.Storage("load product", err)
		}

		rl := resolvedLine{Product: product, BaseUnits: line.Quantity}
		if line.PackagingTypeID != nil {
			var pt models.PackagingType
			if err := s.db.WithContext(ctx).First(&pt, *line.PackagingTypeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, apperr.NotFoundf("packaging type %d not found", *line.PackagingTypeID)
				}
				return nil, apperr.Storage("load packaging type", err)
			}
			if pt.ProductID != line.ProductID {
				return nil, apperr.Validationf("packaging type %d belongs to a different product", pt.ID)
			}
			rl.Packaging = &pt
			rl.BaseUnits = line.Quantity * pt.BaseUnitQuantity
		}
		r.Lines = append(r.Lines, rl)
	}
	return r, nil
}

// evaluate scores a resolved composition. Lines occupy separate footprint
// regions on the same base layer set, so line heights are compared, not
// summed.
func evaluate(r *resolved) *Result {
	res := &Result{Violations: []Violation{}, Warnings: []string{}}

	var totalWeight, totalVolume, maxLineHeight float64
	for _, line := range r.Lines {
		p := line.Product
		qty := float64(line.BaseUnits)

		totalWeight += p.WeightKg * qty
		totalVolume += p.UnitVolumeM3() * qty

		perLayer := int64(0)
		if p.FootprintCm2() > 0 {
			perLayer = int64(r.Pallet.FootprintCm2() / p.FootprintCm2())
		}
		if perLayer == 0 {
			res.Violations = append(res.Violations, Violation{
				Type:             ViolationDimensions,
				Severity:         SeverityError,
				Message:          fmt.Sprintf("product %s does not fit the pallet footprint", p.SKU),
				AffectedProducts: []uint{p.ID},
			})
			continue
		}
		layers := (line.BaseUnits + perLayer - 1) / perLayer
		lineHeight := float64(layers) * p.HeightCm
		if lineHeight > maxLineHeight {
			maxLineHeight = lineHeight
		}
	}

	// Pairwise handling compatibility
	for i := 0; i < len(r.Lines); i++ {
		for j := i + 1; j < len(r.Lines); j++ {
			a, b := r.Lines[i].Product, r.Lines[j].Product
			if !a.CompatibleWith(b) {
				res.Violations = append(res.Violations, Violation{
					Type:     ViolationCompatibility,
					Severity: SeverityError,
					Message: fmt.Sprintf("products %s and %s cannot share a pallet (handling restrictions)",
						a.SKU, b.SKU),
					AffectedProducts: []uint{a.ID, b.ID},
				})
			}
		}
	}

	utilW := totalWeight / r.Constraints.MaxWeightKg
	utilV := totalVolume / r.Constraints.MaxVolumeM3
	utilH := maxLineHeight / r.Constraints.MaxHeightCm

	checkUtil := func(util float64, vtype, label, unit string, total, limit float64) {
		switch {
		case util > 1:
			res.Violations = append(res.Violations, Violation{
				Type:     vtype,
				Severity: SeverityError,
				Message: fmt.Sprintf("total %s %.2f%s exceeds limit %.2f%s",
					label, total, unit, limit, unit),
			})
		case util > warnThreshold:
			msg := fmt.Sprintf("%s utilization at %.0f%% of capacity", label, util*100)
			res.Violations = append(res.Violations, Violation{
				Type:     vtype,
				Severity: SeverityWarning,
				Message:  msg,
			})
			res.Warnings = append(res.Warnings, msg)
		}
	}
	checkUtil(utilW, ViolationWeight, "weight", "kg", totalWeight, r.Constraints.MaxWeightKg)
	checkUtil(utilV, ViolationVolume, "volume", "m³", totalVolume, r.Constraints.MaxVolumeM3)
	checkUtil(utilH, ViolationHeight, "height", "cm", maxLineHeight, r.Constraints.MaxHeightCm)

	res.Metrics = Metrics{
		TotalWeightKg: totalWeight,
		TotalVolumeM3: totalVolume,
		TotalHeightCm: maxLineHeight,
		Efficiency:    (math.Min(utilW, 1) + math.Min(utilV, 1) + math.Min(utilH, 1)) / 3,
		utilWeight:    utilW,
		utilVolume:    utilV,
		utilHeight:    utilH,
	}

	res.IsValid = true
	for _, v := range res.Violations {
		if v.Severity == SeverityError {
			res.IsValid = false
			break
		}
	}
	return res
}
