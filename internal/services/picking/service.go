// Package picking decomposes requested base-unit quantities into the
// largest available packaging units.
package picking

import (
	"context"
	"sort"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/packaging"
	"github.com/palletor/ucpwms/internal/services/stock"
)

// Service computes optimized picking plans.
type Service struct {
	packaging *packaging.Service
	stock     *stock.Service
}

// NewService creates a picking service.
func NewService(pkg *packaging.Service, stk *stock.Service) *Service {
	return &Service{packaging: pkg, stock: stk}
}

// PlanLine is one packaging level of a picking plan.
type PlanLine struct {
	PackagingType models.PackagingType `json:"packagingType"`
	Count         int64                `json:"count"`
	BaseUnits     int64                `json:"baseUnits"`
}

// Plan is the result of decomposing a requested quantity.
type Plan struct {
	ProductID    uint       `json:"productId"`
	Requested    int64      `json:"requested"`
	Lines        []PlanLine `json:"plan"`
	Remaining    int64      `json:"remaining"`
	TotalPlanned int64      `json:"totalPlanned"`
	CanFulfill   bool       `json:"canFulfill"`
}

// GetOptimizedPickingPlan decomposes requestedBaseUnits greedily, largest
// packaging first. The exact-division invariant of the hierarchy guarantees
// the decomposition terminates with remaining = 0. This is a unit
// conversion, not an allocation against physical lots.
func (s *Service) GetOptimizedPickingPlan(ctx context.Context, productID uint, requestedBaseUnits int64) (*Plan, error) {
	if requestedBaseUnits <= 0 {
		return nil, apperr.Validationf("requested quantity must be positive, got %d", requestedBaseUnits)
	}

	summary, err := s.stock.Consolidate(ctx, productID)
	if err != nil {
		return nil, err
	}

	hierarchy, err := s.packaging.BuildHierarchy(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(hierarchy) == 0 {
		return nil, apperr.Conflictf("product %d has no packaging hierarchy", productID)
	}

	// Picking works with the non-root levels; the root (whole-load grouping)
	// is not a pickable unit. The base unit is always kept so the greedy
	// loop can finish, even when a product defines nothing else.
	candidates := make([]models.PackagingType, 0, len(hierarchy))
	for _, pt := range hierarchy {
		if pt.Level > 1 || pt.IsBaseUnit {
			candidates = append(candidates, pt)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].IsBaseUnit != candidates[j].IsBaseUnit {
			return candidates[j].IsBaseUnit // base unit sorts last
		}
		return candidates[i].BaseUnitQuantity > candidates[j].BaseUnitQuantity
	})

	plan := &Plan{
		ProductID:  productID,
		Requested:  requestedBaseUnits,
		Remaining:  requestedBaseUnits,
		CanFulfill: requestedBaseUnits <= summary.TotalBaseUnits,
		Lines:      []PlanLine{},
	}

	for _, pt := range candidates {
		if plan.Remaining <= 0 {
			break
		}
		count := plan.Remaining / pt.BaseUnitQuantity
		if count == 0 {
			continue
		}
		baseUnits := count * pt.BaseUnitQuantity
		plan.Lines = append(plan.Lines, PlanLine{
			PackagingType: pt,
			Count:         count,
			BaseUnits:     baseUnits,
		})
		plan.Remaining -= baseUnits
		plan.TotalPlanned += baseUnits
	}

	return plan, nil
}
