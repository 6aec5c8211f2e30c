package composition

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/models"
)

const (
	// targetEfficiency is the utilization sweet spot alternatives aim for
	targetEfficiency = 0.85
	maxAlternatives  = 5
)

// Alternative is one suggested rework of a composition request.
type Alternative struct {
	Request             Request `json:"request"`
	Result              Result  `json:"result"`
	PredictedEfficiency float64 `json:"predictedEfficiency"`
	Rationale           string  `json:"rationale"`
}

// OptimizeResult carries the original validation plus ranked alternatives.
type OptimizeResult struct {
	Original     Result        `json:"original"`
	Alternatives []Alternative `json:"alternatives"`
}

// Optimize validates the request and proposes up to five alternatives:
// repacking lines into more compact packaging, trimming the worst-offending
// line until constraints are met, and moving to a larger pallet. Candidates
// that exceed capacity on any dimension are discarded; the rest are ranked
// by closeness of predicted efficiency to the target.
func (s *Service) Optimize(ctx context.Context, req Request) (*OptimizeResult, error) {
	original, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	var candidates []Alternative

	if alt, ok, err := s.repackAlternative(ctx, req); err != nil {
		return nil, err
	} else if ok {
		candidates = append(candidates, alt)
	}

	if !original.IsValid {
		if alt, ok, err := s.reduceAlternative(ctx, req); err != nil {
			return nil, err
		} else if ok {
			candidates = append(candidates, alt)
		}
	}

	palletAlts, err := s.palletAlternatives(ctx, req)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, palletAlts...)

	// Keep only candidates that fit, rank by distance to the target
	ranked := candidates[:0]
	for _, alt := range candidates {
		if alt.Result.IsValid {
			ranked = append(ranked, alt)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		di := math.Abs(ranked[i].PredictedEfficiency - targetEfficiency)
		dj := math.Abs(ranked[j].PredictedEfficiency - targetEfficiency)
		return di < dj
	})
	if len(ranked) > maxAlternatives {
		ranked = ranked[:maxAlternatives]
	}

	return &OptimizeResult{Original: *original, Alternatives: ranked}, nil
}

// repackAlternative replaces each line's packaging with the most compact
// level carrying the same total base units. Physical metrics are unchanged;
// the gain is fewer packages to handle.
func (s *Service) repackAlternative(ctx context.Context, req Request) (Alternative, bool, error) {
	changed := false
	alt := req
	alt.Lines = append([]Line(nil), req.Lines...)
	var notes []string

	for i, line := range alt.Lines {
		if line.PackagingTypeID == nil {
			continue
		}
		var current models.PackagingType
		if err := s.db.WithContext(ctx).First(&current, *line.PackagingTypeID).Error; err != nil {
			return Alternative{}, false, apperr.Storage("load packaging type", err)
		}
		baseUnits := line.Quantity * current.BaseUnitQuantity

		var types []models.PackagingType
		if err := s.db.WithContext(ctx).
			Where("product_id = ?", current.ProductID).
			Order("base_unit_quantity DESC").
			Find(&types).Error; err != nil {
			return Alternative{}, false, apperr.Storage("load packaging hierarchy", err)
		}
		for _, pt := range types {
			if pt.BaseUnitQuantity <= current.BaseUnitQuantity {
				break
			}
			if baseUnits%pt.BaseUnitQuantity != 0 {
				continue
			}
			ptID := pt.ID
			alt.Lines[i].PackagingTypeID = &ptID
			alt.Lines[i].Quantity = baseUnits / pt.BaseUnitQuantity
			notes = append(notes, fmt.Sprintf("repack product %d as %s", line.ProductID, pt.Name))
			changed = true
			break
		}
	}
	if !changed {
		return Alternative{}, false, nil
	}

	result, err := s.Validate(ctx, alt)
	if err != nil {
		return Alternative{}, false, err
	}
	return Alternative{
		Request:             alt,
		Result:              *result,
		PredictedEfficiency: result.Metrics.Efficiency,
		Rationale:           fmt.Sprintf("Same load in fewer packages: %s", notes[0]),
	}, true, nil
}

// reduceAlternative proportionally trims the worst-offending line until the
// composition fits.
func (s *Service) reduceAlternative(ctx context.Context, req Request) (Alternative, bool, error) {
	alt := req
	alt.Lines = append([]Line(nil), req.Lines...)

	var (
		result  *Result
		trimmed int
		err     error
	)
	// A few rounds are enough: each round scales the heaviest line by the
	// worst overrun factor.
	for round := 0; round < 4; round++ {
		result, err = s.Validate(ctx, alt)
		if err != nil {
			return Alternative{}, false, err
		}
		overrun := worstOverrun(result)
		if overrun <= 1 {
			break
		}
		idx := largestLine(alt.Lines)
		reducedQty := int64(float64(alt.Lines[idx].Quantity) / overrun)
		if reducedQty < 1 {
			reducedQty = 1
		}
		if reducedQty >= alt.Lines[idx].Quantity {
			reducedQty = alt.Lines[idx].Quantity - 1
		}
		if reducedQty < 1 {
			return Alternative{}, false, nil
		}
		alt.Lines[idx].Quantity = reducedQty
		trimmed = idx
	}
	if result == nil || !result.IsValid {
		return Alternative{}, false, nil
	}

	return Alternative{
		Request:             alt,
		Result:              *result,
		PredictedEfficiency: result.Metrics.Efficiency,
		Rationale: fmt.Sprintf("Reduce product %d to %d to stay within capacity",
			alt.Lines[trimmed].ProductID, alt.Lines[trimmed].Quantity),
	}, true, nil
}

// palletAlternatives re-evaluates the same lines on every other active
// pallet type.
func (s *Service) palletAlternatives(ctx context.Context, req Request) ([]Alternative, error) {
	var pallets []models.Pallet
	if err := s.db.WithContext(ctx).
		Where("is_active = true AND id <> ?", req.PalletID).
		Order("max_weight_kg ASC").
		Find(&pallets).Error; err != nil {
		return nil, apperr.Storage("load pallets", err)
	}

	var alts []Alternative
	for _, pallet := range pallets {
		alt := req
		alt.PalletID = pallet.ID
		result, err := s.Validate(ctx, alt)
		if err != nil {
			return nil, err
		}
		alts = append(alts, Alternative{
			Request:             alt,
			Result:              *result,
			PredictedEfficiency: result.Metrics.Efficiency,
			Rationale:           fmt.Sprintf("Move the load to pallet %q", pallet.Name),
		})
	}
	return alts, nil
}

// worstOverrun returns the largest capacity overrun factor, or 1 when the
// composition fits.
func worstOverrun(r *Result) float64 {
	overrun := 1.0
	for _, util := range []float64{r.Metrics.utilWeight, r.Metrics.utilVolume, r.Metrics.utilHeight} {
		if util > overrun {
			overrun = util
		}
	}
	return overrun
}

// largestLine picks the line with the biggest quantity, a simple proxy for
// the worst offender across all three dimensions.
func largestLine(lines []Line) int {
	idx := 0
	for i, l := range lines {
		if l.Quantity > lines[idx].Quantity {
			idx = i
		}
	}
	return idx
}
