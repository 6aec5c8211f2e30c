package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletor/ucpwms/internal/models"
)

func standardPallet() models.Pallet {
	return models.Pallet{
		ID: 1, Name: "STD 100x100",
		WidthCm: 100, LengthCm: 100, MaxHeightCm: 180, MaxWeightKg: 500,
	}
}

// boxed product: 4 kg, 50x20x10 cm, so 10 fit per layer on a 100x100 pallet
// and one unit is exactly 0.01 m³
func boxedProduct() models.Product {
	return models.Product{
		ID: 1, SKU: "BOX-4KG",
		WeightKg: 4, LengthCm: 50, WidthCm: 20, HeightCm: 10,
		TemperatureClass: models.TempAmbient,
	}
}

func TestEvaluateWorkedExample(t *testing.T) {
	pallet := standardPallet()
	r := &resolved{
		Pallet: pallet,
		Constraints: constraints{
			MaxWeightKg: 500,
			MaxVolumeM3: 1.2,
			MaxHeightCm: 180,
		},
		Lines: []resolvedLine{{Product: boxedProduct(), BaseUnits: 100}},
	}

	res := evaluate(r)

	require.True(t, res.IsValid)
	assert.InDelta(t, 400.0, res.Metrics.TotalWeightKg, 1e-9)
	assert.InDelta(t, 1.0, res.Metrics.TotalVolumeM3, 1e-9)
	// 100 units, 10 per layer, 10 cm tall -> 10 layers, 100 cm
	assert.InDelta(t, 100.0, res.Metrics.TotalHeightCm, 1e-9)
	// (0.80 + 0.8333 + 0.5556) / 3
	assert.InDelta(t, 0.7296, res.Metrics.Efficiency, 0.001)
	assert.Empty(t, res.Violations)
	assert.Empty(t, res.Warnings)
}

func TestEvaluateOverweight(t *testing.T) {
	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 500, MaxVolumeM3: 10, MaxHeightCm: 1000},
		Lines:       []resolvedLine{{Product: boxedProduct(), BaseUnits: 200}},
	}

	res := evaluate(r)

	assert.False(t, res.IsValid)
	found := false
	for _, v := range res.Violations {
		if v.Type == ViolationWeight && v.Severity == SeverityError {
			found = true
		}
	}
	assert.True(t, found, "expected a weight/error violation, got %+v", res.Violations)
}

func TestEvaluateWarningBand(t *testing.T) {
	// 120 units * 4 kg = 480 kg -> 96% of a 500 kg limit
	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 500, MaxVolumeM3: 10, MaxHeightCm: 1000},
		Lines:       []resolvedLine{{Product: boxedProduct(), BaseUnits: 120}},
	}

	res := evaluate(r)

	assert.True(t, res.IsValid, "warnings must not invalidate a composition")
	require.NotEmpty(t, res.Warnings)
	foundWarning := false
	for _, v := range res.Violations {
		if v.Type == ViolationWeight && v.Severity == SeverityWarning {
			foundWarning = true
		}
	}
	assert.True(t, foundWarning)
}

func TestEvaluateIncompatibleProducts(t *testing.T) {
	frozen := boxedProduct()
	frozen.ID = 2
	frozen.SKU = "FROZEN-1"
	frozen.TemperatureClass = models.TempRefrigerated

	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 5000, MaxVolumeM3: 100, MaxHeightCm: 1000},
		Lines: []resolvedLine{
			{Product: boxedProduct(), BaseUnits: 10},
			{Product: frozen, BaseUnits: 10},
		},
	}

	res := evaluate(r)

	assert.False(t, res.IsValid)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, ViolationCompatibility, v.Type)
	assert.Equal(t, SeverityError, v.Severity)
	assert.ElementsMatch(t, []uint{1, 2}, v.AffectedProducts)
}

func TestEvaluateProductTooLargeForPallet(t *testing.T) {
	huge := boxedProduct()
	huge.LengthCm = 200
	huge.WidthCm = 200

	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 5000, MaxVolumeM3: 100, MaxHeightCm: 1000},
		Lines:       []resolvedLine{{Product: huge, BaseUnits: 1}},
	}

	res := evaluate(r)

	assert.False(t, res.IsValid)
	require.NotEmpty(t, res.Violations)
	assert.Equal(t, ViolationDimensions, res.Violations[0].Type)
}

func TestEvaluateHeightUsesMaxAcrossLines(t *testing.T) {
	// Two lines occupy separate footprint regions: heights compare, not sum
	short := boxedProduct()
	tall := boxedProduct()
	tall.ID = 2
	tall.SKU = "TALL-1"
	tall.HeightCm = 50

	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 5000, MaxVolumeM3: 100, MaxHeightCm: 1000},
		Lines: []resolvedLine{
			{Product: short, BaseUnits: 10}, // 1 layer of 10 cm
			{Product: tall, BaseUnits: 20},  // 2 layers of 50 cm -> 100 cm
		},
	}

	res := evaluate(r)

	assert.InDelta(t, 100.0, res.Metrics.TotalHeightCm, 1e-9)
}

func TestEvaluateIsPure(t *testing.T) {
	r := &resolved{
		Pallet:      standardPallet(),
		Constraints: constraints{MaxWeightKg: 500, MaxVolumeM3: 1.2, MaxHeightCm: 180},
		Lines:       []resolvedLine{{Product: boxedProduct(), BaseUnits: 100}},
	}

	first := evaluate(r)
	second := evaluate(r)
	assert.Equal(t, first, second)
}

func TestWorstOverrun(t *testing.T) {
	res := &Result{Metrics: Metrics{utilWeight: 1.5, utilVolume: 0.8, utilHeight: 1.2}}
	assert.InDelta(t, 1.5, worstOverrun(res), 1e-9)

	fits := &Result{Metrics: Metrics{utilWeight: 0.5, utilVolume: 0.8, utilHeight: 0.2}}
	assert.InDelta(t, 1.0, worstOverrun(fits), 1e-9)
}

func TestLargestLine(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 50},
		{ProductID: 3, Quantity: 7},
	}
	assert.Equal(t, 1, largestLine(lines))
}
