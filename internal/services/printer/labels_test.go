package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLabelSheet(t *testing.T) {
	labels := []Label{
		{Code: "UCP000001", Summary: "2 products, 57 units", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Code: "UCP000002", Summary: "empty", CreatedAt: time.Now()},
	}

	pdf, err := GenerateLabelSheet(labels, DefaultSheet)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestGenerateLabelSheetPaginates(t *testing.T) {
	perPage := DefaultSheet.Cols * DefaultSheet.Rows

	labels := make([]Label, perPage+1)
	for i := range labels {
		labels[i] = Label{Code: "UCP000100", CreatedAt: time.Now()}
	}

	onePage, err := GenerateLabelSheet(labels[:perPage], DefaultSheet)
	require.NoError(t, err)
	twoPages, err := GenerateLabelSheet(labels, DefaultSheet)
	require.NoError(t, err)
	assert.Greater(t, len(twoPages), len(onePage))
}

func TestGenerateLabelSheetRejectsBadGrid(t *testing.T) {
	_, err := GenerateLabelSheet([]Label{{Code: "UCP000001"}}, SheetConfig{Cols: 0, Rows: 4})
	assert.Error(t, err)
}
