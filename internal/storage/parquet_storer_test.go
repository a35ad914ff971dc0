package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetStorer_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewParquetStorer(&buf)
	blueprint := "https://cdn.example.com/2.dwg"

	require.NoError(t, s.SaveBulk(t.Context(), []domain.Product{
		{ID: 1, Designation: "Bolt", Stock: 10, Weight: 0.1, Volume: 0.2},
		{ID: 2, Designation: "Nut", BlueprintURL: &blueprint, Obsolete: true},
	}))
	require.NoError(t, s.SaveBulk(t.Context(), []domain.Product{{ID: 3, Designation: "Washer"}}))
	require.NoError(t, s.SaveBulk(t.Context(), nil))
	require.NoError(t, s.Close())

	data := buf.Bytes()
	rows, err := parquet.Read[parquetProduct](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Nil(t, rows[0].PictureURL)
	require.NotNil(t, rows[1].BlueprintURL)
	assert.Equal(t, blueprint, *rows[1].BlueprintURL)
	assert.True(t, rows[1].Obsolete)

	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.NumRows())
}

func TestParquetFileStorer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.parquet")
	s, err := NewParquetFileStorer(path)
	require.NoError(t, err)

	require.NoError(t, s.SaveBulk(t.Context(), []domain.Product{{ID: 42, Designation: "Gear"}}))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestParquetStorer_CancelledContext(t *testing.T) {
	s := NewParquetStorer(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.Error(t, s.SaveBulk(ctx, []domain.Product{{ID: 1}}))
}
