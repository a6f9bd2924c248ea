package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Batch", "Status", "Revenue"},
		Rows: [][]string{
			{"Go 101", "ongoing", "100.00"},
			{"Short row"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVRendererPadsRows(t *testing.T) {
	out, err := ForFormat(FormatCSV).Render(sampleDataset(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Batch,Status,Revenue\nGo 101,ongoing,100.00\nShort row,,\n", string(out))
}

func TestPDFRendererProducesDocument(t *testing.T) {
	out, err := ForFormat(FormatPDF).Render(sampleDataset(), "Batches")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderersRequireHeaders(t *testing.T) {
	_, err := CSVRenderer{}.Render(Dataset{}, "")
	assert.Error(t, err)
	_, err = PDFRenderer{}.Render(Dataset{}, "")
	assert.Error(t, err)
}
