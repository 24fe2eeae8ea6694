package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterQuotedCRLF(t *testing.T) {
	exp := NewCSVExporter(WithQuoteAll(), WithCRLF())
	out, err := exp.Render(Dataset{
		Headers: []string{"Day", "Student Name"},
		Rows:    []map[string]string{{"Day": "Saturday", "Student Name": `Ali "Jr"`}},
	})
	require.NoError(t, err)
	require.Equal(t, "\"Day\",\"Student Name\"\r\n\"Saturday\",\"Ali \"\"Jr\"\"\"\r\n", string(out))
}

func TestCSVExporterDefaultDialect(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"month", "count"},
		Rows:    []map[string]string{{"month": "Sep 2024", "count": "3"}},
	})
	require.NoError(t, err)
	require.Equal(t, "month,count\nSep 2024,3\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRenders(t *testing.T) {
	out, err := NewPDFExporter(true).Render(Dataset{
		Headers: []string{"Day", "Time"},
		Rows:    []map[string]string{{"Day": "Saturday", "Time": "2:00 PM"}},
	}, "Hazem", "Week of 2024-09-07")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
