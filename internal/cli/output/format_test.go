package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  table  ", want: FormatTable},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "table", FormatTable.String())
	assert.Equal(t, "json", FormatJSON.String())
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, false)

	printer.Println("test message")
	printer.Printf("sent %d bytes\n", 42)
	printer.Success("done")
	printer.Error("failed")
	printer.Warning("careful")

	out := buf.String()
	assert.Contains(t, out, "test message")
	assert.Contains(t, out, "sent 42 bytes")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "careful")
	assert.NotContains(t, out, "\033[")
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, true)
	assert.True(t, printer.ColorEnabled())

	printer.Error("boom")
	assert.Contains(t, buf.String(), "\033[31m")
	assert.Contains(t, buf.String(), "boom")
}

func TestDefaultPrinter(t *testing.T) {
	printer := DefaultPrinter()
	assert.NotNil(t, printer)
	assert.True(t, printer.ColorEnabled())
}
