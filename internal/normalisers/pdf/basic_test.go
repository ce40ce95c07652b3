package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal single-page PDF showing text in Helvetica.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Title (Discharge Guide) /Producer (postop tests) >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	return buf.Bytes()
}

func TestBasic_Extract(t *testing.T) {
	b := NewBasic()

	ex, err := b.Extract(context.Background(), buildPDF("Rest for two days after surgery"))

	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Contains(t, ex.Text, "Rest for two days after surgery")
	assert.Equal(t, 1, ex.PageCount)
	assert.Equal(t, "Discharge Guide", ex.Metadata["Title"])
	assert.False(t, ex.HasImages)
}

func TestBasic_Garbage(t *testing.T) {
	b := NewBasic()

	ex, err := b.Extract(context.Background(), []byte("this is not a pdf at all"))

	assert.Error(t, err)
	assert.Nil(t, ex)
}

func TestBasic_ThroughExtractor(t *testing.T) {
	e := New(NewBasic())

	ex := e.Extract(context.Background(), buildPDF("Walk daily"))

	assert.Equal(t, MethodBasic, ex.Method)
	assert.Greater(t, ex.Confidence, 0.0)
}
