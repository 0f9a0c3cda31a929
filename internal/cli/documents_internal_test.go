package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

func TestReadDocumentNormalisesStatus(t *testing.T) {
	tests := []struct {
		input string
		want  billing.Status
	}{
		{"status: Draft\n", billing.StatusDraft},
		{"status: \" ISSUED \"\n", billing.StatusIssued},
		{"status: voided\n", billing.StatusUnknown},
		{"notes: none\n", ""},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			doc, err := readDocument(strings.NewReader(tt.input), "-", billing.KindInvoice)
			require.NoError(t, err)
			assert.Equal(t, billing.KindInvoice, doc.Kind)
			assert.Equal(t, tt.want, doc.Status)
		})
	}

	doc, err := readDocument(strings.NewReader("status: Draft\nline_items:\n  - description: Work\n    quantity: 1\n    unit_price: 10\n"), "-", billing.KindQuote)
	require.NoError(t, err)
	assert.NoError(t, billing.CheckEditable(doc))
}
