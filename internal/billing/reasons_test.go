package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeCancelReason(t *testing.T) {
	got, err := ComposeCancelReason(ReasonIssuedInError, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Issued in error", got)

	got, err = ComposeCancelReason(ReasonOther, "  test ")
	require.NoError(t, err)
	assert.Equal(t, "Other: test", got)

	_, err = ComposeCancelReason(ReasonOther, " ")
	assert.ErrorIs(t, err, ErrOtherReason)

	_, err = ComposeCancelReason("", "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = ComposeCancelReason("Bored", "")
	assert.ErrorIs(t, err, ErrUnknownReason)
}

func TestParseCancelReason(t *testing.T) {
	r, detail := ParseCancelReason("Other: wrong project")
	assert.Equal(t, ReasonOther, r)
	assert.Equal(t, "wrong project", detail)

	r, detail = ParseCancelReason("Duplicate document")
	assert.Equal(t, ReasonDuplicate, r)
	assert.Empty(t, detail)

	r, detail = ParseCancelReason("legacy free text")
	assert.Equal(t, ReasonOther, r)
	assert.Equal(t, "legacy free text", detail)
}
