package enums

import (
	"testing"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(DefaultMapping())
}

func TestToCanonical_DisplayValues(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		field    string
		input    string
		expected string
	}{
		{FieldCity, "Chandigarh", CityChandigarh},
		{FieldCity, "Other", CityOther},
		{FieldPropertyType, "Apartment", PropertyApartment},
		{FieldBHK, "2 BHK", BHKTwo},
		{FieldBHK, "2", BHKTwo},
		{FieldPurpose, "Rent", PurposeRent},
		{FieldTimeline, "0-3 months", TimelineWithin3Months},
		{FieldTimeline, "Exploring", TimelineAfter1Year},
		{FieldSource, "Cold Call", SourceColdCall},
		{FieldStatus, "Not Interested", StatusNotInterested},
		{FieldPriority, "Urgent", PriorityUrgent},
	}

	for _, tt := range tests {
		got, err := n.ToCanonical(tt.field, tt.input)
		require.NoError(t, err, "field %s value %q", tt.field, tt.input)
		assert.Equal(t, tt.expected, got)
	}
}

func TestToCanonical_IdempotentOnCanonicalValues(t *testing.T) {
	n := newTestNormalizer()

	for field, fm := range DefaultMapping() {
		for canonical := range fm.Display {
			got, err := n.ToCanonical(field, canonical)
			require.NoError(t, err)
			assert.Equal(t, canonical, got, "canonical value should pass through unchanged")
		}
	}
}

func TestToCanonical_CaseInsensitiveFallback(t *testing.T) {
	n := newTestNormalizer()

	got, err := n.ToCanonical(FieldCity, "chandigarh")
	require.NoError(t, err)
	assert.Equal(t, CityChandigarh, got)

	got, err = n.ToCanonical(FieldStatus, "not interested")
	require.NoError(t, err)
	assert.Equal(t, StatusNotInterested, got)
}

func TestToCanonical_UnmatchedValueFailsWithFieldError(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.ToCanonical(FieldCity, "Atlantis")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	fields := domain.ValidationFields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, FieldCity, fields[0].Field)
	assert.Contains(t, fields[0].Message, "Atlantis")
	assert.Contains(t, fields[0].Message, "Chandigarh")
}

func TestToCanonicalLenient_PassesUnmatchedThrough(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, "Atlantis", n.ToCanonicalLenient(FieldCity, "Atlantis"))
	assert.Equal(t, CityMohali, n.ToCanonicalLenient(FieldCity, "Mohali"))
}

func TestRoundTrip_OneToOneFields(t *testing.T) {
	n := newTestNormalizer()

	// For every canonical code, display→canonical must return to the
	// same code. This holds even for property_type and source, whose
	// extra display aliases (Office, Retail, Walk-in, Call) are inputs
	// only and never produced by ToDisplay.
	for field, fm := range DefaultMapping() {
		for canonical := range fm.Display {
			display := n.ToDisplay(field, canonical)
			back, err := n.ToCanonical(field, display)
			require.NoError(t, err)
			assert.Equal(t, canonical, back, "field %s code %s", field, canonical)
		}
	}
}

func TestManyToOneCollapse_IsLossy(t *testing.T) {
	n := newTestNormalizer()

	// Office and Retail both canonicalize to COMMERCIAL; the display
	// form of COMMERCIAL is "Commercial", so the original label is not
	// recoverable. Documented behavior, not a bug.
	for _, label := range []string{"Office", "Retail"} {
		got, err := n.ToCanonical(FieldPropertyType, label)
		require.NoError(t, err)
		assert.Equal(t, PropertyCommercial, got)
	}
	assert.Equal(t, "Commercial", n.ToDisplay(FieldPropertyType, PropertyCommercial))

	// Same collapse for walk-in and phone-call sources.
	got, err := n.ToCanonical(FieldSource, "Walk-in")
	require.NoError(t, err)
	assert.Equal(t, SourceOther, got)
}

func TestToDisplay_UnmappedValueReturnedUnchanged(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, "SOMETHING_ELSE", n.ToDisplay(FieldCity, "SOMETHING_ELSE"))
	assert.Equal(t, "free text", n.ToDisplay(FieldBHK, "free text"))
}

func TestDefaultFor(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, CityOther, n.DefaultFor(FieldCity))
	assert.Equal(t, PropertyApartment, n.DefaultFor(FieldPropertyType))
	assert.Equal(t, TimelineWithin1Year, n.DefaultFor(FieldTimeline))
	assert.Equal(t, SourceOther, n.DefaultFor(FieldSource))
	assert.Equal(t, StatusNew, n.DefaultFor(FieldStatus))
	assert.Equal(t, PriorityMedium, n.DefaultFor(FieldPriority))
}
