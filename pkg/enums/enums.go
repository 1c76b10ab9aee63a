package enums

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jordanlanch/leadbook/pkg/domain"
)

// Field names the normalizer knows about.
const (
	FieldCity         = "city"
	FieldPropertyType = "property_type"
	FieldBHK          = "bhk"
	FieldPurpose      = "purpose"
	FieldTimeline     = "timeline"
	FieldSource       = "source"
	FieldStatus       = "status"
	FieldPriority     = "priority"
)

// Canonical city codes.
const (
	CityChandigarh = "CHANDIGARH"
	CityMohali     = "MOHALI"
	CityZirakpur   = "ZIRAKPUR"
	CityPanchkula  = "PANCHKULA"
	CityOther      = "OTHER"
)

// Canonical property type codes.
const (
	PropertyApartment        = "APARTMENT"
	PropertyIndependentHouse = "INDEPENDENT_HOUSE"
	PropertyVilla            = "VILLA"
	PropertyPlot             = "PLOT"
	PropertyCommercial       = "COMMERCIAL"
)

// Canonical BHK codes.
const (
	BHKStudio = "STUDIO"
	BHKOne    = "ONE"
	BHKTwo    = "TWO"
	BHKThree  = "THREE"
	BHKFour   = "FOUR"
)

// Canonical purpose codes.
const (
	PurposeBuy  = "BUY"
	PurposeRent = "RENT"
)

// Canonical possession timeline codes.
const (
	TimelineImmediate     = "IMMEDIATE"
	TimelineWithin3Months = "WITHIN_3_MONTHS"
	TimelineWithin6Months = "WITHIN_6_MONTHS"
	TimelineWithin1Year   = "WITHIN_1_YEAR"
	TimelineAfter1Year    = "AFTER_1_YEAR"
)

// Canonical lead source codes.
const (
	SourceWebsite       = "WEBSITE"
	SourceSocialMedia   = "SOCIAL_MEDIA"
	SourceReferral      = "REFERRAL"
	SourceAdvertisement = "ADVERTISEMENT"
	SourceColdCall      = "COLD_CALL"
	SourceEmailCampaign = "EMAIL_CAMPAIGN"
	SourceTradeShow     = "TRADE_SHOW"
	SourceOther         = "OTHER"
)

// Canonical status codes.
const (
	StatusNew           = "NEW"
	StatusContacted     = "CONTACTED"
	StatusInterested    = "INTERESTED"
	StatusNotInterested = "NOT_INTERESTED"
	StatusConverted     = "CONVERTED"
)

// Canonical priority codes.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// FieldMapping holds the vocabulary for one enum-typed field.
//
// ToCanonical may map several display strings to the same canonical code
// (e.g. both "Office" and "Retail" collapse into COMMERCIAL). For such
// fields the canonical→display→canonical round trip is deliberately
// lossy; ToDisplay picks the single entry in the Display table.
type FieldMapping struct {
	// Canonical maps display strings (and canonical codes, for
	// idempotence) to canonical codes.
	Canonical map[string]string
	// Display maps each canonical code to its one display label.
	Display map[string]string
	// Default is substituted for absent or empty values on CSV import.
	Default string
}

// Mapping is the full display↔canonical vocabulary, one entry per field.
// It is immutable configuration handed to the Normalizer, not ambient
// package state, so deployments can swap display vocabularies.
type Mapping map[string]FieldMapping

// Normalizer converts between display and canonical representations of
// enum-typed buyer fields. All methods are pure lookups over the mapping.
type Normalizer struct {
	mapping Mapping
}

// NewNormalizer creates a normalizer over the given mapping.
func NewNormalizer(mapping Mapping) *Normalizer {
	return &Normalizer{mapping: mapping}
}

// ToCanonical resolves a display value (or an already-canonical value) to
// its canonical code. Lookup is exact first, then case-insensitive. An
// unmatched value yields a field-attributed validation error listing the
// accepted inputs.
func (n *Normalizer) ToCanonical(field, value string) (string, error) {
	fm, ok := n.mapping[field]
	if !ok {
		return "", fmt.Errorf("unknown enum field: %s", field)
	}

	if canonical, ok := fm.Canonical[value]; ok {
		return canonical, nil
	}

	// Fall back to a case-insensitive scan of the same table.
	lower := strings.ToLower(value)
	for display, canonical := range fm.Canonical {
		if strings.ToLower(display) == lower {
			return canonical, nil
		}
	}

	return "", domain.NewFieldError(field,
		fmt.Sprintf("invalid value %q, expected one of: %s", value, strings.Join(n.accepted(fm), ", ")))
}

// ToCanonicalLenient is ToCanonical for fields where an unmatched value
// passes through unchanged instead of failing.
func (n *Normalizer) ToCanonicalLenient(field, value string) string {
	canonical, err := n.ToCanonical(field, value)
	if err != nil {
		return value
	}
	return canonical
}

// ToDisplay resolves a canonical code to its display label. An unmapped
// value is returned unchanged: export must never hard-fail on a value it
// cannot prettify.
func (n *Normalizer) ToDisplay(field, value string) string {
	fm, ok := n.mapping[field]
	if !ok {
		return value
	}
	if display, ok := fm.Display[value]; ok {
		return display
	}
	return value
}

// DefaultFor returns the documented per-field default used when a
// required field is absent or empty in CSV input.
func (n *Normalizer) DefaultFor(field string) string {
	return n.mapping[field].Default
}

// Canonical reports whether value is a canonical code of the field.
func (n *Normalizer) Canonical(field, value string) bool {
	fm, ok := n.mapping[field]
	if !ok {
		return false
	}
	_, ok = fm.Display[value]
	return ok
}

func (n *Normalizer) accepted(fm FieldMapping) []string {
	values := make([]string, 0, len(fm.Canonical))
	for display := range fm.Canonical {
		values = append(values, display)
	}
	sort.Strings(values)
	return values
}

// DefaultMapping returns the built-in display↔canonical vocabulary.
func DefaultMapping() Mapping {
	return Mapping{
		FieldCity: {
			Canonical: withCanonical(map[string]string{
				"Chandigarh": CityChandigarh,
				"Mohali":     CityMohali,
				"Zirakpur":   CityZirakpur,
				"Panchkula":  CityPanchkula,
				"Other":      CityOther,
			}),
			Display: map[string]string{
				CityChandigarh: "Chandigarh",
				CityMohali:     "Mohali",
				CityZirakpur:   "Zirakpur",
				CityPanchkula:  "Panchkula",
				CityOther:      "Other",
			},
			Default: CityOther,
		},
		FieldPropertyType: {
			Canonical: withCanonical(map[string]string{
				"Apartment":         PropertyApartment,
				"Independent House": PropertyIndependentHouse,
				"Villa":             PropertyVilla,
				"Plot":              PropertyPlot,
				"Commercial":        PropertyCommercial,
				// Office and Retail deliberately collapse into one
				// commercial code; the reverse trip is lossy.
				"Office": PropertyCommercial,
				"Retail": PropertyCommercial,
			}),
			Display: map[string]string{
				PropertyApartment:        "Apartment",
				PropertyIndependentHouse: "Independent House",
				PropertyVilla:            "Villa",
				PropertyPlot:             "Plot",
				PropertyCommercial:       "Commercial",
			},
			Default: PropertyApartment,
		},
		FieldBHK: {
			Canonical: withCanonical(map[string]string{
				"Studio": BHKStudio,
				"1 BHK":  BHKOne,
				"2 BHK":  BHKTwo,
				"3 BHK":  BHKThree,
				"4 BHK":  BHKFour,
				"1":      BHKOne,
				"2":      BHKTwo,
				"3":      BHKThree,
				"4":      BHKFour,
			}),
			Display: map[string]string{
				BHKStudio: "Studio",
				BHKOne:    "1 BHK",
				BHKTwo:    "2 BHK",
				BHKThree:  "3 BHK",
				BHKFour:   "4 BHK",
			},
		},
		FieldPurpose: {
			Canonical: withCanonical(map[string]string{
				"Buy":  PurposeBuy,
				"Rent": PurposeRent,
			}),
			Display: map[string]string{
				PurposeBuy:  "Buy",
				PurposeRent: "Rent",
			},
		},
		FieldTimeline: {
			Canonical: withCanonical(map[string]string{
				"Immediate":  TimelineImmediate,
				"0-3 months": TimelineWithin3Months,
				"3-6 months": TimelineWithin6Months,
				"6+ months":  TimelineWithin1Year,
				"Exploring":  TimelineAfter1Year,
			}),
			Display: map[string]string{
				TimelineImmediate:     "Immediate",
				TimelineWithin3Months: "0-3 months",
				TimelineWithin6Months: "3-6 months",
				TimelineWithin1Year:   "6+ months",
				TimelineAfter1Year:    "Exploring",
			},
			Default: TimelineWithin1Year,
		},
		FieldSource: {
			Canonical: withCanonical(map[string]string{
				"Website":        SourceWebsite,
				"Social Media":   SourceSocialMedia,
				"Referral":       SourceReferral,
				"Advertisement":  SourceAdvertisement,
				"Cold Call":      SourceColdCall,
				"Email Campaign": SourceEmailCampaign,
				"Trade Show":     SourceTradeShow,
				"Other":          SourceOther,
				// Legacy intake labels without their own code.
				"Walk-in": SourceOther,
				"Call":    SourceColdCall,
			}),
			Display: map[string]string{
				SourceWebsite:       "Website",
				SourceSocialMedia:   "Social Media",
				SourceReferral:      "Referral",
				SourceAdvertisement: "Advertisement",
				SourceColdCall:      "Cold Call",
				SourceEmailCampaign: "Email Campaign",
				SourceTradeShow:     "Trade Show",
				SourceOther:         "Other",
			},
			Default: SourceOther,
		},
		FieldStatus: {
			Canonical: withCanonical(map[string]string{
				"New":            StatusNew,
				"Contacted":      StatusContacted,
				"Interested":     StatusInterested,
				"Not Interested": StatusNotInterested,
				"Converted":      StatusConverted,
			}),
			Display: map[string]string{
				StatusNew:           "New",
				StatusContacted:     "Contacted",
				StatusInterested:    "Interested",
				StatusNotInterested: "Not Interested",
				StatusConverted:     "Converted",
			},
			Default: StatusNew,
		},
		FieldPriority: {
			Canonical: withCanonical(map[string]string{
				"Low":    PriorityLow,
				"Medium": PriorityMedium,
				"High":   PriorityHigh,
				"Urgent": PriorityUrgent,
			}),
			Display: map[string]string{
				PriorityLow:    "Low",
				PriorityMedium: "Medium",
				PriorityHigh:   "High",
				PriorityUrgent: "Urgent",
			},
			Default: PriorityMedium,
		},
	}
}

// withCanonical extends a display→canonical table with identity entries
// for the canonical codes themselves, so feeding a canonical value back
// through ToCanonical returns it unchanged.
func withCanonical(m map[string]string) map[string]string {
	for _, canonical := range m {
		m[canonical] = canonical
	}
	return m
}
