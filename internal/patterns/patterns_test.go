package patterns

import (
	"strings"
	"testing"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

func TestGlobalAnchoredLabels(t *testing.T) {
	lib := Default()
	cases := []struct {
		label string
		want  fieldtype.Type
		ok    bool
	}{
		{"First Name*", fieldtype.FirstName, true},
		{"Last Name", fieldtype.LastName, true},
		{"Email Address", fieldtype.Email, true},
		{"State / Province", fieldtype.State, true},
		{"Country", fieldtype.Country, true},
		{"Your LinkedIn profile URL", fieldtype.LinkedIn, true},
		{"Zip/Postal Code", fieldtype.PostalCode, true},
		{"First name of your emergency contact", fieldtype.Unknown, false},
	}
	for _, tc := range cases {
		m, ok := lib.MatchGlobal(field.Field{Label: tc.label})
		if ok != tc.ok {
			t.Fatalf("MatchGlobal(%q) ok=%v, want %v", tc.label, ok, tc.ok)
		}
		if ok && m.Type != tc.want {
			t.Fatalf("MatchGlobal(%q) = %v, want %v", tc.label, m.Type, tc.want)
		}
	}
}

func TestWorkdayExtensionOutranksPhoneNumber(t *testing.T) {
	lib := Default()
	f := field.Field{ID: "phoneNumber--extension", Label: "Extension"}
	m, ok := lib.MatchPlatform(field.PlatformWorkday, f)
	if !ok || m.Type != fieldtype.PhoneExtension {
		t.Fatalf("expected phone_extension, got %+v ok=%v", m, ok)
	}

	m, ok = lib.MatchPlatform(field.PlatformWorkday, field.Field{ID: "phoneNumber--phoneNumber"})
	if !ok || m.Type != fieldtype.Phone {
		t.Fatalf("expected phone, got %+v ok=%v", m, ok)
	}

	m, ok = lib.MatchPlatform(field.PlatformWorkday, field.Field{ID: "addressSection_countryRegion"})
	if !ok || m.Type != fieldtype.State {
		t.Fatalf("expected countryRegion to map to state, got %+v", m)
	}
}

func TestCityRulesNeedWordBoundaries(t *testing.T) {
	lib := Default()
	for _, id := range []string{"personalInfoUS--ethnicity", "ETHNICITY", "ethnicity_select"} {
		if m, ok := lib.MatchPlatform(field.PlatformWorkday, field.Field{ID: id}); ok && m.Type == fieldtype.City {
			t.Fatalf("workday id %q matched %s", id, m.RuleID)
		}
		if m, ok := lib.MatchIdentifier(field.PlatformUnknown, field.Field{ID: id}); ok && m.Type == fieldtype.City {
			t.Fatalf("generic id %q matched %s", id, m.RuleID)
		}
	}

	for _, id := range []string{"addressSection_city", "addressSectionCity", "city"} {
		m, ok := lib.MatchPlatform(field.PlatformWorkday, field.Field{ID: id})
		if !ok || m.Type != fieldtype.City {
			t.Fatalf("workday id %q = %+v ok=%v, want city", id, m, ok)
		}
	}
	for _, id := range []string{"homeCity", "cityName", "home-town", "town"} {
		m, ok := lib.MatchIdentifier(field.PlatformUnknown, field.Field{ID: id})
		if !ok || m.Type != fieldtype.City {
			t.Fatalf("generic id %q = %+v ok=%v, want city", id, m, ok)
		}
	}

	f := field.Field{ID: "personalInfoUS--ethnicity", Label: "Please select your ethnicity"}
	if _, ok := lib.MatchPlatform(field.PlatformWorkday, f); ok {
		t.Fatalf("ethnicity id should fall through to the question rules")
	}
	if m, ok := lib.MatchQuestion(f); !ok || m.Type != fieldtype.RaceEthnicity {
		t.Fatalf("MatchQuestion = %+v ok=%v, want race_ethnicity", m, ok)
	}
}

func TestUnknownPlatformHasNoRules(t *testing.T) {
	lib := Default()
	if _, ok := lib.MatchPlatform(field.PlatformUnknown, field.Field{ID: "firstName"}); ok {
		t.Fatalf("unknown platform must not match")
	}
	if _, ok := lib.MatchIdentifier(field.PlatformUnknown, field.Field{ID: "firstName"}); !ok {
		t.Fatalf("generic identifier rules should still match")
	}
}

func TestQuestionRulesPreferNarrowAuthorization(t *testing.T) {
	lib := Default()
	cases := map[string]fieldtype.Type{
		"Are you legally authorized to work in the United States?":                      fieldtype.WorkAuthorization,
		"Are you authorized to work in the US indefinitely?":                            fieldtype.AuthorizedIndefinitely,
		"Will you now or in the future require sponsorship for employment visa status?": fieldtype.SponsorshipRequired,
		"How did you hear about this position?":                                         fieldtype.ReferralSource,
	}
	for label, want := range cases {
		m, ok := lib.MatchQuestion(field.Field{Label: label})
		if !ok || m.Type != want {
			t.Fatalf("MatchQuestion(%q) = %+v ok=%v, want %v", label, m, ok, want)
		}
	}
}

func TestRuleSetOrdersByPriority(t *testing.T) {
	rs, err := NewRuleSet([]Rule{
		{ID: "general", Priority: 20, Type: fieldtype.Phone, Pattern: `phone`},
		{ID: "specific", Priority: 10, Type: fieldtype.PhoneExtension, Pattern: `phone.*ext`},
	})
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	m, ok := rs.Match("phone_ext")
	if !ok || m.RuleID != "specific" {
		t.Fatalf("priority must beat definition order, got %+v", m)
	}
	rules := rs.Rules()
	if rules[0].ID != "specific" || rules[1].ID != "general" {
		t.Fatalf("unexpected evaluation order %v, %v", rules[0].ID, rules[1].ID)
	}
}

func TestRuleSetRejectsAmbiguousDefinitions(t *testing.T) {
	cases := []struct {
		name string
		defs []Rule
		want string
	}{
		{
			name: "duplicate priority",
			defs: []Rule{
				{ID: "a", Priority: 1, Type: fieldtype.City, Pattern: `a`},
				{ID: "b", Priority: 1, Type: fieldtype.City, Pattern: `b`},
			},
			want: "share priority",
		},
		{
			name: "duplicate id",
			defs: []Rule{
				{ID: "a", Priority: 1, Type: fieldtype.City, Pattern: `a`},
				{ID: "a", Priority: 2, Type: fieldtype.City, Pattern: `b`},
			},
			want: "duplicate rule id",
		},
		{
			name: "unknown type",
			defs: []Rule{{ID: "a", Priority: 1, Pattern: `a`}},
			want: "no field type",
		},
		{
			name: "bad regex",
			defs: []Rule{{ID: "a", Priority: 1, Type: fieldtype.City, Pattern: `(`}},
			want: "compile rule",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRuleSet(tc.defs)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultStatus(t *testing.T) {
	st := Default().Status()
	if st.ID != DefaultID || st.Version != DefaultVersion {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.GlobalRules == 0 || st.QuestionRules == 0 || st.PlatformRules["workday"] == 0 {
		t.Fatalf("expected populated rule sets, got %+v", st)
	}
}
