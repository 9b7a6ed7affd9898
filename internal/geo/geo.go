// Package geo knows U.S. state names and abbreviations and a list of
// country names, enough to recognize dropdown contents and to match an
// applicant's location against the options a form offers.
package geo

import (
	"strings"

	"github.com/straja-ai/fieldsense/internal/field"
)

var usStates = [][2]string{
	{"AL", "Alabama"}, {"AK", "Alaska"}, {"AZ", "Arizona"}, {"AR", "Arkansas"},
	{"CA", "California"}, {"CO", "Colorado"}, {"CT", "Connecticut"}, {"DE", "Delaware"},
	{"DC", "District of Columbia"}, {"FL", "Florida"}, {"GA", "Georgia"}, {"HI", "Hawaii"},
	{"ID", "Idaho"}, {"IL", "Illinois"}, {"IN", "Indiana"}, {"IA", "Iowa"},
	{"KS", "Kansas"}, {"KY", "Kentucky"}, {"LA", "Louisiana"}, {"ME", "Maine"},
	{"MD", "Maryland"}, {"MA", "Massachusetts"}, {"MI", "Michigan"}, {"MN", "Minnesota"},
	{"MS", "Mississippi"}, {"MO", "Missouri"}, {"MT", "Montana"}, {"NE", "Nebraska"},
	{"NV", "Nevada"}, {"NH", "New Hampshire"}, {"NJ", "New Jersey"}, {"NM", "New Mexico"},
	{"NY", "New York"}, {"NC", "North Carolina"}, {"ND", "North Dakota"}, {"OH", "Ohio"},
	{"OK", "Oklahoma"}, {"OR", "Oregon"}, {"PA", "Pennsylvania"}, {"RI", "Rhode Island"},
	{"SC", "South Carolina"}, {"SD", "South Dakota"}, {"TN", "Tennessee"}, {"TX", "Texas"},
	{"UT", "Utah"}, {"VT", "Vermont"}, {"VA", "Virginia"}, {"WA", "Washington"},
	{"WV", "West Virginia"}, {"WI", "Wisconsin"}, {"WY", "Wyoming"}, {"PR", "Puerto Rico"},
}

var countries = []string{
	"Afghanistan", "Albania", "Algeria", "Argentina", "Armenia", "Australia", "Austria",
	"Azerbaijan", "Bahamas", "Bahrain", "Bangladesh", "Belarus", "Belgium", "Bolivia",
	"Bosnia and Herzegovina", "Brazil", "Bulgaria", "Cambodia", "Cameroon", "Canada",
	"Chile", "China", "Colombia", "Costa Rica", "Croatia", "Cuba", "Cyprus",
	"Czech Republic", "Denmark", "Dominican Republic", "Ecuador", "Egypt", "El Salvador",
	"Estonia", "Ethiopia", "Finland", "France", "Georgia", "Germany", "Ghana", "Greece",
	"Guatemala", "Honduras", "Hong Kong", "Hungary", "Iceland", "India", "Indonesia",
	"Iran", "Iraq", "Ireland", "Israel", "Italy", "Jamaica", "Japan", "Jordan",
	"Kazakhstan", "Kenya", "Kuwait", "Latvia", "Lebanon", "Lithuania", "Luxembourg",
	"Malaysia", "Malta", "Mexico", "Moldova", "Morocco", "Nepal", "Netherlands",
	"New Zealand", "Nicaragua", "Nigeria", "North Macedonia", "Norway", "Oman",
	"Pakistan", "Panama", "Paraguay", "Peru", "Philippines", "Poland", "Portugal",
	"Qatar", "Romania", "Russia", "Saudi Arabia", "Serbia", "Singapore", "Slovakia",
	"Slovenia", "South Africa", "South Korea", "Spain", "Sri Lanka", "Sweden",
	"Switzerland", "Taiwan", "Thailand", "Tunisia", "Turkey", "Uganda", "Ukraine",
	"United Arab Emirates", "United Kingdom", "United States", "Uruguay", "Uzbekistan",
	"Venezuela", "Vietnam", "Zimbabwe",
}

var countryAliases = map[string]string{
	"usa":                      "united states",
	"us":                       "united states",
	"u s":                      "united states",
	"u s a":                    "united states",
	"united states of america": "united states",
	"america":                  "united states",
	"uk":                       "united kingdom",
	"u k":                      "united kingdom",
	"great britain":            "united kingdom",
	"england":                  "united kingdom",
	"uae":                      "united arab emirates",
	"korea":                    "south korea",
	"republic of korea":        "south korea",
	"czechia":                  "czech republic",
	"holland":                  "netherlands",
	"the netherlands":          "netherlands",
	"russian federation":       "russia",
	"viet nam":                 "vietnam",
	"turkiye":                  "turkey",
}

var (
	stateByAbbr = map[string]string{}
	stateByName = map[string]string{}
	countrySet  = map[string]string{}
)

func init() {
	for _, s := range usStates {
		stateByAbbr[strings.ToLower(s[0])] = s[1]
		stateByName[key(s[1])] = s[0]
	}
	for _, c := range countries {
		countrySet[key(c)] = c
	}
}

func key(s string) string {
	return field.NormalizeLabel(s)
}

// StateName returns the full state name for a name or two-letter code.
func StateName(s string) (string, bool) {
	k := key(s)
	if name, ok := stateByAbbr[k]; ok {
		return name, true
	}
	if abbr, ok := stateByName[k]; ok {
		return stateByAbbr[strings.ToLower(abbr)], true
	}
	return "", false
}

// StateAbbr returns the two-letter code for a name or code.
func StateAbbr(s string) (string, bool) {
	name, ok := StateName(s)
	if !ok {
		return "", false
	}
	return stateByName[key(name)], true
}

// IsUSState reports whether s is a state name. Bare two-letter codes are
// not counted because many unrelated options are two letters long.
func IsUSState(s string) bool {
	_, ok := stateByName[key(s)]
	return ok
}

// CountryName canonicalizes a country name or common alias.
func CountryName(s string) (string, bool) {
	k := key(s)
	if alias, ok := countryAliases[k]; ok {
		k = alias
	}
	name, ok := countrySet[k]
	return name, ok
}

func IsCountry(s string) bool {
	_, ok := CountryName(s)
	return ok
}

// CountStates counts options that are U.S. state names.
func CountStates(options []string) int {
	n := 0
	for _, o := range options {
		if IsUSState(o) {
			n++
		}
	}
	return n
}

// CountCountries counts options that are country names. Georgia is both a
// state and a country and counts for neither.
func CountCountries(options []string) int {
	n := 0
	for _, o := range options {
		if IsCountry(o) && !IsUSState(o) {
			n++
		}
	}
	return n
}

// MatchState picks the option that names the same state as value, whether
// either side is spelled out or abbreviated.
func MatchState(value string, options []string) (string, bool) {
	name, ok := StateName(value)
	if !ok {
		return "", false
	}
	abbr, _ := StateAbbr(name)
	for _, o := range options {
		k := key(o)
		if k == key(name) || k == strings.ToLower(abbr) {
			return o, true
		}
	}
	for _, o := range options {
		if n, ok := StateName(o); ok && n == name {
			return o, true
		}
	}
	return "", false
}

// MatchCountry picks the option that names the same country as value.
func MatchCountry(value string, options []string) (string, bool) {
	name, ok := CountryName(value)
	if !ok {
		return "", false
	}
	for _, o := range options {
		if n, ok := CountryName(o); ok && n == name {
			return o, true
		}
	}
	return "", false
}
