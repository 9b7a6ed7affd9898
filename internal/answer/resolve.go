package answer

import (
	"strconv"
	"strings"
	"time"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/geo"
)

const (
	Yes = "Yes"
	No  = "No"
)

// Resolve returns the answer for a field of type t, or nil when the
// profile has nothing to say. Boolean types answer "Yes" or "No". When the
// field offers options the answer is mapped onto one of them if possible.
func Resolve(t fieldtype.Type, f field.Field, p *Profile) *string {
	if p == nil || t == fieldtype.Unknown {
		return nil
	}
	if t.IsBoolean() {
		b, ok := booleanFact(t, p)
		if !ok {
			return nil
		}
		return boolAnswer(b, f)
	}
	if t.IsDate() {
		return dateAnswer(dateFact(t, p), f)
	}

	var v string
	switch t {
	case fieldtype.FirstName:
		v = p.Personal.FirstName
	case fieldtype.MiddleName:
		v = p.Personal.MiddleName
	case fieldtype.LastName:
		v = p.Personal.LastName
	case fieldtype.FullName:
		v = strings.Join(strings.Fields(strings.Join([]string{p.Personal.FirstName, p.Personal.MiddleName, p.Personal.LastName}, " ")), " ")
	case fieldtype.PreferredName:
		v = p.Personal.PreferredName
	case fieldtype.Email:
		v = p.Contact.Email
	case fieldtype.Phone:
		v = p.Contact.Phone
	case fieldtype.PhoneExtension:
		v = p.Contact.Extension
	case fieldtype.PhoneCountryCode:
		v = p.Contact.CountryCode
	case fieldtype.PhoneType:
		v = p.Contact.PhoneType
	case fieldtype.AddressLine1:
		v = p.Address.Line1
	case fieldtype.AddressLine2:
		v = p.Address.Line2
	case fieldtype.City:
		v = p.Address.City
	case fieldtype.State:
		return stateAnswer(p.Address.State, f)
	case fieldtype.PostalCode:
		v = p.Address.PostalCode
	case fieldtype.Country:
		return countryAnswer(p.Address.Country, f)
	case fieldtype.LinkedIn:
		v = p.Links.LinkedIn
	case fieldtype.GitHub:
		v = p.Links.GitHub
	case fieldtype.Website:
		v = p.Links.Website
	case fieldtype.CurrentCompany:
		v = p.Work.CurrentCompany
	case fieldtype.CurrentTitle:
		v = p.Work.CurrentTitle
	case fieldtype.YearsExperience:
		v = p.Work.YearsExperience
	case fieldtype.SalaryExpectation:
		v = p.Work.SalaryExpectation
	case fieldtype.NoticePeriod:
		v = p.Work.NoticePeriod
	case fieldtype.School:
		v = p.Education.School
	case fieldtype.Degree:
		v = p.Education.Degree
	case fieldtype.Major:
		v = p.Education.Major
	case fieldtype.GPA:
		v = p.Education.GPA
	case fieldtype.ReferralSource:
		v = p.Misc.ReferralSource
	case fieldtype.Gender:
		v = p.EEO.Gender
	case fieldtype.RaceEthnicity:
		v = p.EEO.RaceEthnicity
	case fieldtype.Resume:
		v = p.Misc.ResumePath
	case fieldtype.CoverLetter:
		v = p.Misc.CoverLetter
	}
	return textAnswer(v, f)
}

// booleanFact applies the domain rules behind each Yes/No question. Being
// authorized to work today and being authorized indefinitely are separate
// facts: a visa holder has the first but not the second.
func booleanFact(t fieldtype.Type, p *Profile) (bool, bool) {
	auth := p.Authorization
	status := classifyStatus(auth.Status)
	switch t {
	case fieldtype.WorkAuthorization:
		if auth.AuthorizedToWork != nil {
			return *auth.AuthorizedToWork, true
		}
		if status != statusUnknown {
			return true, true
		}
	case fieldtype.AuthorizedIndefinitely:
		if auth.AuthorizedIndefinitely != nil {
			return *auth.AuthorizedIndefinitely, true
		}
		if status != statusUnknown {
			return status == statusPermanent, true
		}
	case fieldtype.SponsorshipRequired:
		if auth.RequiresSponsorship != nil {
			return *auth.RequiresSponsorship, true
		}
		if status != statusUnknown {
			return status == statusTemporary, true
		}
	case fieldtype.WillingToRelocate:
		return deref(p.Work.WillingToRelocate)
	case fieldtype.PreviouslyEmployed:
		return deref(p.Work.PreviouslyEmployed)
	case fieldtype.Over18:
		return deref(p.Misc.Over18)
	case fieldtype.HispanicLatino:
		return deref(p.EEO.HispanicLatino)
	case fieldtype.VeteranStatus:
		return deref(p.EEO.Veteran)
	case fieldtype.DisabilityStatus:
		return deref(p.EEO.Disability)
	}
	return false, false
}

func deref(b *bool) (bool, bool) {
	if b == nil {
		return false, false
	}
	return *b, true
}

type statusKind int

const (
	statusUnknown statusKind = iota
	statusPermanent
	statusTemporary
)

var (
	permanentMarkers = []string{"citizen", "permanent resident", "green card", "lpr", "asylee", "refugee"}
	temporaryMarkers = []string{
		"h1b", "h 1b", "f1", "f 1", "opt", "cpt", "l1", "l 1", "o1", "o 1",
		"e3", "e 3", "j1", "j 1", "h4", "h 4", "tn", "ead", "visa", "temporary",
	}
)

func classifyStatus(s string) statusKind {
	n := field.NormalizeLabel(s)
	if n == "" {
		return statusUnknown
	}
	if hasPhrase(n, permanentMarkers) {
		return statusPermanent
	}
	if hasPhrase(n, temporaryMarkers) {
		return statusTemporary
	}
	return statusUnknown
}

// hasPhrase reports whether any phrase occurs in s on word boundaries.
func hasPhrase(s string, phrases []string) bool {
	padded := " " + s + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func boolAnswer(b bool, f field.Field) *string {
	if len(f.Options) > 0 {
		if opt, ok := matchBoolOption(b, f.Options); ok {
			return &opt
		}
	}
	v := No
	if b {
		v = Yes
	}
	return &v
}

var (
	negations = []string{"no", "not", "don t", "do not", "am not", "i m not", "never"}
	abstains  = []string{"decline", "prefer not", "wish to", "choose not", "not wish", "n a"}
)

// matchBoolOption maps Yes/No onto option wording such as
// "Yes, I am authorized" or "I am not a protected veteran".
func matchBoolOption(b bool, options []string) (string, bool) {
	want := "no"
	if b {
		want = "yes"
	}
	for _, o := range options {
		n := field.NormalizeLabel(o)
		if n == want || strings.HasPrefix(n, want+" ") {
			return o, true
		}
	}
	for _, o := range options {
		n := field.NormalizeLabel(o)
		if n == "" || isPlaceholder(n) || hasPhrase(n, abstains) {
			continue
		}
		if hasPhrase(n, negations) != b {
			return o, true
		}
	}
	return "", false
}

func isPlaceholder(n string) bool {
	return strings.HasPrefix(n, "select") || strings.HasPrefix(n, "choose") || strings.HasPrefix(n, "please select")
}

func textAnswer(v string, f field.Field) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(f.Options) > 0 {
		if opt, ok := matchOption(v, f.Options); ok {
			return &opt
		}
	}
	return &v
}

// matchOption finds the option naming value: exact after normalization,
// then prefix, then whole-word containment.
func matchOption(value string, options []string) (string, bool) {
	v := field.NormalizeLabel(value)
	if v == "" {
		return "", false
	}
	for _, o := range options {
		if field.NormalizeLabel(o) == v {
			return o, true
		}
	}
	for _, o := range options {
		n := field.NormalizeLabel(o)
		if n != "" && (strings.HasPrefix(n, v+" ") || strings.HasPrefix(v, n+" ")) {
			return o, true
		}
	}
	for _, o := range options {
		n := field.NormalizeLabel(o)
		if n != "" && hasPhrase(n, []string{v}) {
			return o, true
		}
	}
	return "", false
}

func stateAnswer(v string, f field.Field) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(f.Options) > 0 {
		if opt, ok := geo.MatchState(v, f.Options); ok {
			return &opt
		}
		return textAnswer(v, f)
	}
	if name, ok := geo.StateName(v); ok {
		if wantsAbbreviation(f) {
			abbr, _ := geo.StateAbbr(name)
			return &abbr
		}
		return &name
	}
	return &v
}

func wantsAbbreviation(f field.Field) bool {
	text := field.NormalizeLabel(f.Label + " " + f.Placeholder)
	return hasPhrase(text, []string{"abbreviation", "2 letter", "two letter", "code"})
}

func countryAnswer(v string, f field.Field) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(f.Options) > 0 {
		if opt, ok := geo.MatchCountry(v, f.Options); ok {
			return &opt
		}
		return textAnswer(v, f)
	}
	if name, ok := geo.CountryName(v); ok {
		return &name
	}
	return &v
}

func dateFact(t fieldtype.Type, p *Profile) string {
	switch t {
	case fieldtype.StartDate:
		return p.Work.StartDate
	case fieldtype.GraduationDate:
		return p.Education.GraduationDate
	}
	return ""
}

type datePart int

const (
	partFull datePart = iota
	partMonth
	partDay
	partYear
)

var dateLayouts = []string{"2006-01-02", "2006-01", "01/02/2006", "January 2, 2006", "January 2006"}

func parseDate(v string) (time.Time, bool, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, strings.Contains(layout, "02") || strings.Contains(layout, "2,"), true
		}
	}
	return time.Time{}, false, false
}

// dateAnswer renders a profile date for the field. Forms that split a
// date across several controls name the part in the label, id or
// placeholder; a control naming exactly one part gets only that part.
func dateAnswer(v string, f field.Field) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, hasDay, ok := parseDate(v)
	if !ok {
		return textAnswer(v, f)
	}

	var out string
	switch datePartFor(f) {
	case partMonth:
		if len(f.Options) > 0 {
			if opt, ok := matchMonthOption(d.Month(), f.Options); ok {
				return &opt
			}
		}
		out = d.Format("01")
	case partDay:
		if !hasDay {
			return nil
		}
		out = d.Format("02")
		if len(f.Options) > 0 {
			if opt, ok := matchOption(d.Format("2"), f.Options); ok {
				return &opt
			}
		}
	case partYear:
		out = d.Format("2006")
	default:
		out = formatFull(d, hasDay, f)
	}
	if len(f.Options) > 0 {
		if opt, ok := matchOption(out, f.Options); ok {
			return &opt
		}
	}
	return &out
}

func datePartFor(f field.Field) datePart {
	text := field.NormalizeLabel(f.Label+" "+f.Placeholder) + " " + field.IdentifierWords(f.Identifier())
	month := hasPhrase(text, []string{"month", "mm"})
	day := hasPhrase(text, []string{"day", "dd"})
	year := hasPhrase(text, []string{"year", "yyyy", "yy"})
	switch {
	case month && !day && !year:
		return partMonth
	case day && !month && !year:
		return partDay
	case year && !month && !day:
		return partYear
	default:
		return partFull
	}
}

func formatFull(d time.Time, hasDay bool, f field.Field) string {
	if f.Kind == field.KindDate {
		return d.Format("2006-01-02")
	}
	placeholder := field.NormalizeLabel(f.Placeholder)
	switch {
	case strings.Contains(placeholder, "dd mm yyyy"):
		return d.Format("02/01/2006")
	case strings.Contains(placeholder, "yyyy mm dd"):
		return d.Format("2006-01-02")
	case strings.Contains(placeholder, "mm yyyy") && !strings.Contains(placeholder, "dd"):
		return d.Format("01/2006")
	case !hasDay:
		return d.Format("01/2006")
	default:
		return d.Format("01/02/2006")
	}
}

func matchMonthOption(m time.Month, options []string) (string, bool) {
	full := strings.ToLower(m.String())
	short := full[:3]
	num := int(m)
	for _, o := range options {
		n := field.NormalizeLabel(o)
		if n == full || n == short || strings.HasPrefix(n, full+" ") {
			return o, true
		}
	}
	for _, o := range options {
		n := strings.TrimLeft(field.NormalizeLabel(o), "0")
		if n == strconv.Itoa(num) {
			return o, true
		}
	}
	return "", false
}
