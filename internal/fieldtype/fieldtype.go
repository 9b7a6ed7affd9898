// Package fieldtype defines the closed set of semantic form-field types
// shared by every classification layer.
package fieldtype

import (
	"strings"
)

// Version identifies the revision of the type enumeration. Learned pattern
// files written under an older version may contain names that no longer
// parse; those entries decode as Unknown and are ignored on lookup.
const Version = "2026.10"

// Type is a canonical field type.
type Type uint8

const (
	Unknown Type = iota
	FirstName
	MiddleName
	LastName
	FullName
	PreferredName
	Email
	Phone
	PhoneExtension
	PhoneCountryCode
	PhoneType
	AddressLine1
	AddressLine2
	City
	State
	PostalCode
	Country
	LinkedIn
	GitHub
	Website
	CurrentCompany
	CurrentTitle
	YearsExperience
	SalaryExpectation
	NoticePeriod
	StartDate
	School
	Degree
	Major
	GPA
	GraduationDate
	WorkAuthorization
	AuthorizedIndefinitely
	SponsorshipRequired
	WillingToRelocate
	Over18
	PreviouslyEmployed
	ReferralSource
	Gender
	RaceEthnicity
	HispanicLatino
	VeteranStatus
	DisabilityStatus
	Resume
	CoverLetter

	count
)

type def struct {
	name        string
	description string
	boolean     bool
	date        bool
}

var defs = [count]def{
	Unknown:                {name: "unknown", description: "something else"},
	FirstName:              {name: "first_name", description: "a person's first name"},
	MiddleName:             {name: "middle_name", description: "a person's middle name"},
	LastName:               {name: "last_name", description: "a person's last name or surname"},
	FullName:               {name: "full_name", description: "a person's full name"},
	PreferredName:          {name: "preferred_name", description: "a preferred name or nickname"},
	Email:                  {name: "email", description: "an email address"},
	Phone:                  {name: "phone", description: "a phone number"},
	PhoneExtension:         {name: "phone_extension", description: "a phone extension"},
	PhoneCountryCode:       {name: "phone_country_code", description: "a phone country code"},
	PhoneType:              {name: "phone_type", description: "the type of phone device"},
	AddressLine1:           {name: "address_line1", description: "a street address"},
	AddressLine2:           {name: "address_line2", description: "an apartment or suite number"},
	City:                   {name: "city", description: "a city"},
	State:                  {name: "state", description: "a state or province"},
	PostalCode:             {name: "postal_code", description: "a postal or zip code"},
	Country:                {name: "country", description: "a country"},
	LinkedIn:               {name: "linkedin", description: "a LinkedIn profile URL"},
	GitHub:                 {name: "github", description: "a GitHub profile URL"},
	Website:                {name: "website", description: "a personal website or portfolio URL"},
	CurrentCompany:         {name: "current_company", description: "the current employer"},
	CurrentTitle:           {name: "current_title", description: "the current job title"},
	YearsExperience:        {name: "years_experience", description: "years of work experience"},
	SalaryExpectation:      {name: "salary_expectation", description: "salary expectations"},
	NoticePeriod:           {name: "notice_period", description: "the notice period"},
	StartDate:              {name: "start_date", description: "the earliest start date", date: true},
	School:                 {name: "school", description: "a school or university"},
	Degree:                 {name: "degree", description: "an academic degree"},
	Major:                  {name: "major", description: "a field of study"},
	GPA:                    {name: "gpa", description: "a grade point average"},
	GraduationDate:         {name: "graduation_date", description: "a graduation date", date: true},
	WorkAuthorization:      {name: "work_authorization", description: "whether the person is authorized to work", boolean: true},
	AuthorizedIndefinitely: {name: "authorized_indefinitely", description: "whether the person is authorized to work indefinitely", boolean: true},
	SponsorshipRequired:    {name: "sponsorship_required", description: "whether visa sponsorship is required", boolean: true},
	WillingToRelocate:      {name: "willing_to_relocate", description: "willingness to relocate", boolean: true},
	Over18:                 {name: "over_18", description: "whether the person is at least 18 years old", boolean: true},
	PreviouslyEmployed:     {name: "previously_employed", description: "whether the person previously worked for this company", boolean: true},
	ReferralSource:         {name: "referral_source", description: "how the person heard about the job"},
	Gender:                 {name: "gender", description: "gender"},
	RaceEthnicity:          {name: "race_ethnicity", description: "race or ethnicity"},
	HispanicLatino:         {name: "hispanic_latino", description: "whether the person is Hispanic or Latino", boolean: true},
	VeteranStatus:          {name: "veteran_status", description: "veteran status", boolean: true},
	DisabilityStatus:       {name: "disability_status", description: "disability status", boolean: true},
	Resume:                 {name: "resume", description: "a resume or CV upload"},
	CoverLetter:            {name: "cover_letter", description: "a cover letter"},
}

var (
	byName        map[string]Type
	byDescription map[string]Type
)

func init() {
	byName = make(map[string]Type, len(defs))
	byDescription = make(map[string]Type, len(defs))
	for i, d := range defs {
		byName[d.name] = Type(i)
		byDescription[strings.ToLower(d.description)] = Type(i)
	}
}

// String returns the canonical snake_case name.
func (t Type) String() string {
	if t >= count {
		return defs[Unknown].name
	}
	return defs[t].name
}

// Description returns the natural-language phrase used as classifier
// hypothesis and reference text.
func (t Type) Description() string {
	if t >= count {
		return defs[Unknown].description
	}
	return defs[t].description
}

// IsBoolean reports whether answers for the type are Yes/No strings.
func (t Type) IsBoolean() bool {
	return t < count && defs[t].boolean
}

// IsDate reports whether the type is a date that forms may split into
// separate month/day/year controls.
func (t Type) IsDate() bool {
	return t < count && defs[t].date
}

// Valid reports whether t is a member of the enumeration.
func (t Type) Valid() bool {
	return t < count
}

// Parse maps a snake_case name, a loosely formatted name ("First Name",
// "first-name") or a description back to its Type.
func Parse(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Unknown, false
	}
	if t, ok := byName[s]; ok {
		return t, true
	}
	if t, ok := byDescription[s]; ok {
		return t, true
	}
	norm := strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(s)
	if t, ok := byName[norm]; ok {
		return t, true
	}
	return Unknown, false
}

// All returns every known type except Unknown, in enumeration order.
func All() []Type {
	out := make([]Type, 0, count-1)
	for t := Unknown + 1; t < count; t++ {
		out = append(out, t)
	}
	return out
}

// Names returns the canonical names of All().
func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, t := range all {
		out[i] = t.String()
	}
	return out
}

// MarshalText encodes the canonical name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name. Unrecognized names decode as Unknown so
// that files written by other versions still load.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, _ := Parse(string(b))
	*t = parsed
	return nil
}
