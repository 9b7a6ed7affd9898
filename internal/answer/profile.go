// Package answer maps a classified field type and a user profile to the
// value that should be entered into the field.
package answer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the user's application data. It is loaded once per run and
// never written back.
type Profile struct {
	Personal      Personal      `yaml:"personal" json:"personal"`
	Contact       Contact       `yaml:"contact" json:"contact"`
	Address       Address       `yaml:"address" json:"address"`
	Links         Links         `yaml:"links" json:"links"`
	Work          Work          `yaml:"work" json:"work"`
	Education     Education     `yaml:"education" json:"education"`
	Authorization Authorization `yaml:"authorization" json:"authorization"`
	EEO           EEO           `yaml:"eeo" json:"eeo"`
	Misc          Misc          `yaml:"misc" json:"misc"`
}

type Personal struct {
	FirstName     string `yaml:"first_name" json:"first_name"`
	MiddleName    string `yaml:"middle_name" json:"middle_name"`
	LastName      string `yaml:"last_name" json:"last_name"`
	PreferredName string `yaml:"preferred_name" json:"preferred_name"`
}

type Contact struct {
	Email       string `yaml:"email" json:"email"`
	Phone       string `yaml:"phone" json:"phone"`
	Extension   string `yaml:"phone_extension" json:"phone_extension"`
	CountryCode string `yaml:"phone_country_code" json:"phone_country_code"`
	PhoneType   string `yaml:"phone_type" json:"phone_type"`
}

type Address struct {
	Line1      string `yaml:"line1" json:"line1"`
	Line2      string `yaml:"line2" json:"line2"`
	City       string `yaml:"city" json:"city"`
	State      string `yaml:"state" json:"state"`
	PostalCode string `yaml:"postal_code" json:"postal_code"`
	Country    string `yaml:"country" json:"country"`
}

type Links struct {
	LinkedIn string `yaml:"linkedin" json:"linkedin"`
	GitHub   string `yaml:"github" json:"github"`
	Website  string `yaml:"website" json:"website"`
}

// Work holds employment preferences. StartDate is YYYY-MM-DD.
type Work struct {
	CurrentCompany     string `yaml:"current_company" json:"current_company"`
	CurrentTitle       string `yaml:"current_title" json:"current_title"`
	YearsExperience    string `yaml:"years_experience" json:"years_experience"`
	SalaryExpectation  string `yaml:"salary_expectation" json:"salary_expectation"`
	NoticePeriod       string `yaml:"notice_period" json:"notice_period"`
	StartDate          string `yaml:"start_date" json:"start_date"`
	WillingToRelocate  *bool  `yaml:"willing_to_relocate" json:"willing_to_relocate"`
	PreviouslyEmployed *bool  `yaml:"previously_employed" json:"previously_employed"`
}

// Education describes the highest degree. GraduationDate is YYYY-MM-DD or
// YYYY-MM.
type Education struct {
	School         string `yaml:"school" json:"school"`
	Degree         string `yaml:"degree" json:"degree"`
	Major          string `yaml:"major" json:"major"`
	GPA            string `yaml:"gpa" json:"gpa"`
	GraduationDate string `yaml:"graduation_date" json:"graduation_date"`
}

// Authorization holds the facts behind the work-eligibility questions.
// Status is free text such as "US citizen", "permanent resident" or "H-1B".
type Authorization struct {
	AuthorizedToWork       *bool  `yaml:"authorized_to_work" json:"authorized_to_work"`
	Status                 string `yaml:"status" json:"status"`
	AuthorizedIndefinitely *bool  `yaml:"authorized_indefinitely" json:"authorized_indefinitely"`
	RequiresSponsorship    *bool  `yaml:"requires_sponsorship" json:"requires_sponsorship"`
}

type EEO struct {
	Gender         string `yaml:"gender" json:"gender"`
	RaceEthnicity  string `yaml:"race_ethnicity" json:"race_ethnicity"`
	HispanicLatino *bool  `yaml:"hispanic_latino" json:"hispanic_latino"`
	Veteran        *bool  `yaml:"veteran" json:"veteran"`
	Disability     *bool  `yaml:"disability" json:"disability"`
}

type Misc struct {
	Over18         *bool  `yaml:"over_18" json:"over_18"`
	ReferralSource string `yaml:"referral_source" json:"referral_source"`
	ResumePath     string `yaml:"resume_path" json:"resume_path"`
	CoverLetter    string `yaml:"cover_letter" json:"cover_letter"`
}

// LoadProfile reads a YAML (or JSON) profile. An empty path yields an empty
// profile, which resolves no answers.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if strings.TrimSpace(path) == "" {
		return &p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("profile %s not found", path)
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}
