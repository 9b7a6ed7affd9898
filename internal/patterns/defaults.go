package patterns

import (
	"sync"

	"github.com/straja-ai/fieldsense/internal/field"
	ft "github.com/straja-ai/fieldsense/internal/fieldtype"
)

const (
	DefaultID      = "fieldsense-patterns"
	DefaultVersion = "2026.10.1"
)

// Default returns the curated built-in library.
var Default = sync.OnceValue(func() *Library {
	return New(
		DefaultID,
		DefaultVersion,
		MustRuleSet(globalRules()),
		map[field.Platform]RuleSet{
			field.PlatformWorkday:    MustRuleSet(workdayRules()),
			field.PlatformGreenhouse: MustRuleSet(greenhouseRules()),
			field.PlatformLever:      MustRuleSet(leverRules()),
			field.PlatformAshby:      MustRuleSet(ashbyRules()),
		},
		MustRuleSet(questionRules()),
		MustRuleSet(identifierRules()),
	)
})

// Global rules run against the normalized label. Common fields are
// anchored so that longer labels containing the same words fall through.
func globalRules() []Rule {
	return []Rule{
		{ID: "preferred_name", Priority: 10, Type: ft.PreferredName, Pattern: `^(preferred|nick) ?name$|^preferred first name$`},
		{ID: "first_name", Priority: 20, Type: ft.FirstName, Pattern: `^(legal )?first( name)?$|^given name$|^forename$`},
		{ID: "middle_name", Priority: 30, Type: ft.MiddleName, Pattern: `^middle (name|initial)s?$`},
		{ID: "last_name", Priority: 40, Type: ft.LastName, Pattern: `^(legal )?last name$|^(family|sur) ?name$`},
		{ID: "full_name", Priority: 50, Type: ft.FullName, Pattern: `^(your )?(full |legal )?name$|^full legal name$`},
		{ID: "email", Priority: 60, Type: ft.Email, Pattern: `^(your )?e ?mail( address)?$`},
		{ID: "phone_extension", Priority: 70, Type: ft.PhoneExtension, Pattern: `^(phone )?ext(ension)?$|^extension number$`},
		{ID: "phone_country_code", Priority: 80, Type: ft.PhoneCountryCode, Pattern: `^(phone )?country (phone )?code$|^dialing code$`},
		{ID: "phone_type", Priority: 90, Type: ft.PhoneType, Pattern: `^phone (device )?type$`},
		{ID: "phone", Priority: 100, Type: ft.Phone, Pattern: `^(mobile |cell |home |primary )?phone( number)?$|^(mobile|cell)( number)?$|^telephone( number)?$`},
		{ID: "address_line2", Priority: 110, Type: ft.AddressLine2, Pattern: `^address (line )?2$|^(apt|apartment|suite|unit)( number| no)?$`},
		{ID: "address_line1", Priority: 120, Type: ft.AddressLine1, Pattern: `^(street |home |mailing )?address( line 1| 1)?$|^street$`},
		{ID: "city", Priority: 130, Type: ft.City, Pattern: `^(city|town)( town)?$`},
		{ID: "state", Priority: 140, Type: ft.State, Pattern: `^(state|province)( province| or province| region)?$`},
		{ID: "postal_code", Priority: 150, Type: ft.PostalCode, Pattern: `^(zip|postal)( postal)?( code)?$|^postcode$`},
		{ID: "country", Priority: 160, Type: ft.Country, Pattern: `^country( region| of residence)?$`},
		{ID: "linkedin", Priority: 170, Type: ft.LinkedIn, Pattern: `linkedin`},
		{ID: "github", Priority: 180, Type: ft.GitHub, Pattern: `github`},
		{ID: "website", Priority: 190, Type: ft.Website, Pattern: `^(personal )?(website|web site|portfolio)( url| link)?$`},
		{ID: "current_company", Priority: 200, Type: ft.CurrentCompany, Pattern: `^(current |most recent )?(company|employer)( name)?$`},
		{ID: "current_title", Priority: 210, Type: ft.CurrentTitle, Pattern: `^(current |most recent )?(job )?title$|^current (position|role)$`},
		{ID: "school", Priority: 220, Type: ft.School, Pattern: `^(school|university|college|institution)( name)?$`},
		{ID: "degree", Priority: 230, Type: ft.Degree, Pattern: `^degree( type| level)?$`},
		{ID: "major", Priority: 240, Type: ft.Major, Pattern: `^(major|discipline|field of study|area of study)$`},
		{ID: "gpa", Priority: 250, Type: ft.GPA, Pattern: `^(overall )?gpa$|^grade point average$`},
		{ID: "resume", Priority: 260, Type: ft.Resume, Pattern: `^(upload |attach )?(your )?(resume|cv)( cv| resume)?$`},
		{ID: "cover_letter", Priority: 270, Type: ft.CoverLetter, Pattern: `^(upload |attach )?cover letter$`},
		{ID: "gender", Priority: 280, Type: ft.Gender, Pattern: `^gender( identity)?$|^sex$`},
		{ID: "race_ethnicity", Priority: 290, Type: ft.RaceEthnicity, Pattern: `^race( ethnicity)?$|^ethnicity$`},
		{ID: "veteran_status", Priority: 300, Type: ft.VeteranStatus, Pattern: `^(protected )?veteran status$`},
		{ID: "disability_status", Priority: 310, Type: ft.DisabilityStatus, Pattern: `^disability( status)?$`},
	}
}

// Question rules run unanchored over label, section and placeholder.
// Narrow authorization questions come before the broad one.
func questionRules() []Rule {
	return []Rule{
		{ID: "q_authorized_indefinitely", Priority: 10, Type: ft.AuthorizedIndefinitely, Pattern: `authori[sz]ed to work .*(indefinitely|permanently|without (any )?restrictions?)|permanent(ly)? (work )?authori[sz]`},
		{ID: "q_sponsorship", Priority: 20, Type: ft.SponsorshipRequired, Pattern: `sponsor|work visa|visa status|require (a )?visa`},
		{ID: "q_work_authorization", Priority: 30, Type: ft.WorkAuthorization, Pattern: `authori[sz]ed to work|eligible to work|right to work|legally (able|permitted) to work|work authori[sz]ation`},
		{ID: "q_over_18", Priority: 40, Type: ft.Over18, Pattern: `\b(at least|over) 18\b|18 years (of age|or older)|age of 18`},
		{ID: "q_relocate", Priority: 50, Type: ft.WillingToRelocate, Pattern: `relocat`},
		{ID: "q_previously_employed", Priority: 60, Type: ft.PreviouslyEmployed, Pattern: `(previously|ever) (been )?(employed|worked)|former (employee|worker)`},
		{ID: "q_referral_source", Priority: 70, Type: ft.ReferralSource, Pattern: `how did you (hear|learn|find)|where did you (hear|find)|referral source|referred by`},
		{ID: "q_hispanic_latino", Priority: 80, Type: ft.HispanicLatino, Pattern: `hispanic|latin[oax]`},
		{ID: "q_race_ethnicity", Priority: 90, Type: ft.RaceEthnicity, Pattern: `\brace\b|ethnic`},
		{ID: "q_veteran", Priority: 100, Type: ft.VeteranStatus, Pattern: `veteran`},
		{ID: "q_disability", Priority: 110, Type: ft.DisabilityStatus, Pattern: `disabilit`},
		{ID: "q_gender", Priority: 120, Type: ft.Gender, Pattern: `\bgender\b|\bsex\b`},
		{ID: "q_salary", Priority: 130, Type: ft.SalaryExpectation, Pattern: `salary|compensation|desired pay|expected pay|pay expectation`},
		{ID: "q_notice_period", Priority: 140, Type: ft.NoticePeriod, Pattern: `notice period`},
		{ID: "q_start_date", Priority: 150, Type: ft.StartDate, Pattern: `start date|(earliest|when) .*(can|could) (you )?start|available to start|availability date`},
		{ID: "q_years_experience", Priority: 160, Type: ft.YearsExperience, Pattern: `years of (professional |relevant |work )?experience|how many years`},
		{ID: "q_graduation", Priority: 170, Type: ft.GraduationDate, Pattern: `graduat(ion|e) (date|year)|when did you graduate|expected graduation`},
		{ID: "q_cover_letter", Priority: 180, Type: ft.CoverLetter, Pattern: `cover letter`},
	}
}

// Workday ids encode semantics as section_field--subfield. The extension,
// country-code and device-type ids all contain "phoneNumber" or
// "country", so they must outrank the general phone and country rules.
func workdayRules() []Rule {
	return []Rule{
		{ID: "wd_phone_extension", Priority: 10, Type: ft.PhoneExtension, Pattern: `extension`},
		{ID: "wd_phone_country_code", Priority: 20, Type: ft.PhoneCountryCode, Pattern: `countryphonecode|phone-?country-?code`},
		{ID: "wd_phone_type", Priority: 30, Type: ft.PhoneType, Pattern: `phonetype|devicetype`},
		{ID: "wd_phone_number", Priority: 40, Type: ft.Phone, Pattern: `phonenumber|phone-number`},
		{ID: "wd_preferred_name", Priority: 50, Type: ft.PreferredName, Pattern: `preferredname`},
		{ID: "wd_first_name", Priority: 60, Type: ft.FirstName, Pattern: `firstname|givenname`},
		{ID: "wd_middle_name", Priority: 70, Type: ft.MiddleName, Pattern: `middlename`},
		{ID: "wd_last_name", Priority: 80, Type: ft.LastName, Pattern: `lastname|familyname`},
		{ID: "wd_email", Priority: 90, Type: ft.Email, Pattern: `email`},
		{ID: "wd_address_line2", Priority: 100, Type: ft.AddressLine2, Pattern: `addressline2`},
		{ID: "wd_address_line1", Priority: 110, Type: ft.AddressLine1, Pattern: `addressline1`},
		{ID: "wd_city", Priority: 120, Type: ft.City, Pattern: `(^|[^a-z])city([^a-z]|$)|(?-i:[a-z0-9]City)`},
		{ID: "wd_postal_code", Priority: 130, Type: ft.PostalCode, Pattern: `postalcode`},
		{ID: "wd_country_region", Priority: 140, Type: ft.State, Pattern: `countryregion`},
		{ID: "wd_country", Priority: 150, Type: ft.Country, Pattern: `country`},
		{ID: "wd_source", Priority: 160, Type: ft.ReferralSource, Pattern: `source--source|sourcesection`},
		{ID: "wd_previous_worker", Priority: 170, Type: ft.PreviouslyEmployed, Pattern: `previousworker|candidateisprevious`},
	}
}

func greenhouseRules() []Rule {
	return []Rule{
		{ID: "gh_first_name", Priority: 10, Type: ft.FirstName, Pattern: `^first_name$`},
		{ID: "gh_last_name", Priority: 20, Type: ft.LastName, Pattern: `^last_name$`},
		{ID: "gh_preferred_name", Priority: 30, Type: ft.PreferredName, Pattern: `preferred_name`},
		{ID: "gh_email", Priority: 40, Type: ft.Email, Pattern: `^email$`},
		{ID: "gh_phone", Priority: 50, Type: ft.Phone, Pattern: `^phone$`},
		{ID: "gh_location", Priority: 60, Type: ft.City, Pattern: `location`},
		{ID: "gh_resume", Priority: 70, Type: ft.Resume, Pattern: `^resume`},
		{ID: "gh_cover_letter", Priority: 80, Type: ft.CoverLetter, Pattern: `^cover_letter`},
		{ID: "gh_linkedin", Priority: 90, Type: ft.LinkedIn, Pattern: `linkedin`},
		{ID: "gh_website", Priority: 100, Type: ft.Website, Pattern: `website`},
	}
}

func leverRules() []Rule {
	return []Rule{
		{ID: "lv_name", Priority: 10, Type: ft.FullName, Pattern: `^name$`},
		{ID: "lv_email", Priority: 20, Type: ft.Email, Pattern: `^email$`},
		{ID: "lv_phone", Priority: 30, Type: ft.Phone, Pattern: `^phone$`},
		{ID: "lv_org", Priority: 40, Type: ft.CurrentCompany, Pattern: `^org$`},
		{ID: "lv_linkedin", Priority: 50, Type: ft.LinkedIn, Pattern: `urls\[linkedin\]`},
		{ID: "lv_github", Priority: 60, Type: ft.GitHub, Pattern: `urls\[github\]`},
		{ID: "lv_portfolio", Priority: 70, Type: ft.Website, Pattern: `urls\[(portfolio|other)\]`},
		{ID: "lv_location", Priority: 80, Type: ft.City, Pattern: `^location$`},
		{ID: "lv_resume", Priority: 90, Type: ft.Resume, Pattern: `^resume$`},
	}
}

func ashbyRules() []Rule {
	return []Rule{
		{ID: "ab_name", Priority: 10, Type: ft.FullName, Pattern: `_systemfield_name$`},
		{ID: "ab_email", Priority: 20, Type: ft.Email, Pattern: `_systemfield_email`},
		{ID: "ab_phone", Priority: 30, Type: ft.Phone, Pattern: `_systemfield_phone`},
		{ID: "ab_resume", Priority: 40, Type: ft.Resume, Pattern: `_systemfield_resume`},
		{ID: "ab_location", Priority: 50, Type: ft.City, Pattern: `_systemfield_location`},
	}
}

// Identifier rules are platform-agnostic id heuristics used as
// structural-id signals. Short words like city must sit on a separator or
// camel-case boundary so "ethnicity" is not read as a city.
func identifierRules() []Rule {
	return []Rule{
		{ID: "id_phone_extension", Priority: 10, Type: ft.PhoneExtension, Pattern: `extension|phone[_-]?ext\b|^ext$`},
		{ID: "id_phone_country_code", Priority: 20, Type: ft.PhoneCountryCode, Pattern: `country[_-]?code|dial[_-]?code|phone[_-]?country`},
		{ID: "id_phone", Priority: 30, Type: ft.Phone, Pattern: `phone|mobile|\btel\b`},
		{ID: "id_email", Priority: 40, Type: ft.Email, Pattern: `e-?mail`},
		{ID: "id_preferred_name", Priority: 50, Type: ft.PreferredName, Pattern: `preferred[_-]?name|nick[_-]?name`},
		{ID: "id_first_name", Priority: 60, Type: ft.FirstName, Pattern: `first[_-]?name|fname|given[_-]?name`},
		{ID: "id_middle_name", Priority: 70, Type: ft.MiddleName, Pattern: `middle[_-]?name`},
		{ID: "id_last_name", Priority: 80, Type: ft.LastName, Pattern: `last[_-]?name|lname|surname|family[_-]?name`},
		{ID: "id_address_line2", Priority: 90, Type: ft.AddressLine2, Pattern: `address[_-]?(line)?[_-]?2|addr2`},
		{ID: "id_address_line1", Priority: 100, Type: ft.AddressLine1, Pattern: `address[_-]?(line)?[_-]?1|street|addr1`},
		{ID: "id_city", Priority: 110, Type: ft.City, Pattern: `(^|[^a-z])(city|town)([^a-z]|$)|(?-i:[a-z0-9](City|Town)|^(city|town)[A-Z0-9])`},
		{ID: "id_postal_code", Priority: 120, Type: ft.PostalCode, Pattern: `zip|postal`},
		{ID: "id_state", Priority: 130, Type: ft.State, Pattern: `state|province`},
		{ID: "id_country", Priority: 140, Type: ft.Country, Pattern: `country`},
		{ID: "id_linkedin", Priority: 150, Type: ft.LinkedIn, Pattern: `linkedin`},
		{ID: "id_github", Priority: 160, Type: ft.GitHub, Pattern: `github`},
		{ID: "id_website", Priority: 170, Type: ft.Website, Pattern: `website|portfolio`},
		{ID: "id_resume", Priority: 180, Type: ft.Resume, Pattern: `resume|\bcv\b`},
		{ID: "id_cover_letter", Priority: 190, Type: ft.CoverLetter, Pattern: `cover[_-]?letter`},
	}
}
