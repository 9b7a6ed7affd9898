package embed

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"gopkg.in/yaml.v3"
)

// Corpus maps each type to the reference phrases that describe it.
type Corpus map[fieldtype.Type][]string

// Types returns the corpus types in enum order.
func (c Corpus) Types() []fieldtype.Type {
	out := make([]fieldtype.Type, 0, len(c))
	for t := range c {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Corpus) Len() int {
	n := 0
	for _, phrases := range c {
		n += len(phrases)
	}
	return n
}

// DefaultCorpus is one description phrase per type plus hand-picked
// paraphrases for the types whose labels vary most across forms.
func DefaultCorpus() Corpus {
	c := Corpus{}
	for _, t := range fieldtype.All() {
		c[t] = []string{t.Description()}
	}
	extra := map[fieldtype.Type][]string{
		fieldtype.FirstName:              {"given name", "legal first name"},
		fieldtype.LastName:               {"surname", "family name"},
		fieldtype.PreferredName:          {"what name do you go by", "nickname"},
		fieldtype.Phone:                  {"mobile number", "best number to reach you"},
		fieldtype.City:                   {"town of residence", "which city do you live in", "current location"},
		fieldtype.State:                  {"state or province of residence", "region"},
		fieldtype.Country:                {"country of residence", "nation where you live"},
		fieldtype.PostalCode:             {"zip code", "postcode"},
		fieldtype.CurrentCompany:         {"current employer", "where do you work now"},
		fieldtype.CurrentTitle:           {"current job title", "your present role"},
		fieldtype.SalaryExpectation:      {"desired compensation", "expected annual pay"},
		fieldtype.NoticePeriod:           {"how much notice do you need to give"},
		fieldtype.StartDate:              {"when can you start", "earliest available start date"},
		fieldtype.WorkAuthorization:      {"are you legally allowed to work here"},
		fieldtype.AuthorizedIndefinitely: {"can you work here permanently without restrictions"},
		fieldtype.SponsorshipRequired:    {"will you need visa sponsorship now or in the future"},
		fieldtype.WillingToRelocate:      {"are you open to moving for this job"},
		fieldtype.ReferralSource:         {"how did you hear about this position"},
		fieldtype.PreviouslyEmployed:     {"have you worked for this company before"},
		fieldtype.Website:                {"personal website or portfolio url"},
	}
	for t, phrases := range extra {
		c[t] = append(c[t], phrases...)
	}
	return c
}

type corpusFile struct {
	Types map[string][]string `yaml:"types"`
}

// LoadCorpus reads a YAML file of the form
//
//	types:
//	  city: ["town of residence", ...]
//
// on top of the default corpus. Listed types replace their defaults.
func LoadCorpus(path string) (Corpus, error) {
	c := DefaultCorpus()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var raw corpusFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	for name, phrases := range raw.Types {
		t, ok := fieldtype.Parse(name)
		if !ok || t == fieldtype.Unknown {
			return nil, fmt.Errorf("corpus: unknown field type %q", name)
		}
		cleaned := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) == 0 {
			delete(c, t)
			continue
		}
		c[t] = cleaned
	}
	return c, nil
}
