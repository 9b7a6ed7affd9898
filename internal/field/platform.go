package field

import (
	"strings"
)

// Platform is a coarse identifier for the hosted application a form
// belongs to.
type Platform string

const (
	PlatformUnknown         Platform = "unknown"
	PlatformWorkday         Platform = "workday"
	PlatformGreenhouse      Platform = "greenhouse"
	PlatformLever           Platform = "lever"
	PlatformAshby           Platform = "ashby"
	PlatformICIMS           Platform = "icims"
	PlatformSmartRecruiters Platform = "smartrecruiters"
	PlatformTaleo           Platform = "taleo"
	PlatformJobvite         Platform = "jobvite"
	PlatformBambooHR        Platform = "bamboohr"
)

// platformHints is checked in order; the first substring found in the
// lower-cased URL wins.
var platformHints = []struct {
	substr   string
	platform Platform
}{
	{"myworkdayjobs.com", PlatformWorkday},
	{"myworkdaysite.com", PlatformWorkday},
	{".workday.com", PlatformWorkday},
	{"greenhouse.io", PlatformGreenhouse},
	{"jobs.lever.co", PlatformLever},
	{"lever.co", PlatformLever},
	{"ashbyhq.com", PlatformAshby},
	{"icims.com", PlatformICIMS},
	{"smartrecruiters.com", PlatformSmartRecruiters},
	{"taleo.net", PlatformTaleo},
	{"jobvite.com", PlatformJobvite},
	{"bamboohr.com", PlatformBambooHR},
}

// DetectPlatform maps a page URL to a Platform. Unrecognized URLs map to
// PlatformUnknown.
func DetectPlatform(rawURL string) Platform {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if u == "" {
		return PlatformUnknown
	}
	for _, h := range platformHints {
		if strings.Contains(u, h.substr) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// ParsePlatform accepts a platform name as written in config or requests.
func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, h := range platformHints {
		if h.platform == p {
			return p
		}
	}
	return PlatformUnknown
}

func (p Platform) normalized() Platform {
	if p == "" {
		return PlatformUnknown
	}
	return p
}
