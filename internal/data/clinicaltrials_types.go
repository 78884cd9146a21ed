package data

import (
	"strings"
	"time"

	"biotech-event-study/internal/model"
)

// studiesResponse mirrors the parts of GET /api/v2/studies we read.
type studiesResponse struct {
	Studies       []rawStudy `json:"studies"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

type rawStudy struct {
	ProtocolSection protocolSection `json:"protocolSection"`
}

type protocolSection struct {
	IdentificationModule struct {
		NCTID         string `json:"nctId"`
		BriefTitle    string `json:"briefTitle"`
		OfficialTitle string `json:"officialTitle"`
	} `json:"identificationModule"`

	StatusModule struct {
		OverallStatus               string      `json:"overallStatus"`
		PrimaryCompletionDateStruct *dateStruct `json:"primaryCompletionDateStruct"`
		CompletionDateStruct        *dateStruct `json:"completionDateStruct"`
	} `json:"statusModule"`

	SponsorCollaboratorsModule struct {
		LeadSponsor struct {
			Name  string `json:"name"`
			Class string `json:"class"`
		} `json:"leadSponsor"`
	} `json:"sponsorCollaboratorsModule"`

	ConditionsModule struct {
		Conditions []string `json:"conditions"`
	} `json:"conditionsModule"`

	DesignModule struct {
		Phases     []string `json:"phases"`
		DesignInfo struct {
			Allocation     string `json:"allocation"`
			PrimaryPurpose string `json:"primaryPurpose"`
			MaskingInfo    struct {
				Masking string `json:"masking"`
			} `json:"maskingInfo"`
		} `json:"designInfo"`
		EnrollmentInfo struct {
			Count int `json:"count"`
		} `json:"enrollmentInfo"`
	} `json:"designModule"`

	ArmsInterventionsModule struct {
		ArmGroups []struct {
			Label string `json:"label"`
		} `json:"armGroups"`
	} `json:"armsInterventionsModule"`
}

type dateStruct struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

func (s rawStudy) toTrial() model.Trial {
	p := s.ProtocolSection

	t := model.Trial{
		NCTID:           orNA(p.IdentificationModule.NCTID),
		Title:           orNA(firstNonEmpty(p.IdentificationModule.OfficialTitle, p.IdentificationModule.BriefTitle)),
		Sponsor:         orNA(strings.TrimSpace(p.SponsorCollaboratorsModule.LeadSponsor.Name)),
		SponsorClass:    p.SponsorCollaboratorsModule.LeadSponsor.Class,
		Conditions:      p.ConditionsModule.Conditions,
		Phases:          p.DesignModule.Phases,
		Status:          orNA(p.StatusModule.OverallStatus),
		EnrollmentCount: p.DesignModule.EnrollmentInfo.Count,
		Allocation:      p.DesignModule.DesignInfo.Allocation,
		Masking:         p.DesignModule.DesignInfo.MaskingInfo.Masking,
		PrimaryPurpose:  p.DesignModule.DesignInfo.PrimaryPurpose,
		ArmCount:        len(p.ArmsInterventionsModule.ArmGroups),
	}

	// Primary completion is the readout; fall back to study completion.
	var raw string
	if ds := p.StatusModule.PrimaryCompletionDateStruct; ds != nil && ds.Date != "" {
		raw = ds.Date
	} else if ds := p.StatusModule.CompletionDateStruct; ds != nil {
		raw = ds.Date
	}
	t.CompletionDate, t.CompletionDatePrecision = ParseTrialDate(raw)
	return t
}

// ParseTrialDate parses "YYYY-MM-DD" or "YYYY-MM" (first of month).
// Unparseable input returns the zero time.
func ParseTrialDate(s string) (time.Time, model.DatePrecision) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, model.DatePrecisionDay
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, model.DatePrecisionMonth
	}
	return time.Time{}, model.DatePrecisionNone
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
