package sam

import (
	"encoding/json"
	"strings"
)

// Page is one slice of search results plus the source's declared total
type Page struct {
	Records    []Record
	TotalCount int
}

// searchEnvelope is the wire shape of the search endpoint. Records stay
// raw so each can be stored verbatim alongside its decoded form
type searchEnvelope struct {
	TotalRecords      int               `json:"totalRecords"`
	OpportunitiesData []json.RawMessage `json:"opportunitiesData"`
}

// Record is one opportunity as the API returns it. Raw carries the
// undecoded JSON for the store's raw column
type Record struct {
	NoticeID         string          `json:"noticeId"`
	Title            string          `json:"title"`
	Agency           string          `json:"agency"`
	SubTier          string          `json:"subTier"`
	Office           string          `json:"office"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	PostedDate       string          `json:"postedDate"`
	UpdatedDate      string          `json:"updatedDate"`
	ResponseDate     string          `json:"responseDate"`
	NAICS            CodeList        `json:"naics"`
	SetAside         string          `json:"setAside"`
	Active           string          `json:"active"`
	Description      json.RawMessage `json:"description"`
	DescriptionURL   string          `json:"descriptionUrl"`
	DescriptionLink  string          `json:"descriptionLink"`
	ResourceLinks    []ResourceLink  `json:"resourceLinks"`
	Contacts         []Contact       `json:"contacts"`
	Award            json.RawMessage `json:"award"`
	Awards           []AwardEntry    `json:"awards"`

	Raw json.RawMessage `json:"-"`
}

// Archived reports whether the notice is no longer active. The API flags
// active as Yes/No strings
func (r Record) Archived() bool {
	return strings.EqualFold(strings.TrimSpace(r.Active), "no")
}

// InlineDescription returns description text embedded in the record, when
// present. The field arrives either as a bare string or as {"text": ...}
func (r Record) InlineDescription() (string, bool) {
	if len(r.Description) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.Description, &s); err == nil && s != "" {
		return s, true
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(r.Description, &obj); err == nil && obj.Text != "" {
		return obj.Text, true
	}
	return "", false
}

// DescriptionHref returns the first follow-up link for description text
func (r Record) DescriptionHref() string {
	if r.DescriptionURL != "" {
		return r.DescriptionURL
	}
	return r.DescriptionLink
}

// AwardList flattens the two award shapes the API uses, a single object
// under "award" or a list under "awards"
func (r Record) AwardList() []AwardEntry {
	if len(r.Awards) > 0 {
		return r.Awards
	}
	if len(r.Award) == 0 {
		return nil
	}
	var one AwardEntry
	if err := json.Unmarshal(r.Award, &one); err != nil || one == (AwardEntry{}) {
		return nil
	}
	return []AwardEntry{one}
}

// CodeList tolerates the API sending NAICS as a single string, a list of
// strings, or a list of {naicsCode} objects
type CodeList []string

// UnmarshalJSON implements the tolerant decode
func (c *CodeList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*c = splitCodes(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, s := range many {
			out = append(out, splitCodes(s)...)
		}
		*c = out
		return nil
	}
	var objs []struct {
		Code string `json:"naicsCode"`
	}
	if err := json.Unmarshal(b, &objs); err != nil {
		return err
	}
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		if s := strings.TrimSpace(o.Code); s != "" {
			out = append(out, s)
		}
	}
	*c = out
	return nil
}

func splitCodes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResourceLink is one attachment pointer on a record
type ResourceLink struct {
	URL      string `json:"url"`
	Href     string `json:"href"`
	FileName string `json:"fileName"`
}

// Target returns whichever link field is populated
func (l ResourceLink) Target() string {
	if l.URL != "" {
		return l.URL
	}
	return l.Href
}

// Contact is one point of contact on a record
type Contact struct {
	FullName string `json:"fullName"`
	Type     string `json:"type"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Title    string `json:"title"`
}

// AwardEntry is award data in either of the API's shapes
type AwardEntry struct {
	Date   string `json:"date"`
	Number string `json:"number"`
	Amount string `json:"amount"`
	Awardee struct {
		Name string `json:"name"`
		UEI  string `json:"ueiSAM"`
	} `json:"awardee"`
}
