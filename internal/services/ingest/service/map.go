package service

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/core/canon"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
)

// upstream date renderings seen in the wild, most specific first
var stampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

var dayLayouts = []string{
	"2006-01-02",
	"01/02/2006",
}

// backslash-u-0000, the one JSON escape Postgres jsonb refuses to store
var jsonNulEscape = []byte{0x5C, 'u', '0', '0', '0', '0'}

// mapRecord converts one wire record into storage form, stamping the
// content hash and seen/changed timestamps with now
func mapRecord(rec domain.Record, now time.Time) (domain.Opportunity, *domain.Award, []domain.Contact) {
	naics := append([]string(nil), rec.NAICS...)
	sort.Strings(naics)

	o := domain.Opportunity{
		NoticeID:         strings.TrimSpace(rec.NoticeID),
		Title:            canon.Clean(rec.Title),
		Agency:           canon.Clean(rec.Agency),
		SubTier:          canon.Clean(rec.SubTier),
		Office:           canon.Clean(rec.Office),
		NoticeType:       canon.Clean(rec.Type),
		Status:           canon.Clean(rec.Status),
		PostedAt:         parseDay(rec.PostedDate),
		UpdatedAt:        parseStamp(rec.UpdatedDate),
		ResponseDeadline: parseStamp(rec.ResponseDate),
		NAICSCodes:       naics,
		SetAside:         canon.Clean(rec.SetAside),
		Archived:         rec.Archived(),
		Version:          1,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		LastChangedAt:    now,
		Raw:              bytes.ReplaceAll(rec.Raw, jsonNulEscape, nil),
	}
	o.ContentHash = contentHash(o)

	return o, mapAward(rec, o.NoticeID), mapContacts(rec, o.NoticeID)
}

// contentHash digests the alert-relevant fields only; housekeeping
// timestamps and the raw payload stay out so cosmetic drift cannot flip
// it. NAICS codes are pre-sorted by mapRecord
func contentHash(o domain.Opportunity) string {
	return canon.Hash(
		o.Title,
		o.Agency,
		o.SubTier,
		o.Office,
		o.NoticeType,
		o.Status,
		dayString(o.PostedAt),
		stampString(o.ResponseDeadline),
		strings.Join(o.NAICSCodes, ","),
		o.SetAside,
		strconv.FormatBool(o.Archived),
	)
}

func mapAward(rec domain.Record, noticeID string) *domain.Award {
	entries := rec.AwardList()
	if len(entries) == 0 {
		return nil
	}
	// the schema keeps one award per notice; the first entry is the
	// primary one in both wire shapes
	e := entries[0]
	a := &domain.Award{
		NoticeID:    noticeID,
		AwardDate:   strings.TrimSpace(e.Date),
		AwardNumber: strings.TrimSpace(e.Number),
		AwardeeName: canon.Clean(e.Awardee.Name),
		AwardeeUEI:  strings.TrimSpace(e.Awardee.UEI),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(e.Amount), 64); err == nil {
		a.AwardAmount = &v
	}
	return a
}

func mapContacts(rec domain.Record, noticeID string) []domain.Contact {
	if len(rec.Contacts) == 0 {
		return nil
	}
	out := make([]domain.Contact, 0, len(rec.Contacts))
	for _, c := range rec.Contacts {
		out = append(out, domain.Contact{
			NoticeID: noticeID,
			Kind:     strings.TrimSpace(c.Type),
			FullName: canon.Clean(c.FullName),
			Email:    strings.TrimSpace(c.Email),
			Phone:    strings.TrimSpace(c.Phone),
			Title:    canon.Clean(c.Title),
		})
	}
	return out
}

func parseDay(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	// timestamps occasionally show up where a date belongs
	if p := parseStamp(s); p != nil {
		u := p.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func parseStamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func stampString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
