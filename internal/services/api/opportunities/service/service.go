// Package service compiles opportunity queries and assembles record views
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/core/criteria"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/opportunities/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/opportunities/repo"
)

// Service defines the service contract for the opportunities API
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New creates an opportunities service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("opportunities.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("opportunities.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// Query pages records matching the request's criteria tree and filters
func (s *Svc) Query(ctx context.Context, in domain.QueryInput) (domain.QueryResp, error) {
	cur, err := decodeCursor(in.Page.Cursor)
	if err != nil {
		return domain.QueryResp{}, err
	}
	limit := pageLimit(in.Page.Limit)

	candidateSQL, args, err := buildCandidate(in)
	if err != nil {
		return domain.QueryResp{}, err
	}

	rows, err := s.Repo.Select(ctx, candidateSQL, args, cur.After, limit+1)
	if err != nil {
		return domain.QueryResp{}, err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		next = encodeCursor(pageCursor{After: rows[limit-1].NoticeID})
	}
	items := make([]domain.OpportunityRow, 0, len(rows))
	for _, ro := range rows {
		items = append(items, toRow(ro))
	}
	return domain.QueryResp{Items: items, NextCursor: next}, nil
}

// Search ranks records whose description matches a websearch query
func (s *Svc) Search(ctx context.Context, in domain.SearchInput) (domain.SearchResp, error) {
	cur, err := decodeCursor(in.Page.Cursor)
	if err != nil {
		return domain.SearchResp{}, err
	}
	limit := pageLimit(in.Page.Limit)

	hits, err := s.Repo.Search(ctx, in.Query, cur.Offset, limit+1)
	if err != nil {
		return domain.SearchResp{}, err
	}

	next := ""
	if len(hits) > limit {
		hits = hits[:limit]
		next = encodeCursor(pageCursor{Offset: cur.Offset + limit})
	}
	items := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		items = append(items, domain.SearchHit{OpportunityRow: toRow(h.RowOpportunity), Rank: h.Rank})
	}
	return domain.SearchResp{Items: items, NextCursor: next}, nil
}

// Get returns one record with its description, attachments, contacts,
// and award
func (s *Svc) Get(ctx context.Context, noticeID string) (domain.DetailResp, error) {
	ro, ok, err := s.Repo.Head(ctx, noticeID)
	if err != nil {
		return domain.DetailResp{}, err
	}
	if !ok {
		return domain.DetailResp{}, perr.Newf(perr.ErrorCodeNotFound, "opportunities: notice %s not found", noticeID)
	}

	body, _, err := s.Repo.DescriptionFor(ctx, noticeID)
	if err != nil {
		return domain.DetailResp{}, err
	}
	atts, err := s.Repo.AttachmentsFor(ctx, noticeID)
	if err != nil {
		return domain.DetailResp{}, err
	}
	contacts, err := s.Repo.ContactsFor(ctx, noticeID)
	if err != nil {
		return domain.DetailResp{}, err
	}
	award, hasAward, err := s.Repo.AwardFor(ctx, noticeID)
	if err != nil {
		return domain.DetailResp{}, err
	}

	resp := domain.DetailResp{Opportunity: toDetail(ro), Description: body}
	for _, a := range atts {
		resp.Attachments = append(resp.Attachments, toAttachment(a))
	}
	for _, c := range contacts {
		resp.Contacts = append(resp.Contacts, domain.ContactRow{
			Kind:     c.Kind,
			FullName: c.FullName,
			Email:    c.Email,
			Phone:    c.Phone,
			Title:    c.Title,
		})
	}
	if hasAward {
		resp.Award = &domain.AwardRow{
			Date:        award.Date,
			Number:      award.Number,
			Amount:      award.Amount,
			AwardeeName: award.AwardeeName,
			AwardeeUEI:  award.AwardeeUEI,
		}
	}
	return resp, nil
}

// buildCandidate compiles the request's criteria and filters into one
// candidate query. Both present means both must match. Neither present
// returns empty SQL and the caller pages everything
func buildCandidate(in domain.QueryInput) (string, []any, error) {
	var nodes []criteria.Node

	if len(in.Criteria) > 0 && string(in.Criteria) != "null" {
		node, err := criteria.Parse(in.Criteria)
		if err != nil {
			return "", nil, err
		}
		nodes = append(nodes, node)
	}
	if in.Filters != nil {
		if node, ok := filtersNode(*in.Filters); ok {
			nodes = append(nodes, node)
		}
	}

	switch len(nodes) {
	case 0:
		return "", nil, nil
	case 1:
		return criteria.Compile(nodes[0], criteria.Options{})
	default:
		return criteria.Compile(criteria.All{Nodes: nodes}, criteria.Options{})
	}
}

// filtersNode lowers structured filters onto the same field vocabulary
// rule definitions use, so one compiler serves both request shapes
func filtersNode(f domain.Filters) (criteria.Node, bool) {
	var kids []criteria.Node

	in := func(field string, values []string) {
		if len(values) > 0 {
			kids = append(kids, criteria.Clause{Field: field, Op: criteria.OpIn, Values: values})
		}
	}
	in("agency", f.Agencies)
	in("notice_type", f.NoticeTypes)
	in("naics_codes", f.NAICS)
	in("set_aside", f.SetAsides)
	in("status", f.Statuses)

	if f.TitleContains != "" {
		kids = append(kids, criteria.Clause{Field: "title", Op: criteria.OpContains, Value: f.TitleContains})
	}
	if f.PostedFrom != "" || f.PostedTo != "" {
		kids = append(kids, criteria.Clause{
			Field: "posted_at", Op: criteria.OpDateRange, From: f.PostedFrom, To: f.PostedTo,
		})
	}
	if f.DeadlineFrom != "" || f.DeadlineTo != "" {
		kids = append(kids, criteria.Clause{
			Field: "response_deadline", Op: criteria.OpDateRange, From: f.DeadlineFrom, To: f.DeadlineTo,
		})
	}
	if f.Archived != nil {
		kids = append(kids, criteria.Clause{
			Field: "archived", Op: criteria.OpEquals, Value: strconv.FormatBool(*f.Archived),
		})
	}

	if len(kids) == 0 {
		return nil, false
	}
	if len(kids) == 1 {
		return kids[0], true
	}
	return criteria.All{Nodes: kids}, true
}

func pageLimit(n int) int {
	if n <= 0 {
		return 50
	}
	if n > 200 {
		return 200
	}
	return n
}

func toRow(ro repo.RowOpportunity) domain.OpportunityRow {
	return domain.OpportunityRow{
		NoticeID:         ro.NoticeID,
		Title:            ro.Title,
		Agency:           ro.Agency,
		SubTier:          ro.SubTier,
		Office:           ro.Office,
		NoticeType:       ro.NoticeType,
		Status:           ro.Status,
		PostedAt:         fmtDay(ro.PostedAt),
		ResponseDeadline: fmtTime(ro.ResponseDeadline),
		NAICSCodes:       ro.NAICSCodes,
		SetAside:         ro.SetAside,
		Archived:         ro.Archived,
		Version:          ro.Version,
		LastChangedAt:    ro.LastChangedAt.UTC().Format(time.RFC3339),
	}
}

func toDetail(ro repo.RowOpportunity) domain.Detail {
	return domain.Detail{
		OpportunityRow: toRow(ro),
		UpdatedAt:      fmtTime(ro.UpdatedAt),
		ContentHash:    ro.ContentHash,
		FirstSeenAt:    ro.FirstSeenAt.UTC().Format(time.RFC3339),
		LastSeenAt:     ro.LastSeenAt.UTC().Format(time.RFC3339),
	}
}

func toAttachment(a repo.RowAttachment) domain.AttachmentRow {
	return domain.AttachmentRow{
		ID:        a.ID,
		URL:       a.URL,
		Filename:  a.Filename,
		Status:    a.Status,
		SizeBytes: a.SizeBytes,
		SHA256:    a.SHA256,
		FetchedAt: fmtTime(a.FetchedAt),
	}
}

func fmtDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
