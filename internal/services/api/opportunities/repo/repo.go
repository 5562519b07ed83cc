// Package repo provides postgres reads for the opportunities surface
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// Repo is the read surface backing opportunity queries
type Repo interface {
	// Select pages records in notice id order. candidateSQL, when non
	// empty, is a compiled predicate query returning matching notice
	// ids; its args come first and the paging binds continue after them
	Select(ctx context.Context, candidateSQL string, args []any, afterID string, limit int) ([]RowOpportunity, error)

	// Search ranks records whose description matches query, best first
	Search(ctx context.Context, query string, offset, limit int) ([]RowHit, error)

	Head(ctx context.Context, noticeID string) (RowOpportunity, bool, error)
	DescriptionFor(ctx context.Context, noticeID string) (string, bool, error)
	AttachmentsFor(ctx context.Context, noticeID string) ([]RowAttachment, error)
	ContactsFor(ctx context.Context, noticeID string) ([]RowContact, error)
	AwardFor(ctx context.Context, noticeID string) (RowAward, bool, error)
}

// RowOpportunity mirrors one opportunities table row
type RowOpportunity struct {
	NoticeID         string
	Title            string
	Agency           string
	SubTier          string
	Office           string
	NoticeType       string
	Status           string
	PostedAt         *time.Time
	UpdatedAt        *time.Time
	ResponseDeadline *time.Time
	NAICSCodes       []string
	SetAside         string
	Archived         bool
	ContentHash      string
	Version          int
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	LastChangedAt    time.Time
}

// RowHit is a RowOpportunity with its full text rank
type RowHit struct {
	RowOpportunity
	Rank float64
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const opportunityColumns = "o.notice_id, o.title, o.agency, o.sub_tier, o.office," +
	" o.notice_type, o.status, o.posted_at, o.updated_at, o.response_deadline," +
	" o.naics_codes, o.set_aside, o.archived, o.content_hash, o.version," +
	" o.first_seen_at, o.last_seen_at, o.last_changed_at"

func (r *queries) Select(
	ctx context.Context,
	candidateSQL string,
	args []any,
	afterID string,
	limit int,
) ([]RowOpportunity, error) {
	n := len(args)
	sqlText := "SELECT " + opportunityColumns + " FROM opportunities o WHERE "
	if candidateSQL != "" {
		sqlText += "o.notice_id IN (" + candidateSQL + ") AND "
	}
	sqlText += fmt.Sprintf("o.notice_id > $%d ORDER BY o.notice_id LIMIT $%d", n+1, n+2)
	args = append(args, afterID, limit)

	rows, err := r.q.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "opportunities: select")
	}
	defer rows.Close()

	var out []RowOpportunity
	for rows.Next() {
		ro, err := scanOpportunity(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "opportunities: scan row")
		}
		out = append(out, ro)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "opportunities: select")
	}
	return out, nil
}

// scanOpportunity reads the opportunityColumns list from a Row or Rows
func scanOpportunity(row interface{ Scan(dest ...any) error }) (RowOpportunity, error) {
	var ro RowOpportunity
	err := row.Scan(
		&ro.NoticeID, &ro.Title, &ro.Agency, &ro.SubTier, &ro.Office,
		&ro.NoticeType, &ro.Status, &ro.PostedAt, &ro.UpdatedAt, &ro.ResponseDeadline,
		&ro.NAICSCodes, &ro.SetAside, &ro.Archived, &ro.ContentHash, &ro.Version,
		&ro.FirstSeenAt, &ro.LastSeenAt, &ro.LastChangedAt,
	)
	return ro, err
}
