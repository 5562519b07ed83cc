package repo

import (
	"context"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// Search runs a websearch query against the descriptions index. The
// tsvector expression matches the gin index expression exactly so the
// planner can use it
func (r *queries) Search(ctx context.Context, query string, offset, limit int) ([]RowHit, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+opportunityColumns+`,
			ts_rank(to_tsvector('english', d.body), q) AS rank
		FROM opportunities o
		JOIN descriptions d ON d.notice_id = o.notice_id,
			websearch_to_tsquery('english', $1) q
		WHERE to_tsvector('english', d.body) @@ q
		ORDER BY rank DESC, o.notice_id
		OFFSET $2 LIMIT $3
	`, query, offset, limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: search %q", query)
	}
	defer rows.Close()

	var out []RowHit
	for rows.Next() {
		var h RowHit
		err := rows.Scan(
			&h.NoticeID, &h.Title, &h.Agency, &h.SubTier, &h.Office,
			&h.NoticeType, &h.Status, &h.PostedAt, &h.UpdatedAt, &h.ResponseDeadline,
			&h.NAICSCodes, &h.SetAside, &h.Archived, &h.ContentHash, &h.Version,
			&h.FirstSeenAt, &h.LastSeenAt, &h.LastChangedAt,
			&h.Rank,
		)
		if err != nil {
			return nil, perr.FromPostgres(err, "opportunities: scan hit")
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: search %q", query)
	}
	return out, nil
}
