package service

import (
	"encoding/base64"
	"encoding/json"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// pageCursor is the decoded paging token. Query pages carry the last
// notice id returned; search pages carry a row offset because rank
// order has no stable key
type pageCursor struct {
	After  string `json:"after,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func encodeCursor(c pageCursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(raw string) (pageCursor, error) {
	if raw == "" {
		return pageCursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return pageCursor{}, perr.Newf(perr.ErrorCodeValidation, "opportunities: malformed cursor")
	}
	var c pageCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return pageCursor{}, perr.Newf(perr.ErrorCodeValidation, "opportunities: malformed cursor")
	}
	if c.Offset < 0 {
		return pageCursor{}, perr.Newf(perr.ErrorCodeValidation, "opportunities: malformed cursor")
	}
	return c, nil
}
