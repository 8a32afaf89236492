package appointment

import (
	sq "github.com/Masterminds/squirrel"
)

const tableName = "appointment"

var selectColumns = []string{
	"id",
	"username",
	"id_card",
	"department",
	"date",
	"time",
	"access_token",
	"token_expire_at",
}

// Query selects how an appointment is located. It is either a TokenQuery or
// an IdentityQuery; a nil Query means the caller supplied nothing usable.
type Query interface {
	strategy() string
	valid() bool
	where(b sq.SelectBuilder) sq.SelectBuilder
}

// TokenQuery matches on an unexpired access token, optionally narrowed to a
// single appointment id.
type TokenQuery struct {
	Token         string
	AppointmentID *int64
}

func (q TokenQuery) strategy() string { return "token" }

func (q TokenQuery) valid() bool { return q.Token != "" }

func (q TokenQuery) where(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.Where(sq.Eq{"access_token": q.Token}).
		Where("token_expire_at > NOW()")
	if q.AppointmentID != nil {
		b = b.Where(sq.Eq{"id": *q.AppointmentID})
	}
	return b
}

// IdentityQuery matches on the holder's name and identity card number.
// No expiry check applies.
type IdentityQuery struct {
	Username string
	IDCard   string
}

func (q IdentityQuery) strategy() string { return "identity" }

func (q IdentityQuery) valid() bool { return q.Username != "" && q.IDCard != "" }

func (q IdentityQuery) where(b sq.SelectBuilder) sq.SelectBuilder {
	return b.Where(sq.Eq{"username": q.Username}).
		Where(sq.Eq{"id_card": q.IDCard})
}

// Params is the loose input shape accepted by the CLI and HTTP surfaces.
// Empty strings and a zero appointment id count as absent.
type Params struct {
	Username      string
	IDCard        string
	AppointmentID *int64
	AccessToken   string
}

// Query picks the lookup strategy. An access token always wins; the
// appointment id only narrows a token lookup and is ignored otherwise.
func (p Params) Query() (Query, bool) {
	if p.AccessToken != "" {
		q := TokenQuery{Token: p.AccessToken}
		if p.AppointmentID != nil && *p.AppointmentID != 0 {
			id := *p.AppointmentID
			q.AppointmentID = &id
		}
		return q, true
	}
	if p.Username != "" && p.IDCard != "" {
		return IdentityQuery{Username: p.Username, IDCard: p.IDCard}, true
	}
	return nil, false
}

// buildSelect renders the single-row SELECT for q. No ORDER BY: when several
// rows match, the store picks which one comes back.
func buildSelect(builder sq.StatementBuilderType, q Query) (string, []any, error) {
	b := builder.Select(selectColumns...).From(tableName)
	return q.where(b).Limit(1).ToSql()
}
