package appointment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// -- Mock Provider --

// fakeStore answers the two query shapes buildSelect produces by evaluating
// the same predicates over an in-memory table.
type fakeStore struct {
	now     time.Time
	records []Appointment

	acquireErr error
	queryPanic any
	scanErr    error

	acquired int
	released int
	queries  []string
}

func (s *fakeStore) Acquire(ctx context.Context) (Conn, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return &fakeConn{store: s}, nil
}

type fakeConn struct {
	store *fakeStore
}

func (c *fakeConn) Release() {
	c.store.released++
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s := c.store
	s.queries = append(s.queries, sql)
	if s.queryPanic != nil {
		panic(s.queryPanic)
	}
	if s.scanErr != nil {
		return &fakeRow{err: s.scanErr}
	}

	for i := range s.records {
		r := s.records[i]
		switch {
		case strings.Contains(sql, "access_token = $1"):
			if r.AccessToken != args[0].(string) || !r.TokenExpireAt.After(s.now) {
				continue
			}
			if strings.Contains(sql, "id = $2") && r.ID != args[1].(int64) {
				continue
			}
		case strings.Contains(sql, "username = $1"):
			if r.Username != args[0].(string) || r.IDCard != args[1].(string) {
				continue
			}
		default:
			continue
		}
		return &fakeRow{appt: &r}
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

type fakeRow struct {
	appt *Appointment
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	a := r.appt
	*dest[0].(*int64) = a.ID
	*dest[1].(*string) = a.Username
	*dest[2].(*string) = a.IDCard
	*dest[3].(**string) = a.Department
	if a.Date != nil {
		*dest[4].(*pgtype.Date) = pgtype.Date{Time: *a.Date, Valid: true}
	}
	if a.Time != nil {
		*dest[5].(*pgtype.Time) = pgtype.Time{Microseconds: a.Time.Microseconds(), Valid: true}
	}
	*dest[6].(*string) = a.AccessToken
	*dest[7].(*time.Time) = a.TokenExpireAt
	return nil
}

// -- Helpers --

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func newTestStore() *fakeStore {
	now := time.Now()
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	clock := 9*time.Hour + 30*time.Minute

	return &fakeStore{
		now: now,
		records: []Appointment{
			{
				ID:            1,
				Username:      "李四",
				IDCard:        "11010119900101123X",
				Department:    strPtr("内科"),
				Date:          &date,
				Time:          &clock,
				AccessToken:   "ABC123",
				TokenExpireAt: now.Add(time.Hour),
			},
			{
				ID:            2,
				Username:      "王五",
				IDCard:        "110101198502023456",
				AccessToken:   "EXPIRED1",
				TokenExpireAt: now.Add(-time.Hour),
			},
			{
				ID:            3,
				Username:      "赵六",
				IDCard:        "110101197703034567",
				AccessToken:   "XYZ789",
				TokenExpireAt: now.Add(2 * time.Hour),
			},
		},
	}
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, zerolog.Nop())
}

// -- Tests --

func TestLookup_TokenFound(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), TokenQuery{Token: "ABC123"})

	found, ok := res.(Found)
	if !ok {
		t.Fatalf("expected Found, got %T", res)
	}
	if found.Appointment.ID != 1 {
		t.Errorf("expected appointment 1, got %d", found.Appointment.ID)
	}
	if found.Appointment.Department == nil || *found.Appointment.Department != "内科" {
		t.Errorf("expected department 内科, got %v", found.Appointment.Department)
	}
	if found.Appointment.Time == nil || *found.Appointment.Time != 9*time.Hour+30*time.Minute {
		t.Errorf("expected time 9:30, got %v", found.Appointment.Time)
	}
	if store.acquired != 1 || store.released != 1 {
		t.Errorf("expected 1 acquire and 1 release, got %d and %d", store.acquired, store.released)
	}
}

func TestLookup_NullableColumns(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), TokenQuery{Token: "XYZ789"})

	found, ok := res.(Found)
	if !ok {
		t.Fatalf("expected Found, got %T", res)
	}
	if found.Appointment.Department != nil || found.Appointment.Date != nil || found.Appointment.Time != nil {
		t.Errorf("expected null department, date and time, got %+v", found.Appointment)
	}
}

func TestLookup_ExpiredToken(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), TokenQuery{Token: "EXPIRED1"})

	if _, ok := res.(NotFound); !ok {
		t.Errorf("expected NotFound, got %T", res)
	}
	if store.released != 1 {
		t.Errorf("expected 1 release, got %d", store.released)
	}
}

func TestLookup_TokenWithAppointmentID(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "matching id", id: 1, want: true},
		{name: "id of another appointment", id: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			svc := newTestService(store)

			res := svc.Lookup(context.Background(), TokenQuery{Token: "ABC123", AppointmentID: int64Ptr(tt.id)})

			_, found := res.(Found)
			if found != tt.want {
				t.Errorf("expected found=%v, got %T", tt.want, res)
			}
		})
	}
}

func TestLookup_Identity(t *testing.T) {
	tests := []struct {
		name     string
		username string
		idCard   string
		wantID   int64
	}{
		{name: "matching identity", username: "李四", idCard: "11010119900101123X", wantID: 1},
		{name: "expired token does not block identity lookup", username: "王五", idCard: "110101198502023456", wantID: 2},
		{name: "unknown identity", username: "张三", idCard: "110101199001011234"},
		{name: "name matches but id card differs", username: "李四", idCard: "110101199001011234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			svc := newTestService(store)

			res := svc.Lookup(context.Background(), IdentityQuery{Username: tt.username, IDCard: tt.idCard})

			if tt.wantID == 0 {
				if _, ok := res.(NotFound); !ok {
					t.Errorf("expected NotFound, got %T", res)
				}
				return
			}
			found, ok := res.(Found)
			if !ok {
				t.Fatalf("expected Found, got %T", res)
			}
			if found.Appointment.ID != tt.wantID {
				t.Errorf("expected appointment %d, got %d", tt.wantID, found.Appointment.ID)
			}
		})
	}
}

func TestLookup_InsufficientInput(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{name: "nil query", query: nil},
		{name: "empty token", query: TokenQuery{}},
		{name: "username only", query: IdentityQuery{Username: "张三"}},
		{name: "id card only", query: IdentityQuery{IDCard: "110101199001011234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			svc := newTestService(store)

			res := svc.Lookup(context.Background(), tt.query)

			if _, ok := res.(InsufficientInput); !ok {
				t.Errorf("expected InsufficientInput, got %T", res)
			}
			if store.acquired != 0 {
				t.Errorf("expected no acquisitions, got %d", store.acquired)
			}
		})
	}
}

func TestLookup_AcquireError(t *testing.T) {
	store := newTestStore()
	store.acquireErr = errors.New("dial tcp 127.0.0.1:5432: connection refused")
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), TokenQuery{Token: "ABC123"})

	e, ok := res.(Error)
	if !ok {
		t.Fatalf("expected Error, got %T", res)
	}
	if !errors.Is(e.Err, store.acquireErr) {
		t.Errorf("expected wrapped acquire error, got %v", e.Err)
	}
	if !strings.Contains(e.Message(), "connection refused") {
		t.Errorf("expected message to describe the fault, got %q", e.Message())
	}
	if store.released != 0 {
		t.Errorf("expected no release, got %d", store.released)
	}
}

func TestLookup_QueryError(t *testing.T) {
	store := newTestStore()
	store.scanErr = errors.New("conn closed")
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), IdentityQuery{Username: "李四", IDCard: "11010119900101123X"})

	if _, ok := res.(Error); !ok {
		t.Fatalf("expected Error, got %T", res)
	}
	if store.acquired != 1 || store.released != 1 {
		t.Errorf("expected 1 acquire and 1 release, got %d and %d", store.acquired, store.released)
	}
}

func TestLookup_PanicReleasesConnection(t *testing.T) {
	store := newTestStore()
	store.queryPanic = "driver exploded"
	svc := newTestService(store)

	res := svc.Lookup(context.Background(), TokenQuery{Token: "ABC123"})

	e, ok := res.(Error)
	if !ok {
		t.Fatalf("expected Error, got %T", res)
	}
	if !errors.Is(e.Err, ErrLookupPanic) {
		t.Errorf("expected ErrLookupPanic, got %v", e.Err)
	}
	if store.released != 1 {
		t.Errorf("expected 1 release, got %d", store.released)
	}
}

func TestLookup_SingleQueryPerCall(t *testing.T) {
	store := newTestStore()
	svc := newTestService(store)

	svc.Lookup(context.Background(), TokenQuery{Token: "ABC123"})
	svc.Lookup(context.Background(), IdentityQuery{Username: "张三", IDCard: "110101199001011234"})

	if len(store.queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(store.queries))
	}
	for _, q := range store.queries {
		if !strings.HasSuffix(q, "LIMIT 1") {
			t.Errorf("expected single-row query, got %q", q)
		}
	}
}
