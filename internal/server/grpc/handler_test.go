package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/services"
)

// ---- fakes ----

type fakeCirculation struct {
	copy   *models.Copy
	copies []*models.Copy
	total  int
	err    error
	getErr error

	lastCopyID, lastHolder string
	lastPeriod             time.Duration
	returned               bool
	returnedAs             string
	lastFilter             copies.SearchFilter
}

func (f *fakeCirculation) Checkout(ctx context.Context, copyID, holderID string, p time.Duration) (*models.Copy, error) {
	f.lastCopyID, f.lastHolder, f.lastPeriod = copyID, holderID, p
	return f.copy, f.err
}
func (f *fakeCirculation) Return(ctx context.Context, copyID string) (*models.Copy, error) {
	f.returned = true
	return f.copy, f.err
}
func (f *fakeCirculation) ReturnAs(ctx context.Context, copyID, holderID string) (*models.Copy, error) {
	f.returnedAs = holderID
	return f.copy, f.err
}
func (f *fakeCirculation) GetCopy(ctx context.Context, copyID string) (*models.Copy, error) {
	return f.copy, f.getErr
}
func (f *fakeCirculation) ListAvailable(ctx context.Context, page, pageSize int) ([]*models.Copy, int, error) {
	return f.copies, f.total, f.err
}
func (f *fakeCirculation) ListByHolder(ctx context.Context, holderID string, page, pageSize int) ([]*models.Copy, int, error) {
	f.lastHolder = holderID
	return f.copies, f.total, f.err
}
func (f *fakeCirculation) Search(ctx context.Context, filter copies.SearchFilter, page, pageSize int) ([]*models.Copy, int, error) {
	f.lastFilter = filter
	return f.copies, f.total, f.err
}
func (f *fakeCirculation) RegisterCopy(ctx context.Context, nc services.NewCopy) (*models.Copy, error) {
	return f.copy, f.err
}

type fakeCredentials struct {
	pair     *services.TokenPair
	holder   *models.Holder
	claims   *auth.HolderClaims
	err      error
	parseErr error
}

func (f *fakeCredentials) Authenticate(ctx context.Context, login, secret string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeCredentials) Register(ctx context.Context, login, displayName, secret string) (*models.Holder, error) {
	return f.holder, f.err
}
func (f *fakeCredentials) ParseAccessToken(token string) (*auth.HolderClaims, error) {
	return f.claims, f.parseErr
}

type fakeRotation struct {
	pair    *services.TokenPair
	sweep   services.SweepSummary
	err     error
	revoked string
}

func (f *fakeRotation) Rotate(ctx context.Context, presented string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeRotation) Revoke(ctx context.Context, holderID string) error {
	f.revoked = holderID
	return f.err
}
func (f *fakeRotation) SweepExpired(ctx context.Context) (services.SweepSummary, error) {
	return f.sweep, f.err
}

type fakeReclaimer struct {
	sum services.ReclaimSummary
	err error
}

func (f *fakeReclaimer) RunOnce(ctx context.Context) (services.ReclaimSummary, error) {
	return f.sum, f.err
}

type fakeCovers struct {
	url string
	err error
}

func (f *fakeCovers) UploadURL(ctx context.Context, copyID string) (string, string, error) {
	return "covers/" + copyID, f.url, f.err
}
func (f *fakeCovers) DownloadURL(ctx context.Context, copyID string) (string, error) {
	return f.url, f.err
}

type fakeLimiter struct{ allow bool }

func (f fakeLimiter) Allow(ctx context.Context, key string) bool { return f.allow }

// ---- helpers ----

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newServer(d Deps) *GRPCServer {
	if d.Circulation == nil {
		d.Circulation = &fakeCirculation{}
	}
	if d.Credentials == nil {
		d.Credentials = &fakeCredentials{}
	}
	if d.Rotation == nil {
		d.Rotation = &fakeRotation{}
	}
	if d.Reclaimer == nil {
		d.Reclaimer = &fakeReclaimer{}
	}
	d.Clock = clock.NewFixed(now)
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), d)
}

func asUser(id string) context.Context {
	return withClaims(context.Background(), &auth.HolderClaims{HolderID: id, DisplayName: id, Role: common.RoleUser})
}

func asAdmin(id string) context.Context {
	return withClaims(context.Background(), &auth.HolderClaims{HolderID: id, DisplayName: id, Role: common.RoleAdmin})
}

func loaned(id, holder string, due time.Time) *models.Copy {
	return &models.Copy{ID: id, Title: "T", HolderID: &holder, IssuedAt: &now, DueAt: &due}
}

// ---- tests ----

func TestPing_OK(t *testing.T) {
	s := newServer(Deps{})
	resp, err := s.Ping(context.Background(), &library.PingRequest{})
	if err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if resp.Status != "OK" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
}

func TestLogin(t *testing.T) {
	s := newServer(Deps{Credentials: &fakeCredentials{pair: &services.TokenPair{AccessToken: "A", RefreshToken: "R"}}})
	resp, err := s.Login(context.Background(), &library.LoginRequest{Login: "u", Secret: "p"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if resp.AccessToken != "A" || resp.RefreshToken != "R" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}

	s = newServer(Deps{Credentials: &fakeCredentials{err: common.ErrorInvalidCredentials}})
	_, err = s.Login(context.Background(), &library.LoginRequest{Login: "u"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", status.Code(err))
	}

	s = newServer(Deps{Credentials: &fakeCredentials{err: errors.New("boom")}})
	_, err = s.Login(context.Background(), &library.LoginRequest{Login: "u"})
	if status.Code(err) != codes.Internal {
		t.Fatalf("want Internal, got %v", status.Code(err))
	}
}

func TestLogin_RateLimited(t *testing.T) {
	creds := &fakeCredentials{pair: &services.TokenPair{AccessToken: "A", RefreshToken: "R"}}
	s := newServer(Deps{Credentials: creds, Limiter: fakeLimiter{allow: false}})
	_, err := s.Login(context.Background(), &library.LoginRequest{Login: "u", Secret: "p"})
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("want ResourceExhausted, got %v", status.Code(err))
	}
}

func TestRefresh(t *testing.T) {
	s := newServer(Deps{Rotation: &fakeRotation{pair: &services.TokenPair{AccessToken: "a", RefreshToken: "r"}}})
	resp, err := s.Refresh(context.Background(), &library.RefreshRequest{RefreshToken: "r0"})
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if resp.AccessToken != "a" || resp.RefreshToken != "r" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}

	s = newServer(Deps{Rotation: &fakeRotation{err: common.ErrRefreshTokenExpired}})
	_, err = s.Refresh(context.Background(), &library.RefreshRequest{RefreshToken: "r0"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", status.Code(err))
	}
}

func TestRegister(t *testing.T) {
	s := newServer(Deps{Credentials: &fakeCredentials{holder: &models.Holder{ID: "42", Login: "u"}}})
	resp, err := s.Register(context.Background(), &library.RegisterRequest{Login: "u", Secret: "p"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if resp.HolderID != "42" {
		t.Fatalf("unexpected holder id: %q", resp.HolderID)
	}

	s = newServer(Deps{Credentials: &fakeCredentials{err: common.ErrorAlreadyExists}})
	_, err = s.Register(context.Background(), &library.RegisterRequest{Login: "u", Secret: "p"})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("want AlreadyExists, got %v", status.Code(err))
	}
}

func TestLogout_RevokesCaller(t *testing.T) {
	rot := &fakeRotation{}
	s := newServer(Deps{Rotation: rot})
	if _, err := s.Logout(asUser("h1"), &library.LogoutRequest{}); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if rot.revoked != "h1" {
		t.Fatalf("revoked %q, want h1", rot.revoked)
	}

	_, err := s.Logout(context.Background(), &library.LogoutRequest{})
	if status.Code(err) != codes.Internal {
		t.Fatalf("want Internal without claims, got %v", status.Code(err))
	}
}

func TestCheckout(t *testing.T) {
	due := now.Add(7 * 24 * time.Hour)
	circ := &fakeCirculation{copy: loaned("c1", "h1", due)}
	s := newServer(Deps{Circulation: circ})

	resp, err := s.Checkout(asUser("h1"), &library.CheckoutRequest{CopyID: "c1", LoanPeriodSeconds: 3600})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if circ.lastHolder != "h1" || circ.lastPeriod != time.Hour {
		t.Fatalf("unexpected call: holder=%q period=%v", circ.lastHolder, circ.lastPeriod)
	}
	if resp.Copy.HolderID != "h1" || !resp.Copy.DueAt.Equal(due) || resp.Copy.Status != string(models.StatusOnLoan) {
		t.Fatalf("unexpected copy: %+v", resp.Copy)
	}

	_, err = s.Checkout(asUser("h1"), &library.CheckoutRequest{CopyID: "c1", HolderID: "h2"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("want PermissionDenied, got %v", status.Code(err))
	}

	if _, err := s.Checkout(asAdmin("root"), &library.CheckoutRequest{CopyID: "c1", HolderID: "h2"}); err != nil {
		t.Fatalf("admin Checkout error: %v", err)
	}
	if circ.lastHolder != "h2" {
		t.Fatalf("admin checkout went to %q", circ.lastHolder)
	}
}

func TestCheckout_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{common.ErrAlreadyLoaned, codes.FailedPrecondition},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrorValidation, codes.InvalidArgument},
		{common.ErrTransient, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		s := newServer(Deps{Circulation: &fakeCirculation{err: tc.err}})
		_, err := s.Checkout(asUser("h1"), &library.CheckoutRequest{CopyID: "c1"})
		if status.Code(err) != tc.want {
			t.Fatalf("%v: want %v, got %v", tc.err, tc.want, status.Code(err))
		}
	}
}

func TestReturn_OwnershipCheck(t *testing.T) {
	circ := &fakeCirculation{err: common.ErrorForbidden}
	s := newServer(Deps{Circulation: circ})

	_, err := s.Return(asUser("h1"), &library.ReturnRequest{CopyID: "c1"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("want PermissionDenied, got %v", status.Code(err))
	}
	if circ.returnedAs != "h1" {
		t.Fatalf("ReturnAs holder = %q, want h1", circ.returnedAs)
	}
	if circ.returned {
		t.Fatal("unconditional Return must not be used for holders")
	}

	circ = &fakeCirculation{copy: &models.Copy{ID: "c1", Title: "T"}}
	s = newServer(Deps{Circulation: circ})
	if _, err := s.Return(asAdmin("root"), &library.ReturnRequest{CopyID: "c1"}); err != nil {
		t.Fatalf("admin Return error: %v", err)
	}
	if !circ.returned || circ.returnedAs != "" {
		t.Fatalf("admin must use Return: returned=%v returnedAs=%q", circ.returned, circ.returnedAs)
	}

	s = newServer(Deps{Circulation: &fakeCirculation{err: common.ErrorNotFound}})
	_, err = s.Return(asUser("h1"), &library.ReturnRequest{CopyID: "nope"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", status.Code(err))
	}
}

func TestListMine_UsesCaller(t *testing.T) {
	circ := &fakeCirculation{copies: []*models.Copy{loaned("c1", "h1", now.Add(-time.Hour))}, total: 1}
	s := newServer(Deps{Circulation: circ})

	resp, err := s.ListMine(asUser("h1"), &library.ListRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListMine error: %v", err)
	}
	if circ.lastHolder != "h1" || resp.Total != 1 || len(resp.Copies) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Copies[0].Status != string(models.StatusOverdue) {
		t.Fatalf("status = %q, want overdue", resp.Copies[0].Status)
	}
}

func TestSearchCopies(t *testing.T) {
	circ := &fakeCirculation{copies: []*models.Copy{loaned("c1", "h2", now.Add(time.Hour))}, total: 4}
	s := newServer(Deps{Circulation: circ})

	resp, err := s.SearchCopies(asUser("h1"), &library.SearchCopiesRequest{Title: "dune", ISBN: "42", Page: 2, PageSize: 1})
	if err != nil {
		t.Fatalf("SearchCopies error: %v", err)
	}
	if circ.lastFilter != (copies.SearchFilter{Title: "dune", ISBN: "42"}) {
		t.Fatalf("unexpected filter: %+v", circ.lastFilter)
	}
	if resp.Total != 4 || len(resp.Copies) != 1 || resp.Copies[0].Status != string(models.StatusOnLoan) {
		t.Fatalf("unexpected response: %+v", resp)
	}

	s = newServer(Deps{Circulation: &fakeCirculation{err: common.ErrorValidation}})
	_, err = s.SearchCopies(asUser("h1"), &library.SearchCopiesRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument, got %v", status.Code(err))
	}
}

func TestGetCopy_CoverURLIsOptional(t *testing.T) {
	circ := &fakeCirculation{copy: &models.Copy{ID: "c1", Title: "T"}}

	s := newServer(Deps{Circulation: circ, Covers: &fakeCovers{url: "http://s3/c1"}})
	resp, err := s.GetCopy(asUser("h1"), &library.GetCopyRequest{CopyID: "c1"})
	if err != nil {
		t.Fatalf("GetCopy error: %v", err)
	}
	if resp.CoverURL != "http://s3/c1" || resp.Copy.Status != string(models.StatusAvailable) {
		t.Fatalf("unexpected response: %+v", resp)
	}

	s = newServer(Deps{Circulation: circ, Covers: &fakeCovers{err: errors.New("s3 down")}})
	resp, err = s.GetCopy(asUser("h1"), &library.GetCopyRequest{CopyID: "c1"})
	if err != nil {
		t.Fatalf("GetCopy error: %v", err)
	}
	if resp.CoverURL != "" {
		t.Fatalf("unexpected cover url %q", resp.CoverURL)
	}
}

func TestAdminOperations(t *testing.T) {
	s := newServer(Deps{
		Circulation: &fakeCirculation{copy: &models.Copy{ID: "c9", Title: "New"}},
		Reclaimer:   &fakeReclaimer{sum: services.ReclaimSummary{Scanned: 3, Reclaimed: 2, Failed: 1}},
		Rotation:    &fakeRotation{sweep: services.SweepSummary{Scanned: 4, Deleted: 4}},
		Covers:      &fakeCovers{url: "http://s3/put"},
	})
	ctx := asAdmin("root")

	cp, err := s.RegisterCopy(ctx, &library.RegisterCopyRequest{Title: "New"})
	if err != nil || cp.Copy.ID != "c9" {
		t.Fatalf("RegisterCopy: %+v, %v", cp, err)
	}

	rec, err := s.ReclaimOverdue(ctx, &library.ReclaimOverdueRequest{})
	if err != nil || rec.Reclaimed != 2 || rec.Failed != 1 || rec.Scanned != 3 {
		t.Fatalf("ReclaimOverdue: %+v, %v", rec, err)
	}

	sw, err := s.SweepCredentials(ctx, &library.SweepCredentialsRequest{})
	if err != nil || sw.Deleted != 4 {
		t.Fatalf("SweepCredentials: %+v, %v", sw, err)
	}

	up, err := s.CoverUploadURL(ctx, &library.CoverUploadURLRequest{CopyID: "c9"})
	if err != nil || up.Key != "covers/c9" || up.URL != "http://s3/put" {
		t.Fatalf("CoverUploadURL: %+v, %v", up, err)
	}

	s = newServer(Deps{})
	_, err = s.CoverUploadURL(ctx, &library.CoverUploadURLRequest{CopyID: "c9"})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("want Unimplemented, got %v", status.Code(err))
	}
}
