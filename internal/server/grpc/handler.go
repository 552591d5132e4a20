package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/services"
)

func toCopy(c *models.Copy, now time.Time) *library.Copy {
	out := &library.Copy{
		ID:       c.ID,
		Title:    c.Title,
		Author:   c.Author,
		ISBN:     c.ISBN,
		IssuedAt: c.IssuedAt,
		DueAt:    c.DueAt,
		Status:   string(c.Status(now)),
	}
	if c.HolderID != nil {
		out.HolderID = *c.HolderID
	}
	return out
}

func toCopies(cs []*models.Copy, now time.Time) []*library.Copy {
	out := make([]*library.Copy, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCopy(c, now))
	}
	return out
}

func (s *GRPCServer) caller(ctx context.Context) (*auth.HolderClaims, error) {
	c, ok := claimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "holder is not set in context")
	}
	return c, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *library.RegisterRequest) (*library.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	result, err := s.credentials.Register(ctx, req.Login, req.DisplayName, req.Secret)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "login", result.Login)
	return &library.RegisterResponse{HolderID: result.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *library.LoginRequest) (*library.TokenResponse, error) {

	if s.limiter != nil && !s.limiter.Allow(ctx, req.Login) {
		return nil, status.Error(codes.ResourceExhausted, "too many login attempts")
	}

	tokens, err := s.credentials.Authenticate(ctx, req.Login, req.Secret)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *library.RefreshRequest) (*library.TokenResponse, error) {

	tokens, err := s.rotation.Rotate(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *library.LogoutRequest) (*library.LogoutResponse, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.rotation.Revoke(ctx, c.HolderID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &library.LogoutResponse{}, nil
}

func (s *GRPCServer) Checkout(ctx context.Context, req *library.CheckoutRequest) (*library.CopyResponse, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	holderID := c.HolderID
	if req.HolderID != "" && req.HolderID != c.HolderID {
		if c.Role != common.RoleAdmin {
			return nil, status.Error(codes.PermissionDenied, "cannot check out on behalf of another holder")
		}
		holderID = req.HolderID
	}

	cp, err := s.circulation.Checkout(ctx, req.CopyID, holderID, time.Duration(req.LoanPeriodSeconds)*time.Second)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.CopyResponse{Copy: toCopy(cp, s.clock.Now())}, nil
}

func (s *GRPCServer) Return(ctx context.Context, req *library.ReturnRequest) (*library.CopyResponse, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var cp *models.Copy
	if c.Role == common.RoleAdmin {
		cp, err = s.circulation.Return(ctx, req.CopyID)
	} else {
		// ownership is part of the conditional write
		cp, err = s.circulation.ReturnAs(ctx, req.CopyID, c.HolderID)
	}
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.CopyResponse{Copy: toCopy(cp, s.clock.Now())}, nil
}

func (s *GRPCServer) GetCopy(ctx context.Context, req *library.GetCopyRequest) (*library.GetCopyResponse, error) {

	cp, err := s.circulation.GetCopy(ctx, req.CopyID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &library.GetCopyResponse{Copy: toCopy(cp, s.clock.Now())}
	if s.covers != nil {
		url, err := s.covers.DownloadURL(ctx, cp.ID)
		if err != nil {
			// the copy is still useful without its cover
			s.logger.Warn(ctx, "cover url unavailable", "copy_id", cp.ID, "error", err)
		} else {
			resp.CoverURL = url
		}
	}
	return resp, nil
}

func (s *GRPCServer) ListAvailable(ctx context.Context, req *library.ListRequest) (*library.ListCopiesResponse, error) {

	cs, total, err := s.circulation.ListAvailable(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.ListCopiesResponse{Copies: toCopies(cs, s.clock.Now()), Total: total}, nil
}

func (s *GRPCServer) ListMine(ctx context.Context, req *library.ListRequest) (*library.ListCopiesResponse, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	cs, total, err := s.circulation.ListByHolder(ctx, c.HolderID, req.Page, req.PageSize)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.ListCopiesResponse{Copies: toCopies(cs, s.clock.Now()), Total: total}, nil
}

func (s *GRPCServer) SearchCopies(ctx context.Context, req *library.SearchCopiesRequest) (*library.ListCopiesResponse, error) {

	filter := copies.SearchFilter{Title: req.Title, Author: req.Author, ISBN: req.ISBN}
	cs, total, err := s.circulation.Search(ctx, filter, req.Page, req.PageSize)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.ListCopiesResponse{Copies: toCopies(cs, s.clock.Now()), Total: total}, nil
}

func (s *GRPCServer) RegisterCopy(ctx context.Context, req *library.RegisterCopyRequest) (*library.CopyResponse, error) {

	cp, err := s.circulation.RegisterCopy(ctx, services.NewCopy{Title: req.Title, Author: req.Author, ISBN: req.ISBN})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.CopyResponse{Copy: toCopy(cp, s.clock.Now())}, nil
}

func (s *GRPCServer) ReclaimOverdue(ctx context.Context, req *library.ReclaimOverdueRequest) (*library.ReclaimOverdueResponse, error) {

	sum, err := s.reclaimer.RunOnce(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.ReclaimOverdueResponse{
		Scanned:   sum.Scanned,
		Reclaimed: sum.Reclaimed,
		Skipped:   sum.Skipped,
		Failed:    sum.Failed,
	}, nil
}

func (s *GRPCServer) SweepCredentials(ctx context.Context, req *library.SweepCredentialsRequest) (*library.SweepCredentialsResponse, error) {

	sum, err := s.rotation.SweepExpired(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.SweepCredentialsResponse{
		Scanned: sum.Scanned,
		Deleted: sum.Deleted,
		Skipped: sum.Skipped,
		Failed:  sum.Failed,
	}, nil
}

func (s *GRPCServer) CoverUploadURL(ctx context.Context, req *library.CoverUploadURLRequest) (*library.CoverUploadURLResponse, error) {
	if s.covers == nil {
		return nil, status.Error(codes.Unimplemented, "cover storage is not configured")
	}

	key, url, err := s.covers.UploadURL(ctx, req.CopyID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &library.CoverUploadURLResponse{Key: key, URL: url}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *library.PingRequest) (*library.PingResponse, error) {

	return &library.PingResponse{Status: "OK"}, nil

}
