package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/common"
)

// Tokens is the credential pair held by the client.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      library.LibraryServiceClient

	mu     sync.Mutex
	tokens Tokens
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	tokens := s.Tokens()
	err := invoker(withAccessToken(ctx, tokens.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if tokens.RefreshToken == "" {
		return err
	}

	refreshed, rerr := s.client.Refresh(ctx, &library.RefreshRequest{RefreshToken: tokens.RefreshToken})
	if rerr != nil {
		return rerr
	}
	s.SetTokens(Tokens{AccessToken: refreshed.AccessToken, RefreshToken: refreshed.RefreshToken})

	// tokens refreshed, retry once with the new access token
	return invoker(withAccessToken(ctx, refreshed.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a client for endpointURL. The connection is
// established lazily on the first call.
func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = library.NewLibraryServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *GRPCClient) SetTokens(t Tokens) {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
}

func (s *GRPCClient) Login(ctx context.Context, login, secret string) (Tokens, error) {

	resp, err := s.client.Login(ctx, &library.LoginRequest{Login: login, Secret: secret})
	if err != nil {
		return Tokens{}, s.mapError(err)
	}

	t := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	s.SetTokens(t)
	return t, nil
}

// Refresh rotates the held refresh token.
func (s *GRPCClient) Refresh(ctx context.Context) (Tokens, error) {

	resp, err := s.client.Refresh(ctx, &library.RefreshRequest{RefreshToken: s.Tokens().RefreshToken})
	if err != nil {
		return Tokens{}, s.mapError(err)
	}

	t := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	s.SetTokens(t)
	return t, nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	if _, err := s.client.Logout(ctx, &library.LogoutRequest{}); err != nil {
		return s.mapError(err)
	}
	s.SetTokens(Tokens{})
	return nil
}

// Checkout lends copyID to holderID (empty means the caller). A zero
// loanPeriod uses the server default.
func (s *GRPCClient) Checkout(ctx context.Context, copyID, holderID string, loanPeriod time.Duration) (*library.Copy, error) {

	req := &library.CheckoutRequest{CopyID: copyID, HolderID: holderID, LoanPeriodSeconds: int64(loanPeriod / time.Second)}

	resp, err := s.client.Checkout(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Copy, nil
}

func (s *GRPCClient) Return(ctx context.Context, copyID string) (*library.Copy, error) {

	resp, err := s.client.Return(ctx, &library.ReturnRequest{CopyID: copyID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Copy, nil
}

func (s *GRPCClient) Register(ctx context.Context, login, displayName, secret string) (string, error) {

	resp, err := s.client.Register(ctx, &library.RegisterRequest{Login: login, DisplayName: displayName, Secret: secret})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.HolderID, nil
}

// GetCopy returns the copy and, when covers are configured, a short-lived
// download URL for its cover.
func (s *GRPCClient) GetCopy(ctx context.Context, copyID string) (*library.Copy, string, error) {

	resp, err := s.client.GetCopy(ctx, &library.GetCopyRequest{CopyID: copyID})
	if err != nil {
		return nil, "", s.mapError(err)
	}
	return resp.Copy, resp.CoverURL, nil
}

func (s *GRPCClient) ListAvailable(ctx context.Context, page, pageSize int) ([]*library.Copy, int, error) {

	resp, err := s.client.ListAvailable(ctx, &library.ListRequest{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return resp.Copies, resp.Total, nil
}

func (s *GRPCClient) ListMine(ctx context.Context, page, pageSize int) ([]*library.Copy, int, error) {

	resp, err := s.client.ListMine(ctx, &library.ListRequest{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return resp.Copies, resp.Total, nil
}

// SearchCopies pages through the catalogue by title, author or isbn.
func (s *GRPCClient) SearchCopies(ctx context.Context, title, author, isbn string, page, pageSize int) ([]*library.Copy, int, error) {

	resp, err := s.client.SearchCopies(ctx, &library.SearchCopiesRequest{
		Title: title, Author: author, ISBN: isbn, Page: page, PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return resp.Copies, resp.Total, nil
}

func (s *GRPCClient) RegisterCopy(ctx context.Context, title, author, isbn string) (*library.Copy, error) {

	resp, err := s.client.RegisterCopy(ctx, &library.RegisterCopyRequest{Title: title, Author: author, ISBN: isbn})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Copy, nil
}

func (s *GRPCClient) CoverUploadURL(ctx context.Context, copyID string) (string, error) {

	resp, err := s.client.CoverUploadURL(ctx, &library.CoverUploadURLRequest{CopyID: copyID})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.URL, nil
}

func (s *GRPCClient) ReclaimOverdue(ctx context.Context) (*library.ReclaimOverdueResponse, error) {

	resp, err := s.client.ReclaimOverdue(ctx, &library.ReclaimOverdueRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) SweepCredentials(ctx context.Context) (*library.SweepCredentialsResponse, error) {

	resp, err := s.client.SweepCredentials(ctx, &library.SweepCredentialsRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &library.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil

}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrConflict, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.ResourceExhausted:
		return ErrRateLimited
	case codes.Unimplemented:
		return ErrNotConfigured
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
