package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/ratelimit"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/services"
)

// Circulation is the loan and catalogue surface used by the handlers.
type Circulation interface {
	Checkout(ctx context.Context, copyID, holderID string, loanPeriod time.Duration) (*models.Copy, error)
	Return(ctx context.Context, copyID string) (*models.Copy, error)
	ReturnAs(ctx context.Context, copyID, holderID string) (*models.Copy, error)
	GetCopy(ctx context.Context, copyID string) (*models.Copy, error)
	ListAvailable(ctx context.Context, page, pageSize int) ([]*models.Copy, int, error)
	ListByHolder(ctx context.Context, holderID string, page, pageSize int) ([]*models.Copy, int, error)
	Search(ctx context.Context, filter copies.SearchFilter, page, pageSize int) ([]*models.Copy, int, error)
	RegisterCopy(ctx context.Context, nc services.NewCopy) (*models.Copy, error)
}

// Credentials covers login, registration and access token checks.
type Credentials interface {
	Authenticate(ctx context.Context, login, secret string) (*services.TokenPair, error)
	Register(ctx context.Context, login, displayName, secret string) (*models.Holder, error)
	ParseAccessToken(token string) (*auth.HolderClaims, error)
}

type Rotation interface {
	Rotate(ctx context.Context, presented string) (*services.TokenPair, error)
	Revoke(ctx context.Context, holderID string) error
	SweepExpired(ctx context.Context) (services.SweepSummary, error)
}

type Reclaimer interface {
	RunOnce(ctx context.Context) (services.ReclaimSummary, error)
}

type Covers interface {
	UploadURL(ctx context.Context, copyID string) (string, string, error)
	DownloadURL(ctx context.Context, copyID string) (string, error)
}

// Deps are the collaborators of GRPCServer. Covers and Limiter may be nil;
// Clock defaults to the system clock.
type Deps struct {
	Clock       clock.Clock
	Circulation Circulation
	Credentials Credentials
	Rotation    Rotation
	Reclaimer   Reclaimer
	Covers      Covers
	Limiter     ratelimit.Limiter
}

type GRPCServer struct {
	address     string
	circulation Circulation
	credentials Credentials
	rotation    Rotation
	reclaimer   Reclaimer
	covers      Covers
	limiter     ratelimit.Limiter
	clock       clock.Clock
	logger      logging.Logger
}

var _ library.LibraryServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, d Deps) *GRPCServer {
	clk := d.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		circulation: d.Circulation,
		credentials: d.Credentials,
		rotation:    d.Rotation,
		reclaimer:   d.Reclaimer,
		covers:      d.Covers,
		limiter:     d.Limiter,
		clock:       clk,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.accessTokenInterceptor))
	library.RegisterLibraryServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
