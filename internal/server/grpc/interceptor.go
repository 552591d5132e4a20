package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

var publicMethods = map[string]bool{
	library.FullMethod(library.MethodRegister): true,
	library.FullMethod(library.MethodLogin):    true,
	library.FullMethod(library.MethodRefresh):  true,
	library.FullMethod(library.MethodPing):     true,
}

var adminMethods = map[string]bool{
	library.FullMethod(library.MethodRegisterCopy):     true,
	library.FullMethod(library.MethodReclaimOverdue):   true,
	library.FullMethod(library.MethodSweepCredentials): true,
	library.FullMethod(library.MethodCoverUploadURL):   true,
}

func withClaims(ctx context.Context, c *auth.HolderClaims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func claimsFrom(ctx context.Context) (*auth.HolderClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.HolderClaims)
	return c, ok && c != nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.credentials.ParseAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			// the client refreshes its tokens on exactly this message
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	if adminMethods[info.FullMethod] && claims.Role != common.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	return handler(withClaims(ctx, claims), req)
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "handler panicked", "method", info.FullMethod, "panic", fmt.Sprint(r))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
