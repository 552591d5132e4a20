package library

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "library.v1.LibraryService"

const (
	MethodRegister         = "Register"
	MethodLogin            = "Login"
	MethodRefresh          = "Refresh"
	MethodLogout           = "Logout"
	MethodCheckout         = "Checkout"
	MethodReturn           = "Return"
	MethodGetCopy          = "GetCopy"
	MethodListAvailable    = "ListAvailable"
	MethodListMine         = "ListMine"
	MethodSearchCopies     = "SearchCopies"
	MethodRegisterCopy     = "RegisterCopy"
	MethodReclaimOverdue   = "ReclaimOverdue"
	MethodSweepCredentials = "SweepCredentials"
	MethodCoverUploadURL   = "CoverUploadURL"
	MethodPing             = "Ping"
)

// FullMethod returns the "/service/method" path gRPC uses for method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LibraryServiceServer is implemented by the server.
type LibraryServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CopyResponse, error)
	Return(context.Context, *ReturnRequest) (*CopyResponse, error)
	GetCopy(context.Context, *GetCopyRequest) (*GetCopyResponse, error)
	ListAvailable(context.Context, *ListRequest) (*ListCopiesResponse, error)
	ListMine(context.Context, *ListRequest) (*ListCopiesResponse, error)
	SearchCopies(context.Context, *SearchCopiesRequest) (*ListCopiesResponse, error)
	RegisterCopy(context.Context, *RegisterCopyRequest) (*CopyResponse, error)
	ReclaimOverdue(context.Context, *ReclaimOverdueRequest) (*ReclaimOverdueResponse, error)
	SweepCredentials(context.Context, *SweepCredentialsRequest) (*SweepCredentialsResponse, error)
	CoverUploadURL(context.Context, *CoverUploadURLRequest) (*CoverUploadURLResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

func unary[Req, Resp any](method string, call func(LibraryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LibraryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LibraryServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes LibraryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LibraryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, LibraryServiceServer.Register),
		unary(MethodLogin, LibraryServiceServer.Login),
		unary(MethodRefresh, LibraryServiceServer.Refresh),
		unary(MethodLogout, LibraryServiceServer.Logout),
		unary(MethodCheckout, LibraryServiceServer.Checkout),
		unary(MethodReturn, LibraryServiceServer.Return),
		unary(MethodGetCopy, LibraryServiceServer.GetCopy),
		unary(MethodListAvailable, LibraryServiceServer.ListAvailable),
		unary(MethodListMine, LibraryServiceServer.ListMine),
		unary(MethodSearchCopies, LibraryServiceServer.SearchCopies),
		unary(MethodRegisterCopy, LibraryServiceServer.RegisterCopy),
		unary(MethodReclaimOverdue, LibraryServiceServer.ReclaimOverdue),
		unary(MethodSweepCredentials, LibraryServiceServer.SweepCredentials),
		unary(MethodCoverUploadURL, LibraryServiceServer.CoverUploadURL),
		unary(MethodPing, LibraryServiceServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "library/v1/library.json",
}

func RegisterLibraryServiceServer(s grpc.ServiceRegistrar, srv LibraryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// LibraryServiceClient is the typed client stub. Every call is sent with
// the JSON content-subtype.
type LibraryServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CopyResponse, error)
	Return(ctx context.Context, in *ReturnRequest, opts ...grpc.CallOption) (*CopyResponse, error)
	GetCopy(ctx context.Context, in *GetCopyRequest, opts ...grpc.CallOption) (*GetCopyResponse, error)
	ListAvailable(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error)
	ListMine(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error)
	SearchCopies(ctx context.Context, in *SearchCopiesRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error)
	RegisterCopy(ctx context.Context, in *RegisterCopyRequest, opts ...grpc.CallOption) (*CopyResponse, error)
	ReclaimOverdue(ctx context.Context, in *ReclaimOverdueRequest, opts ...grpc.CallOption) (*ReclaimOverdueResponse, error)
	SweepCredentials(ctx context.Context, in *SweepCredentialsRequest, opts ...grpc.CallOption) (*SweepCredentialsResponse, error)
	CoverUploadURL(ctx context.Context, in *CoverUploadURLRequest, opts ...grpc.CallOption) (*CoverUploadURLResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type libraryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLibraryServiceClient(cc grpc.ClientConnInterface) LibraryServiceClient {
	return &libraryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *libraryServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *libraryServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *libraryServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodRefresh, in, opts)
}

func (c *libraryServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *libraryServiceClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CopyResponse, error) {
	return invoke[CopyResponse](ctx, c.cc, MethodCheckout, in, opts)
}

func (c *libraryServiceClient) Return(ctx context.Context, in *ReturnRequest, opts ...grpc.CallOption) (*CopyResponse, error) {
	return invoke[CopyResponse](ctx, c.cc, MethodReturn, in, opts)
}

func (c *libraryServiceClient) GetCopy(ctx context.Context, in *GetCopyRequest, opts ...grpc.CallOption) (*GetCopyResponse, error) {
	return invoke[GetCopyResponse](ctx, c.cc, MethodGetCopy, in, opts)
}

func (c *libraryServiceClient) ListAvailable(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error) {
	return invoke[ListCopiesResponse](ctx, c.cc, MethodListAvailable, in, opts)
}

func (c *libraryServiceClient) ListMine(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error) {
	return invoke[ListCopiesResponse](ctx, c.cc, MethodListMine, in, opts)
}

func (c *libraryServiceClient) SearchCopies(ctx context.Context, in *SearchCopiesRequest, opts ...grpc.CallOption) (*ListCopiesResponse, error) {
	return invoke[ListCopiesResponse](ctx, c.cc, MethodSearchCopies, in, opts)
}

func (c *libraryServiceClient) RegisterCopy(ctx context.Context, in *RegisterCopyRequest, opts ...grpc.CallOption) (*CopyResponse, error) {
	return invoke[CopyResponse](ctx, c.cc, MethodRegisterCopy, in, opts)
}

func (c *libraryServiceClient) ReclaimOverdue(ctx context.Context, in *ReclaimOverdueRequest, opts ...grpc.CallOption) (*ReclaimOverdueResponse, error) {
	return invoke[ReclaimOverdueResponse](ctx, c.cc, MethodReclaimOverdue, in, opts)
}

func (c *libraryServiceClient) SweepCredentials(ctx context.Context, in *SweepCredentialsRequest, opts ...grpc.CallOption) (*SweepCredentialsResponse, error) {
	return invoke[SweepCredentialsResponse](ctx, c.cc, MethodSweepCredentials, in, opts)
}

func (c *libraryServiceClient) CoverUploadURL(ctx context.Context, in *CoverUploadURLRequest, opts ...grpc.CallOption) (*CoverUploadURLResponse, error) {
	return invoke[CoverUploadURLResponse](ctx, c.cc, MethodCoverUploadURL, in, opts)
}

func (c *libraryServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
