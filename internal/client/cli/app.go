package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/client/client"
	"github.com/dmitrijs2005/librarian/internal/client/config"
)

var ErrUsage = errors.New("usage error")

// API is the part of client.GRPCClient used by the commands.
type API interface {
	Login(ctx context.Context, login, secret string) (client.Tokens, error)
	Refresh(ctx context.Context) (client.Tokens, error)
	Logout(ctx context.Context) error
	Tokens() client.Tokens
	SetTokens(t client.Tokens)
	Checkout(ctx context.Context, copyID, holderID string, loanPeriod time.Duration) (*library.Copy, error)
	Return(ctx context.Context, copyID string) (*library.Copy, error)
	GetCopy(ctx context.Context, copyID string) (*library.Copy, string, error)
	ListAvailable(ctx context.Context, page, pageSize int) ([]*library.Copy, int, error)
	ListMine(ctx context.Context, page, pageSize int) ([]*library.Copy, int, error)
	SearchCopies(ctx context.Context, title, author, isbn string, page, pageSize int) ([]*library.Copy, int, error)
	RegisterCopy(ctx context.Context, title, author, isbn string) (*library.Copy, error)
	ReclaimOverdue(ctx context.Context) (*library.ReclaimOverdueResponse, error)
	SweepCredentials(ctx context.Context) (*library.SweepCredentialsResponse, error)
	CoverUploadURL(ctx context.Context, copyID string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	config *config.Config
	api    API
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	apiClient.SetTokens(client.Tokens{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken})

	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// commandArgs drops the configuration flags (and their values) from args,
// leaving the command name followed by its arguments.
func commandArgs(args []string) []string {
	res := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			name, _, hasValue := strings.Cut(arg, "=")
			if slices.Contains(config.ValueFlags, name) && !hasValue && i+1 < len(args) {
				i++
			}
			continue
		}
		res = append(res, arg)
	}
	return res
}

// Run executes the command named in args. args are usually os.Args[1:].
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.api.Close()

	cmdArgs := commandArgs(args)
	if len(cmdArgs) == 0 {
		a.help()
		return ErrUsage
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	cmd, rest := cmdArgs[0], cmdArgs[1:]

	switch cmd {
	case "help":
		a.help()
		return nil
	case "ping":
		return a.ping(ctx)
	case "login":
		return a.login(ctx, rest)
	case "refresh":
		return a.refresh(ctx)
	case "logout":
		return a.logout(ctx)
	case "checkout":
		return a.checkout(ctx, rest)
	case "return":
		return a.returnCopy(ctx, rest)
	case "show":
		return a.show(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "search":
		return a.search(ctx, rest)
	case "register-copy":
		return a.registerCopy(ctx, rest)
	case "cover-upload":
		return a.coverUpload(ctx, rest)
	case "reclaim":
		return a.reclaim(ctx)
	case "sweep":
		return a.sweep(ctx)
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		a.help()
		return ErrUsage
	}
}

func (a *App) help() {
	fmt.Fprintln(a.out, "Available commands: ping, login [login], refresh, logout, checkout <copy> [holder] [days],")
	fmt.Fprintln(a.out, "  return <copy>, show <copy>, list [mine] [page], search <words> | title=.. author=.. isbn=.. [page=N],")
	fmt.Fprintln(a.out, "  register-copy <title> [author] [isbn], cover-upload <copy> [file], reclaim, sweep")
}
