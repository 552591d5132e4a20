package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/librarian/internal/api/library"
	"github.com/dmitrijs2005/librarian/internal/client/client"
	"github.com/dmitrijs2005/librarian/internal/netx"
)

// getSimpleText, getPassword, readFile and putPresigned are indirections
// used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var readFile = os.ReadFile
var putPresigned = netx.PutPresigned

const listPageSize = 20

func (a *App) ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}

func (a *App) printTokens(t client.Tokens) {
	fmt.Fprintf(a.out, "access_token: %s\n", t.AccessToken)
	fmt.Fprintf(a.out, "refresh_token: %s\n", t.RefreshToken)
}

// login authenticates with the login given as argument, -l, or typed at the
// prompt, reading the secret without echo.
func (a *App) login(ctx context.Context, args []string) error {
	login := a.config.Login
	if len(args) > 0 {
		login = args[0]
	}

	if login == "" {
		var err error
		login, err = getSimpleText(a.reader, "Enter login", a.out)
		if err != nil {
			return err
		}
	}

	secret, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(secret)

	tokens, err := a.api.Login(ctx, login, string(secret))
	if err != nil {
		return err
	}

	a.printTokens(tokens)
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	if a.api.Tokens().RefreshToken == "" {
		fmt.Fprintln(a.out, "Usage: refresh -rt <refresh-token>")
		return ErrUsage
	}

	tokens, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}

	a.printTokens(tokens)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) checkout(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: checkout <copy-id> [holder-id] [days]")
		return ErrUsage
	}

	copyID := args[0]
	holderID := ""
	if len(args) > 1 {
		holderID = args[1]
	}

	var period time.Duration
	if len(args) > 2 {
		days, err := strconv.Atoi(args[2])
		if err != nil || days <= 0 {
			fmt.Fprintln(a.out, "days must be a positive number")
			return ErrUsage
		}
		period = time.Duration(days) * 24 * time.Hour
	}

	c, err := a.api.Checkout(ctx, copyID, holderID, period)
	if err != nil {
		return err
	}

	a.printCopy(c)
	return nil
}

func (a *App) returnCopy(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: return <copy-id>")
		return ErrUsage
	}

	c, err := a.api.Return(ctx, args[0])
	if err != nil {
		return err
	}

	a.printCopy(c)
	return nil
}

func (a *App) show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: show <copy-id>")
		return ErrUsage
	}

	c, coverURL, err := a.api.GetCopy(ctx, args[0])
	if err != nil {
		return err
	}

	a.printCopy(c)
	if coverURL != "" {
		fmt.Fprintf(a.out, "cover: %s\n", coverURL)
	}
	return nil
}

// list prints available copies, or the caller's loans with "list mine".
func (a *App) list(ctx context.Context, args []string) error {
	mine := false
	if len(args) > 0 && args[0] == "mine" {
		mine = true
		args = args[1:]
	}

	page := 1
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < 1 {
			fmt.Fprintln(a.out, "page must be a positive number")
			return ErrUsage
		}
		page = p
	}

	var (
		copies []*library.Copy
		total  int
		err    error
	)
	if mine {
		copies, total, err = a.api.ListMine(ctx, page, listPageSize)
	} else {
		copies, total, err = a.api.ListAvailable(ctx, page, listPageSize)
	}
	if err != nil {
		return err
	}

	for _, c := range copies {
		a.printCopy(c)
	}
	fmt.Fprintf(a.out, "%d of %d\n", len(copies), total)
	return nil
}

// search looks copies up by field=value terms (title, author, isbn, page).
// Bare words are joined into the title.
func (a *App) search(ctx context.Context, args []string) error {
	var title, author, isbn string
	var words []string
	page := 1

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			words = append(words, arg)
			continue
		}
		switch key {
		case "title":
			title = value
		case "author":
			author = value
		case "isbn":
			isbn = value
		case "page":
			p, err := strconv.Atoi(value)
			if err != nil || p < 1 {
				fmt.Fprintln(a.out, "page must be a positive number")
				return ErrUsage
			}
			page = p
		default:
			fmt.Fprintln(a.out, "Unknown search field:", key)
			return ErrUsage
		}
	}
	if len(words) > 0 {
		title = strings.Join(words, " ")
	}
	if title == "" && author == "" && isbn == "" {
		fmt.Fprintln(a.out, "Usage: search <title words> | title=.. author=.. isbn=.. [page=N]")
		return ErrUsage
	}

	copies, total, err := a.api.SearchCopies(ctx, title, author, isbn, page, listPageSize)
	if err != nil {
		return err
	}

	for _, c := range copies {
		a.printCopy(c)
	}
	fmt.Fprintf(a.out, "%d of %d\n", len(copies), total)
	return nil
}

func (a *App) registerCopy(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: register-copy <title> [author] [isbn]")
		return ErrUsage
	}

	title := args[0]
	author, isbn := "", ""
	if len(args) > 1 {
		author = args[1]
	}
	if len(args) > 2 {
		isbn = args[2]
	}

	c, err := a.api.RegisterCopy(ctx, title, author, isbn)
	if err != nil {
		return err
	}

	a.printCopy(c)
	return nil
}

// coverUpload prints a presigned upload URL for the copy's cover, or
// uploads the given file straight to it.
func (a *App) coverUpload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: cover-upload <copy-id> [file]")
		return ErrUsage
	}

	var body []byte
	if len(args) > 1 {
		var err error
		body, err = readFile(args[1])
		if err != nil {
			return fmt.Errorf("read cover: %w", err)
		}
	}

	url, err := a.api.CoverUploadURL(ctx, args[0])
	if err != nil {
		return err
	}

	if body == nil {
		fmt.Fprintln(a.out, url)
		return nil
	}

	if err := putPresigned(ctx, url, "", body); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %d bytes\n", len(body))
	return nil
}

func (a *App) reclaim(ctx context.Context) error {
	res, err := a.api.ReclaimOverdue(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "scanned=%d reclaimed=%d skipped=%d failed=%d\n", res.Scanned, res.Reclaimed, res.Skipped, res.Failed)
	return nil
}

func (a *App) sweep(ctx context.Context) error {
	res, err := a.api.SweepCredentials(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "scanned=%d deleted=%d skipped=%d failed=%d\n", res.Scanned, res.Deleted, res.Skipped, res.Failed)
	return nil
}

func (a *App) printCopy(c *library.Copy) {
	if c == nil {
		return
	}

	fmt.Fprintf(a.out, "%s\t%s\t%s", c.ID, c.Status, c.Title)
	if c.HolderID != "" {
		fmt.Fprintf(a.out, "\tholder=%s", c.HolderID)
	}
	if c.DueAt != nil {
		fmt.Fprintf(a.out, "\tdue=%s", c.DueAt.Format(time.RFC3339))
	}
	fmt.Fprintln(a.out)
}
