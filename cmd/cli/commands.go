package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/service"
)

type command func(ctx context.Context, a *app, args []string) error

// errUsage reports missing or malformed subcommand arguments; the message
// has already been printed.
var errUsage = errors.New("usage")

var commands = map[string]command{
	"health":   cmdHealth,
	"register": cmdRegister,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"whoami":   cmdWhoami,
	"status":   cmdStatus,
	"statuses": cmdStatuses,
	"videos":   cmdVideos,
	"upload":   cmdUpload,
	"video":    cmdVideo,
	"refresh":  cmdRefresh,
	"publish":  cmdPublish,
	"rm":       cmdRemove,
	"public":   cmdPublic,
	"vote":     cmdVote,
	"rankings": cmdRankings,
	"city":     cmdCity,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func need(ok bool, msg string) error {
	if ok {
		return nil
	}
	fmt.Fprintln(os.Stderr, msg)
	return errUsage
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ------- session -------

func cmdHealth(ctx context.Context, a *app, _ []string) error {
	s, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	if s == "" {
		s = "ok"
	}
	fmt.Fprintln(a.out, s)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "password")
	pw2 := fs.String("password2", "", "password confirmation (defaults to -password)")
	city := fs.String("city", "", "city")
	country := fs.String("country", "", "country")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(*first != "" && *last != "" && *email != "" && *pw != "", "need -first -last -email -password"); err != nil {
		return err
	}
	if *pw2 == "" {
		*pw2 = *pw
	}
	req := model.SignupRequest{
		FirstName: *first, LastName: *last, Email: *email,
		Password1: *pw, Password2: *pw2, City: *city, Country: *country,
	}
	if err := a.auth.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(*email != "" && *pw != "", "need -email and -password"); err != nil {
		return err
	}
	if err := a.auth.Login(ctx, *email, *pw); err != nil {
		return err
	}
	if u := a.auth.User(); u != nil {
		fmt.Fprintf(a.out, "ok, logged in as %s %s\n", u.FirstName, u.LastName)
		return nil
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	sess := a.auth.Session()
	if !sess.Authenticated() {
		return errs.ErrUnauthenticated
	}
	if sess.User == nil {
		return fmt.Errorf("profile unavailable: %w", errs.ErrNotFound)
	}
	printJSON(a.out, sess.User)
	return nil
}

type statusView struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	ExpiresAt     string      `json:"expires_at,omitempty"`
	Expired       bool        `json:"expired,omitempty"`
	API           string      `json:"api"`
	Store         string      `json:"store"`
}

func cmdStatus(_ context.Context, a *app, _ []string) error {
	sess := a.auth.Session()
	v := statusView{Authenticated: sess.Authenticated(), User: sess.User, API: a.cfg.APIBaseURL, Store: a.cfg.Store}
	if exp, ok := service.TokenExpiry(sess.Token); ok {
		v.ExpiresAt = exp.UTC().Format(time.RFC3339)
		v.Expired = time.Now().After(exp)
	}
	printJSON(a.out, v)
	return nil
}

func cmdStatuses(ctx context.Context, a *app, _ []string) error {
	st, err := a.api.VideoStatuses(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, strings.Join(st, "\n"))
	return nil
}

// ------- my videos -------

type videoRow struct {
	ID        model.ID `json:"video_id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Processed bool     `json:"processed"`
	URL       string   `json:"processed_url,omitempty"`
}

func rows(vs []model.Video) []videoRow {
	out := make([]videoRow, 0, len(vs))
	for _, v := range vs {
		r := videoRow{ID: v.ID, Title: v.Title, Status: v.Status, Processed: v.Processed()}
		if v.ProcessedURL != nil {
			r.URL = *v.ProcessedURL
		}
		out = append(out, r)
	}
	return out
}

func cmdVideos(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("videos")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 0, "page size (0 = all)")
	refresh := fs.Bool("refresh", false, "refresh every video after listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.videos.Load(ctx); err != nil {
		return err
	}
	if *refresh {
		if err := a.videos.RefreshAll(ctx); err != nil {
			return err
		}
	}
	p := a.videos.Page(*page, *size)
	printJSON(a.out, map[string]any{"items": rows(p.Items), "page": p.Number, "total_pages": p.Total})
	return nil
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("upload")
	title := fs.String("title", "", "video title")
	path := fs.String("file", "", "video file (mp4)")
	status := fs.String("status", "", "initial status (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(*title != "" && *path != "", "need -title and -file"); err != nil {
		return err
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	res, err := a.videos.Upload(ctx, model.UploadRequest{
		Title:    *title,
		Status:   *status,
		FileName: filepath.Base(*path),
		Size:     st.Size(),
		Content:  f,
	})
	if err != nil {
		return err
	}
	printJSON(a.out, res)
	return nil
}

func idFlag(name string, args []string) (model.ID, error) {
	fs := newFlagSet(name)
	id := fs.String("id", "", "video id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := need(strings.TrimSpace(*id) != "", "need -id"); err != nil {
		return "", err
	}
	return model.ID(strings.TrimSpace(*id)), nil
}

func cmdVideo(ctx context.Context, a *app, args []string) error {
	id, err := idFlag("video", args)
	if err != nil {
		return err
	}
	v, err := a.videos.Refresh(ctx, id)
	if err != nil {
		return err
	}
	printJSON(a.out, v)
	return nil
}

func cmdRefresh(ctx context.Context, a *app, _ []string) error {
	if _, err := a.videos.Load(ctx); err != nil {
		return err
	}
	if err := a.videos.RefreshAll(ctx); err != nil {
		return err
	}
	printJSON(a.out, rows(a.videos.Videos()))
	return nil
}

func cmdPublish(ctx context.Context, a *app, args []string) error {
	id, err := idFlag("publish", args)
	if err != nil {
		return err
	}
	if err := a.videos.Publish(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "published", id)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	id, err := idFlag("rm", args)
	if err != nil {
		return err
	}
	if err := a.videos.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "deleted", id)
	return nil
}

// ------- public -------

func cmdPublic(ctx context.Context, a *app, _ []string) error {
	vs, err := a.rankings.PublicVideos(ctx)
	if err != nil {
		return err
	}
	printJSON(a.out, vs)
	return nil
}

func cmdVote(ctx context.Context, a *app, args []string) error {
	id, err := idFlag("vote", args)
	if err != nil {
		return err
	}
	if err := a.rankings.Vote(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "voted", id)
	return nil
}

func cmdRankings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("rankings")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 0, "page size (default from config)")
	city := fs.String("city", "", "filter by city")
	mode := fs.String("mode", "", "server or client (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := a.rankings
	if *mode != "" {
		m, err := service.ParseRankingMode(*mode)
		if err != nil {
			return err
		}
		svc = service.NewRankingService(a.api, a.auth, a.log, m, a.cfg.PageSize)
	}
	p, err := svc.Query(ctx, model.RankingQuery{Page: *page, PageSize: *size, City: *city})
	if err != nil {
		return err
	}
	printJSON(a.out, p)
	return nil
}

func cmdCity(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("city")
	city := fs.String("city", "", "city name")
	country := fs.String("country", "", "country name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.rankings.ResolveCity(ctx, *city, *country)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}
