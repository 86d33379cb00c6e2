// Package browser drives a real browser session against old.reddit.com as
// the alternative content source. It trades the API's structured payloads
// for a logged-in page scrape, so bodies are only available per-post and
// comment ids are not recoverable after submitting a reply.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"redscout/internal/config"
	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

const baseURL = "https://old.reddit.com"

// Scraper implements ports.Source over a single rod-controlled browser.
type Scraper struct {
	browser    *rod.Browser
	creds      config.Credentials
	cookiePath string
	timeout    time.Duration
	headless   bool
}

type ScraperConfig struct {
	CookiePath string
	Headless   bool
	Timeout    time.Duration
}

func NewScraper(cfg *config.Settings, sc ScraperConfig) *Scraper {
	if sc.CookiePath == "" {
		sc.CookiePath = "data/browser_cookies.json"
	}
	if sc.Timeout == 0 {
		sc.Timeout = 30 * time.Second
	}
	return &Scraper{
		creds:      cfg.Credentials,
		cookiePath: sc.CookiePath,
		timeout:    sc.Timeout,
		headless:   sc.Headless,
	}
}

var _ ports.Source = (*Scraper)(nil)

func (s *Scraper) Name() string {
	return "reddit-browser"
}

// Start launches the browser, restores saved cookies, and logs in when the
// restored session is not valid anymore.
func (s *Scraper) Start(ctx context.Context) error {
	u, err := launcher.New().Headless(s.headless).Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	s.browser = rod.New().ControlURL(u).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	if err := s.restoreCookies(); err == nil {
		if s.loggedIn() {
			return nil
		}
	}

	if err := s.login(); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.saveCookies()
}

func (s *Scraper) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}

func (s *Scraper) login() error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: baseURL + "/login"})
	if err != nil {
		return err
	}
	defer page.Close()
	page = page.Timeout(s.timeout)

	if err := page.WaitLoad(); err != nil {
		return err
	}

	userField, err := page.Element("#user_login")
	if err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := userField.Input(s.creds.Username); err != nil {
		return err
	}
	passField, err := page.Element("#passwd_login")
	if err != nil {
		return err
	}
	if err := passField.Input(s.creds.Password); err != nil {
		return err
	}

	submit, err := page.Element("#login-form button[type=submit]")
	if err != nil {
		return err
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}

	if !s.loggedIn() {
		return fmt.Errorf("credentials rejected for %s", s.creds.Username)
	}
	return nil
}

// loggedIn checks for the logged-in header on the front page.
func (s *Scraper) loggedIn() bool {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: baseURL + "/"})
	if err != nil {
		return false
	}
	defer page.Close()
	page = page.Timeout(s.timeout)

	if err := page.WaitLoad(); err != nil {
		return false
	}
	has, _, err := page.Has("span.user a[href*='/user/']")
	return err == nil && has
}

// Fetch scrapes the /new listing of a subreddit. Bodies are fetched only
// for self posts, one extra navigation each, bounded by limit.
func (s *Scraper) Fetch(ctx context.Context, subreddit string, limit int) ([]domain.Post, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("browser not started")
	}

	listURL := fmt.Sprintf("%s/r/%s/new/", baseURL, url.PathEscape(subreddit))
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: listURL})
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer page.Close()
	page = page.Timeout(s.timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}

	things, err := page.Elements("div.thing:not(.promoted)")
	if err != nil {
		return nil, fmt.Errorf("scrape listing: %w", err)
	}

	var posts []domain.Post
	for _, el := range things {
		if len(posts) >= limit {
			break
		}
		post, ok := scrapeThing(el, subreddit)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func scrapeThing(el *rod.Element, subreddit string) (domain.Post, bool) {
	fullname, err := el.Attribute("data-fullname")
	if err != nil || fullname == nil {
		return domain.Post{}, false
	}

	titleEl, err := el.Element("a.title")
	if err != nil {
		return domain.Post{}, false
	}
	title, err := titleEl.Text()
	if err != nil {
		return domain.Post{}, false
	}

	post := domain.Post{
		ID:        strings.TrimPrefix(*fullname, "t3_"),
		Subreddit: subreddit,
		Title:     title,
	}
	if author, err := el.Attribute("data-author"); err == nil && author != nil {
		post.Author = *author
	}
	if permalink, err := el.Attribute("data-permalink"); err == nil && permalink != nil {
		post.URL = baseURL + *permalink
	}
	return post, true
}

// Reply opens the post page, fills the top-level comment box and submits
// it. The resulting comment id is not recoverable from the browser flow,
// so the returned id is empty on success.
func (s *Scraper) Reply(ctx context.Context, postID, text string) (string, error) {
	if s.browser == nil {
		return "", fmt.Errorf("browser not started")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{
		URL: fmt.Sprintf("%s/comments/%s/", baseURL, url.PathEscape(postID)),
	})
	if err != nil {
		return "", fmt.Errorf("open post: %w", err)
	}
	defer page.Close()
	page = page.Timeout(s.timeout)

	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	box, err := page.Element("form.usertext textarea[name=text]")
	if err != nil {
		return "", fmt.Errorf("comment box not found: %w", err)
	}
	if err := box.Input(text); err != nil {
		return "", err
	}

	submit, err := page.Element("form.usertext button[type=submit]")
	if err != nil {
		return "", err
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("submit reply: %w", err)
	}

	// Give old reddit a moment to accept the comment before the page goes.
	time.Sleep(2 * time.Second)
	return "", nil
}

func (s *Scraper) saveCookies() error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.cookiePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.cookiePath, data, 0o600)
}

func (s *Scraper) restoreCookies() error {
	data, err := os.ReadFile(s.cookiePath)
	if err != nil {
		return err
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return err
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return s.browser.SetCookies(params)
}
