package browser

import (
	"context"
	"fmt"
	"log/slog"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/pipeline/classify"
)

// RodSession drives a local Chrome through Rod with the stealth patches
// applied, paced for human-like interaction.
type RodSession struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	log     *slog.Logger
}

// NewRodSession launches Chrome, connects, and installs the authenticated
// session cookie.
func NewRodSession(ctx context.Context, cfg Config, log *slog.Logger) (*RodSession, error) {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}

	lnch := launcher.New().Headless(cfg.Headless).Leakless(true)
	controlURL, err := lnch.Launch()
	if err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: launch chrome: %w", err), classify.CategoryBrowser)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		return nil, classify.WithCategory(fmt.Errorf("browser: connect: %w", err), classify.CategoryBrowser)
	}

	s := &RodSession{cfg: cfg, browser: b, lnch: lnch, log: log}
	if cfg.Credential != "" {
		if err := s.installCookie(cfg.Credential); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *RodSession) installCookie(value string) error {
	err := s.browser.SetCookies([]*proto.NetworkCookieParam{{
		Name:     "li_at",
		Value:    value,
		Domain:   ".www.linkedin.com",
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
	}})
	if err != nil {
		return classify.WithCategory(fmt.Errorf("browser: set session cookie: %w", err), classify.CategoryAuthentication)
	}
	return nil
}

// FetchPage navigates one search-results page and extracts profile links.
func (s *RodSession) FetchPage(ctx context.Context, pageNum int, filters Filters) ([]domain.Link, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: open page: %w", err), classify.CategoryBrowser)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(s.cfg.PageTimeout)

	url := fmt.Sprintf("%s&page=%d", s.cfg.SearchURL, pageNum)
	if filters.Keywords != "" {
		url += "&keywords=" + neturl.QueryEscape(filters.Keywords)
	}
	if filters.Network != "" && filters.Network != domain.ListAll {
		url += "&network=" + string(filters.Network)
	}
	if err := page.Navigate(url); err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: navigate page %d: %w", pageNum, err), classify.CategoryBrowser)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: load page %d: %w", pageNum, err), classify.CategoryBrowser)
	}

	if err := s.checkBlocked(page, pageNum); err != nil {
		return nil, err
	}

	anchors, err := page.Elements(`a[href*="/in/"]`)
	if err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: query results page %d: %w", pageNum, err), classify.CategoryLinkedIn)
	}

	seen := make(map[string]bool)
	var links []domain.Link
	for _, a := range anchors {
		href, err := a.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		u := normalizeProfileURL(*href)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		name, _ := a.Text()
		links = append(links, domain.Link{
			URL:       u,
			Name:      strings.TrimSpace(name),
			Page:      pageNum,
			FetchedAt: time.Now().UTC(),
		})
	}

	return links, nil
}

// checkBlocked detects challenge and restriction interstitials so those
// surface as site-layer failures rather than empty pages.
func (s *RodSession) checkBlocked(page *rod.Page, pageNum int) error {
	info, err := page.Info()
	if err != nil {
		return nil
	}
	u := strings.ToLower(info.URL)
	if strings.Contains(u, "checkpoint/challenge") || strings.Contains(u, "captcha") {
		return classify.WithCategory(
			fmt.Errorf("browser: captcha challenge on page %d", pageNum),
			classify.CategoryLinkedIn)
	}
	if strings.Contains(u, "/login") || strings.Contains(u, "/authwall") {
		return classify.WithCategory(
			fmt.Errorf("browser: session expired, redirected to login on page %d", pageNum),
			classify.CategoryAuthentication)
	}
	return nil
}

// AnalyzeItem opens a profile's recent activity and applies the acceptance
// predicate: qualified when the latest activity falls inside the configured
// window.
func (s *RodSession) AnalyzeItem(ctx context.Context, link domain.Link, token string) (*domain.AnalysisResult, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: open page: %w", err), classify.CategoryBrowser)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(s.cfg.PageTimeout)

	if err := page.Navigate(strings.TrimSuffix(link.URL, "/") + "/recent-activity/all/"); err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: navigate profile: %w", err), classify.CategoryBrowser)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: load profile: %w", err), classify.CategoryBrowser)
	}
	if err := s.checkBlocked(page, link.Page); err != nil {
		return nil, err
	}

	result := &domain.AnalysisResult{Link: link}

	el, err := page.Element("time, span.update-components-actor__sub-description")
	if err != nil {
		// No activity element at all: an inactive but valid profile.
		result.Reason = "no recent activity found"
		return result, nil
	}
	text, err := el.Text()
	if err != nil {
		return nil, classify.WithCategory(fmt.Errorf("browser: read activity timestamp: %w", err), classify.CategoryLinkedIn)
	}

	age, ok := parseActivityAge(text)
	if !ok {
		result.Reason = "unparseable activity timestamp"
		return result, nil
	}

	result.LastActivity = time.Now().UTC().Add(-age)
	if age <= s.cfg.ActivityWindow {
		result.Qualified = true
	} else {
		result.Reason = fmt.Sprintf("last activity %s ago", age.Round(time.Hour))
	}
	return result, nil
}

// Close releases Chrome. Safe to call more than once.
func (s *RodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch = nil
	}
	return err
}

func normalizeProfileURL(href string) string {
	i := strings.Index(href, "/in/")
	if i < 0 {
		return ""
	}
	rest := href[i+len("/in/"):]
	if j := strings.IndexAny(rest, "?/"); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" {
		return ""
	}
	return "https://www.linkedin.com/in/" + rest
}

// parseActivityAge converts relative timestamps like "3d", "2w ago",
// "5 hours ago" to a duration.
func parseActivityAge(text string) (time.Duration, bool) {
	f := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(f) == 0 {
		return 0, false
	}

	tok := f[0]
	num := 0
	unit := ""
	for i, r := range tok {
		if r < '0' || r > '9' {
			unit = tok[i:]
			break
		}
		num = num*10 + int(r-'0')
	}
	if unit == "" && len(f) > 1 {
		unit = f[1]
	}
	if num == 0 {
		return 0, false
	}

	switch {
	case strings.HasPrefix(unit, "mo"):
		return time.Duration(num) * 30 * 24 * time.Hour, true
	case strings.HasPrefix(unit, "m"):
		return time.Duration(num) * time.Minute, true
	case strings.HasPrefix(unit, "h"):
		return time.Duration(num) * time.Hour, true
	case strings.HasPrefix(unit, "d"):
		return time.Duration(num) * 24 * time.Hour, true
	case strings.HasPrefix(unit, "w"):
		return time.Duration(num) * 7 * 24 * time.Hour, true
	case strings.HasPrefix(unit, "y"):
		return time.Duration(num) * 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
