package interceptor

import (
	"context"
	"fmt"
	"strings"

	"github.com/haukened/navguard/internal/guard/common/urlutil"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/services/policy"
)

// NavigationRequest is a top-level or subframe navigation about to commit.
type NavigationRequest struct {
	TabID     int    `json:"tabId"`
	URL       string `json:"url"`
	MainFrame bool   `json:"mainFrame"`
}

// LinkRequest is a click on an anchor inside PageURL.
type LinkRequest struct {
	TabID   int    `json:"tabId"`
	PageURL string `json:"pageUrl"`
	LinkURL string `json:"linkUrl"`
}

// FormRequest is a form submission from PageURL. An empty ActionURL posts
// back to the page.
type FormRequest struct {
	TabID      int    `json:"tabId"`
	PageURL    string `json:"pageUrl"`
	ActionURL  string `json:"actionUrl"`
	Method     string `json:"method"`
	FieldCount int    `json:"fieldCount"`
}

// Verdict tells the caller whether the default action may run now.
// Evaluated is false when the event was skipped without consulting policy.
type Verdict struct {
	Intercept domain.Intercept `json:"intercept"`
	Notice    *domain.Notice   `json:"notice,omitempty"`
	Proceed   bool             `json:"proceed"`
	Evaluated bool             `json:"evaluated"`
}

// Navigate evaluates a navigation. Subframes pass through unevaluated. A
// main-frame navigation starts a new generation for the tab.
func (c *Coordinator) Navigate(ctx context.Context, req NavigationRequest) (Verdict, error) {
	if !req.MainFrame {
		return c.skipped(req.TabID, domain.KindNavigation, req.URL), nil
	}
	gen, tabCtx := c.dispatch(req.TabID, true)
	d, err := c.evaluate(ctx, req.TabID, gen, tabCtx, req.URL)
	if err != nil {
		return Verdict{}, err
	}
	ic, err := c.commit(req.TabID, gen, domain.KindNavigation, d, true)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Intercept: *ic, Evaluated: true, Proceed: d.Action != domain.ActionBlock}
	switch d.Action {
	case domain.ActionBlock:
		v.Notice = newNotice(*ic, domain.NoticeBlockingPage)
	case domain.ActionWarn:
		v.Notice = newNotice(*ic, domain.NoticeWarningBanner)
	}
	c.present(v.Notice)
	return v, nil
}

// LinkClick evaluates the target of a clicked link. Fragment-only,
// javascript: and same-origin links are not evaluated.
func (c *Coordinator) LinkClick(ctx context.Context, req LinkRequest) (Verdict, error) {
	raw := strings.TrimSpace(req.LinkURL)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return c.skipped(req.TabID, domain.KindLink, raw), nil
	}
	target, err := urlutil.Resolve(req.PageURL, raw)
	if err != nil {
		// an unresolvable href cannot navigate anywhere we could score
		return c.skipped(req.TabID, domain.KindLink, raw), nil
	}
	if urlutil.SameOrigin(req.PageURL, target) {
		return c.skipped(req.TabID, domain.KindLink, target), nil
	}

	gen, tabCtx := c.dispatch(req.TabID, false)
	d, err := c.evaluate(ctx, req.TabID, gen, tabCtx, target)
	if err != nil {
		return Verdict{}, err
	}
	ic, err := c.commit(req.TabID, gen, domain.KindLink, d, false)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Intercept: *ic, Evaluated: true, Proceed: d.Action != domain.ActionBlock}
	switch d.Action {
	case domain.ActionBlock:
		v.Notice = newNotice(*ic, domain.NoticeBlockingPage)
	case domain.ActionWarn:
		v.Notice = newNotice(*ic, domain.NoticeLinkAnnotation)
	}
	c.present(v.Notice)
	return v, nil
}

// FormSubmit holds a submission until a decision exists. Only allow lets it
// through immediately; warn waits for Proceed, block for TrustAndRetry.
func (c *Coordinator) FormSubmit(ctx context.Context, req FormRequest) (Verdict, error) {
	target, err := urlutil.Resolve(req.PageURL, req.ActionURL)
	if err != nil {
		return Verdict{}, fmt.Errorf("resolve form action %q: %w", req.ActionURL, err)
	}

	gen, tabCtx := c.dispatch(req.TabID, false)
	d, err := c.evaluate(ctx, req.TabID, gen, tabCtx, target)
	if err != nil {
		return Verdict{}, err
	}
	ic, err := c.commit(req.TabID, gen, domain.KindForm, d, false)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Intercept: *ic, Evaluated: true, Proceed: d.Action == domain.ActionAllow}
	switch d.Action {
	case domain.ActionBlock:
		v.Notice = newNotice(*ic, domain.NoticeBlockingPage)
	case domain.ActionWarn:
		v.Notice = newNotice(*ic, domain.NoticeSubmissionPrompt)
	}
	c.logger.Debug(map[string]any{
		"tab":    req.TabID,
		"method": strings.ToUpper(req.Method),
		"fields": req.FieldCount,
		"target": target,
	}, "form submission evaluated")
	c.present(v.Notice)
	return v, nil
}

// Rescan re-evaluates the tab's current page, bypassing the cache. If the
// classifier cannot be reached the last decision is left as it was.
func (c *Coordinator) Rescan(ctx context.Context, tabID int) (Verdict, error) {
	c.mu.Lock()
	t, ok := c.tabs[tabID]
	pageURL := ""
	if ok {
		pageURL = t.pageURL
	}
	c.mu.Unlock()
	if pageURL == "" {
		return Verdict{}, fmt.Errorf("%w: %d", ErrUnknownTab, tabID)
	}

	gen, tabCtx := c.dispatch(tabID, false)
	d, err := c.evaluate(ctx, tabID, gen, tabCtx, pageURL, policy.SkipCache())
	if err != nil {
		return Verdict{}, err
	}
	if d.Reason == domain.ReasonAPIError {
		c.logger.Warn(map[string]any{"tab": tabID, "url": pageURL}, "manual rescan failed")
		return Verdict{}, ErrScanIncomplete
	}
	ic, err := c.commit(tabID, gen, domain.KindNavigation, d, true)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Intercept: *ic, Evaluated: true, Proceed: d.Action != domain.ActionBlock}
	switch d.Action {
	case domain.ActionBlock:
		v.Notice = newNotice(*ic, domain.NoticeBlockingPage)
	case domain.ActionWarn:
		v.Notice = newNotice(*ic, domain.NoticeWarningBanner)
	}
	c.present(v.Notice)
	return v, nil
}

// skipped builds the verdict for an event that needs no evaluation. The
// intercept is not retained.
func (c *Coordinator) skipped(tabID int, kind domain.InterceptKind, url string) Verdict {
	now := c.clock.Now()
	ic := domain.NewIntercept(tabID, kind, url, now)
	ic.State = domain.StateAllowed
	return Verdict{Intercept: *ic, Proceed: true}
}
