package submit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// simulated.go implements interactive submission: a headless rendering
// context loads the form fresh for every record, types each mapped value
// into its element, and engages a submit control through an ordered list
// of fallback tactics. Slower than the direct strategy, but it exercises
// the same path a human responder does, which some forms require.

// SimulatedOptions configures the rendering context.
type SimulatedOptions struct {
	// ExecPath points at the browser binary; empty uses the default lookup.
	ExecPath string
	// PageTimeout bounds one record's whole interactive session.
	PageTimeout time.Duration
	// ConfirmationText is the page text that signals acceptance.
	ConfirmationText string
}

// Simulated drives a fresh rendering context per record. The context is
// torn down on every exit path; nothing is shared across records.
type Simulated struct {
	viewURL string
	opts    SimulatedOptions
}

// NewSimulated creates a simulated strategy for the given rendered-form URL.
func NewSimulated(viewURL string, opts SimulatedOptions) *Simulated {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 45 * time.Second
	}
	if opts.ConfirmationText == "" {
		opts.ConfirmationText = "Your response has been recorded"
	}
	return &Simulated{viewURL: viewURL, opts: opts}
}

func (s *Simulated) Name() string { return "simulated" }

// Send loads the form, types the values, submits, and waits for a
// confirmation signal.
func (s *Simulated) Send(ctx context.Context, values map[string]string) (Outcome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if s.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(s.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	pageCtx, cancelPage := chromedp.NewContext(allocCtx)
	defer cancelPage()

	runCtx, cancelRun := context.WithTimeout(pageCtx, s.opts.PageTimeout)
	defer cancelRun()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(s.viewURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return Outcome{}, fmt.Errorf("load form: %w", err)
	}

	filled := 0
	for fieldID, value := range values {
		if err := s.typeValue(runCtx, fieldID, value); err != nil {
			continue
		}
		filled++
	}
	if filled == 0 {
		return Rejected("no form elements matched the mapped fields"), nil
	}

	if err := s.engageSubmit(runCtx); err != nil {
		return Rejectedf("submit control: %v", err), nil
	}

	return s.awaitConfirmation(runCtx)
}

// typeValue types one value into the element for a field. It first tries
// real key events against the element addressed by name; if the rendered
// form hides the name attribute, a scripted assignment against the
// data-bearing container is the fallback.
func (s *Simulated) typeValue(ctx context.Context, fieldID, value string) error {
	sel := fmt.Sprintf(`input[name=%[1]q], textarea[name=%[1]q]`, fieldID)

	typeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := chromedp.Run(typeCtx, chromedp.SendKeys(sel, value, chromedp.ByQuery))
	cancel()
	if err == nil {
		return nil
	}

	script := fmt.Sprintf(`(() => {
		const el = document.querySelector('[name=%[1]q]')
			|| document.querySelector('[data-params*=%[1]q] input, [data-params*=%[1]q] textarea');
		if (!el) return false;
		el.value = %[2]s;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, fieldID, jsString(value))

	var ok bool
	evalCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("scripted fill %s: %w", fieldID, err)
	}
	if !ok {
		return fmt.Errorf("no element for %s", fieldID)
	}
	return nil
}

// submitTactics are the ordered fallbacks for engaging a submit control.
// The first tactic that reports engagement wins.
var submitTactics = []struct {
	name   string
	action func(ctx context.Context) (bool, error)
}{
	{
		name: "native submit control",
		action: func(ctx context.Context) (bool, error) {
			return tryClick(ctx, `button[type="submit"], input[type="submit"]`)
		},
	},
	{
		name: "role button with submit text",
		action: func(ctx context.Context) (bool, error) {
			return tryScriptedClick(ctx, `[role="button"]`)
		},
	},
	{
		name: "any element with submit text",
		action: func(ctx context.Context) (bool, error) {
			return tryScriptedClick(ctx, `div, span, button`)
		},
	},
	{
		name: "vendor submit control class",
		action: func(ctx context.Context) (bool, error) {
			return tryClick(ctx, `.freebirdFormviewerViewNavigationSubmitButton`)
		},
	},
}

func (s *Simulated) engageSubmit(ctx context.Context) error {
	for _, tactic := range submitTactics {
		engaged, err := tactic.action(ctx)
		if err != nil {
			continue
		}
		if engaged {
			return nil
		}
	}
	return fmt.Errorf("no submit control engaged")
}

func tryClick(ctx context.Context, sel string) (bool, error) {
	clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return false, err
	}
	return true, nil
}

// tryScriptedClick clicks the first element matching sel whose visible
// text is "submit" (case-insensitive).
func tryScriptedClick(ctx context.Context, sel string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		for (const el of document.querySelectorAll(%s)) {
			if ((el.innerText || '').trim().toLowerCase() === 'submit') {
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsString(sel))

	var clicked bool
	evalCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

// awaitConfirmation polls for either success signal: navigation to the
// confirmation endpoint, or confirmation text in the resulting page. Both
// are checked because either alone is unreliable across form variants.
func (s *Simulated) awaitConfirmation(ctx context.Context) (Outcome, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Rejected("no confirmation observed before timeout"), nil
		case <-ticker.C:
		}

		var location, pageText string
		err := chromedp.Run(ctx,
			chromedp.Location(&location),
			chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &pageText),
		)
		if err != nil {
			if ctx.Err() != nil {
				return Rejected("no confirmation observed before timeout"), nil
			}
			continue
		}

		if strings.Contains(location, "formResponse") || strings.Contains(pageText, s.opts.ConfirmationText) {
			return Accepted(), nil
		}
	}
}

// jsString renders a Go string as a JS string literal. Go's %q escaping is
// a valid JS double-quoted literal for the values we pass.
func jsString(s string) string {
	return fmt.Sprintf("%q", s)
}
