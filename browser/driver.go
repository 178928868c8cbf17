package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Driver is the page surface the navigation layer works against: locate,
// wait, click, select, read. Keeping it this narrow decouples the search
// state machine from the rod binding so it can run against a fake page
// in tests.
type Driver interface {
	// Navigate loads url and waits for the page load event.
	Navigate(url string, timeout time.Duration) error
	// WaitVisible blocks until the first element matching selector is visible.
	WaitVisible(selector string, timeout time.Duration) error
	// Click clicks the first element matching selector.
	Click(selector string, timeout time.Duration) error
	// ClickMatchingText clicks the first selector match whose trimmed
	// text equals text.
	ClickMatchingText(selector, text string, timeout time.Duration) error
	// SelectValue picks the option with the given value attribute on a
	// select element.
	SelectValue(selector, value string, timeout time.Duration) error
	// Count returns how many elements currently match selector.
	Count(selector string) int
	// Value returns the value property of the first match.
	Value(selector string, timeout time.Duration) (string, error)
	// SelectedIndex returns the selectedIndex property of a select element.
	SelectedIndex(selector string, timeout time.Duration) (int, error)
	// ElementHTML returns the outerHTML of the first match.
	ElementHTML(selector string, timeout time.Duration) (string, error)
	// URL reports the page's current location.
	URL() string
}

// rodDriver implements Driver on a rod page.
type rodDriver struct {
	page *rod.Page
}

func newRodDriver(page *rod.Page) *rodDriver {
	return &rodDriver{page: page}
}

func (d *rodDriver) Navigate(url string, timeout time.Duration) error {
	p := d.page.Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (d *rodDriver) WaitVisible(selector string, timeout time.Duration) error {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) Click(selector string, timeout time.Duration) error {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	_ = el.ScrollIntoView()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) ClickMatchingText(selector, text string, timeout time.Duration) error {
	els, err := d.page.Timeout(timeout).Elements(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	for _, el := range els {
		t, err := el.Text()
		if err != nil {
			continue
		}
		if strings.TrimSpace(t) == text {
			_ = el.ScrollIntoView()
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return fmt.Errorf("click %s %q: %w", selector, text, err)
			}
			return nil
		}
	}
	return fmt.Errorf("no element matching %s with text %q", selector, text)
}

func (d *rodDriver) SelectValue(selector, value string, timeout time.Duration) error {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Select([]string{fmt.Sprintf(`[value=%q]`, value)}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("select %q on %s: %w", value, selector, err)
	}
	return nil
}

func (d *rodDriver) Count(selector string) int {
	els, err := d.page.Elements(selector)
	if err != nil {
		return 0
	}
	return len(els)
}

func (d *rodDriver) Value(selector string, timeout time.Duration) (string, error) {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property("value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (d *rodDriver) SelectedIndex(selector string, timeout time.Duration) (int, error) {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return -1, err
	}
	v, err := el.Property("selectedIndex")
	if err != nil {
		return -1, err
	}
	return v.Int(), nil
}

func (d *rodDriver) ElementHTML(selector string, timeout time.Duration) (string, error) {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return "", err
	}
	return el.HTML()
}

func (d *rodDriver) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
