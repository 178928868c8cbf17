package scraper

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"airkosova-scraper/browser"
	"airkosova-scraper/config"
	"airkosova-scraper/models"
	"airkosova-scraper/parser"
)

// navigator drives one search on one page handle, from the home form to
// the extracted tables and back. It is created per search and never
// shared across goroutines.
type navigator struct {
	drv       browser.Driver
	cfg       *config.Config
	requestID string

	// warmedAfter reports whether the tab ended the run parked on the
	// home form, ready for the next search.
	warmedAfter bool

	// sleep is swapped out in tests to keep them fast.
	sleep func(time.Duration)
}

func newNavigator(drv browser.Driver, cfg *config.Config, requestID string) *navigator {
	return &navigator{drv: drv, cfg: cfg, requestID: requestID, sleep: time.Sleep}
}

func (n *navigator) timeout(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (n *navigator) logf(format string, args ...any) {
	log.Printf("[scraper] [%s] "+format+"\n", append([]any{n.requestID}, args...)...)
}

// run executes the whole search and reports the parsed legs together
// with per-phase timings. warm tells it whether the tab is believed to
// already sit on the home form.
func (n *navigator) run(req *models.SearchRequest, warm bool, headless bool) (models.Flights, models.Timings, error) {
	var flights models.Flights
	var timings models.Timings
	t0 := time.Now()

	if err := n.ensureHome(warm); err != nil {
		return flights, timings, err
	}
	tHome := time.Now()
	timings.HomeReadyMs = tHome.Sub(t0).Milliseconds()

	if err := n.fillForm(req); err != nil {
		return flights, timings, err
	}
	tForm := time.Now()
	timings.FillFormMs = tForm.Sub(tHome).Milliseconds()

	if err := n.submit(); err != nil {
		return flights, timings, err
	}
	returnSel, err := n.waitForTables(req.Roundtrip())
	if err != nil {
		return flights, timings, err
	}
	tTables := time.Now()
	timings.WaitResultsMs = tTables.Sub(tForm).Milliseconds()

	n.stabilize(selOutboundTbody, n.cfg.Timeouts.StabilizeOutboundMs)
	if req.Roundtrip() {
		n.stabilize(returnSel, n.cfg.Timeouts.StabilizeReturnMs)
		returnSel = n.recoverEmptyReturn(returnSel)
	}
	tStable := time.Now()
	timings.StabilizeMs = tStable.Sub(tTables).Milliseconds()

	flights = n.extract(req, returnSel)
	tScraped := time.Now()
	timings.ScrapeMs = tScraped.Sub(tStable).Milliseconds()

	// Visual debugging: keep the headed browser on the results view.
	if !headless {
		if keep := n.keepOpenDelay(req); keep > 0 {
			n.logf("Keeping browser open for %s", keep)
			n.sleep(keep)
		}
	}

	// A failed reset never fails the search; the extracted result is
	// already in hand and the tab just loses its warm state.
	if n.cfg.KeepReady {
		if err := n.resetHome(); err != nil {
			n.logf("Reset to home failed, tab goes cold: %v", err)
		} else {
			n.warmedAfter = true
			timings.ResetMs = time.Since(tScraped).Milliseconds()
		}
	}
	timings.TotalMs = time.Since(t0).Milliseconds()
	return flights, timings, nil
}

// ensureHome makes sure the tab shows the search form, skipping the
// navigation entirely when the tab is still warm from a previous run.
func (n *navigator) ensureHome(warm bool) error {
	if warm && n.drv.Count(selFromSelect) > 0 {
		return nil
	}
	if err := n.drv.Navigate(n.cfg.TargetHome, n.timeout(n.cfg.Timeouts.NavigateMs)); err != nil {
		return navErr("home", "", err)
	}
	if err := n.drv.WaitVisible(selFromSelect, n.timeout(n.cfg.Timeouts.FieldVisibleMs)); err != nil {
		return navErr("home", selFromSelect, err)
	}
	return nil
}

// fillForm sets trip type, airports, dates and passenger counts.
func (n *navigator) fillForm(req *models.SearchRequest) error {
	fieldTimeout := n.timeout(n.cfg.Timeouts.FieldVisibleMs)

	radio := selRoundtripRadio
	if !req.Roundtrip() {
		radio = selOnewayRadio
	}
	if err := n.drv.Click(radio, fieldTimeout); err != nil {
		return navErr("fill", radio, err)
	}

	if err := n.drv.SelectValue(selFromSelect, req.Departure, fieldTimeout); err != nil {
		return navErr("fill", selFromSelect, err)
	}
	// The site repopulates the destination list after the origin changes.
	n.sleep(120 * time.Millisecond)
	if err := n.drv.SelectValue(selToSelect, req.Destination, fieldTimeout); err != nil {
		return navErr("fill", selToSelect, err)
	}

	if err := n.pickDate(selDepartureDateInput, req.DepartureDate); err != nil {
		return err
	}
	if req.Roundtrip() {
		if err := n.pickDate(selReturnDateInput, req.ReturnDate); err != nil {
			return err
		}
	}

	if err := n.drv.SelectValue(selAdultSelect, strconv.Itoa(req.Adults), fieldTimeout); err != nil {
		return navErr("fill", selAdultSelect, err)
	}
	if req.Children > 0 {
		if err := n.drv.SelectValue(selChildSelect, strconv.Itoa(req.Children), fieldTimeout); err != nil {
			return navErr("fill", selChildSelect, err)
		}
	}
	if req.Infants > 0 {
		if err := n.drv.SelectValue(selInfantSelect, strconv.Itoa(req.Infants), fieldTimeout); err != nil {
			return navErr("fill", selInfantSelect, err)
		}
	}
	return nil
}

// pickDate drives the flatpickr widget: open the calendar on the input,
// page forward month by month, then click the day cell of the current
// grid whose text matches the target day.
func (n *navigator) pickDate(inputSel, isoDate string) error {
	target, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return navErr("calendar", inputSel, fmt.Errorf("bad date %q: %w", isoDate, err))
	}
	calTimeout := n.timeout(n.cfg.Timeouts.CalendarMs)

	if err := n.drv.Click(inputSel, calTimeout); err != nil {
		return navErr("calendar", inputSel, err)
	}
	if err := n.drv.WaitVisible(selCalendarRoot, calTimeout); err != nil {
		return navErr("calendar", selCalendarRoot, err)
	}

	targetKey := target.Year()*12 + int(target.Month()) - 1
	// 48 next-month clicks cover the full booking horizon.
	for i := 0; i < 48; i++ {
		monthIdx, err := n.drv.SelectedIndex(selCalendarMonth, calTimeout)
		if err != nil || monthIdx < 0 {
			break
		}
		yearTxt, err := n.drv.Value(selCalendarYear, calTimeout)
		if err != nil {
			break
		}
		year, err := strconv.Atoi(strings.Map(keepDigits, yearTxt))
		if err != nil {
			break
		}

		curKey := year*12 + monthIdx
		if curKey == targetKey {
			break
		}
		if curKey > targetKey {
			return navErr("calendar", inputSel,
				fmt.Errorf("calendar is ahead of target date (%d-%02d > %s)", year, monthIdx+1, isoDate))
		}
		if err := n.drv.Click(selCalendarNext, calTimeout); err != nil {
			return navErr("calendar", selCalendarNext, err)
		}
		n.sleep(80 * time.Millisecond)
	}

	day := strconv.Itoa(target.Day())
	if err := n.drv.ClickMatchingText(selCalendarDay, day, calTimeout); err != nil {
		return navErr("calendar", selCalendarDay, fmt.Errorf("day %s of %s: %w", day, isoDate, err))
	}
	n.sleep(80 * time.Millisecond)
	return nil
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// submit clicks the search button and pauses briefly so the results view
// starts rendering before the table waits begin.
func (n *navigator) submit() error {
	if err := n.drv.Click(selSearchButton, n.timeout(n.cfg.Timeouts.FieldVisibleMs)); err != nil {
		return navErr("submit", selSearchButton, err)
	}
	n.sleep(n.timeout(n.cfg.Timeouts.SubmitSettleMs))
	return nil
}

// waitForTables blocks until the outbound tbody exists and, for
// roundtrips, some return tbody too. It returns the return selector
// variant that matched. A missing outbound table is a hard failure; an
// empty result page never produces one.
func (n *navigator) waitForTables(roundtrip bool) (string, error) {
	outTimeout := n.timeout(n.cfg.Timeouts.OutboundTableMs)
	if err := n.drv.WaitVisible(selOutboundTbody, outTimeout); err != nil {
		return "", navErr("results", selOutboundTbody, err)
	}
	if !roundtrip {
		return "", nil
	}
	both := selReturnTbody + ", " + selReturnTbodyLoose
	if err := n.drv.WaitVisible(both, n.timeout(n.cfg.Timeouts.ReturnTableMs)); err != nil {
		return "", navErr("results", both, err)
	}
	return n.returnSelector(), nil
}

// returnSelector prefers the strict return tbody path over the loose one.
func (n *navigator) returnSelector() string {
	if n.drv.Count(selReturnTbody) > 0 {
		return selReturnTbody
	}
	return selReturnTbodyLoose
}

// stabilize polls the row count of tbodySel until it holds still for the
// configured number of rounds. Rows load progressively, so extracting
// right after the tbody appears would truncate the result. Best effort;
// a timeout just means we extract what is there.
func (n *navigator) stabilize(tbodySel string, timeoutMs int) int {
	deadline := time.Now().Add(n.timeout(timeoutMs))
	poll := n.timeout(n.cfg.Timeouts.StabilizePollMs)
	rowSel := tbodySel + " > tr"

	last := -1
	stable := 0
	for time.Now().Before(deadline) {
		count := n.drv.Count(rowSel)
		if count == last {
			stable++
		} else {
			stable = 0
		}
		last = count
		if stable >= n.cfg.Timeouts.StabilizeRounds {
			return count
		}
		n.sleep(poll)
	}
	return last
}

// recoverEmptyReturn handles flows where the return table only populates
// after an outbound option is chosen: if the outbound table has rows but
// the return one is empty, pick the first outbound option and wait for
// the return rows to appear.
func (n *navigator) recoverEmptyReturn(returnSel string) string {
	outRows := n.drv.Count(selOutboundFirstRow)
	retRows := n.drv.Count(returnSel + " > tr")
	if outRows == 0 || retRows > 0 {
		return returnSel
	}

	n.logf("Return table empty with %d outbound rows; selecting first outbound option", outRows)
	clickTimeout := 10 * time.Second
	if n.drv.Count(selOutboundRadio) > 0 {
		if err := n.drv.Click(selOutboundRadio, clickTimeout); err != nil {
			n.logf("Outbound radio click failed: %v", err)
		}
	} else if err := n.drv.Click(selOutboundFirstRow, clickTimeout); err != nil {
		n.logf("Outbound row click failed: %v", err)
	}

	// The nesting can change after the selection; re-resolve the variant.
	deadline := time.Now().Add(n.timeout(n.cfg.Timeouts.StabilizeReturnMs))
	for time.Now().Before(deadline) {
		returnSel = n.returnSelector()
		if n.drv.Count(returnSel+" > tr") > 0 {
			break
		}
		n.sleep(n.timeout(n.cfg.Timeouts.StabilizePollMs))
	}
	n.stabilize(returnSel, n.cfg.Timeouts.StabilizeReturnMs)
	return returnSel
}

// extract snapshots each leg's tbody and parses it. The outbound leg
// falls back to the loose selector before giving up; a leg whose tbody
// vanished between the wait and the snapshot parses as an empty table.
func (n *navigator) extract(req *models.SearchRequest, returnSel string) models.Flights {
	depYear := yearOf(req.DepartureDate, time.Now().Year())
	retYear := yearOf(req.ReturnDate, depYear)

	var flights models.Flights
	html, used := n.snapshot(selOutboundTbody, selOutboundTbodyLoose)
	flights.Outbound = parser.ParseTable(html, used, depYear)

	if req.Roundtrip() {
		html, used = n.snapshot(returnSel, selReturnTbodyLoose)
		flights.Return = parser.ParseTable(html, used, retYear)
	} else {
		flights.Return = parser.ParseTable("", "", retYear)
	}
	return flights
}

// snapshot returns the outerHTML of the first selector that matches.
func (n *navigator) snapshot(selectors ...string) (html, used string) {
	short := 5 * time.Second
	for _, sel := range selectors {
		if n.drv.Count(sel) == 0 {
			continue
		}
		h, err := n.drv.ElementHTML(sel, short)
		if err != nil {
			n.logf("Snapshot of %s failed: %v", sel, err)
			continue
		}
		return h, sel
	}
	return "", ""
}

// keepOpenDelay caps the caller's requested keep-open time.
func (n *navigator) keepOpenDelay(req *models.SearchRequest) time.Duration {
	keep := req.KeepOpenMs
	if keep <= 0 {
		return 0
	}
	if keep > n.cfg.KeepOpenMaxMs {
		keep = n.cfg.KeepOpenMaxMs
	}
	return time.Duration(keep) * time.Millisecond
}

// resetHome returns the tab to the search form for the next run. It
// prefers clicking the site's own header navigation and falls back to a
// hard navigation when the form does not come back.
func (n *navigator) resetHome() error {
	resetTimeout := n.timeout(n.cfg.Timeouts.ResetMs)

	if n.drv.Count(selHomeLink) > 0 {
		if err := n.drv.Click(selHomeLink, resetTimeout); err != nil {
			n.logf("Home link click failed: %v", err)
		}
	} else if n.drv.Count(selHomeLogo) > 0 {
		if err := n.drv.Click(selHomeLogo, resetTimeout); err != nil {
			n.logf("Home logo click failed: %v", err)
		}
	}

	if n.drv.Count(selFromSelect) == 0 {
		if err := n.drv.Navigate(n.cfg.TargetHome, n.timeout(n.cfg.Timeouts.NavigateMs)); err != nil {
			return navErr("reset", "", err)
		}
	}
	if err := n.drv.WaitVisible(selFromSelect, n.timeout(n.cfg.Timeouts.FieldVisibleMs)); err != nil {
		return navErr("reset", selFromSelect, err)
	}
	return nil
}

func yearOf(isoDate string, fallback int) int {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return fallback
	}
	return t.Year()
}
