package scraper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"airkosova-scraper/browser"
	"airkosova-scraper/config"
	"airkosova-scraper/models"
)

// scriptedService builds a service whose pool launches fake pages
// pre-scripted for a successful roundtrip run.
func scriptedService(t *testing.T, launches *int32) (*Service, *fakePage) {
	t.Helper()
	cfg := config.Default()
	cfg.Pool.Browsers = 1
	cfg.Pool.TabsPerBrowser = 1
	cfg.Pool.Warmup = false
	cfg.Timeouts.StabilizePollMs = 1
	cfg.Timeouts.SubmitSettleMs = 1

	page := newFakePage()
	page.counts[selFromSelect] = 1
	page.counts[selOutboundTbody] = 1
	page.counts[selOutboundTbody+" > tr"] = 2
	page.counts[selReturnTbody] = 1
	page.counts[selReturnTbody+" > tr"] = 1
	page.counts[selOutboundFirstRow] = 2
	page.counts[selHomeLink] = 1
	page.html[selOutboundTbody] = outboundFixture
	page.html[selReturnTbody] = returnFixture

	launch := func(cfg *config.Config, _ bool, index int) (*browser.Browser, error) {
		if launches != nil {
			atomic.AddInt32(launches, 1)
		}
		return &browser.Browser{
			Index: index,
			Handles: []*browser.PageHandle{
				{BrowserIndex: index, TabIndex: 0, Page: page},
			},
		}, nil
	}
	mgr := browser.NewManagerWithLaunch(cfg, WarmSelector, launch)
	return NewService(cfg, mgr), page
}

func TestSearchRoundtrip(t *testing.T) {
	svc, _ := scriptedService(t, nil)
	defer svc.Close()

	result, err := svc.Search(context.Background(), models.SearchRequest{
		Departure:     "zrh",
		Destination:   "prn",
		DepartureDate: "2026-03-28",
		ReturnDate:    "2026-04-05",
		TripType:      "roundtrip",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Meta.RequestID == "" {
		t.Error("missing request id")
	}
	if result.Request.Departure != "ZRH" || result.Request.Destination != "PRN" {
		t.Errorf("codes not canonicalized: %+v", result.Request)
	}
	if result.Request.Adults != 1 {
		t.Errorf("adults = %d, want default 1", result.Request.Adults)
	}
	if result.Meta.Pool.Browsers != 1 || result.Meta.Pool.TabsPerBrowser != 1 {
		t.Errorf("pool ref = %+v", result.Meta.Pool)
	}
	if result.Flights.Outbound.Debug.ParsedRowCount != 2 {
		t.Errorf("outbound rows = %d, want 2", result.Flights.Outbound.Debug.ParsedRowCount)
	}

	// The handle must be free again for the next search.
	status := svc.PoolStatus()
	if status.TotalBusy != 0 {
		t.Errorf("busy after search = %d, want 0", status.TotalBusy)
	}
}

func TestSearchValidationSkipsPool(t *testing.T) {
	var launches int32
	svc, _ := scriptedService(t, &launches)
	defer svc.Close()

	cases := []struct {
		name  string
		req   models.SearchRequest
		field string
	}{
		{
			name:  "unknown airport",
			req:   models.SearchRequest{Departure: "XXX", Destination: "PRN", DepartureDate: "2026-03-28", ReturnDate: "2026-04-05"},
			field: "departure",
		},
		{
			name:  "missing departure date",
			req:   models.SearchRequest{Departure: "ZRH", Destination: "PRN", ReturnDate: "2026-04-05"},
			field: "departureDate",
		},
		{
			name:  "bad date format",
			req:   models.SearchRequest{Departure: "ZRH", Destination: "PRN", DepartureDate: "28.03.2026", ReturnDate: "2026-04-05"},
			field: "departureDate",
		},
		{
			name:  "roundtrip without return date",
			req:   models.SearchRequest{Departure: "ZRH", Destination: "PRN", DepartureDate: "2026-03-28"},
			field: "returnDate",
		},
		{
			name:  "bad trip type",
			req:   models.SearchRequest{Departure: "ZRH", Destination: "PRN", DepartureDate: "2026-03-28", TripType: "multicity"},
			field: "tripType",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tc.req)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tc.field)
			}
		})
	}

	// Invalid requests must never touch the browser pool.
	if n := atomic.LoadInt32(&launches); n != 0 {
		t.Errorf("launches = %d, want 0", n)
	}
}

func TestSearchOnewayDropsReturnDate(t *testing.T) {
	svc, page := scriptedService(t, nil)
	defer svc.Close()

	result, err := svc.Search(context.Background(), models.SearchRequest{
		Departure:     "ZRH",
		Destination:   "PRN",
		DepartureDate: "2026-03-28",
		ReturnDate:    "2026-04-05",
		TripType:      "oneway",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Request.ReturnDate != "" {
		t.Errorf("returnDate = %q, want cleared for oneway", result.Request.ReturnDate)
	}
	if len(page.textClicks) != 1 {
		t.Errorf("day clicks = %v, want only departure", page.textClicks)
	}
	if result.Flights.Return.Debug.HasTable {
		t.Error("oneway return leg must report no table")
	}
}

func TestSearchReleasesHandleOnFailure(t *testing.T) {
	svc, page := scriptedService(t, nil)
	defer svc.Close()

	// Calendar already past the target month makes the run fail mid-form.
	page.monthIdx = 11

	_, err := svc.Search(context.Background(), models.SearchRequest{
		Departure:     "ZRH",
		Destination:   "PRN",
		DepartureDate: "2026-03-28",
		ReturnDate:    "2026-04-05",
	})
	var navError *NavigationError
	if !errors.As(err, &navError) {
		t.Fatalf("err = %v, want NavigationError", err)
	}

	status := svc.PoolStatus()
	if status.TotalBusy != 0 {
		t.Errorf("busy after failed search = %d, want 0 (handle must be released)", status.TotalBusy)
	}
	tab := status.Browsers[0].Tabs[0]
	if tab.Warmed {
		t.Error("failed run must clear the warmed flag")
	}
	if tab.LastError == "" {
		t.Error("failed run must record lastError")
	}
}

func TestSearchPassengerClamps(t *testing.T) {
	svc, page := scriptedService(t, nil)
	defer svc.Close()

	result, err := svc.Search(context.Background(), models.SearchRequest{
		Departure:     "ZRH",
		Destination:   "PRN",
		DepartureDate: "2026-03-28",
		ReturnDate:    "2026-04-05",
		Adults:        9,
		Children:      2,
		Infants:       -1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Request.Adults != 5 || result.Request.Children != 2 || result.Request.Infants != 0 {
		t.Errorf("passengers = %d/%d/%d, want 5/2/0",
			result.Request.Adults, result.Request.Children, result.Request.Infants)
	}
	if page.selected[selAdultSelect] != "5" || page.selected[selChildSelect] != "2" {
		t.Errorf("selects = %v", page.selected)
	}
	if _, ok := page.selected[selInfantSelect]; ok {
		t.Error("infant select must be untouched at 0")
	}
}
