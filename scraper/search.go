package scraper

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"airkosova-scraper/browser"
	"airkosova-scraper/config"
	"airkosova-scraper/models"
)

// allowedAirports is the set of codes the provider's form actually
// offers; anything else would leave the select untouched and search the
// wrong route.
var allowedAirports = map[string]bool{
	"PRN": true, "BSL": true, "BER": true, "BRE": true, "BRU": true,
	"DTM": true, "DUS": true, "GVA": true, "GOT": true, "HAM": true,
	"HAJ": true, "HEL": true, "CGN": true, "LJU": true, "LUX": true,
	"MMX": true, "FMM": true, "BGY": true, "MUC": true, "FMO": true,
	"NUE": true, "OSL": true, "SZG": true, "ARN": true, "STR": true,
	"VXO": true, "VIE": true, "ZRH": true,
}

// Service runs flight searches on the browser pool.
type Service struct {
	cfg  *config.Config
	pool *browser.Manager
}

// NewService wires a service to its browser manager.
func NewService(cfg *config.Config, pool *browser.Manager) *Service {
	return &Service{cfg: cfg, pool: pool}
}

// PoolStatus exposes the underlying pool snapshot.
func (s *Service) PoolStatus() models.PoolStatus {
	return s.pool.Status()
}

// Close shuts the browser pool down.
func (s *Service) Close() error {
	return s.pool.Close()
}

// Search validates req, acquires a tab and runs the full navigation.
// Validation happens before any pool work so a malformed request never
// costs a browser slot; such failures return a *ConfigError.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.ScrapeResult, error) {
	requestID := uuid.NewString()[:8]
	if err := normalizeRequest(&req); err != nil {
		log.Printf("[scraper] [%s] Rejected request: %v\n", requestID, err)
		return nil, err
	}

	headless := s.headlessFor(&req)
	pool, err := s.pool.Ensure(ctx, headless)
	if err != nil {
		return nil, err
	}

	handle, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(handle)

	log.Printf("[scraper] [%s] %s %s->%s dep=%s ret=%s on tab %d/%d\n",
		requestID, req.TripType, req.Departure, req.Destination,
		req.DepartureDate, req.ReturnDate, handle.BrowserIndex, handle.TabIndex)

	nav := newNavigator(handle.Page, s.cfg, requestID)
	flights, timings, runErr := nav.run(&req, handle.Warmed(), headless)

	handle.SetLastURL(handle.Page.URL())
	if runErr != nil {
		handle.SetLastError(runErr)
		// A failed run leaves the tab in an unknown page state.
		handle.SetWarmed(false)
		log.Printf("[scraper] [%s] Search failed after %dms: %v\n", requestID, timings.TotalMs, runErr)
		return nil, runErr
	}
	handle.SetWarmed(nav.warmedAfter)

	browsers, tabs := pool.Size()
	result := &models.ScrapeResult{
		Meta: models.Meta{
			RequestID:  requestID,
			TargetHome: s.cfg.TargetHome,
			Headless:   headless,
			URL:        handle.Page.URL(),
			KeepReady:  s.cfg.KeepReady,
			Pool: models.PoolRef{
				Browsers:       browsers,
				TabsPerBrowser: tabs,
				BrowserIndex:   handle.BrowserIndex,
				TabIndex:       handle.TabIndex,
			},
			Timings: timings,
		},
		Request: req,
		Flights: flights,
	}
	log.Printf("[scraper] [%s] Done in %dms: %d outbound / %d return rows\n",
		requestID, timings.TotalMs,
		flights.Outbound.Debug.ParsedRowCount, flights.Return.Debug.ParsedRowCount)
	return result, nil
}

// headlessFor decides the browser mode for a request. ForceHeadless wins
// over the caller's openBrowser preference.
func (s *Service) headlessFor(req *models.SearchRequest) bool {
	if s.cfg.ForceHeadless {
		return true
	}
	if req.OpenBrowser {
		return false
	}
	return s.cfg.Headless
}

// normalizeRequest validates and canonicalizes the request in place.
func normalizeRequest(req *models.SearchRequest) error {
	req.TripType = strings.ToLower(strings.TrimSpace(req.TripType))
	if req.TripType == "" {
		req.TripType = models.TripRoundtrip
	}
	if req.TripType != models.TripRoundtrip && req.TripType != models.TripOneway {
		return configErr("tripType", "must be %q or %q, got %q", models.TripRoundtrip, models.TripOneway, req.TripType)
	}

	req.Departure = strings.ToUpper(strings.TrimSpace(req.Departure))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))
	if req.Departure == "" || req.Destination == "" {
		return configErr("departure/destination", "both airport codes are required")
	}
	if !allowedAirports[req.Departure] {
		return configErr("departure", "unsupported airport code %q", req.Departure)
	}
	if !allowedAirports[req.Destination] {
		return configErr("destination", "unsupported airport code %q", req.Destination)
	}

	req.DepartureDate = strings.TrimSpace(req.DepartureDate)
	if req.DepartureDate == "" {
		return configErr("departureDate", "required (YYYY-MM-DD)")
	}
	if _, err := time.Parse("2006-01-02", req.DepartureDate); err != nil {
		return configErr("departureDate", "must be YYYY-MM-DD, got %q", req.DepartureDate)
	}
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)
	if req.Roundtrip() {
		if req.ReturnDate == "" {
			return configErr("returnDate", "required for roundtrip searches (YYYY-MM-DD)")
		}
		if _, err := time.Parse("2006-01-02", req.ReturnDate); err != nil {
			return configErr("returnDate", "must be YYYY-MM-DD, got %q", req.ReturnDate)
		}
	} else {
		req.ReturnDate = ""
	}

	req.Adults = clampPassenger(req.Adults, 1, 5, 1)
	req.Children = clampPassenger(req.Children, 0, 5, 0)
	req.Infants = clampPassenger(req.Infants, 0, 5, 0)
	if req.KeepOpenMs < 0 {
		req.KeepOpenMs = 0
	}
	return nil
}

func clampPassenger(n, min, max, fallback int) int {
	if n == 0 {
		return fallback
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
