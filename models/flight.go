package models

// Trip types accepted in a SearchRequest.
const (
	TripRoundtrip = "roundtrip"
	TripOneway    = "oneway"
)

// SearchRequest describes one flight search as received from the caller.
type SearchRequest struct {
	Departure     string `json:"departure"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	TripType      string `json:"tripType"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	Infants       int    `json:"infants"`

	// Visual-debugging preferences; ignored when the scraper is forced headless.
	OpenBrowser   bool  `json:"openBrowser,omitempty"`
	KeepOpenMs    int64 `json:"keepBrowserOpenMs,omitempty"`
}

// Roundtrip reports whether the request asks for both legs.
func (r *SearchRequest) Roundtrip() bool {
	return r.TripType != TripOneway
}

// FlightRow is one parsed row of a results table.
type FlightRow struct {
	DateKey       string `json:"dateKey"`
	DateLabel     string `json:"dateLabel"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      string `json:"duration,omitempty"`
	FlightNumber  string `json:"flightNumber,omitempty"`
	SoldOut       bool   `json:"soldOut"`
	PriceText     string `json:"priceText,omitempty"`
	Price         string `json:"price,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// DateGroup aggregates one calendar day of flights with its cheapest
// bookable price. MinPrice is nil when no row of that day carried a
// parseable, non-sold-out price.
type DateGroup struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	MinPrice *float64 `json:"minPrice"`
	Currency string   `json:"currency,omitempty"`
}

// TableDebug records which selector strategy matched and how many rows
// survived parsing, so operators can diagnose markup drift.
type TableDebug struct {
	HasTable        bool   `json:"hasTable"`
	UsedSelector    string `json:"usedSelector,omitempty"`
	RowCount        int    `json:"rowCount"`
	ParsedRowCount  int    `json:"parsedRowCount"`
	SkippedRowCount int    `json:"skippedRowCount"`
}

// TableResult is the extraction output for one leg.
type TableResult struct {
	ByDate  map[string][]FlightRow `json:"byDate"`
	Dates   []DateGroup            `json:"dates"`
	RawRows [][]string             `json:"rawRows"`
	Debug   TableDebug             `json:"debug"`
}

// Flights holds both legs of a search; Return is empty for one-way trips.
type Flights struct {
	Outbound TableResult `json:"outbound"`
	Return   TableResult `json:"return"`
}

// PoolRef identifies the pool slot that served a search.
type PoolRef struct {
	Browsers       int `json:"browsers"`
	TabsPerBrowser int `json:"tabsPerBrowser"`
	BrowserIndex   int `json:"browserIndex"`
	TabIndex       int `json:"tabIndex"`
}

// Timings reports elapsed milliseconds per navigation phase. Zero means
// the phase was never reached.
type Timings struct {
	TotalMs       int64 `json:"totalMs"`
	HomeReadyMs   int64 `json:"homeReadyMs,omitempty"`
	FillFormMs    int64 `json:"fillFormMs,omitempty"`
	WaitResultsMs int64 `json:"waitResultsMs,omitempty"`
	StabilizeMs   int64 `json:"stabilizeMs,omitempty"`
	ScrapeMs      int64 `json:"scrapeMs,omitempty"`
	ResetMs       int64 `json:"resetHomeMs,omitempty"`
}

// Meta describes how a search was executed.
type Meta struct {
	RequestID  string  `json:"requestId"`
	TargetHome string  `json:"targetHome"`
	Headless   bool    `json:"headless"`
	URL        string  `json:"url,omitempty"`
	KeepReady  bool    `json:"keepReady"`
	Pool       PoolRef `json:"pool"`
	Timings    Timings `json:"timingsMs"`
}

// ScrapeResult is the full response for one search.
type ScrapeResult struct {
	Meta    Meta          `json:"meta"`
	Request SearchRequest `json:"request"`
	Flights Flights       `json:"flights"`
}
