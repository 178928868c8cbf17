package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"airkosova-scraper/models"
)

var soldOutRe = regexp.MustCompile(`(?i)\bsold\s*out\b|\bausgebucht\b`)

// ParseTable extracts flight rows from the outerHTML snapshot of a
// results table body. Rows need at least four cells (date, times, flight
// number, price) and at least two time tokens; everything else is kept
// in RawRows for diagnostics but skipped from the parsed output.
//
// html may be empty (no table element matched any selector variant); the
// result is then an empty TableResult with Debug.HasTable=false. Callers
// decide whether a missing table is acceptable for their leg.
func ParseTable(html, usedSelector string, baseYear int) models.TableResult {
	result := models.TableResult{
		ByDate: map[string][]models.FlightRow{},
		Dates:  []models.DateGroup{},
		Debug:  models.TableDebug{UsedSelector: usedSelector},
	}
	if strings.TrimSpace(html) == "" {
		return result
	}

	// The snapshot is a bare tbody; wrap it so the HTML5 parser keeps
	// the row structure instead of foster-parenting it away.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table>" + html + "</table>"))
	if err != nil {
		return result
	}
	result.Debug.HasTable = true

	groups := map[string]*models.DateGroup{}

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Some tables use <th> for the date cell; include both.
		cells := tr.Find("td,th")
		raw := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			raw = append(raw, strings.Join(strings.Fields(cell.Text()), " "))
		})
		result.RawRows = append(result.RawRows, raw)
		result.Debug.RowCount++

		if len(raw) < 4 {
			return
		}
		times := ExtractTimes(raw[1])
		if len(times) < 2 {
			result.Debug.SkippedRowCount++
			return
		}

		key, label := ParseDateCell(raw[0], baseYear)
		priceTxt := raw[3]
		currency, price, priceOK := ParsePrice(priceTxt)
		soldOut := soldOutRe.MatchString(priceTxt)

		row := models.FlightRow{
			DateKey:       key,
			DateLabel:     label,
			DepartureTime: times[0],
			ArrivalTime:   times[1],
			FlightNumber:  raw[2],
			SoldOut:       soldOut,
			PriceText:     priceTxt,
		}
		if mins, ok := MinutesBetween(times[0], times[1]); ok {
			row.Duration = FormatDuration(mins)
		}
		if priceOK {
			row.Price = price
			row.Currency = currency
		}

		result.ByDate[key] = append(result.ByDate[key], row)
		result.Debug.ParsedRowCount++

		group, exists := groups[key]
		if !exists {
			group = &models.DateGroup{Key: key, Label: label}
			groups[key] = group
		}
		// Sold-out or unparseable rows never move the date's minimum.
		if priceOK && !soldOut {
			if num, err := strconv.ParseFloat(price, 64); err == nil {
				if group.MinPrice == nil || num < *group.MinPrice {
					group.MinPrice = &num
					group.Currency = currency
				}
			}
		}
	})

	for key := range result.ByDate {
		rows := result.ByDate[key]
		sort.SliceStable(rows, func(i, j int) bool {
			return departureLess(rows[i].DepartureTime, rows[j].DepartureTime)
		})
	}

	for _, g := range groups {
		result.Dates = append(result.Dates, *g)
	}
	sort.Slice(result.Dates, func(i, j int) bool {
		return dateGroupLess(result.Dates[i].Key, result.Dates[j].Key)
	})

	return result
}

// departureLess orders departure times by clock value, so an unpadded
// "6:05" still sorts before "10:00". Unparseable tokens sort last.
func departureLess(a, b string) bool {
	am, okA := toMinutes(a)
	bm, okB := toMinutes(b)
	if okA != okB {
		return okA
	}
	if !okA {
		return a < b
	}
	return am < bm
}

var isoKeyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dateGroupLess orders ISO date keys by calendar day and pushes keys the
// normalizer could not parse behind all parseable ones.
func dateGroupLess(a, b string) bool {
	aISO := isoKeyRe.MatchString(a)
	bISO := isoKeyRe.MatchString(b)
	if aISO != bISO {
		return aISO
	}
	return a < b
}
