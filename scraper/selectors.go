package scraper

// Selectors for the provider's booking form and results view. The site
// exposes no stable data attributes, so these are positional paths that
// break loudly when the markup drifts; keep them in one place.
const (
	selFromSelect   = "#buchungen_buchen_form > div:nth-child(3) > select"
	selToSelect     = "#buchungen_buchen_form > div:nth-child(4) > select"
	selAdultSelect  = "#buchungen_buchen_form > div:nth-child(9) > div:nth-child(1) > label > select"
	selChildSelect  = "#buchungen_buchen_form > div:nth-child(9) > div:nth-child(2) > label > select"
	selInfantSelect = "#buchungen_buchen_form > div:nth-child(9) > div:nth-child(3) > label > select"

	// Radio IDs carry literal spaces, escaped for CSS.
	selRoundtripRadio = `#FLGARTHin-\ und\ Rück\ `
	selOnewayRadio    = `#FLGARTNur\ Hinreise`

	selDepartureDateInput = "#DATUM_HIN_input"
	selReturnDateInput    = "#DATUM_RUK_input"

	selSearchButton = "#buchen_aktion"

	// flatpickr calendar, present only while a date input has focus.
	selCalendarRoot  = "body > div.flatpickr-calendar.animate.open"
	selCalendarMonth = selCalendarRoot + " > div.flatpickr-months > div > div > select"
	selCalendarYear  = selCalendarRoot + " > div.flatpickr-months > div > div > div > input"
	selCalendarNext  = selCalendarRoot + " span.flatpickr-next-month"
	selCalendarDay   = selCalendarRoot + " .flatpickr-day:not(.prevMonthDay):not(.nextMonthDay):not(.disabled)"

	// Results tables. The site sometimes nests the return table one level
	// deeper, hence the strict and loose variants.
	selOutboundTbody       = "#div_hin > table > tbody"
	selOutboundTbodyLoose  = "#div_hin table tbody"
	selReturnTbody         = "#div_ruk > table > tbody"
	selReturnTbodyLoose    = "#div_ruk table tbody"
	selOutboundRadio       = `#div_hin > table > tbody input[type="radio"]`
	selOutboundFirstRow    = "#div_hin > table > tbody > tr"

	// Header navigation used to return to the search form between runs.
	selHomeLink = "#header > nav > ul > li.title > a"
	selHomeLogo = "#header > nav > ul > li.title > a > img"
)

// WarmSelector is the element whose visibility marks a tab as parked on
// the ready search form; the pool warm-up waits on it.
const WarmSelector = selFromSelect
