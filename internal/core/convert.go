package core

// convert.go turns user-entered price cells into exact decimal amounts and
// renders them back as localized currency strings.
//
// Price cells arrive in whatever shape the exporting tool produced:
//   - Currency symbols and thousand separators ("$1,234.50")
//   - Accounting negatives ("(12.00)")
//   - Excel formula prefixes (="19.99")

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// priceRegex validates a price after cleanup. Exponent notation is rejected.
var priceRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// PriceScale is the number of fractional digits prices are rounded to.
const PriceScale = 2

// ParsePrice parses a price cell into a decimal rounded half away from zero
// to PriceScale places.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := cleanNumeric(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("invalid number: empty value")
	}
	if !priceRegex.MatchString(cleaned) {
		return decimal.Zero, fmt.Errorf("invalid number: %q", s)
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(cleaned, "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number: %q: %w", s, err)
	}
	return d.Round(PriceScale), nil
}

// cleanNumeric strips currency symbols, thousands separators and accounting
// parentheses from a numeric cell.
func cleanNumeric(s string) string {
	s = CleanCell(s)
	if s == "" {
		return ""
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}
	return s
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// PriceFormatter renders decimal prices for display in one locale and currency.
type PriceFormatter struct {
	tag    language.Tag
	unit   currency.Unit
	symbol string
}

// NewPriceFormatter builds a formatter. locale is a BCP 47 tag such as
// "en-US"; code is an ISO 4217 currency code. An empty symbol falls back to
// the currency code followed by a space.
func NewPriceFormatter(locale, code, symbol string) (*PriceFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("price locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("price currency %q: %w", code, err)
	}
	if symbol == "" {
		symbol = unit.String() + " "
	}
	return &PriceFormatter{tag: tag, unit: unit, symbol: symbol}, nil
}

// DefaultPriceFormatter formats US dollars for en-US.
func DefaultPriceFormatter() *PriceFormatter {
	return &PriceFormatter{tag: language.AmericanEnglish, unit: currency.USD, symbol: "$"}
}

// Currency returns the ISO code of the formatter's currency.
func (f *PriceFormatter) Currency() string {
	return f.unit.String()
}

// exactFloatDigits is how many significant digits survive a float64
// round trip.
const exactFloatDigits = 15

// Format renders d with grouping separators and exactly PriceScale
// fractional digits, e.g. "$1,234.50" or "-$5.00".
func (f *PriceFormatter) Format(d decimal.Decimal) string {
	d = d.Round(PriceScale)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(PriceScale)
	intPart, frac, _ := strings.Cut(fixed, ".")

	p := message.NewPrinter(f.tag)
	if len(intPart)+PriceScale <= exactFloatDigits {
		digits := p.Sprint(number.Decimal(d.InexactFloat64(),
			number.MinFractionDigits(PriceScale),
			number.MaxFractionDigits(PriceScale),
		))
		return sign + f.symbol + digits
	}

	group, mark, ok := f.separators(p)
	if !ok {
		return sign + f.symbol + fixed
	}
	return sign + f.symbol + groupThousands(intPart, group) + mark + frac
}

// separators reads the locale's grouping and decimal marks off a sample
// number. ok is false for locales that do not print ASCII digits.
func (f *PriceFormatter) separators(p *message.Printer) (group, mark string, ok bool) {
	s := p.Sprint(number.Decimal(1234.5,
		number.MinFractionDigits(1),
		number.MaxFractionDigits(1),
	))
	i := strings.Index(s, "234")
	if !strings.HasPrefix(s, "1") || i < 1 || !strings.HasSuffix(s, "5") || i+3 > len(s)-1 {
		return "", "", false
	}
	return s[1:i], s[i+3 : len(s)-1], true
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
