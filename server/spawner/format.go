package spawner

import (
	"strconv"
	"strings"
)

// Formatter renders spawner health as a percentage with at most two fraction digits, for example "50%" or
// "99.95%". The zero value uses '.' as decimal separator.
type Formatter struct {
	// Separator is the character placed between the integer and fraction digits. If zero, '.' is used.
	Separator rune
}

// NewFormatter returns a Formatter using the first rune of separator, falling back to '.' if separator is
// empty.
func NewFormatter(separator string) Formatter {
	for _, r := range separator {
		return Formatter{Separator: r}
	}
	return Formatter{}
}

// Format formats h as a percentage string.
func (f Formatter) Format(h Health) string {
	return f.Number(float64(h)*100) + "%"
}

// Number formats v with at most two fraction digits. Trailing zeros are dropped, so 5.50 becomes "5.5" and
// 100.00 becomes "100".
func (f Formatter) Number(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	if sep := f.Separator; sep != 0 && sep != '.' {
		s = strings.Replace(s, ".", string(sep), 1)
	}
	return s
}
