package mail

import "regexp"

// Waybill numbers are exactly 11 digits; the word boundaries keep a digit
// run of any other length from matching.
var waybillRe = regexp.MustCompile(`\b[0-9]{11}\b`)

// ExtractWaybills returns the unique waybill numbers found in text, in order
// of first appearance.
func ExtractWaybills(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, wb := range waybillRe.FindAllString(text, -1) {
		if seen[wb] {
			continue
		}
		seen[wb] = true
		out = append(out, wb)
	}
	return out
}
