package captcha

import "strings"

const (
	digits = "0123456789"
	lower  = "abcdefghijklmnopqrstuvwxyz"
	upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// DefaultLength is the challenge length New uses when asked for zero
// characters.
const DefaultLength = 6

// RandomText returns n random characters. With an empty charset each
// character first picks digits, lowercase or uppercase with equal odds and
// then a member of that class. Otherwise characters are drawn uniformly from
// charset.
func RandomText(src Source, n int, charset string) string {
	var sb strings.Builder
	if charset == "" {
		classes := [...]string{digits, lower, upper}
		for range n {
			class := classes[src.Range(0, len(classes)-1)]
			sb.WriteByte(class[src.Range(0, len(class)-1)])
		}
		return sb.String()
	}
	runes := []rune(charset)
	for range n {
		sb.WriteRune(runes[src.Range(0, len(runes)-1)])
	}
	return sb.String()
}
