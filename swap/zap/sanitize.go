package zap

import "strings"

// controlCharReplacer escapes characters that could forge extra log lines
// when the console encoder is used (CWE-117).
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}
