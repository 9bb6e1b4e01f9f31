package commands

import (
	"regexp"
	"strings"
)

// Quoted arguments stay whole: !lfg "Dead Rails" 2/4
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[2] == "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}

// parse strips prefix and returns the lower-cased command name and its
// arguments. ok is false when text is not a command.
func parse(prefix, text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := splitArgs(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 || fields[0] == "" {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
