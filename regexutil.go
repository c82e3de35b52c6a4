package main

import (
	"regexp"
	"strings"
)

// metachars are the regex metacharacters that stop a startsMatch prefix scan.
const metachars = "^$.[](){}|*+?\\"

// findStartsMatch returns the longest metacharacter-free prefix of a regex
// pattern, lowercased, used as a cheap prefilter before running the full
// regex. It stops at the first metacharacter rather than skipping over them,
// so "^abc[0-9]def$" yields "abc", not "abcdef".
func findStartsMatch(pattern string) string {
	s := strings.TrimPrefix(pattern, "^")
	var b strings.Builder
	for _, c := range s {
		if strings.ContainsRune(metachars, c) {
			break
		}
		b.WriteRune(c)
	}
	return strings.ToLower(b.String())
}

// regexSubstitute runs re against path, expanding "to" (which may contain
// "${1}"-style backreferences) at every non-overlapping match, and returns
// the substituted string plus the number of matches found. Text outside of
// matches is copied through unchanged.
func regexSubstitute(re *regexp.Regexp, to string, path string) (string, int) {
	matches := re.FindAllStringSubmatchIndex(path, -1)
	if len(matches) == 0 {
		return path, 0
	}
	var buf []byte
	last := 0
	for _, m := range matches {
		buf = append(buf, path[last:m[0]]...)
		buf = re.ExpandString(buf, to, path, m)
		last = m[1]
	}
	buf = append(buf, path[last:]...)
	return string(buf), len(matches)
}
