package util

import (
	"strings"
)

// RemoveFormatFromString collapses all whitespace runs, including newlines and
// tabs from scraped markup, into single spaces.
func RemoveFormatFromString(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func DeleteEmpty(s []string) []string {
	var r []string
	for _, str := range s {
		if str = strings.TrimSpace(str); str != "" {
			r = append(r, str)
		}
	}
	return r
}

// SplitList splits a comma separated value and drops empty items.
func SplitList(s string) []string {
	return DeleteEmpty(strings.Split(s, ","))
}

func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
