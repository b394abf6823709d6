package drive

import "regexp"

// idPatterns cover the URL shapes Drive hands out for folders and files.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/open\?id=([a-zA-Z0-9_-]+)`),
}

// ExtractID pulls the entry ID out of a Drive URL. Values that do not match
// any known URL shape are returned unchanged so bare IDs pass through.
func ExtractID(url string) string {
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1]
		}
	}
	return url
}
