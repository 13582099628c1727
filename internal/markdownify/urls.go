package markdownify

import (
	"regexp"
	"strings"

	"github.com/starford/coursemark/internal/models"
)

var (
	headerLineRe = regexp.MustCompile(`(?m)^#+.*$`)
	newlinesRe   = regexp.MustCompile(`(\r\n|\n|\r)+`)
)

// RemoveStorageURLs rewrites markdown images hosted below one of storageURLs
// to destination and reports every rewrite.
func RemoveStorageURLs(text string, storageURLs []string, destination string) (string, []models.MediaFileReplacement) {
	resources := []models.MediaFileReplacement{}
	for _, base := range storageURLs {
		base = strings.TrimSuffix(base, "/")
		if base == "" {
			continue
		}
		re := regexp.MustCompile(`!\[([^\]]*)\]\(` + regexp.QuoteMeta(base) + `/([^)\s]+)\)`)
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			m := re.FindStringSubmatch(match)
			dest := destination + m[2]
			resources = append(resources, models.MediaFileReplacement{
				Source:      base + "/" + m[2],
				Destination: dest,
			})
			return "![" + m[1] + "](" + dest + ")"
		})
	}
	return text, resources
}

// Relativize maps a media URL on one of storageURLs to destination. ok is
// false when url is not hosted on any of them.
func Relativize(url string, storageURLs []string, destination string) (string, models.MediaFileReplacement, bool) {
	for _, base := range storageURLs {
		if base == "" || !strings.HasPrefix(url, base) {
			continue
		}
		rel := destination + strings.TrimPrefix(strings.TrimPrefix(url, base), "/")
		return rel, models.MediaFileReplacement{Source: url, Destination: rel}, true
	}
	return url, models.MediaFileReplacement{}, false
}

// ToPlainText flattens markdown onto one line. Headers become "Title:".
func ToPlainText(markdown string) string {
	text := headerLineRe.ReplaceAllStringFunc(markdown, func(line string) string {
		return strings.TrimSpace(strings.TrimLeft(line, "#")) + ":"
	})
	return newlinesRe.ReplaceAllString(text, " ")
}
