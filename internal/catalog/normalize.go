package catalog

import "strings"

// translit maps colloquial Cyrillic spellings of brands and product lines to
// the canonical Latin tokens the catalog index is built on. Searches for
// "айфон" would otherwise return nothing even though iPhones are in stock.
var translit = map[string]string{
	"айфон":       "iphone",
	"самсунг":     "samsung",
	"сяоми":       "xiaomi",
	"ксиоми":      "xiaomi",
	"райзен":      "ryzen",
	"ртх":         "rtx",
	"жтх":         "gtx",
	"джифорс":     "geforce",
	"интел":       "intel",
	"амд":         "amd",
	"нвидиа":      "nvidia",
	"асус":        "asus",
	"гигабайт":    "gigabyte",
	"логитек":     "logitech",
	"процик":      "процессор",
	"видюха":      "видеокарта",
	"мать":        "материнская плата",
	"материнка":   "материнская плата",
	"блок":        "блок питания",
	"ссд":         "ssd",
}

// NormalizeQuery rewrites colloquial tokens in a free-text query to their
// canonical catalog form. Unknown tokens pass through untouched.
func NormalizeQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return strings.TrimSpace(query)
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if canonical, ok := translit[strings.ToLower(f)]; ok {
			out = append(out, canonical)
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
