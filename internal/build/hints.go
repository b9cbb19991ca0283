package build

import (
	"regexp"
	"strconv"
	"strings"
)

// Compatibility hints are extracted from product names because the catalog
// carries no structured spec fields. Best-effort only: a missing hint means
// the model decides from the name alone.

var wattagePattern = regexp.MustCompile(`(\d{3,4})\s*w`)

// socketFromName guesses the CPU/motherboard socket from a product name.
func socketFromName(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "am5"):
		return "AM5"
	case strings.Contains(n, "am4"):
		return "AM4"
	case strings.Contains(n, "lga1700"), strings.Contains(n, "1700"):
		return "LGA1700"
	case strings.Contains(n, "lga1200"), strings.Contains(n, "1200"):
		return "LGA1200"
	}
	return ""
}

// gpuPowerFromName estimates a graphics card's power draw in watts from
// its model name.
func gpuPowerFromName(name string) int {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "4090"):
		return 450
	case strings.Contains(n, "4080"), strings.Contains(n, "3090"):
		return 350
	case strings.Contains(n, "4070"), strings.Contains(n, "3080"):
		return 300
	case strings.Contains(n, "4060"), strings.Contains(n, "3070"):
		return 220
	case strings.Contains(n, "3060"), strings.Contains(n, "rx 6600"):
		return 170
	}
	return 150
}

// psuWattageFromName extracts the rated wattage from a PSU name, 0 if absent.
func psuWattageFromName(name string) int {
	m := wattagePattern.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return 0
	}
	w, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return w
}
