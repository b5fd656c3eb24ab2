package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

// ValidColors is the fixed allow-list of color names generated code may use.
// Enforced during validation and normalized during post-processing.
var ValidColors = []string{
	"blue", "teal", "green", "yellow", "gold", "red", "maroon",
	"purple", "pink", "light_pink", "orange", "light_brown",
	"dark_brown", "gray_brown", "white", "black", "lighter_gray",
	"light_gray", "gray", "dark_gray", "darker_gray", "blue_a",
	"blue_b", "blue_c", "blue_d", "blue_e", "pure_blue",
}

var validColorSet = func() map[string]bool {
	set := make(map[string]bool, len(ValidColors))
	for _, c := range ValidColors {
		set[c] = true
	}
	return set
}()

// colorSiteRE matches string color literals at coloring sites:
// .set_color/.set_fill/.set_stroke calls, Color() construction, and color= kwargs.
var colorSiteRE = regexp.MustCompile(
	`\.(?:set_color|set_fill|set_stroke)\(["']([\w_]+)["']\)|` +
		`Color\(["']([\w_]+)["']\)|` +
		`color=["']([\w_]+)["']`,
)

// InvalidColors scans code for color literals at coloring sites and returns
// every literal not in the allow-list, deduplicated and sorted.
func InvalidColors(code string) []string {
	seen := make(map[string]bool)
	var invalid []string

	for _, match := range colorSiteRE.FindAllStringSubmatch(code, -1) {
		for _, group := range match[1:] {
			if group == "" {
				continue
			}
			if !validColorSet[strings.ToLower(group)] && !seen[group] {
				seen[group] = true
				invalid = append(invalid, group)
			}
		}
	}

	sort.Strings(invalid)
	return invalid
}

// ColorList returns the allow-list as a comma-joined string for prompt text.
func ColorList() string {
	return strings.Join(ValidColors, ", ")
}
