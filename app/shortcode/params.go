package shortcode

import (
	"strconv"
	"strings"
)

func paramIsOn(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes", "true", "1", "show":
		return true
	}
	return false
}

func paramIsOff(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "off", "no", "false", "0", "none", "hide":
		return true
	}
	return false
}

// cssValue appends px to bare numbers.
func cssValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v + "px"
	}
	return v
}

// positionClasses turns margin presets into classes, e.g. top="small" => "margin_top_small".
func positionClasses(top, right, bottom, left string) string {
	var classes []string
	for _, side := range []struct{ name, value string }{
		{"top", top}, {"right", right}, {"bottom", bottom}, {"left", left},
	} {
		v := strings.TrimSpace(side.value)
		if v == "" || v == "inherit" {
			continue
		}
		classes = append(classes, "margin_"+side.name+"_"+v)
	}
	return strings.Join(classes, " ")
}

func animationClasses(animation string) string {
	return "animated " + strings.TrimSpace(animation)
}

func joinClasses(classes ...string) string {
	var out []string
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}
