package services

import "strings"

// regionAliases maps salary-source region labels onto the price index's
// parent-region vocabulary. Keys are lower-cased.
var regionAliases = map[string]string{
	"east":                     "East of England",
	"east of england":          "East of England",
	"yorkshire and the humber": "Yorkshire and The Humber",
	"yorkshire & the humber":   "Yorkshire and The Humber",
	"uk":                       "United Kingdom",
}

// NormaliseRegion trims and collapses whitespace in a region label and
// applies the fixed alias table.
func NormaliseRegion(name string) string {
	name = normaliseText(name)
	if alias, ok := regionAliases[strings.ToLower(name)]; ok {
		return alias
	}
	return name
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
