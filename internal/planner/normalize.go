package planner

import (
	"regexp"
	"strings"

	"github.com/planora/planora/internal/trip"
)

var (
	routeSepRe = regexp.MustCompile(`[-—>，,]`)
	listSepRe  = regexp.MustCompile(`[,，、/]`)
)

// Normalize repairs the structural defects models habitually produce:
// missing day numbers, routes without endpoint cities, broken day-to-day
// continuity, and delimited strings where arrays belong. It is idempotent:
// normalizing already-normalized output is a no-op.
func Normalize(items []trip.DayItem) []trip.DayItem {
	out := make([]trip.DayItem, 0, len(items))
	prevEnd := ""
	for idx, item := range items {
		if item.Day == 0 {
			item.Day = trip.FlexInt(idx + 1)
		}

		start, end := strings.TrimSpace(item.StartCity), strings.TrimSpace(item.EndCity)
		if item.Route != "" && (start == "" || end == "") {
			parts := splitTrim(routeSepRe, item.Route)
			if len(parts) >= 2 {
				if start == "" {
					start = parts[0]
				}
				if end == "" {
					end = parts[len(parts)-1]
				}
			}
		}

		// The previous day's end city always wins: a day must begin where
		// the itinerary last left off, even when the model says otherwise.
		if prevEnd != "" {
			start = prevEnd
		}
		if start != "" && end != "" {
			item.Route = start + "-" + end
		}
		item.StartCity, item.EndCity = start, end

		switch {
		case end != "":
			prevEnd = end
		case start != "":
			prevEnd = start
		}

		item.TicketNames = splitList(item.TicketNames)
		item.ActivityNames = splitList(item.ActivityNames)
		// Transport entries stay whole: "服务类型/车型" names one catalog row,
		// and splitting it would price the same quote once per alias.
		if item.Transport == nil {
			item.Transport = trip.StringList{}
		}
		out = append(out, item)
	}
	return out
}

// splitList expands delimited entries ("A、B,C") into individual elements and
// guarantees a non-nil slice so the serialized field is [] rather than null.
func splitList(l trip.StringList) trip.StringList {
	out := make(trip.StringList, 0, len(l))
	for _, entry := range l {
		out = append(out, splitTrim(listSepRe, entry)...)
	}
	return out
}

func splitTrim(re *regexp.Regexp, s string) []string {
	var out []string
	for _, part := range re.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
