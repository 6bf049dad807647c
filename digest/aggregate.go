// Package digest turns raw pageview events into the weekly owner-facing
// summary: windowed aggregation, text/HTML rendering, per-owner dispatch
// and the scheduler that fires it.
package digest

import (
	"sort"
	"time"

	"modestanalytics/api/models"
)

// NoReferrer is reported when a page group has no non-empty referrer.
const NoReferrer = "N/A"

// Group is the per-(domain, path) summary line of a report.
type Group struct {
	Domain      string
	Path        string
	Count       int
	AvgDwell    float64
	TopReferrer string
}

// Report is the aggregated digest for one owner and one window. It is
// derived and ephemeral; nothing persists it.
type Report struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Total       int
	Groups      []Group
}

type pageKey struct {
	domain string
	path   string
}

// Aggregate groups the events with windowStart <= timestamp < windowEnd
// by (domain, path) and computes count, mean dwell time and the most
// frequent non-empty referrer per group. Groups come back ordered by
// descending count, then ascending (domain, path). Ties for the top
// referrer go to the lexically smallest candidate. Pure function.
func Aggregate(events []models.Pageview, windowStart, windowEnd time.Time) Report {
	counts := make(map[pageKey]int)
	dwellSums := make(map[pageKey]int)
	referrers := make(map[pageKey]map[string]int)

	total := 0
	for _, ev := range events {
		ts := ev.Timestamp
		if ts.Before(windowStart) || !ts.Before(windowEnd) {
			continue
		}
		total++

		key := pageKey{domain: ev.Domain, path: ev.Path}
		counts[key]++
		dwellSums[key] += ev.DwellSeconds

		if ev.Referrer != "" {
			if referrers[key] == nil {
				referrers[key] = make(map[string]int)
			}
			referrers[key][ev.Referrer]++
		}
	}

	groups := make([]Group, 0, len(counts))
	for key, count := range counts {
		groups = append(groups, Group{
			Domain:      key.domain,
			Path:        key.path,
			Count:       count,
			AvgDwell:    float64(dwellSums[key]) / float64(count),
			TopReferrer: topReferrer(referrers[key]),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		if groups[i].Domain != groups[j].Domain {
			return groups[i].Domain < groups[j].Domain
		}
		return groups[i].Path < groups[j].Path
	})

	return Report{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Total:       total,
		Groups:      groups,
	}
}

func topReferrer(byReferrer map[string]int) string {
	if len(byReferrer) == 0 {
		return NoReferrer
	}
	best := ""
	bestCount := 0
	for ref, count := range byReferrer {
		if count > bestCount || (count == bestCount && ref < best) {
			best = ref
			bestCount = count
		}
	}
	return best
}
