package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/testdino/insights/internal/runs"
)

const (
	maxTimelineEvents = 3
	stableEvent       = "Stable test run - no significant issues detected"
)

// TimelineDay lists the notable events of one calendar day.
type TimelineDay struct {
	Date   string   `json:"date"`
	Label  string   `json:"label"`
	Events []string `json:"events"`
}

// DailyTimeline groups runs by date, newest first, and derives up to three
// events per day from error keywords, branch spread, category counts and
// volume. Runs with unparseable dates are ignored.
func DailyTimeline(in []runs.Run) []TimelineDay {
	byDate := map[string][]runs.Run{}
	for _, r := range in {
		if _, err := r.ParsedDate(); err != nil {
			continue
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	out := make([]TimelineDay, 0, len(dates))
	for _, date := range dates {
		parsed, _ := runs.Run{Date: date}.ParsedDate()
		events := dayEvents(byDate[date])
		if len(events) > maxTimelineEvents {
			events = events[:maxTimelineEvents]
		}
		out = append(out, TimelineDay{
			Date:   date,
			Label:  parsed.Format("Jan 2"),
			Events: events,
		})
	}
	return out
}

type dayStats struct {
	timeout, assertion, elementNotFound, network int
	branches                                     map[runs.Branch]struct{}
	categories                                   map[runs.Category]int
	total                                        int
}

func collectDay(dayRuns []runs.Run) dayStats {
	s := dayStats{
		branches:   map[runs.Branch]struct{}{},
		categories: map[runs.Category]int{},
	}
	for _, r := range dayRuns {
		s.branches[r.Branch] = struct{}{}
		s.total += len(r.TestCases)
		for _, tc := range r.TestCases {
			if tc.Error == "" {
				continue
			}
			s.categories[tc.Category]++

			msg := strings.ToLower(string(tc.Error))
			switch {
			case strings.Contains(msg, "timeout"):
				s.timeout++
			case strings.Contains(msg, "assertion"):
				s.assertion++
			case strings.Contains(msg, "element not found"):
				s.elementNotFound++
			case strings.Contains(msg, "network"):
				s.network++
			}
		}
	}
	return s
}

func dayEvents(dayRuns []runs.Run) []string {
	s := collectDay(dayRuns)

	var events []string
	if s.timeout > 5 {
		events = append(events, fmt.Sprintf("%d timeout failures detected - potential performance regression", s.timeout))
	}
	if s.assertion > 3 {
		events = append(events, fmt.Sprintf("%d assertion failures - new feature integration issues", s.assertion))
	}
	if s.elementNotFound > 2 {
		events = append(events, fmt.Sprintf("%d element not found errors - UI changes detected", s.elementNotFound))
	}
	if s.network > 1 {
		events = append(events, fmt.Sprintf("%d network failures - backend connectivity issues", s.network))
	}
	if len(s.branches) > 1 {
		events = append(events, fmt.Sprintf("%d branches tested - new feature development", len(s.branches)))
	}
	if s.categories[runs.CategoryUIChange] > 3 {
		events = append(events, "UI changes detected - new interface features being tested")
	}
	if n := s.categories[runs.CategoryBug]; n > 5 {
		events = append(events, fmt.Sprintf("%d bug-related failures - regression testing in progress", n))
	}
	if s.total > 50 {
		events = append(events, fmt.Sprintf("High test volume (%d tests) - comprehensive testing cycle", s.total))
	}

	if len(events) == 0 {
		events = append(events, stableEvent)
	}
	return events
}
