package report

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/yath/sstcs/internal/channel"
)

const matchTimeout = time.Second

// Filter keeps the channels whose title matches pattern. Patterns use .NET
// syntax, so lookarounds such as `^(?!.*HD$)` work. An empty pattern keeps
// everything.
func Filter(list channel.List, pattern string) (channel.List, error) {
	if pattern == "" {
		return list, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("title pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = matchTimeout

	var out channel.List
	for _, d := range list {
		ok, err := re.MatchString(d.Title)
		if err != nil {
			return nil, fmt.Errorf("match %q against %q: %w", pattern, d.Title, err)
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}
