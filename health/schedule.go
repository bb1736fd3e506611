package health

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule pings the upstream every five minutes.
const DefaultSchedule = "*/5 * * * *"

var scheduleParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// ParseSchedule validates a five-field cron expression or an @every/@hourly
// style descriptor. Timezone prefixes are rejected; schedules run in UTC.
func ParseSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("health: schedule is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("health: schedule must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := scheduleParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("health: invalid schedule %q: %w", clean, err)
	}
	return schedule, nil
}
