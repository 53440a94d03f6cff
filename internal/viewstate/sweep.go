package viewstate

import (
	"fmt"
	"time"

	"intranet_admin/pkg/log"

	"github.com/robfig/cron/v3"
)

// ScheduleSweep 在 c 上注册周期任务，每 every 丢弃一次空闲超过 idle 的会话。
func (r *Registry) ScheduleSweep(c *cron.Cron, every, idle time.Duration) (cron.EntryID, error) {
	if every < time.Second {
		return 0, fmt.Errorf("sweep interval must be at least 1s, got %s", every)
	}
	return c.AddFunc(fmt.Sprintf("@every %s", every), func() {
		if n := r.Sweep(idle); n > 0 {
			log.Infow("Dropped idle view state", "sessions", n, "idle", idle.String())
		}
	})
}
