package viewstate

import (
	"testing"
	"time"

	"intranet_admin/internal/categorytree"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ScheduleSweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.now = func() time.Time { return now }
	r.Save("s1", map[categorytree.Level][]string{categorytree.LevelCategory: {"c1"}})

	c := cron.New()
	id, err := r.ScheduleSweep(c, 10*time.Minute, time.Hour)
	require.NoError(t, err)

	job := c.Entry(id).Job
	require.NotNil(t, job)

	job.Run()
	assert.Equal(t, 1, r.Len())

	now = now.Add(2 * time.Hour)
	job.Run()
	assert.Zero(t, r.Len())
}

func TestRegistry_ScheduleSweepRejectsShortInterval(t *testing.T) {
	_, err := NewRegistry().ScheduleSweep(cron.New(), 0, time.Hour)
	assert.Error(t, err)
}
