package voxcube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeModule(t *testing.T) {
	app := NewApp().UseModules(TimeModule{})
	res := Resource[Time](app.Commands())
	require.NotNil(t, res)

	start := res.Time
	app.Update()
	app.Update()

	assert.Equal(t, uint64(2), res.Frame)
	assert.False(t, res.Time.Before(start))
	assert.GreaterOrEqual(t, res.Dt, time.Duration(0))
	assert.Equal(t, res.Time.Sub(start), res.Elapsed)
}
