package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

func gathered(t *testing.T, c *Collector) map[string]float64 {
	t.Helper()
	fams, err := c.Registry().Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, f := range fams {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				key += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCollector_CommandsAndTicks(t *testing.T) {
	c := New()
	c.ObserveCommand(protocol.TypeSell, "", time.Microsecond)
	c.ObserveCommand(protocol.TypeSell, protocol.ErrNoResource, time.Microsecond)
	c.ObserveCommand(protocol.TypeSell, "", time.Microsecond)
	c.ObserveTick(factory.StepReport{Completions: 3, Shed: []string{"M2"}, Discovered: "glass"})
	c.ObserveTick(factory.StepReport{Completions: 1})

	got := gathered(t, c)
	assert.Equal(t, 2.0, got["factorycraft_commands_total{command=SELL}{result=ok}"])
	assert.Equal(t, 1.0, got["factorycraft_commands_total{command=SELL}{result=E_NO_RESOURCE}"])
	assert.Equal(t, 3.0, got["factorycraft_apply_duration_seconds{command=SELL}"])
	assert.Equal(t, 2.0, got["factorycraft_ticks_total"])
	assert.Equal(t, 4.0, got["factorycraft_batch_completions_total"])
	assert.Equal(t, 1.0, got["factorycraft_discoveries_total"])
	assert.Equal(t, 1.0, got["factorycraft_machines_shed_total"])
}

func TestCollector_StateGaugesDropSoldOutItems(t *testing.T) {
	c := New()
	st := factory.State{
		Credits:    77,
		Energy:     factory.Energy{Produced: 10, Consumed: 6},
		Inventory:  map[string]int{"wood": 4, "stone": 2},
		Popularity: map[string]float64{"wood": 0.5},
		Machines: []factory.Machine{
			{ID: "M1", Status: factory.StatusWorking},
			{ID: "M2", Status: factory.StatusBlocked},
		},
	}
	c.ObserveState(st)
	got := gathered(t, c)
	assert.Equal(t, 77.0, got["factorycraft_credits"])
	assert.Equal(t, 4.0, got["factorycraft_inventory_units{item=wood}"])
	assert.Equal(t, 1.0, got["factorycraft_machines{status=blocked}"])
	assert.Equal(t, 0.0, got["factorycraft_machines{status=idle}"])
	assert.Equal(t, 0.5, got["factorycraft_popularity{item=wood}"])

	delete(st.Inventory, "stone")
	c.ObserveState(st)
	_, ok := gathered(t, c)["factorycraft_inventory_units{item=stone}"]
	assert.False(t, ok)
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := New()
	c.ObserveTick(factory.StepReport{})
	path := filepath.Join(t.TempDir(), "factory.prom")
	require.NoError(t, c.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "factorycraft_ticks_total 1"), string(b))
}
