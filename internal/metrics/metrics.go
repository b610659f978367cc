// Package metrics exposes run counters and gauges through a private
// Prometheus registry, written out in the textfile-collector format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"factorycraft.ai/internal/sim/factory"
)

const namespace = "factorycraft"

type Collector struct {
	reg *prometheus.Registry

	ticksTotal       prometheus.Counter
	completionsTotal prometheus.Counter
	discoveriesTotal prometheus.Counter
	shedTotal        prometheus.Counter
	commandsTotal    *prometheus.CounterVec
	applyDuration    *prometheus.HistogramVec

	credits        prometheus.Gauge
	energyProduced prometheus.Gauge
	energyConsumed prometheus.Gauge
	inventorySpace prometheus.Gauge
	machines       *prometheus.GaugeVec
	inventory      *prometheus.GaugeVec
	popularity     *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Ticks advanced.",
		}),
		completionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_completions_total",
			Help: "Recipe batches completed by machines.",
		}),
		discoveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "discoveries_total",
			Help: "Recipes discovered by research.",
		}),
		shedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "machines_shed_total",
			Help: "Machines blocked by the power allocator.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Commands applied by type and result code.",
		}, []string{"command", "result"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "apply_duration_seconds",
			Help:    "Wall time spent in Engine.Apply.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"command"}),
		credits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "credits",
			Help: "Current credit balance.",
		}),
		energyProduced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "energy_produced",
			Help: "Generator output in the last energy snapshot.",
		}),
		energyConsumed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "energy_consumed",
			Help: "Machine draw in the last energy snapshot.",
		}),
		inventorySpace: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "inventory_space",
			Help: "Inventory weight capacity.",
		}),
		machines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "machines",
			Help: "Machines by status.",
		}, []string{"status"}),
		inventory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "inventory_units",
			Help: "Units held per item.",
		}, []string{"item"}),
		popularity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "popularity",
			Help: "Market price multiplier per tracked item.",
		}, []string{"item"}),
	}
	c.reg.MustRegister(
		c.ticksTotal, c.completionsTotal, c.discoveriesTotal, c.shedTotal,
		c.commandsTotal, c.applyDuration,
		c.credits, c.energyProduced, c.energyConsumed, c.inventorySpace,
		c.machines, c.inventory, c.popularity,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveCommand counts one Apply call. code is "" for accepted commands.
func (c *Collector) ObserveCommand(kind, code string, took time.Duration) {
	result := "ok"
	if code != "" {
		result = code
	}
	c.commandsTotal.WithLabelValues(kind, result).Inc()
	c.applyDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (c *Collector) ObserveTick(rep factory.StepReport) {
	c.ticksTotal.Inc()
	c.completionsTotal.Add(float64(rep.Completions))
	c.shedTotal.Add(float64(len(rep.Shed)))
	if rep.Discovered != "" {
		c.discoveriesTotal.Inc()
	}
}

// ObserveState resets the per-item gauges so sold-out items disappear.
func (c *Collector) ObserveState(st factory.State) {
	c.credits.Set(float64(st.Credits))
	c.energyProduced.Set(float64(st.Energy.Produced))
	c.energyConsumed.Set(float64(st.Energy.Consumed))
	c.inventorySpace.Set(float64(st.InventorySpace))

	counts := map[factory.MachineStatus]int{
		factory.StatusIdle: 0, factory.StatusWorking: 0, factory.StatusBlocked: 0,
	}
	for _, m := range st.Machines {
		counts[m.Status]++
	}
	for status, n := range counts {
		c.machines.WithLabelValues(string(status)).Set(float64(n))
	}

	c.inventory.Reset()
	for item, n := range st.Inventory {
		c.inventory.WithLabelValues(item).Set(float64(n))
	}
	c.popularity.Reset()
	for item, v := range st.Popularity {
		c.popularity.WithLabelValues(item).Set(v)
	}
}

// WriteTextfile writes the registry to path atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
