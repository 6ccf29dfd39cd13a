// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	eventsTotal *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
}

func (e *EventBus) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	e.metrics = &eventMetrics{
		eventsTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drops_events_total",
				Help: "total events published by type",
			},
			[]string{"type"},
		),
		dropped: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drops_events_dropped_total",
				Help: "events dropped due to full subscriber queues",
			},
			[]string{"type"},
		),
		subscribers: promautoFactory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drops_event_subscribers",
				Help: "current event subscribers by type",
			},
			[]string{"type"},
		),
	}
}
