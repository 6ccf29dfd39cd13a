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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	generated   prometheus.Counter
	destroyed   prometheus.Counter
	transferred prometheus.Counter
	epoch       prometheus.Gauge
}

func (l *Ledger) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	l.metrics = &ledgerMetrics{
		generated: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "drops_generated_total",
			Help: "total drops generated",
		}),
		destroyed: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "drops_destroyed_total",
			Help: "total drops destroyed",
		}),
		transferred: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "drops_transferred_total",
			Help: "total drops transferred between accounts",
		}),
		epoch: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "drops_current_epoch",
			Help: "current epoch number",
		}),
	}
}
