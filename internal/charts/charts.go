// Package charts turns a credit list into the three Chart.js specs shown under the table.
package charts

import (
	"fmt"
	"hash/fnv"

	"creditos/internal/core"

	"github.com/shopspring/decimal"
)

// Canvas element ids the specs are drawn into.
const (
	CanvasTotal    = "totalChart"
	CanvasClientes = "clientesChart"
	CanvasRangos   = "rangosChart"
)

const (
	TotalLabel      = "Total Créditos"
	TotalDataset    = "Monto Total"
	ByClientDataset = "Monto por Cliente"
	ByRangeDataset  = "Cantidad de Créditos"
)

// Range bucket labels, in display order.
var RangeLabels = []string{"<1000", "1000-5000", "5000-10000", ">10000"}

var (
	bound1000  = decimal.NewFromInt(1000)
	bound5000  = decimal.NewFromInt(5000)
	bound10000 = decimal.NewFromInt(10000)
)

type (
	// Spec is a Chart.js configuration object.
	Spec struct {
		Type    string         `json:"type"`
		Data    Data           `json:"data"`
		Options map[string]any `json:"options,omitempty"`
	}

	Data struct {
		Labels   []string  `json:"labels"`
		Datasets []Dataset `json:"datasets"`
	}

	Dataset struct {
		Label           string    `json:"label"`
		Data            []float64 `json:"data"`
		BackgroundColor []string  `json:"backgroundColor,omitempty"`
		BorderWidth     int       `json:"borderWidth,omitempty"`
	}

	// Set is the three charts keyed by canvas id when serialised.
	Set struct {
		Total    Spec `json:"totalChart"`
		ByClient Spec `json:"clientesChart"`
		ByRange  Spec `json:"rangosChart"`
	}
)

// Build derives all three charts from credits.
func Build(credits []core.Credit) Set {
	return Set{
		Total:    Total(credits),
		ByClient: ByClient(credits),
		ByRange:  ByRange(credits),
	}
}

var barOptions = map[string]any{
	"responsive": true,
	"scales":     map[string]any{"y": map[string]any{"beginAtZero": true}},
}

// Total is a single bar with the sum of every monto.
func Total(credits []core.Credit) Spec {
	sum, _ := core.SumMontos(credits).Float64()
	return Spec{
		Type: "bar",
		Data: Data{
			Labels: []string{TotalLabel},
			Datasets: []Dataset{{
				Label:           TotalDataset,
				Data:            []float64{sum},
				BackgroundColor: []string{"rgba(54, 162, 235, 0.6)"},
				BorderWidth:     1,
			}},
		},
		Options: barOptions,
	}
}

// ByClient is a pie with one slice per distinct cliente, in first-seen order.
func ByClient(credits []core.Credit) Spec {
	var (
		labels []string
		sums   []decimal.Decimal
		index  = make(map[string]int)
	)
	for _, c := range credits {
		i, ok := index[c.Cliente]
		if !ok {
			i = len(labels)
			index[c.Cliente] = i
			labels = append(labels, c.Cliente)
			sums = append(sums, decimal.Zero)
		}
		sums[i] = sums[i].Add(core.Decimal(c.Monto))
	}

	values := make([]float64, len(sums))
	colors := make([]string, len(labels))
	for i := range sums {
		values[i], _ = sums[i].Float64()
		colors[i] = Color(labels[i])
	}
	if labels == nil {
		labels = []string{}
	}

	return Spec{
		Type: "pie",
		Data: Data{
			Labels:   labels,
			Datasets: []Dataset{{Label: ByClientDataset, Data: values, BackgroundColor: colors}},
		},
		Options: map[string]any{"responsive": true},
	}
}

// RangeCounts buckets credits by monto: <1000, <=5000, <=10000, rest.
func RangeCounts(credits []core.Credit) [4]int {
	var counts [4]int
	for _, c := range credits {
		m := core.Decimal(c.Monto)
		switch {
		case m.LessThan(bound1000):
			counts[0]++
		case m.LessThanOrEqual(bound5000):
			counts[1]++
		case m.LessThanOrEqual(bound10000):
			counts[2]++
		default:
			counts[3]++
		}
	}
	return counts
}

// ByRange is the amount-range histogram.
func ByRange(credits []core.Credit) Spec {
	counts := RangeCounts(credits)
	data := make([]float64, len(counts))
	for i, n := range counts {
		data[i] = float64(n)
	}
	return Spec{
		Type: "bar",
		Data: Data{
			Labels: RangeLabels,
			Datasets: []Dataset{{
				Label:           ByRangeDataset,
				Data:            data,
				BackgroundColor: []string{Color(RangeLabels[0]), Color(RangeLabels[1]), Color(RangeLabels[2]), Color(RangeLabels[3])},
				BorderWidth:     1,
			}},
		},
		Options: barOptions,
	}
}

// Color maps a name to a stable HSL colour.
func Color(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	hue := sum % 360
	light := 45 + (sum>>9)%20
	return fmt.Sprintf("hsl(%d, 65%%, %d%%)", hue, light)
}
