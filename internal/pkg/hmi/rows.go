package hmi

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
)

// Kind is the level of a node in the tree.
type Kind string

const (
	NetworkKind  Kind = "Network"
	SourceKind   Kind = "Source"
	CircuitKind  Kind = "Circuit"
	ConsumerKind Kind = "Consumer"
)

// Row is one line of the overview table.
type Row struct {
	PID        uuid.UUID
	Kind       Kind
	Depth      int
	Name       string
	SwitchedOn bool
	HasPower   bool
	Operating  bool
	Detail     string
}

// Rows flattens a snapshot depth first.
func Rows(status ecc.Status) []Row {
	rows := []Row{}
	for _, n := range status.Networks {
		rows = append(rows, Row{
			PID: n.PID, Kind: NetworkKind, Name: n.Name,
			SwitchedOn: n.SwitchedOn, HasPower: n.SwitchedOn, Operating: n.Operating,
		})
		for _, s := range n.Sources {
			rows = append(rows, Row{
				PID: s.PID, Kind: SourceKind, Depth: 1, Name: s.Name,
				SwitchedOn: s.SwitchedOn, HasPower: s.HasPower, Operating: s.Operating,
				Detail: fmt.Sprintf("%.2f / %.2f Ah  %v V", s.AmpHoursRemaining, s.AmpHourCapacity, s.Volts),
			})
			for _, c := range s.Circuits {
				rows = append(rows, Row{
					PID: c.PID, Kind: CircuitKind, Depth: 2, Name: c.Name,
					SwitchedOn: c.SwitchedOn, HasPower: c.HasPower, Operating: c.Operating,
					Detail: fmt.Sprintf("%v %5.1f / %v W", bar(c.LoadPercent, 10), c.LoadWatts, c.CapacityWatts),
				})
				for _, consumer := range c.Consumers {
					rows = append(rows, Row{
						PID: consumer.PID, Kind: ConsumerKind, Depth: 3, Name: consumer.Name,
						SwitchedOn: consumer.SwitchedOn, HasPower: consumer.HasPower, Operating: consumer.Operating,
						Detail: fmt.Sprintf("%v W", consumer.Watts),
					})
				}
			}
		}
	}
	return rows
}

// Label is the indented name column.
func (r Row) Label() string {
	return strings.Repeat("  ", r.Depth) + r.Name
}

// State summarizes the switch and power columns.
func (r Row) State() string {
	switch {
	case !r.SwitchedOn:
		return "off"
	case r.Operating:
		return "operating"
	case r.HasPower:
		return "powered"
	}
	return "no power"
}

// bar renders percent of width cells. Loads over 100% fill the bar and end in '!'.
func bar(percent float64, width int) string {
	if math.IsNaN(percent) || percent < 0 {
		percent = 0
	}
	filled := int(math.Round(percent / 100 * float64(width)))
	if filled >= width {
		if percent > 100 {
			return "[" + strings.Repeat("#", width-1) + "!]"
		}
		return "[" + strings.Repeat("#", width) + "]"
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
