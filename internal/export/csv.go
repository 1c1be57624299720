package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/san-kum/gravsim/internal/particle"
)

var csvHeader = []string{"index", "x", "y", "z", "mass", "vx", "vy", "vz", "speed"}

// WriteCSV writes one row per particle.
func WriteCSV(w io.Writer, ps []particle.Particle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
	for i, p := range ps {
		pos, vel := p.Pos(), p.Vel()
		row := []string{
			strconv.Itoa(i),
			f(pos.X()), f(pos.Y()), f(pos.Z()),
			f(p.Mass()),
			f(vel.X()), f(vel.Y()), f(vel.Z()),
			f(p.Speed()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
