package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/gravsim/internal/particle"
	"github.com/san-kum/gravsim/internal/viz"
)

// SaveSnapshot writes ps or canvas to path, choosing the format from the
// extension: .csv for particle state, .svg for the rendered view.
func SaveSnapshot(path string, ps []particle.Particle, canvas *viz.Canvas) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".svg" {
		return fmt.Errorf("unsupported snapshot format %q (want .csv or .svg)", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if ext == ".csv" {
		err = WriteCSV(f, ps)
	} else {
		err = WriteSVG(f, canvas, 4)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
