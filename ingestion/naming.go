package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/ifcingest/core"
)

const (
	defaultExtension = "ifc"

	// initialNameRange is the number of distinct names tried at first.
	initialNameRange = 1000

	// collisionsPerWiden is the number of consecutive collisions after which
	// the name range doubles.
	collisionsPerWiden = 64

	maxNameAttempts = 1 << 16
)

// destinationPath returns an unused path <scratch>/copy<N>.<ext> where ext is
// the extension of source, or "ifc" when source has none.
func (p *Pipeline) destinationPath(source string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(source), ".")
	if ext == "" {
		ext = defaultExtension
	}

	limit := initialNameRange
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		n := p.random(limit) + 1
		candidate := filepath.Join(p.scratchDir, fmt.Sprintf("copy%d.%s", n, ext))

		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrIO, err)
		}

		if attempt%collisionsPerWiden == 0 && limit <= math.MaxInt/2 {
			limit *= 2
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoDestination, p.scratchDir)
}
