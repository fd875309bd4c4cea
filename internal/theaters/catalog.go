// Package theaters holds the static catalog of art-house theaters queried
// by the schedule crawler.
package theaters

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kwanpak/cinegrid/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalog struct {
	Theaters []domain.Theater `yaml:"theaters"`
}

var loaded catalog

func init() {
	if err := yaml.Unmarshal(catalogYAML, &loaded); err != nil {
		panic(fmt.Sprintf("theaters: invalid embedded catalog: %v", err))
	}
}

// All returns the full theater catalog.
func All() []domain.Theater {
	out := make([]domain.Theater, len(loaded.Theaters))
	copy(out, loaded.Theaters)
	return out
}

// Count returns the number of catalog entries.
func Count() int {
	return len(loaded.Theaters)
}
