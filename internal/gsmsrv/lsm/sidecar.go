package lsm

import (
	"io"
	"time"

	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"gopkg.in/yaml.v3"
)

// sidecarInterface is the descriptor schema identifier written into every
// sidecar file.
const sidecarInterface = "http://schema.skao.int/ska-data-product-meta/0.1"

// Sidecar is the YAML data product descriptor written next to an exported
// LSM file.
type Sidecar struct {
	Interface     string      `yaml:"interface"`
	DateCreated   string      `yaml:"date_created"`
	Generator     string      `yaml:"generator"`
	LocalSkyModel LSMSection  `yaml:"local_sky_model"`
	Files         []FileEntry `yaml:"files"`
}

// LSMSection describes the exported sky model: the query header, the column
// order of the CSV rows, and the catalogue versions the export drew from.
type LSMSection struct {
	Header     Header      `yaml:"header"`
	Columns    []string    `yaml:"columns"`
	Catalogues []Catalogue `yaml:"catalogues"`
}

// Header mirrors the '#' key-value block of the CSV file.
type Header struct {
	NumberOfComponents int     `yaml:"NUMBER_OF_COMPONENTS"`
	RA                 float64 `yaml:"RA"`
	Dec                float64 `yaml:"DEC"`
	FOV                float64 `yaml:"FOV"`
}

// Catalogue names one committed catalogue version the export drew from.
type Catalogue struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// FileEntry describes one exported file.
type FileEntry struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
	SizeBytes   int64  `yaml:"size_bytes"`
}

// NewSidecar builds the descriptor for one export. csvPath is the exported
// file's name relative to the export directory.
func NewSidecar(result *catalogmanager.ConeSearchResult, csvPath string, csvSize int64, createdAt time.Time) *Sidecar {
	catalogues := make([]Catalogue, 0, len(result.Versions))
	for _, ref := range result.Versions {
		catalogues = append(catalogues, Catalogue{Name: ref.CatalogueName, Version: ref.Version})
	}
	return &Sidecar{
		Interface:   sidecarInterface,
		DateCreated: createdAt.UTC().Format(time.RFC3339),
		Generator:   "gsmsrv " + gsmcommon.ServerVersion,
		LocalSkyModel: LSMSection{
			Header: Header{
				NumberOfComponents: len(result.Sources),
				RA:                 result.RA,
				Dec:                result.Dec,
				FOV:                result.FOVArcmin,
			},
			Columns:    csvColumns,
			Catalogues: catalogues,
		},
		Files: []FileEntry{{
			Path:        csvPath,
			Description: "Local sky model CSV text file",
			SizeBytes:   csvSize,
		}},
	}
}

// Write marshals the sidecar as YAML.
func (s *Sidecar) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(s)
}
