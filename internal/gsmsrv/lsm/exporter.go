package lsm

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
)

// ErrExportFailed indicates the LSM file set could not be written to the
// export directory.
var ErrExportFailed apperrors.Error = apperrors.New("failed to export local sky model").SetStatusCode(http.StatusInternalServerError)

// Export is the pair of files written for one exported local sky model.
type Export struct {
	CSVPath     string `json:"csv_path"`
	SidecarPath string `json:"sidecar_path"`
	Components  int    `json:"components"`
}

// Exporter writes LSM file sets to a shared export directory.
type Exporter struct {
	dir string
}

// NewExporter returns an exporter targeting the configured export directory.
func NewExporter() *Exporter {
	return &Exporter{dir: config.Config().LSM.ExportDir}
}

// Export writes a cone-search result to the export directory as a CSV source
// file plus a YAML sidecar, named lsm-<uuid>.csv and lsm-<uuid>.yaml.
func (e *Exporter) Export(ctx context.Context, result *catalogmanager.ConeSearchResult) (*Export, apperrors.Error) {
	base := "lsm-" + uuid.New().String()
	csvName := base + ".csv"
	csvPath := filepath.Join(e.dir, csvName)
	sidecarPath := filepath.Join(e.dir, base+".yaml")
	createdAt := time.Now()

	if err := e.writeCSVFile(csvPath, result, createdAt); err != nil {
		return nil, ErrExportFailed.Err(err)
	}
	info, err := os.Stat(csvPath)
	if err != nil {
		return nil, ErrExportFailed.Err(err)
	}
	if err := e.writeSidecarFile(sidecarPath, NewSidecar(result, csvName, info.Size(), createdAt)); err != nil {
		os.Remove(csvPath)
		return nil, ErrExportFailed.Err(err)
	}

	log.Ctx(ctx).Info().
		Str("csv_path", csvPath).
		Int("components", len(result.Sources)).
		Msg("exported local sky model")
	return &Export{
		CSVPath:     csvPath,
		SidecarPath: sidecarPath,
		Components:  len(result.Sources),
	}, nil
}

func (e *Exporter) writeCSVFile(path string, result *catalogmanager.ConeSearchResult, createdAt time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, result, createdAt); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (e *Exporter) writeSidecarFile(path string, s *Sidecar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
