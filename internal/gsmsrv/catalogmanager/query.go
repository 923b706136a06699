package catalogmanager

import (
	"context"
	"net/http"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"github.com/skymodel/skymodel/internal/gsmsrv/healpix"
)

// ConeSearchParams are the query parameters of one cone search. RA and Dec
// are in degrees, FOV is the search radius in arcminutes. CatalogueName and
// Version are optional filters; when both are empty the search covers the
// latest version of every catalogue.
type ConeSearchParams struct {
	RA            float64
	Dec           float64
	FOVArcmin     float64
	CatalogueName string
	Version       string
}

// ConeSearchResult is a local sky model: the sources within the cone plus
// the catalogue versions they were drawn from.
type ConeSearchResult struct {
	RA        float64             `json:"ra"`
	Dec       float64             `json:"dec"`
	FOVArcmin float64             `json:"fov"`
	Versions  []models.VersionRef `json:"versions"`
	Count     int                 `json:"count"`
	Sources   []SourceView        `json:"sources"`
}

// ConeSearch returns all committed sources whose true angular separation
// from the center is at most the FOV radius. Candidate rows are narrowed
// with a coarse pixel disc cover before the exact great-circle filter, so
// the pre-filter can never exclude a true match.
//
// An unknown catalogue name or version yields an empty result, not an
// error: the query was well-formed, the sky is just empty there.
func (m *Manager) ConeSearch(ctx context.Context, params ConeSearchParams) (*ConeSearchResult, apperrors.Error) {
	if params.Dec < -90 || params.Dec > 90 {
		return nil, ErrInvalidQuery.Msg("dec must be in [-90, 90]")
	}
	if params.FOVArcmin < 0 {
		return nil, ErrInvalidQuery.Msg("fov must not be negative")
	}
	ra := gsmcommon.NormalizeRADeg(params.RA)

	result := &ConeSearchResult{
		RA:        params.RA,
		Dec:       params.Dec,
		FOVArcmin: params.FOVArcmin,
		Versions:  []models.VersionRef{},
		Sources:   []SourceView{},
	}

	refs, err := m.resolveVersions(ctx, params.CatalogueName, params.Version)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return result, nil
	}
	result.Versions = refs

	raRad := gsmcommon.DegToRad(ra)
	decRad := gsmcommon.DegToRad(params.Dec)
	radius := gsmcommon.ArcminToRad(params.FOVArcmin)

	coarse := healpix.QueryDisc(raRad, decRad, radius, m.coarseNside)
	ranges := make([]models.PixelRange, 0, len(coarse))
	for _, pix := range coarse {
		lo, hi := healpix.ChildRange(pix, m.coarseNside, m.fineNside)
		ranges = append(ranges, models.PixelRange{Lo: lo, Hi: hi})
	}

	candidates, err := m.store.GetComponentsByPixelRanges(ctx, ranges, refs)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if healpix.AngularSeparation(raRad, decRad, c.RA, c.Dec) > radius {
			continue
		}
		view, err := viewFromComponent(c)
		if err != nil {
			return nil, err
		}
		result.Sources = append(result.Sources, view)
	}
	sort.Slice(result.Sources, func(i, j int) bool {
		return result.Sources[i].ComponentID < result.Sources[j].ComponentID
	})
	result.Count = len(result.Sources)

	log.Ctx(ctx).Debug().
		Int("candidates", len(candidates)).
		Int("matches", result.Count).
		Int("coarse_pixels", len(coarse)).
		Msg("cone search")
	return result, nil
}

// resolveVersions maps the optional catalogue name and version filters to
// the set of committed catalogue versions a search should read. The default
// is the latest version of every catalogue; a name restricts to that
// catalogue's latest; a version pins an exact match. An empty return means
// no committed data matches.
func (m *Manager) resolveVersions(ctx context.Context, catalogueName, version string) ([]models.VersionRef, apperrors.Error) {
	switch {
	case catalogueName != "" && version != "":
		if _, err := m.store.GetMetadataByVersion(ctx, catalogueName, version); err != nil {
			if err.StatusCode() == http.StatusNotFound {
				return nil, nil
			}
			return nil, err
		}
		return []models.VersionRef{{CatalogueName: catalogueName, Version: version}}, nil

	case catalogueName != "":
		latest, err := m.latestVersion(ctx, catalogueName)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, nil
		}
		return []models.VersionRef{{CatalogueName: catalogueName, Version: latest}}, nil

	case version != "":
		// a bare version pins every catalogue that committed it
		metas, err := m.store.ListMetadata(ctx, "", version)
		if err != nil {
			return nil, err
		}
		refs := make([]models.VersionRef, 0, len(metas))
		for _, meta := range metas {
			refs = append(refs, models.VersionRef{CatalogueName: meta.CatalogueName, Version: meta.Version})
		}
		return refs, nil

	default:
		names, err := m.catalogueNames(ctx)
		if err != nil {
			return nil, err
		}
		var refs []models.VersionRef
		for _, name := range names {
			latest, err := m.latestVersion(ctx, name)
			if err != nil {
				return nil, err
			}
			if latest != "" {
				refs = append(refs, models.VersionRef{CatalogueName: name, Version: latest})
			}
		}
		return refs, nil
	}
}

// latestVersion returns the highest semantic version committed for a
// catalogue, or "" when the catalogue has no commits.
func (m *Manager) latestVersion(ctx context.Context, catalogueName string) (string, apperrors.Error) {
	versions, ok := m.versions.GetVersions(ctx, catalogueName)
	if !ok {
		var err apperrors.Error
		versions, err = m.store.ListCatalogueVersions(ctx, catalogueName)
		if err != nil {
			return "", err
		}
		if len(versions) > 0 {
			m.versions.SetVersions(ctx, catalogueName, versions)
		}
	}
	var latest *semver.Version
	var latestStr string
	for _, v := range versions {
		sv, errv := semver.NewVersion(v)
		if errv != nil {
			log.Ctx(ctx).Warn().Str("version", v).Str("catalogue_name", catalogueName).Msg("skipping malformed committed version")
			continue
		}
		if latest == nil || sv.GreaterThan(latest) {
			latest = sv
			latestStr = v
		}
	}
	return latestStr, nil
}

// catalogueNames returns the distinct committed catalogue names.
func (m *Manager) catalogueNames(ctx context.Context) ([]string, apperrors.Error) {
	if names, ok := m.versions.GetCatalogueNames(ctx); ok {
		return names, nil
	}
	metas, err := m.store.ListMetadata(ctx, "", "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(metas))
	var names []string
	for _, meta := range metas {
		if !seen[meta.CatalogueName] {
			seen[meta.CatalogueName] = true
			names = append(names, meta.CatalogueName)
		}
	}
	if len(names) > 0 {
		m.versions.SetCatalogueNames(ctx, names)
	}
	return names, nil
}

// ListCatalogues returns the metadata of committed catalogue versions,
// optionally filtered by name and version.
func (m *Manager) ListCatalogues(ctx context.Context, catalogueName, version string) ([]*models.CatalogueMetadata, apperrors.Error) {
	return m.store.ListMetadata(ctx, catalogueName, version)
}
