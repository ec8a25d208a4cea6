package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/espaidedades/ingest/internal/ckan"
	"github.com/espaidedades/ingest/pkg/dataset"
	"github.com/espaidedades/ingest/pkg/errors"
	"github.com/espaidedades/ingest/pkg/slug"
	"github.com/espaidedades/ingest/pkg/taxonomy"
)

// Action is the decision an upsert reached.
type Action string

// Upsert decisions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Reconciler decides create-vs-update against the remote catalog and issues
// the corresponding writes through the active CatalogWriter. A nil catalog
// means remote lookups are disabled (no API key in preview mode): every
// record is assumed new.
type Reconciler struct {
	catalog    Catalog
	writer     CatalogWriter
	logger     *zerolog.Logger
	defaultOrg string

	// orgCache remembers resolved organization names so repeated titles
	// resolve exactly once per run, in both preview and apply mode.
	orgCache map[string]struct{}
}

// NewReconciler creates a Reconciler. catalog may be nil.
func NewReconciler(catalog Catalog, writer CatalogWriter, defaultOrg string, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		catalog:    catalog,
		writer:     writer,
		logger:     logger,
		defaultOrg: defaultOrg,
		orgCache:   make(map[string]struct{}),
	}
}

// SyncGroups upserts every taxonomy entry as a catalog group: found groups
// get their title patched, missing ones are created.
func (r *Reconciler) SyncGroups(ctx context.Context, entries []taxonomy.Entry) error {
	if len(entries) == 0 {
		r.logger.Warn().Msg("No groups to sync")
		return nil
	}

	r.logger.Info().Int("groups", len(entries)).Msg("Syncing taxonomy groups")

	for _, entry := range entries {
		group := &ckan.Group{Name: entry.CatalogName, Title: entry.Title}

		if r.catalog == nil {
			if err := r.writer.CreateGroup(ctx, group); err != nil {
				return err
			}
			continue
		}

		_, err := r.catalog.GroupShow(ctx, entry.CatalogName)
		switch {
		case err == nil:
			patch := &ckan.GroupPatch{ID: entry.CatalogName, Title: entry.Title}
			if err := r.writer.PatchGroup(ctx, patch); err != nil {
				return err
			}
		case errors.IsNotFound(err):
			if err := r.writer.CreateGroup(ctx, group); err != nil {
				return err
			}
		default:
			return err
		}
	}

	return nil
}

// ResolveOrganization normalizes an organization title to a catalog name,
// falling back to the default organization when the title is empty, and
// ensures the organization exists. The empty return with nil error means the
// row has no resolvable organization and must be skipped.
func (r *Reconciler) ResolveOrganization(ctx context.Context, title string, rowNumber int) (string, error) {
	name := ""
	if title != "" {
		name = slug.Make(title)
	}
	if name == "" {
		name = r.defaultOrg
	}
	if name == "" {
		return "", nil
	}

	if _, ok := r.orgCache[name]; ok {
		return name, nil
	}

	if r.catalog == nil {
		r.orgCache[name] = struct{}{}
		r.logger.Debug().Int("row", rowNumber).Str("organization", name).Msg("Assuming organization exists (remote lookups disabled)")
		return name, nil
	}

	_, err := r.catalog.OrganizationShow(ctx, name)
	switch {
	case err == nil:
		r.orgCache[name] = struct{}{}
		return name, nil
	case errors.IsNotFound(err):
		// fall through to create
	default:
		return "", err
	}

	orgTitle := title
	if orgTitle == "" {
		orgTitle = name
	}
	org := &ckan.Organization{
		Name:  name,
		Title: orgTitle,
		State: "active",
	}
	if err := r.writer.CreateOrganization(ctx, org); err != nil {
		return "", err
	}

	r.orgCache[name] = struct{}{}
	return name, nil
}

// UpsertDataset probes the catalog for an existing dataset with the
// payload's name and issues a create or update accordingly.
func (r *Reconciler) UpsertDataset(ctx context.Context, payload *dataset.Payload) (Action, error) {
	if r.catalog == nil {
		if err := r.writer.CreateDataset(ctx, payload); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}

	exists := true
	if err := r.catalog.PackageShow(ctx, payload.Name); err != nil {
		if !errors.IsNotFound(err) {
			return "", err
		}
		exists = false
	}

	if exists {
		if err := r.writer.UpdateDataset(ctx, payload); err != nil {
			return "", err
		}
		return ActionUpdated, nil
	}

	if err := r.writer.CreateDataset(ctx, payload); err != nil {
		return "", err
	}
	return ActionCreated, nil
}
