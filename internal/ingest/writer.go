package ingest

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/espaidedades/ingest/internal/ckan"
	"github.com/espaidedades/ingest/pkg/dataset"
)

// Catalog is the remote surface the reconciler reads from and writes to.
// *ckan.Client satisfies it; tests substitute fakes.
type Catalog interface {
	GroupShow(ctx context.Context, id string) (*ckan.Group, error)
	GroupCreate(ctx context.Context, group *ckan.Group) error
	GroupPatchTitle(ctx context.Context, patch *ckan.GroupPatch) error
	OrganizationShow(ctx context.Context, id string) (*ckan.Organization, error)
	OrganizationCreate(ctx context.Context, org *ckan.Organization) error
	PackageShow(ctx context.Context, name string) error
	PackageCreate(ctx context.Context, payload *dataset.Payload) error
	PackageUpdate(ctx context.Context, payload *dataset.Payload) error
}

// CatalogWriter issues the mutating half of an upsert decision. The
// reconciler decides create-vs-update once, then hands the write to
// whichever implementation is active, so preview and apply exercise
// identical decision logic.
type CatalogWriter interface {
	CreateGroup(ctx context.Context, group *ckan.Group) error
	PatchGroup(ctx context.Context, patch *ckan.GroupPatch) error
	CreateOrganization(ctx context.Context, org *ckan.Organization) error
	CreateDataset(ctx context.Context, payload *dataset.Payload) error
	UpdateDataset(ctx context.Context, payload *dataset.Payload) error
}

// applyWriter performs real catalog writes.
type applyWriter struct {
	catalog Catalog
	logger  *zerolog.Logger
}

func (w *applyWriter) CreateGroup(ctx context.Context, group *ckan.Group) error {
	if err := w.catalog.GroupCreate(ctx, group); err != nil {
		return err
	}
	w.logger.Info().Str("group", group.Name).Msgf("Created group %s", group.Title)
	return nil
}

func (w *applyWriter) PatchGroup(ctx context.Context, patch *ckan.GroupPatch) error {
	if err := w.catalog.GroupPatchTitle(ctx, patch); err != nil {
		return err
	}
	w.logger.Info().Str("group", patch.ID).Msgf("Updated group %s", patch.Title)
	return nil
}

func (w *applyWriter) CreateOrganization(ctx context.Context, org *ckan.Organization) error {
	if err := w.catalog.OrganizationCreate(ctx, org); err != nil {
		return err
	}
	w.logger.Info().Str("organization", org.Name).Msgf("Created organization %s", org.Title)
	return nil
}

func (w *applyWriter) CreateDataset(ctx context.Context, payload *dataset.Payload) error {
	if err := w.catalog.PackageCreate(ctx, payload); err != nil {
		return err
	}
	w.logger.Info().Str("dataset", payload.Name).Msgf("Created dataset %s", payload.Title)
	return nil
}

func (w *applyWriter) UpdateDataset(ctx context.Context, payload *dataset.Payload) error {
	if err := w.catalog.PackageUpdate(ctx, payload); err != nil {
		return err
	}
	w.logger.Info().Str("dataset", payload.Name).Msgf("Updated dataset %s", payload.Title)
	return nil
}

// previewWriter logs the would-be payload of every write without touching
// the catalog.
type previewWriter struct {
	logger *zerolog.Logger
}

// logPayload logs one simulated write with its JSON payload.
func (w *previewWriter) logPayload(action, message string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		w.logger.Warn().Err(err).Str("action", action).Msg("Failed to encode simulated payload")
		return
	}
	w.logger.Info().Str("action", action).RawJSON("payload", encoded).Msg(message)
}

func (w *previewWriter) CreateGroup(_ context.Context, group *ckan.Group) error {
	w.logPayload("group_create", "[dry-run] Would create group "+group.Title, group)
	return nil
}

func (w *previewWriter) PatchGroup(_ context.Context, patch *ckan.GroupPatch) error {
	w.logPayload("group_patch", "[dry-run] Would update group "+patch.Title, patch)
	return nil
}

func (w *previewWriter) CreateOrganization(_ context.Context, org *ckan.Organization) error {
	w.logPayload("organization_create", "[dry-run] Would create organization "+org.Title, org)
	return nil
}

func (w *previewWriter) CreateDataset(_ context.Context, payload *dataset.Payload) error {
	w.logPayload("package_create", "[dry-run] Would create dataset "+payload.Title, payload)
	return nil
}

func (w *previewWriter) UpdateDataset(_ context.Context, payload *dataset.Payload) error {
	w.logPayload("package_update", "[dry-run] Would update dataset "+payload.Title, payload)
	return nil
}
