package ckan

import (
	"context"

	"github.com/espaidedades/ingest/pkg/dataset"
)

// Group is a catalog taxonomy group record.
type Group struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// GroupPatch is the partial update sent to group_patch.
type GroupPatch struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Organization is a catalog organization record.
type Organization struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
}

// GroupShow fetches a group by name or id.
func (c *Client) GroupShow(ctx context.Context, id string) (*Group, error) {
	var group Group
	if err := c.get(ctx, "group_show", id, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GroupCreate creates a group.
func (c *Client) GroupCreate(ctx context.Context, group *Group) error {
	return c.post(ctx, "group_create", group, nil)
}

// GroupPatchTitle updates an existing group's title, leaving other fields
// untouched.
func (c *Client) GroupPatchTitle(ctx context.Context, patch *GroupPatch) error {
	return c.post(ctx, "group_patch", patch, nil)
}

// OrganizationShow fetches an organization by name or id.
func (c *Client) OrganizationShow(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	if err := c.get(ctx, "organization_show", id, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// OrganizationCreate creates an organization.
func (c *Client) OrganizationCreate(ctx context.Context, org *Organization) error {
	return c.post(ctx, "organization_create", org, nil)
}

// PackageShow probes for a dataset by name.
func (c *Client) PackageShow(ctx context.Context, name string) error {
	return c.get(ctx, "package_show", name, nil)
}

// PackageCreate creates a dataset.
func (c *Client) PackageCreate(ctx context.Context, payload *dataset.Payload) error {
	return c.post(ctx, "package_create", payload, nil)
}

// PackageUpdate replaces an existing dataset.
func (c *Client) PackageUpdate(ctx context.Context, payload *dataset.Payload) error {
	return c.post(ctx, "package_update", payload, nil)
}
