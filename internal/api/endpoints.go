package api

import (
	"context"
	"net/http"
	"net/url"

	"sitewalk/internal/domain"
)

// Locations lists the facilities inspections can be performed at.
func (c *Client) Locations(ctx context.Context) ([]domain.Location, error) {
	var out []domain.Location
	if err := c.getJSON(ctx, "/locations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Templates lists the available checklist templates.
func (c *Client) Templates(ctx context.Context) ([]domain.Template, error) {
	var out []domain.Template
	if err := c.getJSON(ctx, "/templates", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Template fetches a single template by id. Used as the fallback when a
// resumed inspection carries no usable snapshot or embedded template.
func (c *Client) Template(ctx context.Context, id string) (domain.Template, error) {
	var out domain.Template
	if err := c.getJSON(ctx, "/templates/"+url.PathEscape(id), &out); err != nil {
		return domain.Template{}, err
	}
	return out, nil
}

// Users lists service accounts. Only privileged callers should issue
// this; the result is filtered client-side to assignable roles.
func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.getJSON(ctx, "/users", &out); err != nil {
		return nil, err
	}
	return domain.FilterAssignable(out), nil
}

// Inspection fetches a persisted inspection by id for resuming.
func (c *Client) Inspection(ctx context.Context, id string) (domain.Inspection, error) {
	var out domain.Inspection
	if err := c.getJSON(ctx, "/inspections/"+url.PathEscape(id), &out); err != nil {
		return domain.Inspection{}, err
	}
	return out, nil
}

// CreateInspection persists a new inspection record and returns it with
// server-assigned fields populated.
func (c *Client) CreateInspection(ctx context.Context, insp domain.Inspection) (domain.Inspection, error) {
	var out domain.Inspection
	if err := c.sendJSON(ctx, http.MethodPost, "/inspections", insp, &out); err != nil {
		return domain.Inspection{}, err
	}
	return out, nil
}

// UpdateInspection updates an inspection by id. Used for the pending ->
// in_progress transition on resume and for the final submit.
func (c *Client) UpdateInspection(ctx context.Context, id string, insp domain.Inspection) (domain.Inspection, error) {
	var out domain.Inspection
	if err := c.sendJSON(ctx, http.MethodPut, "/inspections/"+url.PathEscape(id), insp, &out); err != nil {
		return domain.Inspection{}, err
	}
	return out, nil
}

// CreateTicket files a maintenance ticket spawned from a failing item.
func (c *Client) CreateTicket(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	var out domain.Ticket
	if err := c.sendJSON(ctx, http.MethodPost, "/tickets", ticket, &out); err != nil {
		return domain.Ticket{}, err
	}
	return out, nil
}
