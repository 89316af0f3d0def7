// Package nimbus talks to the external identifier system that links deploy
// stages to projects.
package nimbus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/infrastructure/deployapi"
)

const identifiersPath = "/api/v1/identifiers"

// Client implements port.IdentifierService over HTTP. Calls reuse the
// deploy API transport, so they carry the caller's bearer token.
type Client struct {
	api        *deployapi.Client
	consoleURL string
}

func NewClient(api *deployapi.Client, consoleURL string) *Client {
	return &Client{
		api:        api,
		consoleURL: strings.TrimRight(strings.TrimSpace(consoleURL), "/"),
	}
}

func (c *Client) GetIdentifier(ctx context.Context, name string) (entity.Identifier, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: identifier name is required", deployapi.ErrMissingIdentifier)
	}
	var out entity.Identifier
	if err := c.api.DoJSON(ctx, http.MethodGet, identifiersPath+"/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateIdentifier(ctx context.Context, data entity.Identifier) (entity.Identifier, error) {
	var out entity.Identifier
	if err := c.api.DoJSON(ctx, http.MethodPost, identifiersPath, nil, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteIdentifier removes an identifier; a missing one is not an error.
func (c *Client) DeleteIdentifier(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: identifier name is required", deployapi.ErrMissingIdentifier)
	}
	_, err := c.api.Do(ctx, http.MethodDelete, identifiersPath+"/"+url.PathEscape(name), nil, nil)
	if errors.Is(err, deployapi.ErrNotFound) {
		return nil
	}
	return err
}

// ProjectConsoleURL returns the console page of a project, or "" when no
// console is configured.
func (c *Client) ProjectConsoleURL(projectName string) string {
	if c.consoleURL == "" || projectName == "" {
		return ""
	}
	return c.consoleURL + "/projects/" + url.PathEscape(projectName)
}
