package query

import (
	"strings"

	"github.com/goliatone/go-resources/core"
)

const (
	TypeReadResource  = "resources.query.read"
	TypeListResources = "resources.query.list"
	TypeListOwned     = "resources.query.owned.list"
	TypeDiscoverLinks = "resources.query.links.discover"
	TypeAuthenticate  = "resources.query.auth.authenticate"
)

// ReadResourceMessage asks for one resource on behalf of a caller holding
// Claims.
type ReadResourceMessage struct {
	Claims core.ClaimSet
	ID     string
}

func (ReadResourceMessage) Type() string { return TypeReadResource }

func (m ReadResourceMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "is required")
	}
	return nil
}

type ListResourcesMessage struct {
	Claims core.ClaimSet
}

func (ListResourcesMessage) Type() string { return TypeListResources }

func (ListResourcesMessage) Validate() error { return nil }

type ListOwnedMessage struct {
	Claims  core.ClaimSet
	OwnerID string
}

func (ListOwnedMessage) Type() string { return TypeListOwned }

func (m ListOwnedMessage) Validate() error {
	if strings.TrimSpace(m.OwnerID) == "" {
		return queryValidationError("owner_id", "is required")
	}
	return nil
}

// DiscoverLinksMessage lists the operations reachable from Base. ID is
// optional; without it only collection level links are returned.
type DiscoverLinksMessage struct {
	Base   string
	ID     string
	Claims core.ClaimSet
}

func (DiscoverLinksMessage) Type() string { return TypeDiscoverLinks }

func (m DiscoverLinksMessage) Validate() error {
	if strings.TrimSpace(m.Base) == "" {
		return queryInvalidInputError("query: link base is required")
	}
	return nil
}

type AuthenticateMessage struct {
	AccessToken string
}

func (AuthenticateMessage) Type() string { return TypeAuthenticate }

func (m AuthenticateMessage) Validate() error {
	if strings.TrimSpace(m.AccessToken) == "" {
		return queryValidationError("access_token", "is required")
	}
	return nil
}
