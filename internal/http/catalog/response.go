package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/catalog"
)

type credentialResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	IsDeleted bool       `json:"is_deleted,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type contentResponse struct {
	CredentialID   uuid.UUID `json:"credential_id"`
	CredentialName string    `json:"credential_name"`
	UnitPrice      int64     `json:"unit_price"`
	Quantity       int       `json:"quantity"`
}

type packageResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       int64             `json:"price"`
	Contents    []contentResponse `json:"contents"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

type importResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Renamed int `json:"renamed"`
}

type aliasResponse struct {
	Pattern   string    `json:"pattern"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toCredentialResponse(c *catalog.Credential) credentialResponse {
	return credentialResponse{
		ID:        c.ID,
		Name:      c.Name,
		Price:     c.Price,
		IsDeleted: c.IsDeleted,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toPackageResponse(p *catalog.Package) packageResponse {
	resp := packageResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price(),
		Contents:    make([]contentResponse, len(p.Contents)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	for i, c := range p.Contents {
		resp.Contents[i] = contentResponse{
			CredentialID:   c.CredentialID,
			CredentialName: c.CredentialName,
			UnitPrice:      c.UnitPrice,
			Quantity:       c.Quantity,
		}
	}

	return resp
}
