package domain

import "errors"

// Visibility selects the storage namespace a project lives in.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Project is a single floor-plan-to-render unit of work. Image fields hold
// hosted URLs once persisted; inline data URLs only ever appear in transit.
// The JSON shape is what the web client reads and writes.
type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	SourceImage   string `json:"sourceImage,omitempty"`
	SourcePath    string `json:"sourcePath,omitempty"`
	RenderedImage string `json:"renderedImage,omitempty"`
	RenderedPath  string `json:"renderedPath,omitempty"`
	ThumbPath     string `json:"thumbPath,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	OwnerID       string `json:"ownerId,omitempty"`
	IsPublic      bool   `json:"isPublic,omitempty"`
	SharedBy      string `json:"sharedBy,omitempty"`
	SharedAt      string `json:"sharedAt,omitempty"`
}

var (
	ErrNotFound          = errors.New("project not found")
	ErrInvalidProject    = errors.New("project id and image required")
	ErrOwnershipConflict = errors.New("project is shared by a different owner")
)
