// Package models holds shared data types passed between layers.
package models

import "time"

// GraphFile describes one graph document found in the workspace.
type GraphFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
