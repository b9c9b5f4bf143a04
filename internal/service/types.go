// Package service composes the overlay manager, the rendering surface and
// their supporting stores into the operations exposed by the API and CLI.
package service

// OverlayStatus is the externally visible state of one overlay.
type OverlayStatus struct {
	Name     string `json:"name" doc:"Overlay name" example:"volcanic" enum:"geological,volcanic,mangrove"`
	Category string `json:"category" doc:"Styling category" example:"volcanic"`
	State    string `json:"state" doc:"Lifecycle state" example:"visible" enum:"unloaded,loading,visible,hidden"`
	Visible  bool   `json:"visible" doc:"Whether the overlay is attached to the map"`
	Features int    `json:"features" doc:"Number of rendered features" example:"3"`
	Resource string `json:"resource" doc:"Resource the features are fetched from" example:"maps/volcanic/data/volcanic_areas.geojson"`
	Error    string `json:"error,omitempty" doc:"Last fetch error, if the overlay failed to load"`
}

// SourceFile describes an overlay's feature file on disk.
type SourceFile struct {
	Overlay string `json:"overlay" doc:"Overlay name" example:"mangrove"`
	Path    string `json:"path" doc:"File path" example:".data/maps/mangrove/data/mangrove_areas.geojson"`
	Exists  bool   `json:"exists" doc:"Whether the file is present"`
	Size    string `json:"size,omitempty" doc:"Human-readable file size" example:"1.2 KB"`
}
