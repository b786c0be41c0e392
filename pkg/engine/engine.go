// Package engine drives the native rendering engine that turns a
// visualization database into images and WebGL scenes.
//
// The engine is an external collaborator: this package only assembles the
// request and hands it to the LavaVu executable. Output bytes are opaque.
//
//	eng, err := engine.Locate(binDir)
//	if err != nil {
//	    return err // ENGINE_UNAVAILABLE
//	}
//	defer eng.Close()
//	png, err := eng.Image(ctx, engine.ImageRequest{Database: "run.gldb", Figure: "Figure_1"})
package engine

import "context"

// ImageRequest selects what to render into an image.
type ImageRequest struct {
	Database string
	Figure   string
	Step     int
	// Width and Height override the figure resolution when both are set.
	Width, Height int
	Quality       int
	Script        []string
}

// ExportRequest selects what to export as a WebGL scene.
type ExportRequest struct {
	Database string
	Figure   string
	Step     int
	Script   []string
}

// Engine renders figures stored in a visualization database.
type Engine interface {
	Image(ctx context.Context, req ImageRequest) ([]byte, error)
	WebGL(ctx context.Context, req ExportRequest) ([]byte, error)
	Close() error
}
