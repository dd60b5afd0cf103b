package services

import (
	"context"
	"fmt"

	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/storage"
	"airbnb-vacancy/utils"
)

// StageExport is the stage name of Exporter.
const StageExport = "Export"

// Exporter hands the enriched listings to every configured writer.
type Exporter struct {
	writers []storage.ListingWriter
	logger  *utils.Logger
}

// NewExporter creates the export stage.
func NewExporter(logger *utils.Logger, writers ...storage.ListingWriter) *Exporter {
	return &Exporter{writers: writers, logger: logger}
}

func (e *Exporter) Name() string { return StageExport }

func (e *Exporter) Run(_ context.Context, ds *models.Dataset, scratch pipeline.Scratch) error {
	runID, _ := scratch[pipeline.KeyRunID].(string)
	for _, w := range e.writers {
		if err := w.Write(runID, ds.Market, ds.Listings); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	e.logger.Info("[export] Wrote %d listings to %d destination(s)", len(ds.Listings), len(e.writers))
	return nil
}
