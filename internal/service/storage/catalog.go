package storage

import (
	"context"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/repository"
)

// CatalogSink stores pictures together with their location in the picture repository.
type CatalogSink struct {
	repo   repository.PictureRepository
	namer  *Namer
	logger *logger.Logger
}

func NewCatalogSink(repo repository.PictureRepository, namer *Namer, logger *logger.Logger) *CatalogSink {
	return &CatalogSink{
		repo:   repo,
		namer:  namer,
		logger: logger,
	}
}

func (s *CatalogSink) Name() string {
	return "catalog"
}

func (s *CatalogSink) Deliver(ctx context.Context, item *model.CapturedItem) error {
	pic := &model.Picture{
		ID:         item.ID,
		Filename:   s.namer.Render(item.CapturedAt),
		CapturedAt: item.CapturedAt,
		Location:   item.Location,
		FileSize:   int64(len(item.Data)),
		Data:       item.Data,
	}

	if err := s.repo.Insert(pic); err != nil {
		return apperr.Wrap(apperr.KindSinkFailure, "storage.catalog", "error saving picture to database", err)
	}

	s.logger.Info("Catalogued %s", pic.Filename)
	return nil
}
