package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/server"
	"github.com/ideadesk/ideadesk/internal/server/handler"
	"github.com/ideadesk/ideadesk/internal/service"
)

// ServeMode runs the HTTP API server until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	priceSvc := a.buildPriceService(deps)
	ideaSvc := service.NewIdeaService(
		deps.Ideas, deps.Folders, deps.Observations, deps.Notes, deps.Audit, priceSvc, a.logger,
	)
	folderSvc := service.NewFolderService(
		deps.Folders, deps.Ideas, deps.Audit, priceSvc, a.logger,
	)
	earningsSvc := service.NewEarningsService(deps.Earnings, deps.Folders, deps.Market, a.logger)
	guidanceSvc := service.NewGuidanceService(deps.Guidance, deps.Folders, a.logger)
	noteSvc := service.NewNoteService(deps.Notes, deps.Ideas, deps.Folders, a.logger)
	attachmentSvc := service.NewAttachmentService(
		deps.Attachments, deps.Ideas, deps.Folders,
		deps.BlobWriter, deps.BlobReader, deps.BlobDeleter,
		a.cfg.Uploads.MaxSizeBytes, a.logger,
	)
	authSvc := service.NewAuthService(
		deps.Users, deps.Sessions, deps.Audit,
		a.cfg.Auth.BcryptCost, a.cfg.Auth.SessionTTL.Duration, a.logger,
	)

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.DB, deps.Cache, a.logger),
		Auth:        handler.NewAuthHandler(authSvc, a.cfg.Auth.SessionTTL.Duration, a.cfg.Server.SecureCookies, a.logger),
		Folders:     handler.NewFolderHandler(folderSvc, a.logger),
		Ideas:       handler.NewIdeaHandler(ideaSvc, a.logger),
		Prices:      handler.NewPriceHandler(priceSvc, a.logger),
		Earnings:    handler.NewEarningsHandler(earningsSvc, a.logger),
		Guidance:    handler.NewGuidanceHandler(guidanceSvc, a.logger),
		Notes:       handler.NewNoteHandler(noteSvc, a.logger),
		Attachments: handler.NewAttachmentHandler(attachmentSvc, a.cfg.Uploads.MaxSizeBytes, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWin.Duration,
	}, handlers, authSvc, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// BackfillMode fills the price series of every open idea from the provider
// and exits. Rerunning is harmless: already-covered days create nothing.
func (a *App) BackfillMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backfill mode")

	priceSvc := a.buildPriceService(deps)

	ideas, err := deps.Ideas.List(ctx, domain.IdeaFilter{})
	if err != nil {
		return fmt.Errorf("app: list ideas: %w", err)
	}

	total := 0
	failed := 0
	for _, idea := range ideas {
		if idea.IsClosed() {
			continue
		}
		created, err := priceSvc.Backfill(ctx, idea.ID, nil, nil)
		if err != nil {
			failed++
			a.logger.WarnContext(ctx, "backfill failed",
				slog.String("idea_id", idea.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		total += created
	}

	a.logger.InfoContext(ctx, "backfill mode finished",
		slog.Int("ideas", len(ideas)),
		slog.Int("observations_created", total),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("app: backfill failed for %d ideas", failed)
	}
	return nil
}

// ArchiveMode exports observations older than the retention window to object
// storage and exits. Rows are never deleted here.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires object storage")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	count, err := deps.Archiver.ArchiveObservations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive observations: %w", err)
	}

	a.logger.InfoContext(ctx, "archive mode finished",
		slog.Time("cutoff", cutoff),
		slog.Int64("observations_archived", count),
	)
	return nil
}

func (a *App) buildPriceService(deps *Dependencies) *service.PriceService {
	return service.NewPriceService(
		deps.Market,
		deps.Observations,
		deps.Ideas,
		deps.Folders,
		deps.Quotes,
		a.cfg.Provider.Timeout.Duration,
		a.logger,
	)
}
