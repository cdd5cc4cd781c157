package processor

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

// Worker drains a partner's pending products through the generator. One
// Worker serves the whole service; each run fans out into its own pool of
// goroutines with their own database connections.
type Worker struct {
	gen          Generator
	registry     *Registry
	concurrency  int
	batchLimit   int
	pollInterval time.Duration
}

func NewWorker(gen Generator, registry *Registry) *Worker {
	cfg := config.Config()
	return &Worker{
		gen:          gen,
		registry:     registry,
		concurrency:  cfg.Worker.Concurrency,
		batchLimit:   cfg.Worker.BatchLimit,
		pollInterval: cfg.Worker.GetPollIntervalOrDefault(),
	}
}

// StartRun registers a run for the partner and processes it in the
// background. The returned run ID can be polled through the registry.
func (w *Worker) StartRun(ctx context.Context, partnerID uuid.UUID) uuid.UUID {
	runID := w.registry.CreateRun(partnerID)

	// The run outlives the request that started it. Keep the logger, drop
	// the request-scoped deadline and connection.
	runCtx := log.Ctx(ctx).WithContext(context.Background())
	go w.run(runCtx, runID, partnerID)

	return runID
}

func (w *Worker) run(ctx context.Context, runID, partnerID uuid.UUID) {
	w.registry.MarkRunning(runID)

	var claimed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.drain(ctx, runID, partnerID, &claimed)
		}()
	}
	wg.Wait()

	w.registry.MarkCompleted(runID)
	run, _ := w.registry.GetRun(runID)
	log.Ctx(ctx).Info().
		Str("run_id", runID.String()).
		Str("partner_id", partnerID.String()).
		Int("completed", run.Progress.Completed).
		Int("eligible", run.Progress.Eligible).
		Int("failed", run.Progress.Failed).
		Str("status", string(run.Status)).
		Msg("processing run finished")
}

// drain claims and processes products until none are left, the batch limit is
// reached, or a stop is requested. An empty claim waits one poll interval for
// products still being ingested before the goroutine gives up.
func (w *Worker) drain(ctx context.Context, runID, partnerID uuid.UUID, claimed *atomic.Int64) {
	connCtx, err := db.ConnCtx(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("worker could not get db connection")
		w.registry.MarkFailed(runID, "database unavailable: "+err.Error())
		return
	}
	ctx = connCtx
	defer db.DB(ctx).Close(ctx)

	idle := false
	for {
		if ctx.Err() != nil || w.registry.ShouldStop(runID) {
			return
		}
		if w.batchLimit > 0 && claimed.Load() >= int64(w.batchLimit) {
			return
		}

		product, dberr := db.DB(ctx).ClaimNextProduct(ctx, partnerID)
		if dberr != nil {
			if errors.Is(dberr, dberror.ErrNotFound) {
				if idle || w.pollInterval <= 0 {
					return
				}
				idle = true
				select {
				case <-ctx.Done():
					return
				case <-time.After(w.pollInterval):
				}
				continue
			}
			log.Ctx(ctx).Error().Err(dberr).Msg("claim failed")
			w.registry.MarkFailed(runID, dberr.Error())
			return
		}

		idle = false
		claimed.Add(1)
		w.registry.UpdateProgress(runID, func(p *Progress) { p.Claimed++ })
		w.processOne(ctx, runID, product)
	}
}

func (w *Worker) processOne(ctx context.Context, runID uuid.UUID, product *models.Product) {
	input := &GenerateInput{
		ProductName: product.ProductName,
		Description: product.Description.String,
		Brand:       product.Brand.String,
		Category:    product.Category.String,
		Price:       product.Price,
		Currency:    product.Currency,
	}

	classification, err := w.gen.Generate(ctx, input)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("product_id", product.ProductID.String()).Msg("generation failed")
		if dberr := db.DB(ctx).MarkProductFailed(ctx, product.ProductID, err.Error()); dberr != nil {
			log.Ctx(ctx).Error().Err(dberr).Msg("failed to record product failure")
		}
		w.registry.UpdateProgress(runID, func(p *Progress) { p.Failed++ })
		return
	}

	pkg := buildPackage(product, classification)
	if dberr := db.DB(ctx).CreatePackage(ctx, pkg); dberr != nil {
		log.Ctx(ctx).Error().Err(dberr).Str("product_id", product.ProductID.String()).Msg("failed to store package")
		if ferr := db.DB(ctx).MarkProductFailed(ctx, product.ProductID, dberr.Error()); ferr != nil {
			log.Ctx(ctx).Error().Err(ferr).Msg("failed to record product failure")
		}
		w.registry.UpdateProgress(runID, func(p *Progress) { p.Failed++ })
		return
	}

	if dberr := db.DB(ctx).MarkProductCompleted(ctx, product.ProductID); dberr != nil {
		log.Ctx(ctx).Error().Err(dberr).Str("product_id", product.ProductID.String()).Msg("failed to mark product completed")
		w.registry.UpdateProgress(runID, func(p *Progress) { p.Failed++ })
		return
	}

	w.registry.UpdateProgress(runID, func(p *Progress) {
		p.Completed++
		if classification.Eligible {
			p.Eligible++
		} else {
			p.NotEligible++
		}
	})
}

// buildPackage maps a classification onto an insurance package row. Eligible
// products get a priced package with high confidence; ineligible ones are
// recorded with zero confidence so operators can audit the decision.
func buildPackage(product *models.Product, c *Classification) *models.InsurancePackage {
	pkg := &models.InsurancePackage{
		PartnerID:  product.PartnerID,
		ProductID:  uuid.NullUUID{UUID: product.ProductID, Valid: true},
		Guarantees: pgtype.JSONB{Bytes: c.Guarantees, Status: pgtype.Present},
		CreatedBy:  sql.NullString{String: string(partnercommon.PackageCreatorAI), Valid: true},
	}

	name := c.PackageName
	if name == "" {
		name = product.ProductName + " Protection"
	}
	pkg.PackageName = sql.NullString{String: name, Valid: true}

	if c.Eligible {
		pkg.Status = string(partnercommon.PackageStatusEligible)
		pkg.AIConfidence = sql.NullFloat64{Float64: 0.95, Valid: true}
		market := MarketForCurrency(product.Currency)
		if premium, ok := MonthlyPremium(c.RiskProfile, product.Price, market); ok {
			pkg.MonthlyPremium = sql.NullFloat64{Float64: premium, Valid: true}
		}
	} else {
		pkg.Status = string(partnercommon.PackageStatusNotEligible)
		pkg.AIConfidence = sql.NullFloat64{Float64: 0.0, Valid: true}
	}

	return pkg
}
