// Package importer drives full ingestion runs: one unit of work per CVE
// feed year, and the single CWE catalog unit.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
	"k8s.io/utils/clock"

	"github.com/vulncatalog/vulncatalog/pkg/batch"
	"github.com/vulncatalog/vulncatalog/pkg/db"
	"github.com/vulncatalog/vulncatalog/pkg/fetch"
	"github.com/vulncatalog/vulncatalog/pkg/feed/cwe"
	"github.com/vulncatalog/vulncatalog/pkg/feed/nvd"
	"github.com/vulncatalog/vulncatalog/pkg/log"
	"github.com/vulncatalog/vulncatalog/pkg/taxonomy"
	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// FirstYear is the oldest CVE feed year imported.
const FirstYear = 2022

type Importer struct {
	store      db.Operation
	fetcher    fetch.Client
	clock      clock.Clock
	firstYear  int
	cveFeedURL string
	cweFeedURL string
}

type Option func(*Importer)

func WithClock(c clock.Clock) Option {
	return func(i *Importer) {
		i.clock = c
	}
}

func WithFetchClient(c fetch.Client) Option {
	return func(i *Importer) {
		i.fetcher = c
	}
}

func WithFirstYear(year int) Option {
	return func(i *Importer) {
		i.firstYear = year
	}
}

func WithCVEFeedURL(urlFormat string) Option {
	return func(i *Importer) {
		i.cveFeedURL = urlFormat
	}
}

func WithCWEFeedURL(url string) Option {
	return func(i *Importer) {
		i.cweFeedURL = url
	}
}

func New(store db.Operation, opts ...Option) *Importer {
	i := &Importer{
		store:      store,
		fetcher:    fetch.NewClient(),
		clock:      clock.RealClock{},
		firstYear:  FirstYear,
		cveFeedURL: nvd.FeedURL,
		cweFeedURL: cwe.FeedURL,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportCVE runs one full CVE ingestion: a task is created, then each feed
// year from the first year through the current one is fetched, normalized
// and persisted. Any failure aborts the whole run; silently skipping a year
// would leave the catalog incomplete with no trace.
func (i *Importer) ImportCVE(ctx context.Context) error {
	now := i.clock.Now().UTC()
	task := types.Task{
		Model: types.Model{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
	}
	if err := i.store.InsertTask(ctx, task); err != nil {
		return xerrors.Errorf("failed to create task: %w", err)
	}

	registry := taxonomy.NewRegistry()
	if err := i.warmRegistry(ctx, registry); err != nil {
		return err
	}

	for year := i.firstYear; year <= i.clock.Now().Year(); year++ {
		if err := i.importYear(ctx, year, task.ID, registry); err != nil {
			return xerrors.Errorf("error in %d import: %w", year, err)
		}
	}
	return nil
}

// warmRegistry seeds the deduplicator with the vendors and products already
// persisted by earlier runs, so their identifiers are reused instead of
// re-minted.
func (i *Importer) warmRegistry(ctx context.Context, registry *taxonomy.Registry) error {
	vendors, err := i.store.VendorNames(ctx)
	if err != nil {
		return xerrors.Errorf("failed to load known vendors: %w", err)
	}
	products, err := i.store.ProductSlugs(ctx)
	if err != nil {
		return xerrors.Errorf("failed to load known products: %w", err)
	}
	registry.Warm(vendors, products)
	return nil
}

// importYear is one unit of work: fetch, parse, normalize, persist,
// release. The batch is scoped to this call so each year's buffers are
// dropped before the next year starts.
func (i *Importer) importYear(ctx context.Context, year int, taskID string, registry *taxonomy.Registry) error {
	logger := log.WithPrefix(fmt.Sprintf("CVE/%d", year))
	url := fmt.Sprintf(i.cveFeedURL, year)

	start := time.Now()
	logger.Info("Downloading feed", log.URL(url))
	raw, err := i.fetcher.FetchGzip(ctx, url)
	if err != nil {
		return xerrors.Errorf("feed download error: %w", err)
	}
	logger.Info("Feed downloaded", log.Elapsed(start))

	start = time.Now()
	feed, err := nvd.ParseFeed(raw)
	if err != nil {
		return err
	}
	logger.Info("Feed parsed", log.Int("items", len(feed.Items)), log.Elapsed(start))

	start = time.Now()
	b := batch.New(taskID, i.clock.Now().UTC())
	for _, item := range feed.Items {
		entry, err := nvd.Normalize(item)
		if err != nil {
			return err
		}
		if !b.Add(entry, registry) {
			logger.Warn("Duplicate CVE skipped", log.String("cve_id", entry.CveID))
		}
	}
	logger.Info("Records assembled", log.Int("count", b.Len()), log.Elapsed(start))

	start = time.Now()
	if err := i.persist(ctx, b); err != nil {
		return err
	}
	logger.Info("CVE imported", log.Int("count", b.Len()), log.Elapsed(start))
	return nil
}

// persist flushes one batch in dependency order. A failure aborts the unit;
// each bulk call is atomic on its own, there is no cross-call transaction.
func (i *Importer) persist(ctx context.Context, b *batch.Batch) error {
	if err := i.store.BulkInsertVendors(ctx, b.Vendors()); err != nil {
		return xerrors.Errorf("vendors persist error: %w", err)
	}
	if err := i.store.BulkInsertProducts(ctx, b.Products()); err != nil {
		return xerrors.Errorf("products persist error: %w", err)
	}
	if err := i.store.BulkInsertCves(ctx, b.Cves()); err != nil {
		return xerrors.Errorf("cves persist error: %w", err)
	}
	if err := i.store.BulkInsertChanges(ctx, b.Changes()); err != nil {
		return xerrors.Errorf("changes persist error: %w", err)
	}
	if err := i.store.BulkInsertEvents(ctx, b.Events()); err != nil {
		return xerrors.Errorf("events persist error: %w", err)
	}
	return nil
}

// ImportCWE runs the weakness catalog unit: fetch the zip archive, parse
// the XML catalog, insert the rows. Duplicate upstream identifiers across
// runs surface as a persistence error from the store's unique constraint.
func (i *Importer) ImportCWE(ctx context.Context) error {
	logger := log.WithPrefix("CWE")

	start := time.Now()
	logger.Info("Downloading catalog", log.URL(i.cweFeedURL))
	raw, err := i.fetcher.FetchZip(ctx, i.cweFeedURL)
	if err != nil {
		return xerrors.Errorf("catalog download error: %w", err)
	}
	logger.Info("Catalog downloaded", log.Elapsed(start))

	start = time.Now()
	entries, err := cwe.Parse(raw)
	if err != nil {
		return err
	}

	now := i.clock.Now().UTC()
	cwes := make([]types.Cwe, 0, len(entries))
	for _, entry := range entries {
		cwes = append(cwes, types.Cwe{
			Model:       types.Model{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			CweID:       entry.CweID,
			Name:        entry.Name,
			Description: entry.Description,
		})
	}
	logger.Info("Catalog parsed", log.Int("count", len(cwes)), log.Elapsed(start))

	start = time.Now()
	if err := i.store.BulkInsertCwes(ctx, cwes); err != nil {
		return xerrors.Errorf("cwes persist error: %w", err)
	}
	logger.Info("CWE imported", log.Int("count", len(cwes)), log.Elapsed(start))
	return nil
}
