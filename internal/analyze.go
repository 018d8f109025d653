package internal

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/atomic"

	"rewind/internal/export"
	"rewind/internal/models"
	"rewind/internal/providers"
	"rewind/internal/report"
	"rewind/internal/services"
	"rewind/internal/statistic"
	"rewind/internal/store"
	"rewind/internal/structures"
)

const progressEvery = 50

// Run dispatches one non-server mode.
func Run(mode string, conf *structures.Config, logger providers.Logger) error {
	switch mode {
	case "analyze":
		_, err := RunAnalysis(conf, logger)
		return err
	case "report":
		return RunReport(conf, logger)
	case "query":
		return RunQuery(conf, logger)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// RunAnalysis executes the full pipeline: walk the export, normalize
// and fold every channel, commit the run, then write the snapshot and
// the report.
func RunAnalysis(conf *structures.Config, logger providers.Logger) (*models.AnalysisRun, error) {
	walker := export.NewWalker(conf.Analyzer.ExportDir, logger)
	channels, err := walker.Walk()
	if err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeWalk, "Discovered %d channel folders", len(channels))

	index := export.LoadIndex(conf.Analyzer.ExportDir, logger)
	users := resolveUsers(conf.Analyzer.UserID, channels, index)

	run := models.NewAnalysisRun(conf.Analyzer.UserID, conf.Analyzer.TargetYear, conf.Analyzer.ExportDir)
	run.Users = users

	aggregator := services.NewAggregatorService(conf.Analyzer.UserID, users)
	normalizer := export.NewNormalizer(conf.Analyzer.UserID, conf.Analyzer.TargetYear, logger)

	acc, err := foldChannels(conf, logger, aggregator, normalizer, channels, run, walker.Skipped())
	if err != nil {
		return nil, err
	}
	aggregator.Finish(run, acc)
	run.Summary.RecordsSkipped = normalizer.SkippedRecords()

	logger.Infof(providers.TypeApp, "Aggregated %d messages across %d channels (%d skipped folders, %d skipped records)",
		run.Summary.TotalMessages, run.Summary.ChannelsProcessed,
		run.Summary.ChannelsSkipped, run.Summary.RecordsSkipped)

	db, err := store.NewSqliteStore(&conf.Store, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.SaveRun(run); err != nil {
		return nil, err
	}

	if conf.Snapshot.Enabled {
		if err := writeSnapshot(conf, logger, run); err != nil {
			logger.Errorf(providers.TypeStore, "Snapshot failed: %s", err)
		}
	}

	generator, err := report.NewGenerator(conf, logger)
	if err != nil {
		return nil, err
	}
	if err := generator.Generate(run, conf.Report.Path); err != nil {
		return nil, err
	}
	return run, nil
}

// foldChannels fans channels out to workers, each folding into a
// private accumulator, and merges the results. Merge order does not
// affect the outcome.
func foldChannels(conf *structures.Config, logger providers.Logger, aggregator services.AggregatorServiceInterface, normalizer *export.Normalizer, channels []*models.ChannelDescriptor, run *models.AnalysisRun, walkSkipped int64) (*services.Accumulator, error) {
	workers := conf.Analyzer.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *models.ChannelDescriptor)
	results := make(chan *services.Accumulator, workers)

	var (
		wg        sync.WaitGroup
		processed = atomic.NewInt64(0)
		failed    = atomic.NewInt64(0)
		mu        sync.Mutex
	)
	var kept []*models.ChannelDescriptor
	var retained []*models.Message

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc := aggregator.NewAccumulator()
			for desc := range jobs {
				// Each channel folds into its own accumulator so a
				// decode failure part way through leaves no trace: a
				// skipped channel contributes nothing.
				chAcc := aggregator.NewAccumulator()
				var msgs []*models.Message
				err := normalizer.EachMessage(desc, func(msg *models.Message) error {
					aggregator.Fold(chAcc, desc, msg)
					if conf.Analyzer.StoreMessages {
						msgs = append(msgs, msg)
					}
					return nil
				})
				if err != nil {
					logger.Warnf(providers.TypeWalk, "Skipping channel %s: %s", desc.FolderName, err)
					failed.Inc()
					continue
				}
				aggregator.Merge(acc, chAcc)
				mu.Lock()
				kept = append(kept, desc)
				retained = append(retained, msgs...)
				mu.Unlock()
				if n := processed.Inc(); n%progressEvery == 0 {
					logger.Infof(providers.TypeWalk, "Processed %d/%d channels", n, len(channels))
				}
			}
			results <- acc
		}()
	}

	for _, desc := range channels {
		jobs <- desc
	}
	close(jobs)
	wg.Wait()
	close(results)

	total := aggregator.NewAccumulator()
	for acc := range results {
		aggregator.Merge(total, acc)
	}

	run.Channels = kept
	run.Messages = retained
	run.Summary.ChannelsProcessed = int(processed.Load())
	run.Summary.ChannelsSkipped = walkSkipped + failed.Load()
	return total, nil
}

// resolveUsers maps user ids to usernames from the export index: one
// entry per DM partner whose channel label carried a name.
func resolveUsers(selfID string, channels []*models.ChannelDescriptor, index map[string]string) map[string]string {
	users := make(map[string]string)
	for _, desc := range channels {
		if desc.Kind != models.KindDM {
			continue
		}
		name := export.DMPartnerName(index[desc.ChannelID])
		if name == "" {
			continue
		}
		if partner := desc.PartnerID(selfID); partner != "" {
			users[partner] = name
		}
	}
	return users
}

func writeSnapshot(conf *structures.Config, logger providers.Logger, run *models.AnalysisRun) error {
	compressor, err := statistic.NewZstdCompressor()
	if err != nil {
		return err
	}
	manager := statistic.NewFileManager(compressor, logger)
	defer manager.Close()
	return manager.SaveToFile(run, conf.Snapshot.Path)
}

// RunReport regenerates the report document from the stored run
// without re-reading the export. When the database cannot serve the
// run, the zstd snapshot (if one matches) renders instead.
func RunReport(conf *structures.Config, logger providers.Logger) error {
	run, err := loadStoredRun(conf, logger)
	if err != nil {
		snap := readSnapshot(conf, logger)
		if snap == nil {
			return err
		}
		logger.Warnf(providers.TypeReport, "Store unavailable (%s), rendering from snapshot %s", err, conf.Snapshot.Path)
		run = snap
	}

	generator, err := report.NewGenerator(conf, logger)
	if err != nil {
		return err
	}
	return generator.Generate(run, conf.Report.Path)
}

func loadStoredRun(conf *structures.Config, logger providers.Logger) (*models.AnalysisRun, error) {
	db, err := store.NewSqliteStore(&conf.Store, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadRun(conf.Analyzer.UserID, conf.Analyzer.TargetYear)
}

// readSnapshot returns the snapshot run when it exists, decodes, and
// matches the requested user and year; nil otherwise.
func readSnapshot(conf *structures.Config, logger providers.Logger) *models.AnalysisRun {
	if conf.Snapshot.Path == "" {
		return nil
	}
	compressor, err := statistic.NewZstdCompressor()
	if err != nil {
		return nil
	}
	manager := statistic.NewFileManager(compressor, logger)
	defer manager.Close()

	run, err := manager.LoadFromFile(conf.Snapshot.Path)
	if err != nil || run == nil {
		return nil
	}
	if run.UserID != conf.Analyzer.UserID || run.Year != conf.Analyzer.TargetYear {
		return nil
	}
	return run
}

// RunQuery starts the read-only shell against an existing database.
func RunQuery(conf *structures.Config, logger providers.Logger) error {
	db, err := store.OpenReadOnly(conf.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	shell := store.NewQueryShell(db, logger)
	return shell.Run(os.Stdin, os.Stdout)
}
