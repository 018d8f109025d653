package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"rewind/internal/models"
	"rewind/internal/providers"
	"rewind/internal/structures"
)

//go:embed report.gohtml
var templateFS embed.FS

// barSection is one ranked list rendered as horizontal bars. Percent is
// relative to the section's largest count so the widest bar always
// fills the row.
type barSection struct {
	Title   string
	Empty   bool
	Entries []barEntry
}

type barEntry struct {
	Key     string
	Count   int64
	Bytes   string
	Percent float64
}

type reportData struct {
	AppName     string
	UserName    string
	UserID      string
	Year        int
	Summary     models.RunSummary
	DateRange   string
	Daily       barSection
	Servers     barSection
	DMs         barSection
	GroupDMs    barSection
	Emotes      barSection
	FileTypes   barSection
	SystemEvts  barSection
	GeneratedAt string
}

type GeneratorInterface interface {
	Generate(run *models.AnalysisRun, outPath string) error
	Render(run *models.AnalysisRun) ([]byte, error)
}

type Generator struct {
	conf   *structures.Config
	logger providers.Logger
	tmpl   *template.Template
	now    func() time.Time
}

func NewGenerator(conf *structures.Config, logger providers.Logger) (GeneratorInterface, error) {
	tmpl, err := template.ParseFS(templateFS, "report.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &Generator{conf: conf, logger: logger, tmpl: tmpl, now: time.Now}, nil
}

// Render produces the report document as bytes. Output is byte
// identical across invocations on the same run, except for the
// generation timestamp in the footer.
func (g *Generator) Render(run *models.AnalysisRun) ([]byte, error) {
	data := g.buildData(run)
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) Generate(run *models.AnalysisRun, outPath string) error {
	out, err := g.Render(run)
	if err != nil {
		return err
	}

	tmpFile := outPath + ".tmp"
	if err := os.WriteFile(tmpFile, out, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpFile, outPath); err != nil {
		os.Remove(tmpFile)
		return err
	}
	g.logger.Infof(providers.TypeReport, "Report written to %s", outPath)
	return nil
}

func (g *Generator) buildData(run *models.AnalysisRun) *reportData {
	topN := g.conf.Report.TopN
	data := &reportData{
		AppName:     g.conf.AppName,
		UserID:      run.UserID,
		UserName:    run.UserID,
		Year:        run.Year,
		Summary:     run.Summary,
		DateRange:   dateRange(run.Summary),
		Daily:       dailySection(run.Bucket(models.BucketDaily)),
		Servers:     rankedSection("Top Servers", run.Bucket(models.BucketServers), topN.Servers, false),
		DMs:         rankedSection("Top Direct Messages", run.Bucket(models.BucketDMs), topN.DMs, false),
		GroupDMs:    rankedSection("Top Group DMs", run.Bucket(models.BucketGroupDMs), topN.GroupDMs, false),
		Emotes:      rankedSection("Top Emotes", run.Bucket(models.BucketEmotes), topN.Emotes, false),
		FileTypes:   rankedSection("Attachments by File Type", run.Bucket(models.BucketFileTypes), topN.FileTypes, true),
		SystemEvts:  rankedSection("System Events", run.Bucket(models.BucketSystemEvents), 0, false),
		GeneratedAt: g.now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	if name, ok := run.Users[run.UserID]; ok && name != "" {
		data.UserName = name
	}
	return data
}

func dateRange(s models.RunSummary) string {
	if s.EarliestMessage.IsZero() {
		return "no messages in range"
	}
	return s.EarliestMessage.Format("2006-01-02") + " to " + s.LatestMessage.Format("2006-01-02")
}

// rankedSection turns a bucket into a bar list, limited to the n
// highest counts.
func rankedSection(title string, bucket *models.AggregateBucket, n int, withBytes bool) barSection {
	ranked := bucket.TopN(n)
	section := barSection{Title: title, Empty: len(ranked) == 0}
	if section.Empty {
		return section
	}
	max := ranked[0].Count
	for _, entry := range ranked {
		bar := barEntry{
			Key:     entry.Key,
			Count:   entry.Count,
			Percent: percent(entry.Count, max),
		}
		if withBytes {
			bar.Bytes = humanBytes(entry.Bytes)
		}
		section.Entries = append(section.Entries, bar)
	}
	return section
}

// dailySection orders days chronologically instead of by count.
func dailySection(bucket *models.AggregateBucket) barSection {
	data := bucket.GetData()
	section := barSection{Title: "Daily Activity", Empty: len(data) == 0}
	if section.Empty {
		return section
	}
	days := make([]string, 0, len(data))
	var max int64
	for day, entry := range data {
		days = append(days, day)
		if entry.Count > max {
			max = entry.Count
		}
	}
	sort.Strings(days)
	for _, day := range days {
		section.Entries = append(section.Entries, barEntry{
			Key:     day,
			Count:   data[day].Count,
			Percent: percent(data[day].Count, max),
		})
	}
	return section
}

func percent(count, max int64) float64 {
	if max <= 0 {
		return 0
	}
	return float64(count) / float64(max) * 100
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for val := n / unit; val >= unit; val /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
