package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewind/internal/models"
	"rewind/internal/structures"
	"rewind/internal/testutil"
)

func testConfig() *structures.Config {
	return &structures.Config{
		AppName: "DiscordRewind",
		Report: structures.ReportConfig{
			TopN: structures.ReportTopN{Servers: 15, DMs: 15, GroupDMs: 10, Emotes: 30, FileTypes: 20},
		},
	}
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(testConfig(), &testutil.MockLogger{})
	require.NoError(t, err)
	gen := g.(*Generator)
	gen.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return gen
}

func populatedRun() *models.AnalysisRun {
	run := models.NewAnalysisRun("42", 2023, "/export")
	run.Users["42"] = "selfuser"
	run.Bucket(models.BucketDaily).Inc("2023-04-10", 5)
	run.Bucket(models.BucketDaily).Inc("2023-04-08", 2)
	run.Bucket(models.BucketServers).Inc("Guild A", 30)
	run.Bucket(models.BucketServers).Inc("Guild <B>", 10)
	run.Bucket(models.BucketDMs).Inc("alice", 7)
	run.Bucket(models.BucketEmotes).Inc("pog", 4)
	run.Bucket(models.BucketFileTypes).Add("png", 3, 4096)
	run.Summary.TotalMessages = 44
	run.Summary.EarliestMessage = time.Date(2023, 4, 8, 0, 0, 0, 0, time.UTC)
	run.Summary.LatestMessage = time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC)
	return run
}

func TestGenerator_Render(t *testing.T) {
	gen := newTestGenerator(t)
	out, err := gen.Render(populatedRun())
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "selfuser")
	assert.Contains(t, html, "Guild A")
	assert.Contains(t, html, "alice")
	assert.Contains(t, html, "pog")
	assert.Contains(t, html, "4.0 KiB")
	assert.Contains(t, html, "2023-04-08 to 2023-04-10")
	assert.Contains(t, html, "Generated 2024-01-01 00:00:00 UTC")
	// markup in keys must be escaped
	assert.NotContains(t, html, "Guild <B>")
	assert.Contains(t, html, "Guild &lt;B&gt;")
}

func TestGenerator_Render_EmptyRun(t *testing.T) {
	gen := newTestGenerator(t)
	run := models.NewAnalysisRun("42", 2023, "/export")

	out, err := gen.Render(run)
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "No data for this period.")
	assert.Contains(t, html, "no messages in range")
	// the subject id labels the report when no username is known
	assert.Contains(t, html, "42")
}

func TestGenerator_Render_Idempotent(t *testing.T) {
	gen := newTestGenerator(t)
	run := populatedRun()

	first, err := gen.Render(run)
	require.NoError(t, err)
	second, err := gen.Render(run)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same run renders byte-identical output")
}

func TestGenerator_Render_DailyChronological(t *testing.T) {
	gen := newTestGenerator(t)
	out, err := gen.Render(populatedRun())
	require.NoError(t, err)

	html := string(out)
	assert.Less(t, strings.Index(html, "2023-04-08"), strings.Index(html, "2023-04-10"))
}

func TestGenerator_Generate_AtomicWrite(t *testing.T) {
	gen := newTestGenerator(t)
	path := filepath.Join(t.TempDir(), "report.html")

	require.NoError(t, gen.Generate(populatedRun(), path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestGenerator_TopNLimit(t *testing.T) {
	conf := testConfig()
	conf.Report.TopN.Servers = 2
	g, err := NewGenerator(conf, &testutil.MockLogger{})
	require.NoError(t, err)
	gen := g.(*Generator)
	gen.now = func() time.Time { return time.Time{} }

	run := models.NewAnalysisRun("42", 2023, "/export")
	run.Bucket(models.BucketServers).Inc("Alpha", 3)
	run.Bucket(models.BucketServers).Inc("Beta", 2)
	run.Bucket(models.BucketServers).Inc("Gamma", 1)

	out, err := gen.Render(run)
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "Alpha")
	assert.Contains(t, html, "Beta")
	assert.NotContains(t, html, "Gamma")
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.0 KiB", humanBytes(1024))
	assert.Equal(t, "1.5 MiB", humanBytes(3*1024*1024/2))
	assert.Equal(t, "2.0 GiB", humanBytes(2*1024*1024*1024))
}
