package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"thumbnail-service/internal/filesystem"
)

func TestThumbnailMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ThumbnailGenerationsTotal", ThumbnailGenerationsTotal},
		{"ThumbnailGenerationDuration", ThumbnailGenerationDuration},
		{"ThumbnailBackgroundGenerations", ThumbnailBackgroundGenerations},
		{"ThumbnailBackgroundInFlight", ThumbnailBackgroundInFlight},
		{"ThumbnailCacheHits", ThumbnailCacheHits},
		{"ThumbnailCacheMisses", ThumbnailCacheMisses},
		{"ThumbnailSharedLoads", ThumbnailSharedLoads},
		{"ThumbnailCacheWeight", ThumbnailCacheWeight},
		{"ThumbnailCacheEntries", ThumbnailCacheEntries},
		{"ThumbnailCacheMaxWeight", ThumbnailCacheMaxWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsPrePopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if got := testutil.CollectAndCount(ThumbnailGenerationsTotal); got < len(Sizes)*4 {
		t.Errorf("ThumbnailGenerationsTotal series = %d, want at least %d", got, len(Sizes)*4)
	}
	if got := testutil.CollectAndCount(ThumbnailCacheHits); got != 2 {
		t.Errorf("ThumbnailCacheHits series = %d, want 2", got)
	}
	if got := testutil.CollectAndCount(UploadsTotal); got < 3 {
		t.Errorf("UploadsTotal series = %d, want at least 3", got)
	}
}

func TestObserveFilesystem(t *testing.T) {
	failed := FilesystemOperationErrors.WithLabelValues("thumbnails", "read")
	stale := FilesystemRetries.WithLabelValues("thumbnails", "read", "stale")
	recovered := FilesystemRetries.WithLabelValues("thumbnails", "read", "recovered")
	errorsBefore := testutil.ToFloat64(failed)
	staleBefore := testutil.ToFloat64(stale)
	recoveredBefore := testutil.ToFloat64(recovered)

	events := []filesystem.Event{
		{Volume: "thumbnails", Operation: "read", Outcome: filesystem.OutcomeStale},
		{Volume: "thumbnails", Operation: "read", Outcome: filesystem.OutcomeStale},
		{Volume: "thumbnails", Operation: "read", Outcome: filesystem.OutcomeRecovered},
		{Volume: "thumbnails", Operation: "read", Outcome: filesystem.OutcomeOK, Duration: time.Millisecond},
		{Volume: "thumbnails", Operation: "read", Outcome: filesystem.OutcomeError, Duration: 2 * time.Millisecond},
	}
	for _, e := range events {
		ObserveFilesystem(e)
	}

	if got := testutil.ToFloat64(failed); got != errorsBefore+1 {
		t.Errorf("FilesystemOperationErrors = %v, want %v", got, errorsBefore+1)
	}
	if got := testutil.ToFloat64(stale); got != staleBefore+2 {
		t.Errorf("stale retries = %v, want %v", got, staleBefore+2)
	}
	if got := testutil.ToFloat64(recovered); got != recoveredBefore+1 {
		t.Errorf("recovered retries = %v, want %v", got, recoveredBefore+1)
	}
}

func TestObserveFilesystemFromRealReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thumb.webp")
	if err := os.WriteFile(path, []byte("webp"), 0o644); err != nil {
		t.Fatal(err)
	}

	filesystem.SetObserver(ObserveFilesystem)
	t.Cleanup(func() { filesystem.SetObserver(nil) })

	config := filesystem.DefaultRetryConfig()
	config.VolumeResolver = filesystem.NewVolumeResolver(map[string]string{"thumbnails": dir})

	before := sampleCount(t, "thumbnails", "read")
	if _, err := filesystem.ReadFileWithRetry(path, config); err != nil {
		t.Fatalf("ReadFileWithRetry() error = %v", err)
	}
	if got := sampleCount(t, "thumbnails", "read"); got != before+1 {
		t.Errorf("read duration samples = %d, want %d", got, before+1)
	}

	errorsBefore := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("thumbnails", "read"))
	if _, err := filesystem.ReadFileWithRetry(filepath.Join(dir, "missing.webp"), config); err == nil {
		t.Fatal("ReadFileWithRetry(missing) error = nil")
	}
	if got := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("thumbnails", "read")); got != errorsBefore {
		t.Errorf("missing file counted as an error: %v, want %v", got, errorsBefore)
	}
}

func sampleCount(t *testing.T, volume, operation string) uint64 {
	t.Helper()
	var m dto.Metric
	h := FilesystemOperationDuration.WithLabelValues(volume, operation).(prometheus.Histogram)
	if err := h.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}
