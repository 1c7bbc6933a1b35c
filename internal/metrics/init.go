package metrics

import "thumbnail-service/internal/filesystem"

// Sizes lists the thumbnail size labels. It mirrors thumbnail.AllSizes; the
// metrics package cannot import thumbnail without creating a cycle.
var Sizes = []string{"icon", "preview", "large"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, size := range Sizes {
		ThumbnailGenerationDuration.WithLabelValues(size)
		for _, status := range []string{"success", "error_decode", "error_encode", "error_task"} {
			ThumbnailGenerationsTotal.WithLabelValues(size, status)
		}
	}

	for _, layer := range []string{"memory", "disk"} {
		ThumbnailCacheHits.WithLabelValues(layer)
	}

	for _, status := range []string{"success", "error"} {
		ThumbnailBackgroundGenerations.WithLabelValues(status)
	}

	for _, status := range []string{"success", "partial", "error"} {
		DeletionsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "unsupported", "too_large", "error"} {
		UploadsTotal.WithLabelValues(status)
	}

	volumes := []string{"media", "thumbnails", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "write", "stat", "remove"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			for _, outcome := range []filesystem.Outcome{filesystem.OutcomeStale, filesystem.OutcomeRecovered, filesystem.OutcomeExhausted} {
				FilesystemRetries.WithLabelValues(vol, op, string(outcome))
			}
		}
	}

	for _, op := range []string{"insert_file", "get_file", "delete_file", "list_files", "count_files"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
