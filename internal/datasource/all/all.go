// Package all registers every datasource backend.
package all

import (
	_ "musiclake/internal/datasource/file"
	_ "musiclake/internal/datasource/gcs"
	_ "musiclake/internal/datasource/httpds"
	_ "musiclake/internal/datasource/s3store"
)
