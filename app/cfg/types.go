package cfg

import (
	"path/filepath"
	"time"
)

const (
	ModeServe  = "serve"
	ModeImport = "import"
	ModeExport = "export"
	ModeRender = "render"
)

type Cfg struct {
	Mode string

	// Storage
	DBPath      string
	DataDir     string
	ProfilesDir string
	Profile     string

	// HTTP server
	Port         string
	APIAccessKey string
	WorkerCount  int

	// Site
	SiteURL    string
	UploadsDir string
	UploadsURL string

	// Importer
	MaxExecutionTime  time.Duration
	FetchAttachments  bool
	Overwrite         bool
	ClearTables       string
	DataType          string
	MaxAttachmentSize int64
	FetchRate         float64

	// Export and render
	ExportDir string
	Input     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// CheckpointPath is where the chunked run stores its progress.
func (c *Cfg) CheckpointPath() string {
	return filepath.Join(c.DataDir, "import.log")
}
