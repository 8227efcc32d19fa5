package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Mode string `long:"mode" env:"MODE" default:"serve" choice:"serve" choice:"import" choice:"export" choice:"render" description:"What to run"`

	// Storage configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/content.db" description:"Path to the SQLite content store"`
	DataDir     string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the checkpoint file"`
	ProfilesDir string `long:"profiles-dir" env:"PROFILES_DIR" default:"./profiles" description:"Directory containing import profile files"`
	Profile     string `long:"profile" env:"PROFILE" default:"default" description:"Import profile name"`

	// Server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for import runs"`

	// Site configuration
	SiteURL    string `long:"site-url" env:"SITE_URL" default:"http://localhost:8080" description:"Public URL of the site receiving the content"`
	UploadsDir string `long:"uploads-dir" env:"UPLOADS_DIR" default:"./data/uploads" description:"Directory for fetched attachments"`
	UploadsURL string `long:"uploads-url" env:"UPLOADS_URL" description:"Public URL of the uploads directory (defaults to <site-url>/uploads)"`

	// Importer configuration
	MaxExecutionTime  int     `long:"max-execution-time" env:"MAX_EXECUTION_TIME" default:"30" description:"Seconds one import chunk may run"`
	FetchAttachments  bool    `long:"fetch-attachments" env:"FETCH_ATTACHMENTS" description:"Download attachment files"`
	Overwrite         bool    `long:"overwrite" env:"OVERWRITE" description:"Keep source ids for imported posts and terms"`
	ClearTables       string  `long:"clear-tables" env:"CLEAR_TABLES" default:"posts" description:"Tables to clear on import start (comma separated)"`
	DataType          string  `long:"data-type" env:"DATA_TYPE" choice:"vc" choice:"no_vc" description:"Content file variant (defaults to the profile's)"`
	MaxAttachmentSize int64   `long:"max-attachment-size" env:"MAX_ATTACHMENT_SIZE" default:"0" description:"Maximum attachment size in bytes (0 for no limit)"`
	FetchRate         float64 `long:"fetch-rate" env:"FETCH_RATE" default:"2" description:"Attachment downloads per second (0 for no limit)"`

	// Export and render
	ExportDir string `long:"export-dir" env:"EXPORT_DIR" default:"./data/export" description:"Directory receiving exported files"`
	Input     string `long:"input" env:"INPUT" default:"-" description:"File rendered in render mode (- for stdin)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Demo Importer/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses os.Args and the environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	return parse(nil)
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Mode:              raw.Mode,
		DBPath:            raw.DBPath,
		DataDir:           raw.DataDir,
		ProfilesDir:       raw.ProfilesDir,
		Profile:           raw.Profile,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       max(raw.WorkerCount, 1),
		SiteURL:           strings.TrimRight(raw.SiteURL, "/"),
		UploadsDir:        raw.UploadsDir,
		UploadsURL:        strings.TrimRight(raw.UploadsURL, "/"),
		MaxExecutionTime:  time.Duration(raw.MaxExecutionTime) * time.Second,
		FetchAttachments:  raw.FetchAttachments,
		Overwrite:         raw.Overwrite,
		ClearTables:       raw.ClearTables,
		DataType:          raw.DataType,
		MaxAttachmentSize: raw.MaxAttachmentSize,
		FetchRate:         raw.FetchRate,
		ExportDir:         raw.ExportDir,
		Input:             raw.Input,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if cfg.UploadsURL == "" {
		cfg.UploadsURL = cfg.SiteURL + "/uploads"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.MaxExecutionTime < 0 {
		return fmt.Errorf("max execution time must be non-negative")
	}
	if cfg.MaxAttachmentSize < 0 {
		return fmt.Errorf("max attachment size must be non-negative")
	}
	if cfg.FetchRate < 0 {
		return fmt.Errorf("fetch rate must be non-negative")
	}
	if cfg.Mode != ModeRender && cfg.Profile == "" {
		return fmt.Errorf("profile name is required")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
