package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"periodic-backup-sync/internal/config"
	"periodic-backup-sync/internal/display"
	"periodic-backup-sync/internal/engine"
	"periodic-backup-sync/internal/logging"
	"periodic-backup-sync/internal/remote"
	"periodic-backup-sync/internal/report"
)

var cfgFile string

// CLI flag variables
var (
	verbose bool
	quiet   bool
	noColor bool
)

// Exit codes: 0 clean, 1 fatal abort, 2 completed with recoverable failures.
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "periodic-backup-sync",
	Short: "Periodic incremental backup with rotation and remote archiving",
	Long: `periodic-backup-sync runs one pass of the backup lifecycle: it locks the
backup root, verifies the remote and local capacity, mirrors every configured
source into the current period's staging directory, compresses completed
periods and ships the archives to the remote destination.

The tool is stateless between runs; schedule it with cron or a systemd timer.

Examples:
  # Run with configuration from the environment
  LOG_DIR=/var/log/backup LOCAL_BACKUP_DIR=/var/backups \
  SOURCE_DIRS=/data/projects:/data/notes \
  REMOTE_HOST=backup.example.com REMOTE_DEST_DIR=/srv/backups \
  periodic-backup-sync

  # Run with a configuration file, weekly periods
  periodic-backup-sync --config /etc/backup.yaml

  # Remove a lock left behind by a crashed run
  periodic-backup-sync clear-lock --config /etc/backup.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

// Execute runs the root command and maps the outcome to the process exit
// code. Called by main.main().
func Execute() {
	os.Exit(execute())
}

func execute() int {
	partial = false
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitFatal
	}
	if partial {
		return exitPartial
	}
	return exitOK
}

// partial is set by runBackup when the run completed but absorbed
// recoverable failures.
var partial bool

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createClearLockCommand())
}

// runBackup is the main execution function for the CLI
func runBackup(cmd *cobra.Command, args []string) error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return engine.NewConfigurationMissingError(err.Error(), nil)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  logLevel(),
		LogDir: cfg.LogDir,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	console := display.NewConsole(noColor)

	backend, err := remote.NewBackend(remote.Config{
		Backend:            cfg.RemoteBackend,
		Host:               cfg.RemoteHost,
		User:               cfg.RemoteUser,
		Port:               cfg.RemotePort,
		DestDir:            cfg.RemoteDestDir,
		S3Bucket:           cfg.S3Bucket,
		S3Region:           cfg.S3Region,
		S3Prefix:           cfg.S3Prefix,
		GCSBucket:          cfg.GCSBucket,
		GCSCredentialsFile: cfg.GCSCredentialsFile,
		GCSPrefix:          cfg.GCSPrefix,
	})
	if err != nil {
		return engine.NewConfigurationMissingError(err.Error(), nil)
	}

	caps := engine.NewToolCapability(engine.NewArchiver(cfg.Compression), backend)
	eng := engine.New(cfg, logger, console, caps)

	result, err := eng.Run(context.Background())
	if err != nil {
		logger.Errorf("backup run aborted: %v", err)
		console.Error("backup run aborted: %v", err)
		return err
	}

	if path, err := report.Write(cfg.LogDir, result.FinishedAt, result); err != nil {
		logger.Warnf("could not write run report: %v", err)
	} else {
		logger.WithField("report", path).Debug("run report written")
	}

	if n := result.FailureCount(); n > 0 {
		console.Warn("backup run completed with %d failure(s), see %s", n, logger.FilePath())
		partial = true
		return nil
	}

	console.Success("backup run %s completed", result.RunID)
	return nil
}

func logLevel() logging.LogLevel {
	switch {
	case quiet:
		return logging.LogLevelQuiet
	case verbose:
		return logging.LogLevelVerbose
	default:
		return logging.LogLevelNormal
	}
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("periodic-backup-sync version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", runtime.Version())
		},
	}
}

// createConfigCommand creates the config subcommand for generating a sample
// configuration file
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file for use with the --config flag.
Every option can also be provided through the environment variable named in
the comments; environment values override the file.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(sampleConfig)
		},
	}
}

const sampleConfig = `# periodic-backup-sync configuration file
# Every key can be overridden by the environment variable in the comment.

log_dir: /var/log/backup          # LOG_DIR, weekly log and report files
local_backup_dir: /var/backups    # LOCAL_BACKUP_DIR, the backup root
temp_dir: /tmp                    # TEMP_DIR, rotation artifacts are built here

# SOURCE_DIRS (":" or "," separated in the environment)
source_dirs:
  - /data/projects
  - /data/notes

# Period granularity: days (default), weeks or months. BACKUP_PERIOD
backup_period: weeks

# Skip sockets, pipes and device nodes during sync. IGNORE_SPECIAL_FILES
ignore_special_files: false

# Rotation archive codec: gzip (default), zstd or lz4. COMPRESSION
compression: gzip

# Remote destination. REMOTE_BACKEND selects ssh (default), s3 or gcs.
remote_backend: ssh
remote_host: backup.example.com   # REMOTE_HOST
remote_user: backup               # REMOTE_USER (ssh only)
remote_port: 22                   # REMOTE_PORT (ssh only)
remote_dest_dir: /srv/backups     # REMOTE_DEST_DIR, archives land in archive/

# When true (default) an unreachable remote aborts the run. When false the
# run continues local-only and completed periods are retained for a later
# run. REMOTE_REQUIRED
remote_required: true

# s3 backend settings (S3_BUCKET, S3_REGION, S3_PREFIX)
#s3_bucket: my-backups
#s3_region: eu-west-1
#s3_prefix: host-a

# gcs backend settings (GCS_BUCKET, GCS_CREDENTIALS_FILE, GCS_PREFIX)
#gcs_bucket: my-backups
#gcs_credentials_file: /etc/backup/gcs.json
#gcs_prefix: host-a
`
