package logx

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
var startTime time.Time
var pid = os.Getpid()

const (
	// FormatConsole writes human-readable lines, used for local CLI runs.
	FormatConsole = "console"
	// FormatJSON writes one JSON object per line, used inside Lambda so CloudWatch can index fields.
	FormatJSON = "json"
)

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	// Level is the log level to use (e.g., "Info", "Debug").
	Level string
	// Format selects the stdout writer, either "console" or "json".
	Format string
	// ConsoleLogging enables logging to stdout.
	ConsoleLogging bool
	// FileLogging enables logging to a file.
	FileLogging bool
	// Directory specifies the directory for log files (used if FileLogging is enabled).
	Directory string
	// Filename is the name of the log file.
	Filename string
	// MaxSize is the maximum size (in MB) of a log file before it is rolled.
	MaxSize int
	// MaxBackups is the maximum number of rolled log files to keep.
	MaxBackups int
	// MaxAge is the maximum age (in days) to keep a log file.
	MaxAge int
	// Compress enables compression of rolled log files.
	Compress bool
}

func Initialize(c *LoggingConfig) error {
	return InitializeWithOptions(c)
}

func newRollingFile(cfg *LoggingConfig) (io.Writer, error) {
	return &lumberjack.Logger{
		Filename:   path.Join(cfg.Directory, cfg.Filename),
		MaxBackups: cfg.MaxBackups, // files
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}, nil
}

func newStdoutWriter(cfg *LoggingConfig) io.Writer {
	if cfg.Format == FormatJSON {
		return os.Stdout
	}

	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}

func InitializeWithOptions(cfg *LoggingConfig) error {
	l, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var writers []io.Writer
	if cfg.ConsoleLogging || !cfg.FileLogging {
		writers = append(writers, newStdoutWriter(cfg))
	}

	if cfg.FileLogging {
		logFile, err := newRollingFile(cfg)
		if err != nil {
			return err
		}

		writers = append(writers, logFile)
	}

	mw := zerolog.MultiLevelWriter(writers...)
	logger = zerolog.New(mw).With().
		Timestamp().
		Int("pid", pid).
		Logger()

	return nil
}

// With returns a child of the global logger carrying the given string fields, in key/value order.
func With(kv ...string) zerolog.Logger {
	c := logger.With()
	for i := 0; i+1 < len(kv); i += 2 {
		c = c.Str(kv[i], kv[i+1])
	}
	return c.Logger()
}

func As() *zerolog.Logger {
	return &logger
}

func StartTimer() {
	startTime = time.Now()
}

func ExecutionTime() string {
	return time.Since(startTime).Round(time.Millisecond).String()
}

func GetPid() int {
	return pid
}
