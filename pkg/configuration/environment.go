package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/workforcehq/workforce-sdk/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads env files from the working directory, walking up to the
// go.mod root when none are found locally. Returns the number of files read.
func LoadEnv(envFiles []string) (int, error) {
	dir, err := os.Getwd()
	if err != nil {
		return 0, err
	}

	for {
		existing := make([]string, 0, len(envFiles))
		for _, file := range envFiles {
			path := filepath.Join(dir, file)
			if _, err := os.Stat(path); err == nil {
				existing = append(existing, path)
			}
		}
		if len(existing) > 0 {
			return len(existing), godotenv.Load(existing...)
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return 0, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return 0, nil
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"workforce"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// ExchangeOptions tunes the spreadsheet import/export pipeline. Batch imports
// hold one transaction for the whole file, so the timeout is minutes, not the
// storage default of seconds.
type ExchangeOptions struct {
	TxTimeout     time.Duration `env:"EXCHANGE_TX_TIMEOUT" envDefault:"5m"`
	MaxUploadSize int64         `env:"EXCHANGE_MAX_UPLOAD_SIZE" envDefault:"10485760"`
	MaxCellLength int           `env:"EXCHANGE_MAX_CELL_LENGTH" envDefault:"32000"`
}

func (e *ExchangeOptions) Validate() error {
	if e.TxTimeout <= 0 {
		return fmt.Errorf("exchange TxTimeout must be positive, got %s", e.TxTimeout)
	}
	if e.MaxUploadSize <= 0 {
		return fmt.Errorf("exchange MaxUploadSize must be positive, got %d", e.MaxUploadSize)
	}
	if e.MaxCellLength < 64 {
		return fmt.Errorf("exchange MaxCellLength too small, minimum is 64, got %d", e.MaxCellLength)
	}
	return nil
}

type Configuration struct {
	Database DatabaseOptions
	Exchange ExchangeOptions

	MigrationsEnabled bool   `env:"MIGRATIONS_ENABLED" envDefault:"true"`
	ServerPort        int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment  string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress     string `env:"-"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath           string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// The server looks for this header in the request; if absent it
	// generates a random uuidv4.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Exchange.Validate(); err != nil {
		return fmt.Errorf("exchange configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}
