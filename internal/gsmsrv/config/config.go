package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the supported configuration file format version.
const Version = "0.1.0"

// CacheConfig holds the optional Redis cache configuration. When Enabled is
// false all cache call sites fall back to direct database reads.
type CacheConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      string `toml:"ttl"` // cache entry lifetime, e.g. "10m"
}

// GetTTL returns the cache TTL as time.Duration.
func (c *CacheConfig) GetTTL() (time.Duration, error) {
	return ParseDuration(c.TTL)
}

// GetTTLOrDefault returns the cache TTL or panics if the value is invalid.
func (c *CacheConfig) GetTTLOrDefault() time.Duration {
	d, err := c.GetTTL()
	if err != nil {
		panic(fmt.Sprintf("invalid cache ttl: %v", err))
	}
	return d
}

// HealpixConfig holds the spatial index resolutions. FineNside is the
// resolution of the index stored with each component; CoarseNside is the
// resolution used to compute disc covers for cone searches. Both must be
// powers of two with CoarseNside <= FineNside.
type HealpixConfig struct {
	CoarseNside int `toml:"coarse_nside"`
	FineNside   int `toml:"fine_nside"`
}

// UploadConfig holds limits for the staged upload workflow.
type UploadConfig struct {
	MaxConcurrentIngests int   `toml:"max_concurrent_ingests"` // background ingest workers allowed at once
	MaxValidationErrors  int   `toml:"max_validation_errors"`  // error ceiling before validation short-circuits
	ReviewSampleSize     int   `toml:"review_sample_size"`     // staged rows returned by the review operation
	MaxFileSize          int64 `toml:"max_file_size"`          // per-file upload size limit in bytes
}

// LSMConfig holds local sky model export configuration.
type LSMConfig struct {
	ExportDir string `toml:"export_dir"` // directory where LSM file sets are written
}

// ConfigParam holds all configuration parameters for the sky model service.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"` // version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`
	ServerPort         string `toml:"server_port"`
	HandleCORS         bool   `toml:"handle_cors"`
	MaxRequestBodySize int64  `toml:"max_request_body_size"`
	SupportTLS         bool   `toml:"support_tls"`
	TLSCertFile        string `toml:"tls_cert_file"`
	TLSKeyFile         string `toml:"tls_key_file"`
	TLSCertPEM         []byte `toml:"-"`
	TLSKeyPEM          []byte `toml:"-"`

	// Database configuration
	DB struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		DBName   string `toml:"dbname"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		SSLMode  string `toml:"sslmode"`
	} `toml:"db"`

	Cache   CacheConfig   `toml:"cache"`
	Healpix HealpixConfig `toml:"healpix"`
	Upload  UploadConfig  `toml:"upload"`
	LSM     LSMConfig     `toml:"lsm"`
}

var cfg *ConfigParam

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string.
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// SkyModelDSN returns the DSN for the sky model database.
func SkyModelDSN() string {
	return cfg.DSN()
}

// ParseDuration parses a duration string in the format "<number><unit>" where
// unit is one of y, d, h, m.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "y":
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks if all required configuration values are present and valid.
func ValidateConfig(cfg *ConfigParam) error {
	if err := validateConfigFormatVersion(cfg); err != nil {
		return err
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}
	if err := validateDBConfig(cfg); err != nil {
		return err
	}
	if err := validateCacheConfig(cfg); err != nil {
		return err
	}
	if err := validateHealpixConfig(cfg); err != nil {
		return err
	}
	if err := validateUploadConfig(cfg); err != nil {
		return err
	}
	if err := validateLSMConfig(cfg); err != nil {
		return err
	}
	if err := validateTLSConfig(cfg); err != nil {
		return err
	}
	return nil
}

func validateConfigFormatVersion(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	return nil
}

func validateServerConfig(cfg *ConfigParam) error {
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	return nil
}

func validateDBConfig(cfg *ConfigParam) error {
	if cfg.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if cfg.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if cfg.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if cfg.DB.Password == "" {
		return fmt.Errorf("db.password is required")
	}
	if cfg.DB.SSLMode == "" {
		return fmt.Errorf("db.sslmode is required")
	}
	return nil
}

func validateCacheConfig(cfg *ConfigParam) error {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "10m"
	}
	if _, err := ParseDuration(cfg.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache.ttl: %v", err)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func validateHealpixConfig(cfg *ConfigParam) error {
	if cfg.Healpix.CoarseNside == 0 {
		cfg.Healpix.CoarseNside = 16
	}
	if cfg.Healpix.FineNside == 0 {
		cfg.Healpix.FineNside = 4096
	}
	if !isPowerOfTwo(cfg.Healpix.CoarseNside) {
		return fmt.Errorf("healpix.coarse_nside must be a power of two")
	}
	if !isPowerOfTwo(cfg.Healpix.FineNside) {
		return fmt.Errorf("healpix.fine_nside must be a power of two")
	}
	if cfg.Healpix.CoarseNside > cfg.Healpix.FineNside {
		return fmt.Errorf("healpix.coarse_nside must not exceed healpix.fine_nside")
	}
	return nil
}

func validateUploadConfig(cfg *ConfigParam) error {
	if cfg.Upload.MaxConcurrentIngests <= 0 {
		cfg.Upload.MaxConcurrentIngests = 4
	}
	if cfg.Upload.MaxValidationErrors <= 0 {
		cfg.Upload.MaxValidationErrors = 1000
	}
	if cfg.Upload.ReviewSampleSize <= 0 {
		cfg.Upload.ReviewSampleSize = 5
	}
	if cfg.Upload.MaxFileSize <= 0 {
		cfg.Upload.MaxFileSize = 512 << 20
	}
	return nil
}

func validateLSMConfig(cfg *ConfigParam) error {
	if cfg.LSM.ExportDir == "" {
		userHomeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error getting user home directory: %v", err)
		}
		cfg.LSM.ExportDir = filepath.Join(userHomeDir, ".gsmsrv", "exports")
	}
	if err := os.MkdirAll(cfg.LSM.ExportDir, 0755); err != nil {
		return fmt.Errorf("error creating lsm export directory: %v", err)
	}
	return nil
}

func validateTLSConfig(cfg *ConfigParam) error {
	if cfg.SupportTLS {
		if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
			return fmt.Errorf("tls_cert_file and tls_key_file are required when support_tls is set")
		}
		certPEM, err := os.ReadFile(cfg.TLSCertFile)
		if err != nil {
			return fmt.Errorf("error reading tls cert file: %v", err)
		}
		keyPEM, err := os.ReadFile(cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("error reading tls key file: %v", err)
		}
		cfg.TLSCertPEM = certPEM
		cfg.TLSKeyPEM = keyPEM
	}
	return nil
}

// LoadConfig loads configuration from a file.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	cfg = &ConfigParam{}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	return nil
}

var isTest = false

func IsTest() bool {
	return isTest
}

func SetTestMode(test bool) {
	isTest = test
}

// TestInit loads the configuration for tests by walking up from the working
// directory to the project root and loading gsmsrv.conf found there.
func TestInit() {
	isTest = true
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "gsmsrv.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
