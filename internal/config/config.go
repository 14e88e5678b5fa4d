// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the registry's environment-driven configuration
// via viper, with an optional .env file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ObjectStoreConfig holds the object-store adapter's connection details.
type ObjectStoreConfig struct {
	URL       string `mapstructure:"url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
}

// CacheConfig holds the response cache's Redis connection details.
type CacheConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// SizeThresholds configures the per-deployment-target max size (in MB)
// used by the structured size metric (SPEC_FULL "supplemented features").
type SizeThresholds struct {
	RPi     float64 `mapstructure:"rpi"`
	Jetson  float64 `mapstructure:"jetson"`
	Desktop float64 `mapstructure:"desktop"`
	AWS     float64 `mapstructure:"aws"`
}

// AuditConfig toggles the audit log.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the fully resolved set of recognized options.
type Config struct {
	Addr                  string            `mapstructure:"addr"`
	DBURL                 string            `mapstructure:"db_url"`
	ObjectStore           ObjectStoreConfig `mapstructure:"object_store"`
	IngestThreshold       float64           `mapstructure:"ingest_threshold"`
	RaterWorkers          int               `mapstructure:"rater_workers"`
	RaterProcessesPerJob  int               `mapstructure:"rater_processes_per_job"`
	DeferredQueueCapacity int               `mapstructure:"deferred_queue_capacity"`
	IngestAsynchronous    bool              `mapstructure:"ingest_asynchronous"`
	Cache                 CacheConfig       `mapstructure:"cache"`
	Audit                 AuditConfig       `mapstructure:"audit"`
	QueryPageSize         int               `mapstructure:"query_page_size"`
	QueryHardCap          int               `mapstructure:"query_hard_cap"`
	DownloadTTLSeconds    int               `mapstructure:"download_ttl_seconds"`
	SizeThresholdsMB      SizeThresholds    `mapstructure:"size_thresholds_mb"`
}

// Keys holds the process-wide resolved configuration, in the same
// global-singleton spirit the rest of this codebase uses for its
// repository and cache handles.
var Keys Config = Config{
	Addr:                  ":8080",
	DBURL:                 "./var/registry.db",
	IngestThreshold:       0.5,
	RaterWorkers:          4,
	RaterProcessesPerJob:  1,
	DeferredQueueCapacity: 100,
	IngestAsynchronous:    false,
	QueryPageSize:         50,
	QueryHardCap:          1000,
	DownloadTTLSeconds:    3600,
	Cache: CacheConfig{
		Host:       "127.0.0.1",
		Port:       6379,
		TTLSeconds: 180,
	},
	Audit: AuditConfig{Enabled: true},
	ObjectStore: ObjectStoreConfig{
		Bucket: "artifact-registry",
		Prefix: "artifacts/",
		Region: "us-east-1",
	},
	SizeThresholdsMB: SizeThresholds{
		RPi:     512,
		Jetson:  4096,
		Desktop: 51200,
		AWS:     1048576,
	},
}

// Init loads .env (if present) and then layers environment variables
// over the defaults in Keys. Environment variables use the key path in
// upper-case with underscores, e.g. OBJECT_STORE_BUCKET, CACHE_HOST.
func Init(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !isNotExist(err) {
			return fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind(v, "addr")
	bind(v, "db_url")
	bind(v, "object_store.url")
	bind(v, "object_store.access_key")
	bind(v, "object_store.secret_key")
	bind(v, "object_store.bucket")
	bind(v, "object_store.prefix")
	bind(v, "object_store.region")
	bind(v, "ingest_threshold")
	bind(v, "rater_workers")
	bind(v, "rater_processes_per_job")
	bind(v, "deferred_queue_capacity")
	bind(v, "ingest_asynchronous")
	bind(v, "cache.host")
	bind(v, "cache.port")
	bind(v, "cache.password")
	bind(v, "cache.ttl_seconds")
	bind(v, "audit.enabled")
	bind(v, "query_page_size")
	bind(v, "query_hard_cap")
	bind(v, "download_ttl_seconds")

	if v.IsSet("addr") {
		Keys.Addr = v.GetString("addr")
	}
	if v.IsSet("db_url") {
		Keys.DBURL = v.GetString("db_url")
	}
	if v.IsSet("object_store.url") {
		Keys.ObjectStore.URL = v.GetString("object_store.url")
	}
	if v.IsSet("object_store.access_key") {
		Keys.ObjectStore.AccessKey = v.GetString("object_store.access_key")
	}
	if v.IsSet("object_store.secret_key") {
		Keys.ObjectStore.SecretKey = v.GetString("object_store.secret_key")
	}
	if v.IsSet("object_store.bucket") {
		Keys.ObjectStore.Bucket = v.GetString("object_store.bucket")
	}
	if v.IsSet("object_store.prefix") {
		Keys.ObjectStore.Prefix = v.GetString("object_store.prefix")
	}
	if v.IsSet("object_store.region") {
		Keys.ObjectStore.Region = v.GetString("object_store.region")
	}
	if v.IsSet("ingest_threshold") {
		Keys.IngestThreshold = v.GetFloat64("ingest_threshold")
	}
	if v.IsSet("rater_workers") {
		Keys.RaterWorkers = v.GetInt("rater_workers")
	}
	if v.IsSet("rater_processes_per_job") {
		Keys.RaterProcessesPerJob = v.GetInt("rater_processes_per_job")
	}
	if v.IsSet("deferred_queue_capacity") {
		Keys.DeferredQueueCapacity = v.GetInt("deferred_queue_capacity")
	}
	if v.IsSet("ingest_asynchronous") {
		Keys.IngestAsynchronous = v.GetBool("ingest_asynchronous")
	}
	if v.IsSet("cache.host") {
		Keys.Cache.Host = v.GetString("cache.host")
	}
	if v.IsSet("cache.port") {
		Keys.Cache.Port = v.GetInt("cache.port")
	}
	if v.IsSet("cache.password") {
		Keys.Cache.Password = v.GetString("cache.password")
	}
	if v.IsSet("cache.ttl_seconds") {
		Keys.Cache.TTLSeconds = v.GetInt("cache.ttl_seconds")
	}
	if v.IsSet("audit.enabled") {
		Keys.Audit.Enabled = v.GetBool("audit.enabled")
	}
	if v.IsSet("query_page_size") {
		Keys.QueryPageSize = v.GetInt("query_page_size")
	}
	if v.IsSet("query_hard_cap") {
		Keys.QueryHardCap = v.GetInt("query_hard_cap")
	}
	if v.IsSet("download_ttl_seconds") {
		Keys.DownloadTTLSeconds = v.GetInt("download_ttl_seconds")
	}
	for key, dst := range map[string]*float64{
		"size_thresholds_mb.rpi":     &Keys.SizeThresholdsMB.RPi,
		"size_thresholds_mb.jetson":  &Keys.SizeThresholdsMB.Jetson,
		"size_thresholds_mb.desktop": &Keys.SizeThresholdsMB.Desktop,
		"size_thresholds_mb.aws":     &Keys.SizeThresholdsMB.AWS,
	} {
		bind(v, key)
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	return Validate()
}

func bind(v *viper.Viper, key string) {
	_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
}

func isNotExist(err error) bool {
	type notExist interface{ IsNotExist() bool }
	if ne, ok := err.(notExist); ok {
		return ne.IsNotExist()
	}
	return strings.Contains(err.Error(), "no such file")
}

// Validate enforces the basic invariants: the ingest threshold must be
// a score in [0,1], and pool sizes must be positive.
func Validate() error {
	if Keys.IngestThreshold < 0 || Keys.IngestThreshold > 1 {
		return fmt.Errorf("config: ingest_threshold must be in [0,1], got %v", Keys.IngestThreshold)
	}
	if Keys.RaterWorkers <= 0 {
		return fmt.Errorf("config: rater_workers must be positive")
	}
	if Keys.DeferredQueueCapacity <= 0 {
		return fmt.Errorf("config: deferred_queue_capacity must be positive")
	}
	if Keys.QueryPageSize <= 0 || Keys.QueryHardCap <= 0 {
		return fmt.Errorf("config: query_page_size and query_hard_cap must be positive")
	}
	return nil
}
