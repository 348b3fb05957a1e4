package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kyan-si/kyan/internal/flagx"
)

// jsonConfig is the DTO for the JSON overlay file. Durations are plain
// integer seconds, sizes are bytes. Pointer fields distinguish "absent"
// from zero so the overlay only touches what the file sets.
type jsonConfig struct {
	DatabaseDSN *string `json:"database_dsn"`

	BaseDir      *string `json:"base_dir"`
	TrackersFile *string `json:"trackers_file"`
	BackupDir    *string `json:"backup_dir"`

	SiteName *string `json:"site_name"`
	SiteURL  *string `json:"site_url"`

	MainAnnounceURL     *string `json:"main_announce_url"`
	EnforceMainAnnounce *bool   `json:"enforce_main_announce_url"`

	TrackerAPIURL         *string `json:"tracker_api_url"`
	TrackerAPIAuth        *string `json:"tracker_api_auth"`
	NotifyIntervalSeconds *int64  `json:"notify_interval_seconds"`
	NotifyBatch           *int    `json:"notify_batch"`

	MinAnonymousSize *int64 `json:"minimum_anonymous_torrent_size"`

	RatelimitUploads           *bool  `json:"ratelimit_uploads"`
	RatelimitAccountAgeSeconds *int64 `json:"ratelimit_account_age_seconds"`
	MaxUploadBurst             *int   `json:"max_upload_burst"`
	UploadBurstDurationSeconds *int64 `json:"upload_burst_duration_seconds"`
	UploadTimeoutSeconds       *int64 `json:"upload_timeout_seconds"`

	RaidMode        *bool   `json:"raid_mode_limit_uploads"`
	RaidModeMessage *string `json:"raid_mode_uploads_message"`

	MagnetCacheSize   *int `json:"magnet_cache_size"`
	MagnetMaxTrackers *int `json:"magnet_max_trackers"`

	UseS3          *bool   `json:"use_s3"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
}

// parseJSON loads configuration values from the JSON file named by the
// -c/-config flags, if any. Unreadable or invalid files panic: running with
// half a config is worse than not starting.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt64 := func(dst *int64, src *int64) {
		if src != nil {
			*dst = *src
		}
	}
	setSeconds := func(dst *time.Duration, src *int64) {
		if src != nil {
			*dst = time.Duration(*src) * time.Second
		}
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BaseDir, c.BaseDir)
	setString(&config.TrackersFile, c.TrackersFile)
	setString(&config.BackupDir, c.BackupDir)
	setString(&config.SiteName, c.SiteName)
	setString(&config.SiteURL, c.SiteURL)
	setString(&config.MainAnnounceURL, c.MainAnnounceURL)
	setBool(&config.EnforceMainAnnounce, c.EnforceMainAnnounce)
	setString(&config.TrackerAPIURL, c.TrackerAPIURL)
	setString(&config.TrackerAPIAuth, c.TrackerAPIAuth)
	setSeconds(&config.NotifyInterval, c.NotifyIntervalSeconds)
	setInt(&config.NotifyBatch, c.NotifyBatch)
	setInt64(&config.MinAnonymousSize, c.MinAnonymousSize)
	setBool(&config.RatelimitUploads, c.RatelimitUploads)
	setSeconds(&config.RatelimitAccountAge, c.RatelimitAccountAgeSeconds)
	setInt(&config.MaxUploadBurst, c.MaxUploadBurst)
	setSeconds(&config.UploadBurstDuration, c.UploadBurstDurationSeconds)
	setSeconds(&config.UploadTimeout, c.UploadTimeoutSeconds)
	setBool(&config.RaidMode, c.RaidMode)
	setString(&config.RaidModeMessage, c.RaidModeMessage)
	setInt(&config.MagnetCacheSize, c.MagnetCacheSize)
	setInt(&config.MagnetMaxTrackers, c.MagnetMaxTrackers)
	setBool(&config.UseS3, c.UseS3)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}
