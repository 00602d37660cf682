// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config // import "streamlance.app/internal/config"

import (
	"fmt"
	"maps"
	"net"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"streamlance.app/internal/version"
)

const (
	defaultDatabaseURL = "user=postgres password=postgres dbname=streamlance sslmode=disable"
	defaultFeedURL     = "https://www.freelancer.com/rss.xml"
)

// Option contains a key to value map of a single option. It may be used to
// output debug strings.
type Option struct {
	Key   string
	Value any
}

// Options contains configuration options.
type Options struct {
	env EnvOptions
}

type EnvOptions struct {
	LogFile                     string   `env:"LOG_FILE" validate:"required"`
	LogDateTime                 bool     `env:"LOG_DATE_TIME"`
	LogFormat                   string   `env:"LOG_FORMAT" validate:"required,oneof=human json text"`
	LogLevel                    string   `env:"LOG_LEVEL" validate:"required,oneof=debug info warning error"`
	Logging                     []Log    `envPrefix:"LOG" validate:"dive,required"`
	DatabaseURL                 string   `env:"DATABASE_URL" validate:"required"`
	DatabaseURLFile             *string  `env:"DATABASE_URL_FILE,file"`
	DatabaseMaxConns            int      `env:"DATABASE_MAX_CONNS" validate:"min=1"`
	DatabaseMinConns            int      `env:"DATABASE_MIN_CONNS" validate:"min=0"`
	DatabaseConnectionLifetime  int      `env:"DATABASE_CONNECTION_LIFETIME" validate:"gt=0"`
	RunMigrations               bool     `env:"RUN_MIGRATIONS"`
	ListenAddr                  string   `env:"LISTEN_ADDR" validate:"required,hostname_port"`
	DisableHttpService          bool     `env:"DISABLE_HTTP_SERVICE"`
	DisableScheduler            bool     `env:"DISABLE_SCHEDULER_SERVICE"`
	MetricsCollector            bool     `env:"METRICS_COLLECTOR"`
	MetricsRefreshInterval      int      `env:"METRICS_REFRESH_INTERVAL" validate:"min=1"`
	MetricsAllowedNetworks      []string `env:"METRICS_ALLOWED_NETWORKS" validate:"dive,cidr"`
	MetricsUsername             string   `env:"METRICS_USERNAME"`
	MetricsUsernameFile         *string  `env:"METRICS_USERNAME_FILE,file"`
	MetricsPassword             string   `env:"METRICS_PASSWORD"`
	MetricsPasswordFile         *string  `env:"METRICS_PASSWORD_FILE,file"`
	HttpServerTimeout           int      `env:"HTTP_SERVER_TIMEOUT" validate:"min=1"`
	TrustedReverseProxyNetworks []string `env:"TRUSTED_REVERSE_PROXY_NETWORKS" validate:"dive,cidr"`
	FeedURLs                    []string `env:"FEED_URLS" validate:"min=1,dive,required,url"`
	SourcePlatform              string   `env:"SOURCE_PLATFORM" validate:"required,max=50"`
	HttpClientTimeout           int      `env:"HTTP_CLIENT_TIMEOUT" validate:"min=1"`
	HttpClientMaxBodySize       int64    `env:"HTTP_CLIENT_MAX_BODY_SIZE" validate:"min=1"`
	HttpClientUserAgent         string   `env:"HTTP_CLIENT_USER_AGENT"`
	IngestSchedule              string   `env:"INGEST_SCHEDULE" validate:"required"`
	DispatchSchedule            string   `env:"DISPATCH_SCHEDULE" validate:"required"`
	RunOnStart                  bool     `env:"RUN_ON_START"`
	NotificationLookbackHours   int      `env:"NOTIFICATION_LOOKBACK_HOURS" validate:"min=1"`
	RecommendationLookbackHours int      `env:"RECOMMENDATION_LOOKBACK_HOURS" validate:"min=1"`
	TaxonomyFile                string   `env:"TAXONOMY_FILE" validate:"omitempty,filepath"`
	MaxPreferences              int      `env:"MAX_PREFERENCES" validate:"min=1"`
	SmtpHost                    string   `env:"SMTP_SERVER" validate:"required,hostname"`
	SmtpPort                    int      `env:"SMTP_PORT" validate:"min=1,max=65535"`
	SmtpUsername                string   `env:"SMTP_USERNAME"`
	SmtpUsernameFile            *string  `env:"SMTP_USERNAME_FILE,file"`
	SmtpPassword                string   `env:"SMTP_PASSWORD"`
	SmtpPasswordFile            *string  `env:"SMTP_PASSWORD_FILE,file"`
	SenderEmail                 string   `env:"SENDER_EMAIL" validate:"omitempty,email"`
	SmtpTimeout                 int      `env:"SMTP_TIMEOUT" validate:"min=1"`
	MailRateLimit               float64  `env:"MAIL_RATE_LIMIT" validate:"min=0"`
	RedisURL                    string   `env:"REDIS_URL" validate:"omitempty,url"`
	RunLockTTL                  int      `env:"RUN_LOCK_TTL" validate:"min=1"`
}

type Log struct {
	LogFile     string `env:"FILE" validate:"required"`
	LogDateTime bool   `env:"DATE_TIME"`
	LogFormat   string `env:"FORMAT" validate:"required,oneof=human json text"`
	LogLevel    string `env:"LEVEL" validate:"required,oneof=debug info warning error"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	maxConns := max(4, runtime.GOMAXPROCS(0))

	return &Options{
		env: EnvOptions{
			LogFile:                     "stderr",
			LogFormat:                   "text",
			LogLevel:                    "info",
			DatabaseURL:                 defaultDatabaseURL,
			DatabaseMaxConns:            maxConns,
			DatabaseMinConns:            0,
			DatabaseConnectionLifetime:  60,
			ListenAddr:                  "127.0.0.1:8080",
			MetricsRefreshInterval:      60,
			MetricsAllowedNetworks:      []string{"127.0.0.1/8"},
			HttpServerTimeout:           300,
			FeedURLs:                    []string{defaultFeedURL},
			SourcePlatform:              "Freelancer",
			HttpClientTimeout:           20,
			HttpClientMaxBodySize:       15,
			HttpClientUserAgent:         version.New().UserAgent(),
			IngestSchedule:              "0 * * * *",
			DispatchSchedule:            "30 * * * *",
			NotificationLookbackHours:   2,
			RecommendationLookbackHours: 6,
			MaxPreferences:              3,
			SmtpHost:                    "smtp.gmail.com",
			SmtpPort:                    587,
			SmtpTimeout:                 30,
			MailRateLimit:               1,
			RunLockTTL:                  30,
		},
	}
}

func (o *Options) init() error {
	if err := o.validate(); err != nil {
		return err
	}

	o.env.HttpClientMaxBodySize *= 1024 * 1024
	o.env.FeedURLs = uniqStringList(o.env.FeedURLs)
	o.applyFileStrings()
	return nil
}

func (o *Options) validate() error {
	if err := Validator().Struct(&o.env); err != nil {
		return fmt.Errorf("config: failed validate: %w", err)
	}

	schedules := []struct {
		Name string
		Spec string
	}{
		{"INGEST_SCHEDULE", o.env.IngestSchedule},
		{"DISPATCH_SCHEDULE", o.env.DispatchSchedule},
	}
	for _, s := range schedules {
		if _, err := cron.ParseStandard(s.Spec); err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", s.Name, s.Spec, err)
		}
	}
	return nil
}

func uniqStringList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	for i, s := range items {
		s = strings.TrimSpace(s)
		if s != "" {
			if _, found := seen[s]; !found {
				seen[s] = struct{}{}
			} else {
				s = ""
			}
		}
		items[i] = s
	}
	if len(seen) < len(items) {
		items = slices.DeleteFunc(items, func(s string) bool { return s == "" })
	}
	return items
}

func (o *Options) applyFileStrings() {
	opts := []struct {
		From *string
		To   *string
	}{
		{o.env.DatabaseURLFile, &o.env.DatabaseURL},
		{o.env.MetricsUsernameFile, &o.env.MetricsUsername},
		{o.env.MetricsPasswordFile, &o.env.MetricsPassword},
		{o.env.SmtpUsernameFile, &o.env.SmtpUsername},
		{o.env.SmtpPasswordFile, &o.env.SmtpPassword},
	}
	for _, opt := range opts {
		if opt.From != nil {
			*opt.To = strings.TrimSpace(*opt.From)
		}
	}
}

func (o *Options) LogFile() string { return o.env.LogFile }

// LogDateTime returns true if the date/time should be displayed in log
// messages.
func (o *Options) LogDateTime() bool { return o.env.LogDateTime }

// LogFormat returns the log format.
func (o *Options) LogFormat() string { return o.env.LogFormat }

// LogLevel returns the log level.
func (o *Options) LogLevel() string { return o.env.LogLevel }

// SetLogLevel sets the log level.
func (o *Options) SetLogLevel(level string) { o.env.LogLevel = level }

func (o *Options) Logging() []Log {
	if len(o.env.Logging) == 0 {
		return []Log{{
			LogFile:     o.LogFile(),
			LogDateTime: o.LogDateTime(),
			LogFormat:   o.LogFormat(),
			LogLevel:    o.LogLevel(),
		}}
	}
	return slices.Clone(o.env.Logging)
}

// IsDefaultDatabaseURL returns true if the default database URL is used.
func (o *Options) IsDefaultDatabaseURL() bool {
	return o.env.DatabaseURL == defaultDatabaseURL
}

// DatabaseURL returns the database URL.
func (o *Options) DatabaseURL() string { return o.env.DatabaseURL }

// DatabaseMaxConns returns the maximum number of database connections.
func (o *Options) DatabaseMaxConns() int { return o.env.DatabaseMaxConns }

// DatabaseMinConns returns the minimum number of database connections.
func (o *Options) DatabaseMinConns() int { return o.env.DatabaseMinConns }

// DatabaseConnectionLifetime returns the maximum amount of time a connection
// may be reused.
func (o *Options) DatabaseConnectionLifetime() time.Duration {
	return time.Duration(o.env.DatabaseConnectionLifetime) * time.Minute
}

// RunMigrations returns true if the environment variable RUN_MIGRATIONS is
// not empty.
func (o *Options) RunMigrations() bool { return o.env.RunMigrations }

// ListenAddr returns the listen address for the HTTP server.
func (o *Options) ListenAddr() string { return o.env.ListenAddr }

func (o *Options) HasHTTPService() bool { return !o.env.DisableHttpService }

func (o *Options) HasSchedulerService() bool { return !o.env.DisableScheduler }

// HasMetricsCollector returns true if metrics collection is enabled.
func (o *Options) HasMetricsCollector() bool { return o.env.MetricsCollector }

// MetricsRefreshInterval returns the refresh interval of storage metrics.
func (o *Options) MetricsRefreshInterval() time.Duration {
	return time.Duration(o.env.MetricsRefreshInterval) * time.Second
}

// MetricsAllowedNetworks returns the list of networks allowed to access the
// metrics endpoint.
func (o *Options) MetricsAllowedNetworks() []string {
	return slices.Clone(o.env.MetricsAllowedNetworks)
}

// MetricsUsername returns the metrics endpoint username.
func (o *Options) MetricsUsername() string { return o.env.MetricsUsername }

// MetricsPassword returns the metrics endpoint password.
func (o *Options) MetricsPassword() string { return o.env.MetricsPassword }

// HTTPServerTimeout returns the read, write and idle timeout of the HTTP
// server.
func (o *Options) HTTPServerTimeout() time.Duration {
	return time.Duration(o.env.HttpServerTimeout) * time.Second
}

// TrustedProxy returns true if ip belongs to one of the trusted reverse
// proxy networks.
func (o *Options) TrustedProxy(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, cidr := range o.env.TrustedReverseProxyNetworks {
		if _, network, err := net.ParseCIDR(cidr); err == nil &&
			network.Contains(addr) {
			return true
		}
	}
	return false
}

// FeedURLs returns the list of syndication feeds to ingest.
func (o *Options) FeedURLs() []string { return slices.Clone(o.env.FeedURLs) }

// SourcePlatform returns the platform tag stored with every ingested posting.
func (o *Options) SourcePlatform() string { return o.env.SourcePlatform }

// HTTPClientTimeout returns the time limit for feed requests.
func (o *Options) HTTPClientTimeout() time.Duration {
	return time.Duration(o.env.HttpClientTimeout) * time.Second
}

// HTTPClientMaxBodySize returns the maximum feed body size in bytes.
func (o *Options) HTTPClientMaxBodySize() int64 {
	return o.env.HttpClientMaxBodySize
}

func (o *Options) HTTPClientUserAgent() string { return o.env.HttpClientUserAgent }

func (o *Options) IngestSchedule() string   { return o.env.IngestSchedule }
func (o *Options) DispatchSchedule() string { return o.env.DispatchSchedule }
func (o *Options) RunOnStart() bool         { return o.env.RunOnStart }

// NotificationLookback returns how far back the dispatcher looks for
// candidate postings.
func (o *Options) NotificationLookback() time.Duration {
	return time.Duration(o.env.NotificationLookbackHours) * time.Hour
}

// RecommendationLookback returns the recency window of recommendations.
func (o *Options) RecommendationLookback() time.Duration {
	return time.Duration(o.env.RecommendationLookbackHours) * time.Hour
}

func (o *Options) TaxonomyFile() string { return o.env.TaxonomyFile }
func (o *Options) MaxPreferences() int  { return o.env.MaxPreferences }

func (o *Options) SMTPHost() string     { return o.env.SmtpHost }
func (o *Options) SMTPPort() int        { return o.env.SmtpPort }
func (o *Options) SMTPUsername() string { return o.env.SmtpUsername }
func (o *Options) SMTPPassword() string { return o.env.SmtpPassword }
func (o *Options) SenderEmail() string  { return o.env.SenderEmail }

func (o *Options) SMTPTimeout() time.Duration {
	return time.Duration(o.env.SmtpTimeout) * time.Second
}

// MailRateLimit returns the maximum number of digests sent per second. Zero
// means unlimited.
func (o *Options) MailRateLimit() float64 { return o.env.MailRateLimit }

// HasMailer returns true if the SMTP credentials and the sender are set.
func (o *Options) HasMailer() bool {
	return o.SenderEmail() != "" && o.SMTPUsername() != "" &&
		o.SMTPPassword() != ""
}

func (o *Options) RedisURL() string { return o.env.RedisURL }

// RunLockTTL returns how long a run lock is held before it expires on its
// own.
func (o *Options) RunLockTTL() time.Duration {
	return time.Duration(o.env.RunLockTTL) * time.Minute
}

// SortedOptions returns options as a list of key value pairs, sorted by keys.
func (o *Options) SortedOptions(redactSecret bool) []Option {
	redisURL := o.RedisURL()
	if redactSecret && redisURL != "" {
		redisURL = "<secret>"
	}

	keyValues := map[string]any{
		"DATABASE_CONNECTION_LIFETIME":  o.DatabaseConnectionLifetime(),
		"DATABASE_MAX_CONNS":            o.DatabaseMaxConns(),
		"DATABASE_MIN_CONNS":            o.DatabaseMinConns(),
		"DATABASE_URL":                  secretValue(o.DatabaseURL(), redactSecret),
		"DISABLE_HTTP_SERVICE":          !o.HasHTTPService(),
		"DISABLE_SCHEDULER_SERVICE":     !o.HasSchedulerService(),
		"DISPATCH_SCHEDULE":             o.DispatchSchedule(),
		"FEED_URLS":                     strings.Join(o.FeedURLs(), ","),
		"HTTP_CLIENT_MAX_BODY_SIZE":     o.HTTPClientMaxBodySize(),
		"HTTP_CLIENT_TIMEOUT":           o.HTTPClientTimeout(),
		"HTTP_CLIENT_USER_AGENT":        o.HTTPClientUserAgent(),
		"HTTP_SERVER_TIMEOUT":           o.HTTPServerTimeout(),
		"INGEST_SCHEDULE":               o.IngestSchedule(),
		"LISTEN_ADDR":                   o.ListenAddr(),
		"LOG_DATE_TIME":                 o.LogDateTime(),
		"LOG_FILE":                      o.LogFile(),
		"LOG_FORMAT":                    o.LogFormat(),
		"LOG_LEVEL":                     o.LogLevel(),
		"MAIL_RATE_LIMIT":               o.MailRateLimit(),
		"MAX_PREFERENCES":               o.MaxPreferences(),
		"METRICS_ALLOWED_NETWORKS":      strings.Join(o.MetricsAllowedNetworks(), ","),
		"METRICS_COLLECTOR":             o.HasMetricsCollector(),
		"METRICS_PASSWORD":              secretValue(o.MetricsPassword(), redactSecret),
		"METRICS_REFRESH_INTERVAL":      o.MetricsRefreshInterval(),
		"METRICS_USERNAME":              o.MetricsUsername(),
		"NOTIFICATION_LOOKBACK_HOURS":   o.env.NotificationLookbackHours,
		"RECOMMENDATION_LOOKBACK_HOURS": o.env.RecommendationLookbackHours,
		"REDIS_URL":                     redisURL,
		"RUN_LOCK_TTL":                  o.RunLockTTL(),
		"RUN_MIGRATIONS":                o.RunMigrations(),
		"RUN_ON_START":                  o.RunOnStart(),
		"SENDER_EMAIL":                  o.SenderEmail(),
		"SMTP_PASSWORD":                 secretValue(o.SMTPPassword(), redactSecret),
		"SMTP_PORT":                     o.SMTPPort(),
		"SMTP_SERVER":                   o.SMTPHost(),
		"SMTP_TIMEOUT":                  o.SMTPTimeout(),
		"SMTP_USERNAME":                 o.SMTPUsername(),
		"SOURCE_PLATFORM":               o.SourcePlatform(),
		"TAXONOMY_FILE":                 o.TaxonomyFile(),
		"TRUSTED_REVERSE_PROXY_NETWORKS": strings.Join(
			o.env.TrustedReverseProxyNetworks, ","),
	}

	sortedKeys := slices.Sorted(maps.Keys(keyValues))
	sortedOptions := make([]Option, len(sortedKeys))
	for i, key := range sortedKeys {
		sortedOptions[i] = Option{Key: key, Value: keyValues[key]}
	}
	return sortedOptions
}

func (o *Options) String() string {
	var builder strings.Builder
	for _, option := range o.SortedOptions(true) {
		fmt.Fprintf(&builder, "%s=%v\n", option.Key, option.Value)
	}
	return builder.String()
}

func secretValue(value string, redactSecret bool) string {
	if redactSecret && value != "" {
		return "<secret>"
	}
	return value
}
