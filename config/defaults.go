package config

import (
	"github.com/spf13/viper"
)

// Default file and directory permissions for config persistence.
const (
	DefaultFilePermissions = 0o644
	DefaultDirPermissions  = 0o755
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Platform store defaults
	v.SetDefault("platform.base_url", "http://localhost:3000/api")

	// Database defaults
	v.SetDefault("database.path", "roadcall.db")

	// Server defaults
	v.SetDefault("server.port", 8710)

	// Monitoring loop defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.refresh_interval_seconds", 60)

	// Escalation timing defaults (minutes of job age)
	v.SetDefault("escalation.enabled", true)
	v.SetDefault("escalation.admin_minutes", 15)
	v.SetDefault("escalation.customer_minutes", 30)
	v.SetDefault("escalation.auto_assign_minutes", 45)

	// Cooldown defaults
	v.SetDefault("cooldowns.admin_alert_minutes", 30)
	v.SetDefault("cooldowns.customer_notice_minutes", 20)
	v.SetDefault("cooldowns.contractor_rejection_minutes", 60)

	// Alerting defaults
	v.SetDefault("alerting.max_alert_attempts", 3)
	v.SetDefault("alerting.max_notification_attempts", 3)
	v.SetDefault("alerting.send_timeout_seconds", 10)
	v.SetDefault("alerting.channels.email", true)
	v.SetDefault("alerting.channels.sms", false)
	v.SetDefault("alerting.channels.push", true)
	v.SetDefault("alerting.channels.in_app", true)
	v.SetDefault("alerting.channels.webhook", false)

	// Assignment defaults
	v.SetDefault("assignment.algorithm", AlgorithmSmartMatch)
	v.SetDefault("assignment.offer_window_seconds", 60)

	// Selection factor weights (must sum to 100)
	v.SetDefault("selection.distance", 25)
	v.SetDefault("selection.rating", 20)
	v.SetDefault("selection.availability", 20)
	v.SetDefault("selection.specialization", 15)
	v.SetDefault("selection.completion_rate", 10)
	v.SetDefault("selection.response_time", 10)
	v.SetDefault("selection.service_radius_miles", 50.0)
	v.SetDefault("selection.workload_penalty", 5.0)

	// Priority weights (1-10 per job class)
	v.SetDefault("priority.emergency", 10)
	v.SetDefault("priority.fleet", 8)
	v.SetDefault("priority.vip", 7)
	v.SetDefault("priority.scheduled", 4)
	v.SetDefault("priority.standard", 3)

	// Severity thresholds (minutes, except pending_jobs which is a count)
	v.SetDefault("thresholds.job_age.warning", 15)
	v.SetDefault("thresholds.job_age.critical", 30)
	v.SetDefault("thresholds.response_time.warning", 10)
	v.SetDefault("thresholds.response_time.critical", 25)
	v.SetDefault("thresholds.pending_jobs.warning", 10)
	v.SetDefault("thresholds.pending_jobs.critical", 25)
}
