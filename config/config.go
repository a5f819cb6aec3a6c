// Package config defines the monitoring engine configuration: loading,
// validation, persistence, and the immutable snapshot swapped between ticks.
package config

// Config represents the full roadcall monitor configuration.
// The admin editor produces one of these; it is validated before acceptance
// and frozen into a Snapshot before the engine reads it.
type Config struct {
	Platform   PlatformConfig   `mapstructure:"platform" toml:"platform" json:"platform"`
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" json:"database"`
	Server     ServerConfig     `mapstructure:"server" toml:"server" json:"server"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" toml:"monitoring" json:"monitoring"`
	Escalation EscalationConfig `mapstructure:"escalation" toml:"escalation" json:"escalation"`
	Cooldowns  CooldownConfig   `mapstructure:"cooldowns" toml:"cooldowns" json:"cooldowns"`
	Alerting   AlertingConfig   `mapstructure:"alerting" toml:"alerting" json:"alerting"`
	Assignment AssignmentConfig `mapstructure:"assignment" toml:"assignment" json:"assignment"`
	Selection  SelectionConfig  `mapstructure:"selection" toml:"selection" json:"selection"`
	Priority   PriorityConfig   `mapstructure:"priority" toml:"priority" json:"priority"`
	Thresholds ThresholdConfig  `mapstructure:"thresholds" toml:"thresholds" json:"thresholds"`
}

// PlatformConfig locates the external store owning jobs and contractors.
type PlatformConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url" json:"base_url"`
}

// DatabaseConfig configures the SQLite database holding engine-local state.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path"`
}

// ServerConfig configures the stats/config HTTP surface.
type ServerConfig struct {
	Port int `mapstructure:"port" toml:"port" json:"port"`
}

// MonitoringConfig controls the scanning loop.
type MonitoringConfig struct {
	Enabled                bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
	RefreshIntervalSeconds int  `mapstructure:"refresh_interval_seconds" toml:"refresh_interval_seconds" json:"refresh_interval_seconds"` // 10-300
}

// EscalationConfig controls per-job stage timing, all in minutes of job age.
type EscalationConfig struct {
	Enabled           bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
	AdminMinutes      int  `mapstructure:"admin_minutes" toml:"admin_minutes" json:"admin_minutes"`                   // 1-60
	CustomerMinutes   int  `mapstructure:"customer_minutes" toml:"customer_minutes" json:"customer_minutes"`          // 5-120
	AutoAssignMinutes int  `mapstructure:"auto_assign_minutes" toml:"auto_assign_minutes" json:"auto_assign_minutes"` // 10-180
}

// CooldownConfig sets the minimum spacing between repeats of the same action.
type CooldownConfig struct {
	AdminAlertMinutes          int `mapstructure:"admin_alert_minutes" toml:"admin_alert_minutes" json:"admin_alert_minutes"`                            // 10-240
	CustomerNoticeMinutes      int `mapstructure:"customer_notice_minutes" toml:"customer_notice_minutes" json:"customer_notice_minutes"`                // 5-120
	ContractorRejectionMinutes int `mapstructure:"contractor_rejection_minutes" toml:"contractor_rejection_minutes" json:"contractor_rejection_minutes"` // 15-480
}

// AlertingConfig configures notification channels and attempt budgets.
type AlertingConfig struct {
	MaxAlertAttempts        int            `mapstructure:"max_alert_attempts" toml:"max_alert_attempts" json:"max_alert_attempts"`                      // 1-10
	MaxNotificationAttempts int            `mapstructure:"max_notification_attempts" toml:"max_notification_attempts" json:"max_notification_attempts"` // 1-5
	SendTimeoutSeconds      int            `mapstructure:"send_timeout_seconds" toml:"send_timeout_seconds" json:"send_timeout_seconds"`
	WebhookURL              string         `mapstructure:"webhook_url" toml:"webhook_url" json:"webhook_url"`
	Channels                ChannelsConfig `mapstructure:"channels" toml:"channels" json:"channels"`
}

// ChannelsConfig enables or disables individual alert channels.
type ChannelsConfig struct {
	Email   bool `mapstructure:"email" toml:"email" json:"email"`
	SMS     bool `mapstructure:"sms" toml:"sms" json:"sms"`
	Push    bool `mapstructure:"push" toml:"push" json:"push"`
	InApp   bool `mapstructure:"in_app" toml:"in_app" json:"in_app"`
	Webhook bool `mapstructure:"webhook" toml:"webhook" json:"webhook"`
}

// Algorithm names accepted for assignment.algorithm.
const (
	AlgorithmNearestAvailable = "nearest_available"
	AlgorithmHighestRating    = "highest_rating"
	AlgorithmBalancedWorkload = "balanced_workload"
	AlgorithmFastestResponse  = "fastest_response"
	AlgorithmRoundRobin       = "round_robin"
	AlgorithmSmartMatch       = "smart_match"
)

// Algorithms lists every valid assignment algorithm key.
var Algorithms = []string{
	AlgorithmNearestAvailable,
	AlgorithmHighestRating,
	AlgorithmBalancedWorkload,
	AlgorithmFastestResponse,
	AlgorithmRoundRobin,
	AlgorithmSmartMatch,
}

// AssignmentConfig controls the offer protocol.
type AssignmentConfig struct {
	Algorithm          string `mapstructure:"algorithm" toml:"algorithm" json:"algorithm"`
	OfferWindowSeconds int    `mapstructure:"offer_window_seconds" toml:"offer_window_seconds" json:"offer_window_seconds"` // 15-600
}

// SelectionConfig holds the six contractor scoring factor weights.
// Each weight is 0-100 and the six must sum to exactly 100.
type SelectionConfig struct {
	Distance       int `mapstructure:"distance" toml:"distance" json:"distance"`
	Rating         int `mapstructure:"rating" toml:"rating" json:"rating"`
	Availability   int `mapstructure:"availability" toml:"availability" json:"availability"`
	Specialization int `mapstructure:"specialization" toml:"specialization" json:"specialization"`
	CompletionRate int `mapstructure:"completion_rate" toml:"completion_rate" json:"completion_rate"`
	ResponseTime   int `mapstructure:"response_time" toml:"response_time" json:"response_time"`

	ServiceRadiusMiles float64 `mapstructure:"service_radius_miles" toml:"service_radius_miles" json:"service_radius_miles"`
	WorkloadPenalty    float64 `mapstructure:"workload_penalty" toml:"workload_penalty" json:"workload_penalty"`
}

// WeightSum returns the sum of the six factor weights.
func (s SelectionConfig) WeightSum() int {
	return s.Distance + s.Rating + s.Availability + s.Specialization + s.CompletionRate + s.ResponseTime
}

// PriorityConfig assigns a processing weight (1-10) to each job class.
type PriorityConfig struct {
	Emergency int `mapstructure:"emergency" toml:"emergency" json:"emergency"`
	Fleet     int `mapstructure:"fleet" toml:"fleet" json:"fleet"`
	VIP       int `mapstructure:"vip" toml:"vip" json:"vip"`
	Scheduled int `mapstructure:"scheduled" toml:"scheduled" json:"scheduled"`
	Standard  int `mapstructure:"standard" toml:"standard" json:"standard"`
}

// Weights returns the per-class weight map used for ordering under contention.
func (p PriorityConfig) Weights() map[string]int {
	return map[string]int{
		"emergency": p.Emergency,
		"fleet":     p.Fleet,
		"vip":       p.VIP,
		"scheduled": p.Scheduled,
		"standard":  p.Standard,
	}
}

// ThresholdPair is a warning/critical severity pair; warning must be
// strictly below critical.
type ThresholdPair struct {
	Warning  int `mapstructure:"warning" toml:"warning" json:"warning"`
	Critical int `mapstructure:"critical" toml:"critical" json:"critical"`
}

// ThresholdConfig classifies job age, response time (minutes), and the
// count of pending jobs.
type ThresholdConfig struct {
	JobAge       ThresholdPair `mapstructure:"job_age" toml:"job_age" json:"job_age"`
	ResponseTime ThresholdPair `mapstructure:"response_time" toml:"response_time" json:"response_time"`
	PendingJobs  ThresholdPair `mapstructure:"pending_jobs" toml:"pending_jobs" json:"pending_jobs"`
}
