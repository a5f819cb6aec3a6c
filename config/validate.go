package config

import "github.com/openroad/roadcall/errors"

// Validate checks that the configuration is valid. Every violation returns
// an error wrapping errors.ErrConfigInvalid; callers must keep the previous
// snapshot active when validation fails.
func (c *Config) Validate() error {
	if c.Platform.BaseURL == "" {
		return errors.NewConfigInvalid("platform.base_url must be set")
	}

	if c.Monitoring.RefreshIntervalSeconds < 10 || c.Monitoring.RefreshIntervalSeconds > 300 {
		return errors.NewConfigInvalid("monitoring.refresh_interval_seconds must be 10-300, got %d", c.Monitoring.RefreshIntervalSeconds)
	}

	if c.Escalation.AdminMinutes < 1 || c.Escalation.AdminMinutes > 60 {
		return errors.NewConfigInvalid("escalation.admin_minutes must be 1-60, got %d", c.Escalation.AdminMinutes)
	}
	if c.Escalation.CustomerMinutes < 5 || c.Escalation.CustomerMinutes > 120 {
		return errors.NewConfigInvalid("escalation.customer_minutes must be 5-120, got %d", c.Escalation.CustomerMinutes)
	}
	if c.Escalation.AutoAssignMinutes < 10 || c.Escalation.AutoAssignMinutes > 180 {
		return errors.NewConfigInvalid("escalation.auto_assign_minutes must be 10-180, got %d", c.Escalation.AutoAssignMinutes)
	}

	if c.Cooldowns.AdminAlertMinutes < 10 || c.Cooldowns.AdminAlertMinutes > 240 {
		return errors.NewConfigInvalid("cooldowns.admin_alert_minutes must be 10-240, got %d", c.Cooldowns.AdminAlertMinutes)
	}
	if c.Cooldowns.CustomerNoticeMinutes < 5 || c.Cooldowns.CustomerNoticeMinutes > 120 {
		return errors.NewConfigInvalid("cooldowns.customer_notice_minutes must be 5-120, got %d", c.Cooldowns.CustomerNoticeMinutes)
	}
	if c.Cooldowns.ContractorRejectionMinutes < 15 || c.Cooldowns.ContractorRejectionMinutes > 480 {
		return errors.NewConfigInvalid("cooldowns.contractor_rejection_minutes must be 15-480, got %d", c.Cooldowns.ContractorRejectionMinutes)
	}

	if c.Alerting.MaxAlertAttempts < 1 || c.Alerting.MaxAlertAttempts > 10 {
		return errors.NewConfigInvalid("alerting.max_alert_attempts must be 1-10, got %d", c.Alerting.MaxAlertAttempts)
	}
	if c.Alerting.MaxNotificationAttempts < 1 || c.Alerting.MaxNotificationAttempts > 5 {
		return errors.NewConfigInvalid("alerting.max_notification_attempts must be 1-5, got %d", c.Alerting.MaxNotificationAttempts)
	}
	if c.Alerting.SendTimeoutSeconds <= 0 {
		return errors.NewConfigInvalid("alerting.send_timeout_seconds must be > 0, got %d", c.Alerting.SendTimeoutSeconds)
	}
	if c.Alerting.Channels.Webhook && c.Alerting.WebhookURL == "" {
		return errors.NewConfigInvalid("alerting.webhook_url cannot be empty when the webhook channel is enabled")
	}

	if !validAlgorithm(c.Assignment.Algorithm) {
		return errors.NewConfigInvalid("assignment.algorithm %q is not one of %v", c.Assignment.Algorithm, Algorithms)
	}
	if c.Assignment.OfferWindowSeconds < 15 || c.Assignment.OfferWindowSeconds > 600 {
		return errors.NewConfigInvalid("assignment.offer_window_seconds must be 15-600, got %d", c.Assignment.OfferWindowSeconds)
	}

	if err := c.Selection.validate(); err != nil {
		return err
	}

	for class, weight := range c.Priority.Weights() {
		if weight < 1 || weight > 10 {
			return errors.NewConfigInvalid("priority.%s must be 1-10, got %d", class, weight)
		}
	}

	if err := validatePair("thresholds.job_age", c.Thresholds.JobAge); err != nil {
		return err
	}
	if err := validatePair("thresholds.response_time", c.Thresholds.ResponseTime); err != nil {
		return err
	}
	if err := validatePair("thresholds.pending_jobs", c.Thresholds.PendingJobs); err != nil {
		return err
	}

	return nil
}

func (s SelectionConfig) validate() error {
	weights := map[string]int{
		"distance":        s.Distance,
		"rating":          s.Rating,
		"availability":    s.Availability,
		"specialization":  s.Specialization,
		"completion_rate": s.CompletionRate,
		"response_time":   s.ResponseTime,
	}
	for name, w := range weights {
		if w < 0 || w > 100 {
			return errors.NewConfigInvalid("selection.%s must be 0-100, got %d", name, w)
		}
	}
	if sum := s.WeightSum(); sum != 100 {
		return errors.NewConfigInvalid("selection factor weights must sum to exactly 100, got %d", sum)
	}
	if s.ServiceRadiusMiles <= 0 {
		return errors.NewConfigInvalid("selection.service_radius_miles must be > 0, got %f", s.ServiceRadiusMiles)
	}
	if s.WorkloadPenalty < 0 {
		return errors.NewConfigInvalid("selection.workload_penalty must be >= 0, got %f", s.WorkloadPenalty)
	}
	return nil
}

func validatePair(name string, p ThresholdPair) error {
	if p.Warning <= 0 {
		return errors.NewConfigInvalid("%s.warning must be > 0, got %d", name, p.Warning)
	}
	if p.Warning >= p.Critical {
		return errors.NewConfigInvalid("%s.warning (%d) must be below critical (%d)", name, p.Warning, p.Critical)
	}
	return nil
}

func validAlgorithm(name string) bool {
	for _, a := range Algorithms {
		if a == name {
			return true
		}
	}
	return false
}
