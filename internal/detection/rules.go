// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package detection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

// Rule names emitted by the catalog.
const (
	RuleTooManyFailedLoginsCritical  = "too_many_failed_logins_critical"
	RuleTooManyFailedLogins          = "too_many_failed_logins"
	RuleMultipleFailedLogins         = "multiple_failed_logins"
	RuleSingleFailedLogin            = "single_failed_login"
	RuleSuspiciousLoginAfterFailures = "suspicious_login_after_failures"
	RuleTooManyMFAFailures           = "too_many_mfa_failures"
	RuleMultipleMFAFailures          = "multiple_mfa_failures"
	RuleMFASuccessAfterFailures      = "mfa_success_after_failures"
	RulePrivilegeEscalationAdmin     = "privilege_escalation_admin"
	RuleViewerToDeveloper            = "viewer_to_developer"
	RuleAPITokenAdminScope           = "api_token_admin_scope"
	RuleAPITokenWithoutExpiry        = "api_token_without_expiry"
	RuleAPITokenCreated              = "api_token_created"
	RuleLargePRMerged                = "large_pr_merged"
	RuleMediumPRMerged               = "medium_pr_merged"
	RuleSmallPRMerged                = "small_pr_merged"
	RuleDeploymentFailed             = "deployment_failed"
	RulePublicBucketDetected         = "public_bucket_detected"
	RuleBucketChecked                = "bucket_checked"
	RuleVeryHighActivityLastHour     = "very_high_activity_last_hour"
)

// ruleFunc evaluates one rule group against an event.
type ruleFunc func(ctx context.Context, ev *models.SourceEvent, p models.Payload, h HistoryQuery) ([]models.Finding, error)

// Catalog is the ordered set of detection rules.
type Catalog struct {
	cfg      Config
	unusual  map[string]struct{}
	evaluate []ruleFunc
}

// NewCatalog builds the catalog for cfg.
func NewCatalog(cfg Config) *Catalog {
	c := &Catalog{
		cfg:     cfg,
		unusual: make(map[string]struct{}, len(cfg.UnusualLocations)),
	}
	for _, loc := range cfg.UnusualLocations {
		c.unusual[loc] = struct{}{}
	}
	c.evaluate = []ruleFunc{
		c.failedLogins,
		c.suspiciousLogin,
		c.mfaFailures,
		c.mfaRecovery,
		c.privilegeChange,
		c.tokenCreation,
		c.pullRequestMerge,
		c.deploymentFailure,
		c.storageExposure,
		c.globalLoad,
	}
	return c
}

// Detect evaluates every rule against ev and returns the findings that
// fired, in catalog order. If ev.Payload is nil it is decoded from RawData;
// a malformed payload evaluates as the empty variant.
//
// Only history errors are returned.
func (c *Catalog) Detect(ctx context.Context, ev *models.SourceEvent, history HistoryQuery) ([]models.Finding, error) {
	payload := ev.Payload
	if payload == nil {
		payload, _ = models.DecodePayload(ev.EventType, ev.RawData)
	}

	var findings []models.Finding
	for _, rule := range c.evaluate {
		fired, err := rule(ctx, ev, payload, history)
		if err != nil {
			return nil, err
		}
		findings = append(findings, fired...)
	}
	return findings, nil
}

func newFinding(ev *models.SourceEvent, rule string, sev models.Severity, description string) models.Finding {
	return models.Finding{
		EventID:     ev.ID,
		RuleName:    rule,
		Severity:    sev,
		Description: description,
		User:        ev.User,
	}
}

// countWindow counts events in [ev.Timestamp-window, ev.Timestamp] that sort
// at or before ev, so events sharing ev's timestamp count only up to ev.ID.
func countWindow(ctx context.Context, h HistoryQuery, ev *models.SourceEvent, user string, typ models.EventType, window time.Duration) (int, error) {
	n, err := h.CountEvents(ctx, models.CountQuery{
		User:      user,
		EventType: typ,
		Since:     ev.Timestamp.Add(-window),
		Until:     ev.Timestamp,
		ThroughID: ev.ID,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", typ, err)
	}
	return n, nil
}

func (c *Catalog) failedLogins(ctx context.Context, ev *models.SourceEvent, _ models.Payload, h HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventLoginFailed {
		return nil, nil
	}
	n, err := countWindow(ctx, h, ev, ev.User, models.EventLoginFailed, c.cfg.FailedLoginWindow)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("User %s had %d failed login attempts in the last %s.", ev.User, n, windowPhrase(c.cfg.FailedLoginWindow))
	switch {
	case n >= c.cfg.FailedLoginCritical:
		return []models.Finding{newFinding(ev, RuleTooManyFailedLoginsCritical, models.SeverityCritical, desc)}, nil
	case n >= c.cfg.FailedLoginHigh:
		return []models.Finding{newFinding(ev, RuleTooManyFailedLogins, models.SeverityHigh, desc)}, nil
	case n >= c.cfg.FailedLoginMedium:
		return []models.Finding{newFinding(ev, RuleMultipleFailedLogins, models.SeverityMedium, desc)}, nil
	default:
		return []models.Finding{newFinding(ev, RuleSingleFailedLogin, models.SeverityLow,
			fmt.Sprintf("User %s had a failed login attempt.", ev.User))}, nil
	}
}

func (c *Catalog) suspiciousLogin(ctx context.Context, ev *models.SourceEvent, p models.Payload, h HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventLoginSuccess {
		return nil, nil
	}
	login, _ := p.(models.LoginPayload)
	location := orDefault(login.Location, "Unknown")
	if _, ok := c.unusual[location]; !ok {
		return nil, nil
	}

	n, err := countWindow(ctx, h, ev, ev.User, models.EventLoginFailed, c.cfg.SuspiciousLoginWindow)
	if err != nil {
		return nil, err
	}
	if n < c.cfg.SuspiciousLoginFailures {
		return nil, nil
	}
	return []models.Finding{newFinding(ev, RuleSuspiciousLoginAfterFailures, models.SeverityCritical,
		fmt.Sprintf("User %s logged in successfully from %s after %d recent failed attempts.", ev.User, location, n))}, nil
}

func (c *Catalog) mfaFailures(ctx context.Context, ev *models.SourceEvent, _ models.Payload, h HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventMFAFailed {
		return nil, nil
	}
	n, err := countWindow(ctx, h, ev, ev.User, models.EventMFAFailed, c.cfg.MFAWindow)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("User %s had %d MFA failures in the last %s.", ev.User, n, windowPhrase(c.cfg.MFAWindow))
	switch {
	case n >= c.cfg.MFAFailuresHigh:
		return []models.Finding{newFinding(ev, RuleTooManyMFAFailures, models.SeverityHigh, desc)}, nil
	case n >= c.cfg.MFAFailuresMedium:
		return []models.Finding{newFinding(ev, RuleMultipleMFAFailures, models.SeverityMedium, desc)}, nil
	}
	return nil, nil
}

func (c *Catalog) mfaRecovery(ctx context.Context, ev *models.SourceEvent, _ models.Payload, h HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventMFASuccess {
		return nil, nil
	}
	n, err := countWindow(ctx, h, ev, ev.User, models.EventMFAFailed, c.cfg.MFAWindow)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return []models.Finding{newFinding(ev, RuleMFASuccessAfterFailures, models.SeverityLow,
		fmt.Sprintf("User %s had MFA success after %d recent failures.", ev.User, n))}, nil
}

func (c *Catalog) privilegeChange(_ context.Context, ev *models.SourceEvent, p models.Payload, _ HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventPermissionChanged {
		return nil, nil
	}
	perm, _ := p.(models.PermissionPayload)

	switch {
	case perm.NewRole == "admin" && perm.OldRole != "admin":
		sev := models.SeverityHigh
		if perm.ApprovedBy == "" {
			sev = models.SeverityCritical
		}
		return []models.Finding{newFinding(ev, RulePrivilegeEscalationAdmin, sev,
			fmt.Sprintf("User %s role changed from %s to %s. Approved by: %s.",
				ev.User, orDefault(perm.OldRole, "none"), perm.NewRole, orDefault(perm.ApprovedBy, "none")))}, nil
	case perm.OldRole == "viewer" && perm.NewRole == "developer":
		return []models.Finding{newFinding(ev, RuleViewerToDeveloper, models.SeverityMedium,
			fmt.Sprintf("User %s role changed from %s to %s.", ev.User, perm.OldRole, perm.NewRole))}, nil
	}
	return nil, nil
}

func (c *Catalog) tokenCreation(_ context.Context, ev *models.SourceEvent, p models.Payload, _ HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventAPITokenCreated {
		return nil, nil
	}
	token, _ := p.(models.TokenPayload)
	scopes := formatScopes(token.Scopes)

	switch {
	case token.HasScope(c.cfg.AdminScope):
		return []models.Finding{newFinding(ev, RuleAPITokenAdminScope, models.SeverityCritical,
			fmt.Sprintf("User %s created an API token with admin scope: %s.", ev.User, scopes))}, nil
	case !token.Expires():
		return []models.Finding{newFinding(ev, RuleAPITokenWithoutExpiry, models.SeverityHigh,
			fmt.Sprintf("User %s created an API token without expiry.", ev.User))}, nil
	default:
		return []models.Finding{newFinding(ev, RuleAPITokenCreated, models.SeverityMedium,
			fmt.Sprintf("User %s created an API token with scopes: %s.", ev.User, scopes))}, nil
	}
}

func (c *Catalog) pullRequestMerge(_ context.Context, ev *models.SourceEvent, p models.Payload, _ HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventPullRequestMerged {
		return nil, nil
	}
	pr, _ := p.(models.PullRequestPayload)

	rule, sev := RuleSmallPRMerged, models.SeverityLow
	switch {
	case pr.LinesChanged > c.cfg.LargePRLines:
		rule, sev = RuleLargePRMerged, models.SeverityHigh
	case pr.LinesChanged > c.cfg.MediumPRLines:
		rule, sev = RuleMediumPRMerged, models.SeverityMedium
	}
	return []models.Finding{newFinding(ev, rule, sev,
		fmt.Sprintf("Pull request merged into %s with %d lines changed.", orDefault(pr.Repo, "unknown"), pr.LinesChanged))}, nil
}

func (c *Catalog) deploymentFailure(_ context.Context, ev *models.SourceEvent, p models.Payload, _ HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventDeploymentFailed {
		return nil, nil
	}
	dep, _ := p.(models.DeploymentPayload)
	env := orDefault(dep.Environment, "unknown")

	sev := models.SeverityLow
	switch env {
	case "prod":
		sev = models.SeverityHigh
	case "staging":
		sev = models.SeverityMedium
	}
	return []models.Finding{newFinding(ev, RuleDeploymentFailed, sev,
		fmt.Sprintf("Deployment failed for service %s in %s.", orDefault(dep.Service, "unknown"), env))}, nil
}

func (c *Catalog) storageExposure(_ context.Context, ev *models.SourceEvent, p models.Payload, _ HistoryQuery) ([]models.Finding, error) {
	if ev.EventType != models.EventStorageBucketCreated && ev.EventType != models.EventStorageBucketPermissionChanged {
		return nil, nil
	}
	bucket, _ := p.(models.BucketPayload)
	name := orDefault(bucket.BucketName, "unknown")

	if bucket.Public {
		return []models.Finding{newFinding(ev, RulePublicBucketDetected, models.SeverityCritical,
			fmt.Sprintf("Bucket %s is publicly accessible (event_type=%s).", name, ev.EventType))}, nil
	}
	return []models.Finding{newFinding(ev, RuleBucketChecked, models.SeverityLow,
		fmt.Sprintf("Bucket %s permission event (event_type=%s, public=%t).", name, ev.EventType, bucket.Public))}, nil
}

func (c *Catalog) globalLoad(ctx context.Context, ev *models.SourceEvent, _ models.Payload, h HistoryQuery) ([]models.Finding, error) {
	total, err := countWindow(ctx, h, ev, "", "", c.cfg.GlobalLoadWindow)
	if err != nil {
		return nil, err
	}
	if total <= c.cfg.MaxEventsPerHour*c.cfg.GlobalLoadMultiplier {
		return nil, nil
	}
	return []models.Finding{newFinding(ev, RuleVeryHighActivityLastHour, models.SeverityHigh,
		fmt.Sprintf("There were %d events in the last %s overall.", total, windowPhrase(c.cfg.GlobalLoadWindow)))}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// formatScopes renders scopes as "[a, b]".
func formatScopes(scopes []string) string {
	return "[" + strings.Join(scopes, ", ") + "]"
}

// windowPhrase renders a window for descriptions: "hour", "10 minutes".
func windowPhrase(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "hour"
	case d == time.Minute:
		return "minute"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
