// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package models

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMalformedPayload is returned by DecodePayload when raw_data does not fit
// the shape for its event type.
var ErrMalformedPayload = errors.New("malformed event payload")

// PayloadKind names a Payload variant.
type PayloadKind string

// Payload variants.
const (
	PayloadLogin       PayloadKind = "login"
	PayloadMFA         PayloadKind = "mfa"
	PayloadPermission  PayloadKind = "permission"
	PayloadToken       PayloadKind = "token"
	PayloadPullRequest PayloadKind = "pull_request"
	PayloadDeployment  PayloadKind = "deployment"
	PayloadBucket      PayloadKind = "bucket"
	PayloadGeneric     PayloadKind = "generic"
)

// Payload is the decoded raw_data of a SourceEvent. The concrete type is
// selected by event type; see DecodePayload.
type Payload interface {
	Kind() PayloadKind
}

// LoginPayload is carried by login_success and login_failed.
type LoginPayload struct {
	IP        string `json:"ip,omitempty" validate:"omitempty,ip"`
	UserAgent string `json:"user_agent,omitempty" validate:"max=512"`
	Location  string `json:"location,omitempty" validate:"max=128"`
	Success   *bool  `json:"success,omitempty"`
}

// Kind implements Payload.
func (LoginPayload) Kind() PayloadKind { return PayloadLogin }

// MFAPayload is carried by mfa_success and mfa_failed.
type MFAPayload struct {
	Method   string `json:"method,omitempty" validate:"max=64"`
	Location string `json:"location,omitempty" validate:"max=128"`
}

// Kind implements Payload.
func (MFAPayload) Kind() PayloadKind { return PayloadMFA }

// PermissionPayload is carried by permission_changed.
type PermissionPayload struct {
	OldRole    string `json:"old_role,omitempty" validate:"max=64"`
	NewRole    string `json:"new_role,omitempty" validate:"max=64"`
	ApprovedBy string `json:"approved_by,omitempty" validate:"max=256"`
}

// Kind implements Payload.
func (PermissionPayload) Kind() PayloadKind { return PayloadPermission }

// TokenPayload is carried by api_token_created.
type TokenPayload struct {
	Scopes    []string `json:"scopes,omitempty" validate:"dive,required,max=128"`
	HasExpiry *bool    `json:"has_expiry,omitempty"`
}

// Kind implements Payload.
func (TokenPayload) Kind() PayloadKind { return PayloadToken }

// Expires reports whether the token has an expiry. Absent means true.
func (p TokenPayload) Expires() bool {
	return p.HasExpiry == nil || *p.HasExpiry
}

// HasScope reports whether scope is granted verbatim.
func (p TokenPayload) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// PullRequestPayload is carried by pull_request_opened and pull_request_merged.
type PullRequestPayload struct {
	Repo         string `json:"repo,omitempty" validate:"max=256"`
	Branch       string `json:"branch,omitempty" validate:"max=256"`
	LinesChanged int    `json:"lines_changed" validate:"gte=0"`
}

// Kind implements Payload.
func (PullRequestPayload) Kind() PayloadKind { return PayloadPullRequest }

// UnmarshalJSON accepts line_changed as an alias for lines_changed.
// Older seeders wrote the singular key.
func (p *PullRequestPayload) UnmarshalJSON(data []byte) error {
	var aux struct {
		Repo         string `json:"repo"`
		Branch       string `json:"branch"`
		LinesChanged *int   `json:"lines_changed"`
		LineChanged  *int   `json:"line_changed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Repo = aux.Repo
	p.Branch = aux.Branch
	switch {
	case aux.LinesChanged != nil:
		p.LinesChanged = *aux.LinesChanged
	case aux.LineChanged != nil:
		p.LinesChanged = *aux.LineChanged
	default:
		p.LinesChanged = 0
	}
	return nil
}

// DeploymentPayload is carried by deployment_succeeded and deployment_failed.
type DeploymentPayload struct {
	Service     string `json:"service,omitempty" validate:"max=256"`
	Environment string `json:"environment,omitempty" validate:"max=64"`
}

// Kind implements Payload.
func (DeploymentPayload) Kind() PayloadKind { return PayloadDeployment }

// BucketPayload is carried by storage_bucket_created and
// storage_bucket_permission_changed.
type BucketPayload struct {
	BucketName string `json:"bucket_name,omitempty" validate:"max=256"`
	Public     bool   `json:"public"`
}

// Kind implements Payload.
func (BucketPayload) Kind() PayloadKind { return PayloadBucket }

// GenericPayload holds raw_data for event types without a dedicated shape.
type GenericPayload struct {
	Fields map[string]any
}

// Kind implements Payload.
func (GenericPayload) Kind() PayloadKind { return PayloadGeneric }

// emptyPayload returns the zero value of the variant for t.
func emptyPayload(t EventType) Payload {
	switch t {
	case EventLoginSuccess, EventLoginFailed:
		return LoginPayload{}
	case EventMFASuccess, EventMFAFailed:
		return MFAPayload{}
	case EventPermissionChanged:
		return PermissionPayload{}
	case EventAPITokenCreated:
		return TokenPayload{}
	case EventPullRequestOpened, EventPullRequestMerged:
		return PullRequestPayload{}
	case EventDeploymentSucceeded, EventDeploymentFailed:
		return DeploymentPayload{}
	case EventStorageBucketCreated, EventStorageBucketPermissionChanged:
		return BucketPayload{}
	default:
		return GenericPayload{}
	}
}

// DecodePayload decodes raw into the variant for t.
//
// Empty or null raw yields the zero variant. When raw does not fit the shape,
// the zero variant is returned together with an error wrapping
// ErrMalformedPayload, so callers can log and continue with defaults.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyPayload(t), nil
	}

	var err error
	switch p := emptyPayload(t).(type) {
	case LoginPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case MFAPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case PermissionPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case TokenPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case PullRequestPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case DeploymentPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	case BucketPayload:
		if err = json.Unmarshal(trimmed, &p); err == nil {
			return p, nil
		}
	default:
		var fields map[string]any
		if err = json.Unmarshal(trimmed, &fields); err == nil {
			return GenericPayload{Fields: fields}, nil
		}
	}

	return emptyPayload(t), fmt.Errorf("%w: %s: %v", ErrMalformedPayload, t, err)
}
