// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

/*
Package detection turns unprocessed source events into findings.

# Overview

A sweep fetches every unprocessed event in ascending timestamp order and runs
the rule catalog against it. Rules that look at history count related events
in a window anchored at the event's own timestamp:

	since = event.Timestamp - window
	until = event.Timestamp (inclusive)

The event being evaluated is already stored, so it is part of its own count.
Re-running a sweep over the same data therefore yields the same findings no
matter when it runs.

# Rule Catalog

Rules are evaluated in a fixed order and every matching rule fires:

  - Failed logins (too_many_failed_logins_critical, too_many_failed_logins,
    multiple_failed_logins, single_failed_login)
  - Successful login after failures from an unusual location
  - MFA failures and MFA success after failures
  - Privilege changes (privilege_escalation_admin, viewer_to_developer)
  - API token creation
  - Pull request merges by size
  - Failed deployments by environment
  - Storage bucket exposure
  - Global load (very_high_activity_last_hour), evaluated for every event

# Persistence

Each event is committed through FindingSink.ProcessEvent, which claims the
event and stores its findings in one transaction. An event another sweep
already claimed is skipped. The Engine mutex serializes sweeps in one process.

# Thread Safety

Engine is safe for concurrent use. Catalog is immutable after construction.
*/
package detection
