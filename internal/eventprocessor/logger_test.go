// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package eventprocessor

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vigil/internal/logging"
)

func TestWatermillLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWatermillLogger(logging.NewTestLogger(&buf).Level(zerolog.TraceLevel))

	l.Info("subscriber started", watermill.LogFields{"topic": "vigil.events.ingest"})
	l.Error("publish failed", errors.New("timeout"), watermill.LogFields{"uuid": "abc"})
	l.With(watermill.LogFields{"consumer": "vigil-ingest"}).Debug("ack", nil)
	l.Trace("tick", nil)

	out := buf.String()
	for _, want := range []string{
		`"message":"subscriber started"`,
		`"topic":"vigil.events.ingest"`,
		`"error":"timeout"`,
		`"uuid":"abc"`,
		`"consumer":"vigil-ingest"`,
		`"level":"trace"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
