// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nanolog is a thin wrapper around github.com/luxfi/log, the
// structured logger already used throughout the teacher repo
// (acceptor_group.go, protocol/prism/default.go). It exists only to
// attach the small set of fields every component in this core logs
// with consistently (election, root, behavior, vote code) without
// every package having to redeclare the zap.Field boilerplate.
package nanolog

import (
	"fmt"

	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// Logger is the structured logger interface every component in this
// core accepts. It is exactly github.com/luxfi/log's Logger, named
// locally so call sites don't need the import.
type Logger = log.Logger

// NoOp returns a logger that discards everything, for tests and for
// collaborators that haven't been given a real logger.
func NoOp() Logger {
	return log.NewNoOpLogger()
}

// Election returns a child logger tagged with the fields common to
// every Election-related log line.
func Election(l Logger, root string, behavior string) Logger {
	return l.WithFields(zap.String("root", root), zap.String("behavior", behavior))
}

// VoteCode returns a field for the outcome of applying a vote, used by
// VoteRouter and Election log lines (spec §4.3, §4.6).
func VoteCode(code fmt.Stringer) zap.Field {
	return zap.Stringer("vote_code", code)
}

// ErrField wraps an error for a log line, used by BlockProcessor and
// ConfirmingSet's "log and abandon" failure paths (spec §4.8).
func ErrField(err error) zap.Field {
	return zap.Error(err)
}
