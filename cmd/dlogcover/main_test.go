package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/orchestrator"
)

func TestExitCodeForCodedErrorTakesPrecedence(t *testing.T) {
	err := &codedError{code: orchestrator.ExitReportWriteIO, err: errors.New("disk full")}
	assert.Equal(t, orchestrator.ExitReportWriteIO, exitCodeFor(err))
}

func TestExitCodeForFallsBackToOrchestratorMapping(t *testing.T) {
	err := &dlogerrors.ConfigError{Field: "version", Msg: "bad"}
	assert.Equal(t, orchestrator.ExitConfigError, exitCodeFor(err))
}
