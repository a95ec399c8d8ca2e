package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/roundrobin/pkg/certify"
	"github.com/limaJavier/roundrobin/pkg/config"
	"github.com/limaJavier/roundrobin/pkg/master"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instancesDirectory = "../../test/instances/"

func TestSettingsLoad(t *testing.T) {
	//** Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(path, []byte("certifier: external\nexternalSolverPath: /opt/sportsat\nmasterTimeLimit: 1m\n"), 0o644))

	//** Act
	loaded, err1 := settings{Config: path}.load()
	overridden, err2 := settings{Config: path, Certifier: config.Greedy}.load()
	_, err3 := settings{Config: path, Certifier: "oracle"}.load()

	//** Assert
	assert.Nil(t, err1)
	assert.Nil(t, err2)
	assert.NotNil(t, err3)
	assert.Equal(t, config.External, loaded.Certifier)
	assert.Equal(t, time.Minute, loaded.MasterTimeLimit)
	assert.Equal(t, config.Greedy, overridden.Certifier)
}

func TestNewCertifier(t *testing.T) {
	instancePath := instancesDirectory + "plain_np.xml"
	instance, err := model.InstanceFromXml(instancePath)
	require.Nil(t, err)
	engine := milp.NewGophersatEngine(nil)

	tests := []struct {
		certifier string
		expected  any
	}{
		{config.Internal, &certify.Slave{}},
		{config.Greedy, &certify.Greedy{}},
		{config.Chain, &certify.Chain{}},
		{config.External, &certify.External{}},
	}

	for _, test := range tests {
		t.Run(test.certifier, func(t *testing.T) {
			cfg := config.Default()
			cfg.Certifier = test.certifier
			cfg.ExternalSolverPath = "/opt/sportsat"

			certifier, err := newCertifier(cfg, instance, instancePath, engine, nil)

			assert.Nil(t, err)
			assert.IsType(t, test.expected, certifier)
		})
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	candidate := certify.Candidate{Schedule: model.CircleSchedule(4)}
	candidate.Report.SoftPenalty = 12

	printResult(&out, newPalette(&out), master.Result{Status: master.Optimal, Best: &candidate, Patterns: 3, Mismatches: 1})

	assert.Contains(t, out.String(), "status: optimal")
	assert.Contains(t, out.String(), "patterns: 3")
	assert.Contains(t, out.String(), "withheld 1 schedule(s)")
	assert.Contains(t, out.String(), "penalty: 12")
}
