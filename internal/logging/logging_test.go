package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	f := NewLevelFilter(&buf, false)
	logger := log.New(f, "", log.LstdFlags)

	logger.Printf("[DEBUG] Traffic message received")
	logger.Printf("[INFO] Successfully connected")
	logger.Printf("[WARN] Dropping traffic message: payload mentions [DEBUG]")

	out := buf.String()
	assert.NotContains(t, out, "Traffic message received")
	assert.Contains(t, out, "[INFO] Successfully connected")
	assert.Contains(t, out, "[WARN] Dropping traffic message", "tags late in the line are not levels")

	f.SetDebug(true)
	logger.Printf("[DEBUG] now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestSetup_WritesStderrAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "companion.log")
	var stderr bytes.Buffer

	out, err := Setup(Options{File: file, Stderr: &stderr})
	require.NoError(t, err)

	log.Printf("[INFO] Starting companion")
	log.Printf("[DEBUG] hidden")
	require.NoError(t, out.Close())

	assert.Contains(t, stderr.String(), "[INFO] Starting companion")
	assert.NotContains(t, stderr.String(), "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] Starting companion")
	assert.NotContains(t, string(data), "hidden")
}

func TestSetup_StderrOnlyWithDebug(t *testing.T) {
	var stderr bytes.Buffer

	out, err := Setup(Options{Debug: true, Stderr: &stderr})
	require.NoError(t, err)
	log.Printf("[DEBUG] visible")
	require.NoError(t, out.Close())

	log.Printf("[INFO] after close")
	assert.Contains(t, stderr.String(), "[DEBUG] visible")
	assert.NotContains(t, stderr.String(), "after close", "Close restores the previous output")
}

func TestSetup_UnwritableLogDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Setup(Options{File: filepath.Join(blocker, "companion.log"), Stderr: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create log directory")
}
