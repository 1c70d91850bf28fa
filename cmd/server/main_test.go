// cmd/server/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLASSIFIER_MODEL_PREPROCESS_WIDTH", "8")
	t.Setenv("CLASSIFIER_MODEL_PREPROCESS_HEIGHT", "8")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func datasetArgs(ds *testutil.Dataset) []string {
	return []string{
		"--mock",
		"--log-level", "error",
		"--images", ds.Dir,
		"--train-manifest", ds.TrainManifest,
		"--test-manifest", ds.TestManifest,
	}
}

func TestTrainCommand(t *testing.T) {
	ds := testutil.WriteDataset(t, 2)
	out, err := runCLI(t, append([]string{"train"}, datasetArgs(ds)...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "MicroAccuracy:    1.0000")
	assert.Contains(t, out, "broccoli")
}

func TestTrainCommand_JSON(t *testing.T) {
	ds := testutil.WriteDataset(t, 2)
	out, err := runCLI(t, append([]string{"train", "--json"}, datasetArgs(ds)...)...)
	require.NoError(t, err, out)

	var m struct {
		Total  int      `json:"total"`
		Labels []string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, testutil.Labels, m.Labels)
}

func TestPredictCommand(t *testing.T) {
	ds := testutil.WriteDataset(t, 2)
	out, err := runCLI(t, append([]string{"predict", "test/ocean.png"}, datasetArgs(ds)...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "predicted as: ocean")
}

func TestPredictCommand_PathOutsideImageRoot(t *testing.T) {
	ds := testutil.WriteDataset(t, 2)
	out, err := runCLI(t, append([]string{"predict", filepath.Join(ds.Dir, "test", "tomato.png")}, datasetArgs(ds)...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "predicted as: tomato")
}

func TestPredictCommand_MissingImage(t *testing.T) {
	ds := testutil.WriteDataset(t, 2)
	_, err := runCLI(t, append([]string{"predict", "nope.png"}, datasetArgs(ds)...)...)
	require.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := runCLI(t, "train", "--mock", "--train-manifest", "")
	require.Error(t, err)
}
