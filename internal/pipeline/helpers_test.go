// internal/pipeline/helpers_test.go
package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/dataset"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/testutil"
)

type fixture struct {
	dir        string
	store      imagestore.Store
	extractor  *inference.Mock
	featurizer *Featurizer
	train      []dataset.LabeledImage
}

// newFixture writes perClass images per label, in label-major order.
func newFixture(t *testing.T, perClass int) *fixture {
	t.Helper()
	ds := testutil.WriteDataset(t, perClass)

	images, err := dataset.Open(ds.TrainManifest).Load(context.Background())
	require.NoError(t, err)

	store := imagestore.NewLocal(ds.Dir)
	extractor := inference.NewMock(testutil.Options())
	return &fixture{
		dir:        ds.Dir,
		store:      store,
		extractor:  extractor,
		featurizer: NewFeaturizer(store, extractor, 4),
		train:      images,
	}
}

func (f *fixture) fit(t *testing.T) *FittedPipeline {
	t.Helper()
	examples, err := f.featurizer.Featurize(context.Background(), f.train)
	require.NoError(t, err)
	p, err := NewTrainer(f.featurizer, maxent.DefaultOptions()).Fit(context.Background(), examples)
	require.NoError(t, err)
	return p
}
