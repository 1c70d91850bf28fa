// cmd/server/train.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pipeline"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
	pb "github.com/SyedDaiam9101/transfer-classifier/proto/classifierpb"
)

func newTrainCmd(load loadFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on the training manifest and report metrics on the test manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			ctx := logging.NewContext(cmdContext(cmd), logger)

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			p, m, err := a.svc.GenerateModel(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			printMetrics(cmd.OutOrStdout(), p, m)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metrics as JSON")
	return cmd
}

func newPredictCmd(load loadFunc) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Classify one image, training first unless --remote names a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote != "" {
				return predictRemote(cmdContext(cmd), cmd.OutOrStdout(), remote, args[0])
			}

			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			ctx := logging.NewContext(cmdContext(cmd), logger)

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			p, m, err := a.svc.GenerateModel(ctx)
			if err != nil {
				return err
			}
			logger.Info("model ready", zap.Float64("micro_accuracy", m.MicroAccuracy))

			res, err := classifyPath(ctx, a.svc, p, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image: %s predicted as: %s with score: %.4f\n",
				res.Path, res.PredictedLabel, res.Confidence)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running server, e.g. localhost:50051")
	return cmd
}

// classifyPath resolves paths inside the image root through the store. Any
// other path is read from disk directly, which only the local CLI allows.
func classifyPath(ctx context.Context, svc *service.Service, p *pipeline.FittedPipeline, path string) (*pipeline.PredictionResult, error) {
	if imagestore.CheckPath(path) == nil {
		return svc.ClassifySingleImage(ctx, p, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errs.ImageNotFoundError{Path: path, Err: err}
		}
		return nil, err
	}
	defer f.Close()

	img, err := preprocess.Decode(f, path)
	if err != nil {
		return nil, err
	}
	return svc.ClassifyImage(ctx, p, path, img)
}

func predictRemote(ctx context.Context, w io.Writer, addr, image string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := pb.NewClassifierClient(conn).Classify(ctx, wrapperspb.String(image))
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printMetrics(w io.Writer, p *pipeline.FittedPipeline, m *pipeline.Metrics) {
	fmt.Fprintf(w, "Trained on %d images, %d labels, %d iterations\n",
		p.TrainingSize(), p.Vocabulary().Len(), p.TrainStats().Iterations)
	fmt.Fprintf(w, "Evaluated %d images: %d correct, %d misses (%d unknown label, %d failed)\n",
		m.Total, m.Correct, m.Misses, m.UnknownLabels, m.Failed)
	fmt.Fprintf(w, "  MicroAccuracy:    %.4f\n", m.MicroAccuracy)
	fmt.Fprintf(w, "  MacroAccuracy:    %.4f\n", m.MacroAccuracy)
	fmt.Fprintf(w, "  LogLoss:          %.4f\n", m.LogLoss)
	fmt.Fprintf(w, "  LogLossReduction: %.4f\n", m.LogLossReduction)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nlabel\ttrain\tlog-loss\tconfusion")
	for i, label := range m.Labels {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%v\n", label, p.Vocabulary().Count(i), m.PerClassLogLoss[i], m.Confusion[i])
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
