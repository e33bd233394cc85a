package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Brownie44l1/plantify/internal/analysis"
	"github.com/Brownie44l1/plantify/internal/imaging"
)

func (a *app) predict(ctx context.Context, out io.Writer, path string) error {
	bundle := a.loadResources()
	defer bundle.Close()

	if !bundle.Ready() {
		return fmt.Errorf("%w:\n  %s", analysis.ErrNotReady, strings.Join(bundle.Errors(), "\n  "))
	}
	return runPredict(ctx, analysis.NewService(bundle, a.logger, 0), out, path)
}

func runPredict(ctx context.Context, svc *analysis.Service, out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := svc.Decode(f, path, imaging.ModeUpload)
	if err != nil {
		return err
	}

	outcome, err := svc.Analyze(ctx, img)
	if err != nil {
		return err
	}

	p := outcome.Prediction
	fmt.Fprintf(out, "Detected Disease: %s\n", p.Class)
	fmt.Fprintf(out, "Confidence:       %s (%s)\n", p.ConfidencePercent(), p.Tier)
	fmt.Fprintln(out, p.Tier.Message())
	fmt.Fprintln(out, strings.Repeat("-", 44))

	r := outcome.Report
	if r.Title != "" {
		fmt.Fprintln(out, r.Title)
	}
	if r.Message != "" {
		fmt.Fprintln(out, r.Message)
	}
	for _, s := range r.Sections {
		fmt.Fprintf(out, "%s: %s\n", s.Name, s.Body)
	}
	return nil
}
