package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/pkg/logger"
)

// RunFile evaluates cfg.DataPath and writes the markdown report to cfg.OutPath,
// or to out when no path is set. The terminal summary goes to out either way.
func RunFile(ctx context.Context, cfg *Config, engine *classify.Engine, out io.Writer) error {
	start := time.Now()
	logger.Get().Info(ctx, "evaluating accounts file",
		logger.String("dataPath", cfg.DataPath),
		logger.Bool("strict", cfg.Strict))

	ev, err := Evaluate(ctx, cfg.DataPath, engine, cfg.Strict)
	if err != nil {
		return err
	}

	if cfg.OutPath == "" {
		if err := RenderMarkdown(out, ev, cfg.Top); err != nil {
			return err
		}
	} else {
		if err := WriteMarkdown(ctx, cfg.OutPath, ev, cfg.Top); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, RenderSummary(ev, cfg.Top)); err != nil {
			return err
		}
	}

	logger.Get().Info(ctx, "report completed",
		logger.Int("accounts", len(ev.Accounts)),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// RunVerify evaluates cfg.DataPath locally and checks the service at
// cfg.BaseURL against it. It fails with ErrVerificationFailed when any check
// disagrees.
func RunVerify(ctx context.Context, cfg *Config, engine *classify.Engine, out io.Writer) error {
	logger.Get().Info(ctx, "starting verification",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("dataPath", cfg.DataPath),
		logger.Int("top", cfg.Top),
		logger.Duration("timeout", cfg.Timeout))

	ev, err := Evaluate(ctx, cfg.DataPath, engine, cfg.Strict)
	if err != nil {
		return err
	}

	v, err := Verify(ctx, NewHTTPClient(cfg.BaseURL, cfg.Timeout), ev, cfg.Top)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, RenderVerification(v)); err != nil {
		return err
	}
	if !v.Passed() {
		return fmt.Errorf("%w: %d of %d checks", ErrVerificationFailed, len(v.Failed()), len(v.Checks))
	}
	return nil
}
