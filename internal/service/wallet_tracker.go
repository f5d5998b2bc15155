package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"walletscope/internal/repository"
)

type walletAnalyzer interface {
	Analyze(ctx context.Context, wallet string, opts AnalysisOptions) (*WalletAnalysis, error)
}

// WalletTracker keeps score snapshots fresh for a configured wallet list.
type WalletTracker struct {
	Analyzer  walletAnalyzer
	Scores    repository.WalletScoreRepository
	Wallets   []string
	Retention time.Duration
	Logger    *zap.Logger
}

type TrackerResult struct {
	Wallets int
	Updated int
	Failed  int
}

func (s *WalletTracker) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Analyzer == nil {
		return nil
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("wallet tracker run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunOnce re-analyzes every tracked wallet in turn. It fails only when no
// wallet could be refreshed.
func (s *WalletTracker) RunOnce(ctx context.Context) (TrackerResult, error) {
	if s == nil || s.Analyzer == nil {
		return TrackerResult{}, nil
	}
	wallets := uniqueWallets(s.Wallets)
	result := TrackerResult{Wallets: len(wallets)}
	var lastErr error
	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.Analyzer.Analyze(ctx, wallet, AnalysisOptions{Force: true}); err != nil {
			result.Failed++
			lastErr = err
			if s.Logger != nil {
				s.Logger.Warn("wallet refresh failed", zap.String("wallet", wallet), zap.Error(err))
			}
			continue
		}
		result.Updated++
	}
	if s.Logger != nil {
		s.Logger.Info("wallet tracker run",
			zap.Int("wallets", result.Wallets),
			zap.Int("updated", result.Updated),
			zap.Int("failed", result.Failed),
		)
	}
	if result.Updated == 0 && lastErr != nil {
		return result, fmt.Errorf("all %d wallet refreshes failed: %w", result.Failed, lastErr)
	}
	return result, nil
}

// PurgeStale removes snapshots not refreshed within the retention period.
func (s *WalletTracker) PurgeStale(ctx context.Context) (int64, error) {
	if s == nil || s.Scores == nil {
		return 0, nil
	}
	if s.Retention <= 0 {
		return 0, errors.New("retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-s.Retention)
	n, err := s.Scores.DeleteWalletScoresBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if s.Logger != nil && n > 0 {
		s.Logger.Info("stale wallet scores purged", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

func uniqueWallets(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
