package llm

import (
	"context"
	"log/slog"
)

// Service is the analysis entry point used by ingestion. It never fails:
// when the primary analyzer errors the stub answers instead, and partial
// primary results are discarded.
type Service struct {
	primary  Analyzer
	fallback *StubAnalyzer
	logger   *slog.Logger
}

// NewService wires a primary analyzer with the stub fallback. A nil primary
// means stub-only operation.
func NewService(primary Analyzer, fallback *StubAnalyzer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = NewStubAnalyzer(nil, 0)
	}
	return &Service{primary: primary, fallback: fallback, logger: logger}
}

func (s *Service) Name() string {
	if s.primary == nil {
		return s.fallback.Name()
	}
	return s.primary.Name()
}

func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) CardAttributes {
	if s.primary == nil {
		return s.fallback.Generate(ctx)
	}
	attrs, err := s.primary.Analyze(ctx, req)
	if err != nil {
		s.logger.Warn("llm.analyze.fallback",
			"analyzer", s.primary.Name(),
			"image", req.ImagePath,
			"error", err,
		)
		return s.fallback.Generate(ctx)
	}
	return attrs
}
