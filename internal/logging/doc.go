// Package logging provides structured logging for repopackd.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, job.id, request.id)
//   - Encoder-level redaction of sensitive field names and value patterns
//   - Selectable stdout/stderr sink (the CLI keeps stdout for artifacts)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithJobID(ctx, jobID)
//	logger.Info(ctx, "clone finished", zap.Duration("duration", d))
//
// Output includes the correlation fields:
//
//	{"ts":"2026-03-02T10:15:30Z","level":"info","msg":"clone finished","job.id":"5b0c...","duration":"3.2s"}
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "job completed")
//	tl.AssertLogged(t, zapcore.InfoLevel, "job completed")
package logging
