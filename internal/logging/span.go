package logging

import (
	"context"
	"time"
)

const spanErrMaxLen = 32

// Span emits "<prefix>:<op>:START" and returns a context whose logger carries
// the span attribute, plus a cleanup that emits END:OK or END:FAILED with the
// truncated error and elapsed seconds.
//
//	ctx, end := logging.Span(ctx, "GIT", "Push", "workspace", acronym)
//	defer func() { end(err) }()
func Span(ctx context.Context, prefix, op string, kv ...any) (context.Context, func(err error)) {
	startAt := time.Now()
	logger := FromContext(ctx).With(append([]any{"span", prefix + "." + op}, kv...)...)
	ctx = WithLogger(ctx, logger)
	logger.Info(ctx, prefix+":"+op+":START")

	return ctx, func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, prefix+":"+op+":END:OK", "err", "", "elapsed", elapsed)
			return
		}
		logger.Warn(ctx, prefix+":"+op+":END:FAILED", "err", TruncateErr(err), "elapsed", elapsed)
	}
}

// TruncateErr shortens an error message for single-line span records.
func TruncateErr(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > spanErrMaxLen {
		return msg[:spanErrMaxLen] + "..."
	}
	return msg
}
