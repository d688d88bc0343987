package cmd

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/newsgate/internal/logger"
)

// validationReport is a logger that keeps the warnings emitted by the
// file loaders so they can be printed as a report.
type validationReport struct {
	logger.Logger
	logs *observer.ObservedLogs
}

func newValidationReport() *validationReport {
	core, logs := observer.New(zapcore.WarnLevel)
	return &validationReport{Logger: logger.NewZap(zap.New(core)), logs: logs}
}

func (r *validationReport) problems() []string {
	entries := r.logs.All()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		ctx := e.ContextMap()
		keys := make([]string, 0, len(ctx))
		for k := range ctx {
			if k != "error" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(e.Message)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, ctx[k])
		}
		if errMsg, ok := ctx["error"]; ok {
			fmt.Fprintf(&b, ": %v", errMsg)
		}
		out = append(out, b.String())
	}
	return out
}
