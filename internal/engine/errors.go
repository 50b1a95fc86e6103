package engine

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`(?i)with name (\S+?) does not exist`),
	regexp.MustCompile(`(?i)function (\w+)\s*\(`),
}

// ClassifyError converts an engine error into *core.ExecutionError,
// inferring the kind and offending identifier from the message.
func ClassifyError(err error) *core.ExecutionError {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	var te *timeoutError
	if errors.As(err, &te) {
		return &core.ExecutionError{EngineMessage: te.Error(), Kind: core.KindTimeout}
	}
	msg := rootMessage(err)
	kind := InferKind(msg)
	if errors.Is(err, context.DeadlineExceeded) {
		kind = core.KindTimeout
	}
	return &core.ExecutionError{
		EngineMessage: msg,
		Kind:          kind,
		Identifier:    offendingIdentifier(msg),
	}
}

// InferKind classifies an engine message. More specific categories are
// checked first.
func InferKind(message string) core.DiagnosticKind {
	m := strings.ToLower(message)
	missing := strings.Contains(m, "not found") || strings.Contains(m, "does not exist") || strings.Contains(m, "no function matches")

	switch {
	case strings.Contains(m, "function") && missing:
		return core.KindFunctionNotFound
	case strings.Contains(m, "syntax"):
		return core.KindSyntaxError
	case strings.Contains(m, "permission") || strings.Contains(m, "access denied"):
		return core.KindPermissionDenied
	case strings.Contains(m, "column") && missing:
		return core.KindColumnNotFound
	case (strings.Contains(m, "table") || strings.Contains(m, "relation")) && missing:
		return core.KindTableNotFound
	case strings.Contains(m, "timeout") || strings.Contains(m, "deadline exceeded") || strings.Contains(m, "canceling statement"):
		return core.KindTimeout
	}
	return core.KindExecutionError
}

func offendingIdentifier(message string) string {
	for _, re := range identifierPatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	return ""
}

// rootMessage drops wrapping prefixes added by adapters.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
