package origin

import (
	"log/slog"
	"regexp"
	"strings"
)

// placeholderPattern matches positional operand references like $0 and $12.
var placeholderPattern = regexp.MustCompile(`\$\d+`)

// encodingArtifacts are serialization prefixes some planners leak into
// literal text; they are stripped from synthesized transforms.
var encodingArtifacts = []string{"_UTF-16LE"}

// SynthesizeTransform substitutes the distinct $N placeholders of expr with
// minimally qualified origin names, assigned in placeholder encounter order.
// It reports failure when expr has no placeholders or when the placeholder
// count does not match the number of distinct origin names; the caller is
// expected to fall back to a plain derived marker.
func SynthesizeTransform(set *Set, expr string, logger *slog.Logger) (string, bool) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("synthesizing transform", slog.String("expr", expr))

	var placeholders []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllString(expr, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		placeholders = append(placeholders, m)
	}
	if len(placeholders) == 0 {
		logger.Debug("no operand placeholders in expression", slog.String("expr", expr))
		return "", false
	}

	if set.Len() != len(placeholders) {
		logger.Warn("origin count does not match operand placeholders",
			slog.Int("origins", set.Len()),
			slog.Int("placeholders", len(placeholders)),
			slog.String("expr", expr))
		return "", false
	}

	// Qualification can collapse distinct origins into one rendered name;
	// a collapsed set cannot be zipped with the placeholders either.
	names := QualifiedFieldNames(set)
	if len(names) != len(placeholders) {
		logger.Warn("qualified names collapsed below placeholder count",
			slog.Int("names", len(names)),
			slog.Int("placeholders", len(placeholders)))
		return "", false
	}

	byPlaceholder := make(map[string]string, len(placeholders))
	for i, p := range placeholders {
		byPlaceholder[p] = names[i]
	}

	out := placeholderPattern.ReplaceAllStringFunc(expr, func(p string) string {
		return byPlaceholder[p]
	})
	for _, artifact := range encodingArtifacts {
		out = strings.ReplaceAll(out, artifact, "")
	}
	logger.Debug("synthesized transform", slog.String("transform", out))
	return out, true
}
