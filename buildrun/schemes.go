package buildrun

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/internal/fsutil"
)

// schemeEnumTimeout and schemeEnumRetries bound scheme enumeration to
// 60s per project with up to two retries (three attempts total).
const (
	schemeEnumTimeout = 60 * time.Second
	schemeEnumRetries = 2
)

// EnumerateSchemes invokes the build tool's list-schemes action on
// proj, extracts the names between the "Schemes:" header and the next
// blank line, retrying transient failures.
func EnumerateSchemes(ctx context.Context, proj ProjectRef) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= schemeEnumRetries; attempt++ {
		names, err := enumerateSchemesOnce(ctx, proj)
		if err == nil {
			return names, nil
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "enumerating schemes for %s after %d attempts", proj.Path, schemeEnumRetries+1)
}

func enumerateSchemesOnce(ctx context.Context, proj ProjectRef) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, schemeEnumTimeout)
	defer cancel()

	args := []string{"-list"}
	if proj.Kind == KindWorkspace {
		args = append(args, "-workspace", proj.Path)
	} else {
		args = append(args, "-project", proj.Path)
	}

	res, err := fsutil.Run(ctx, "", 5*time.Second, "xcodebuild", args...)
	if err != nil {
		return nil, err
	}
	out := string(res.Stdout)
	if strings.Contains(out, "contains no schemes") || strings.Contains(out, "There are no schemes") {
		return nil, nil
	}

	names, err := parseSchemeList(out)
	if err != nil {
		return nil, &NoSharedSchemesError{Project: proj.Path}
	}
	return names, nil
}

// parseSchemeList extracts scheme names between a "Schemes:" header
// line and the first empty line that follows.
func parseSchemeList(out string) ([]string, error) {
	lines := strings.Split(out, "\n")
	i := 0
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "Schemes:" {
			break
		}
	}
	if i == len(lines) {
		return nil, errors.New("no \"Schemes:\" header found in xcodebuild -list output")
	}
	i++

	var names []string
	for ; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			break
		}
		names = append(names, l)
	}
	return names, nil
}
