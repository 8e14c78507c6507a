package router

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

var dynamicSegmentNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

type pathSegment struct {
	name    string
	isParam bool
}

type route struct {
	pattern     string
	segments    []pathSegment
	staticCount int
	patternKey  string
}

type Match struct {
	Pattern string
	Params  map[string]string
}

func (m Match) Param(name string) (string, bool) {
	if m.Params == nil {
		return "", false
	}

	value, ok := m.Params[name]
	return value, ok
}

// Router matches request paths against patterns such as "/blog/[id]".
// Patterns with more static segments win over wildcard ones.
type Router struct {
	routes []route
}

func New(patterns ...string) (*Router, error) {
	if len(patterns) == 0 {
		return nil, errors.New("router needs at least one pattern")
	}

	routes := make([]route, 0, len(patterns))
	seenPattern := make(map[string]string, len(patterns))
	for _, pattern := range patterns {
		parsed, err := parseRoute(pattern)
		if err != nil {
			return nil, err
		}
		if existing, ok := seenPattern[parsed.patternKey]; ok {
			return nil, fmt.Errorf("route pattern conflict: %q and %q", existing, parsed.pattern)
		}
		seenPattern[parsed.patternKey] = parsed.pattern
		routes = append(routes, parsed)
	}

	sort.SliceStable(routes, func(i int, j int) bool {
		left := routes[i]
		right := routes[j]

		if left.staticCount != right.staticCount {
			return left.staticCount > right.staticCount
		}
		if len(left.segments) != len(right.segments) {
			return len(left.segments) > len(right.segments)
		}
		return left.pattern < right.pattern
	})

	return &Router{routes: routes}, nil
}

func parseRoute(pattern string) (route, error) {
	parts := splitPathSegments(pattern)
	segments := make([]pathSegment, 0, len(parts))
	patternParts := make([]string, 0, len(parts))
	staticCount := 0

	for _, part := range parts {
		name, isParam, err := parseWildcardSegment(part)
		if err != nil {
			return route{}, fmt.Errorf("route %q: %w", pattern, err)
		}

		if isParam {
			segments = append(segments, pathSegment{name: name, isParam: true})
			patternParts = append(patternParts, ":")
			continue
		}

		segments = append(segments, pathSegment{name: part})
		patternParts = append(patternParts, part)
		staticCount++
	}

	return route{
		pattern:     "/" + strings.Join(parts, "/"),
		segments:    segments,
		staticCount: staticCount,
		patternKey:  "/" + strings.Join(patternParts, "/"),
	}, nil
}

func parseWildcardSegment(segment string) (string, bool, error) {
	if strings.HasPrefix(segment, "[") || strings.HasSuffix(segment, "]") {
		if !strings.HasPrefix(segment, "[") || !strings.HasSuffix(segment, "]") {
			return "", false, fmt.Errorf("invalid wildcard segment %q", segment)
		}

		name := strings.TrimSpace(segment[1 : len(segment)-1])
		if !dynamicSegmentNamePattern.MatchString(name) {
			return "", false, fmt.Errorf("invalid wildcard name %q", name)
		}

		return name, true, nil
	}

	if strings.ContainsAny(segment, "[]") {
		return "", false, fmt.Errorf("invalid static segment %q", segment)
	}

	return "", false, nil
}

func (router *Router) Match(requestPath string) (Match, bool) {
	requestSegments := splitPathSegments(requestPath)

	for _, candidate := range router.routes {
		params, ok := matchSegments(candidate.segments, requestSegments)
		if !ok {
			continue
		}
		return Match{Pattern: candidate.pattern, Params: params}, true
	}

	return Match{}, false
}

// MatchPathPattern matches a single pattern without building a Router.
func MatchPathPattern(pattern string, requestPath string) (map[string]string, bool) {
	parsed, err := parseRoute(pattern)
	if err != nil {
		return nil, false
	}

	return matchSegments(parsed.segments, splitPathSegments(requestPath))
}

func matchSegments(segments []pathSegment, requestSegments []string) (map[string]string, bool) {
	if len(segments) != len(requestSegments) {
		return nil, false
	}

	var params map[string]string
	for idx, segment := range segments {
		requestValue := requestSegments[idx]
		if !segment.isParam {
			if segment.name != requestValue {
				return nil, false
			}
			continue
		}
		if params == nil {
			params = make(map[string]string, 1)
		}
		params[segment.name] = requestValue
	}

	return params, true
}

func splitPathSegments(raw string) []string {
	cleaned := path.Clean("/" + strings.TrimSpace(raw))
	if cleaned == "/" {
		return []string{}
	}

	return strings.Split(strings.Trim(cleaned, "/"), "/")
}
