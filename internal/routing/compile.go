// Package routing implements the path router: route templates are compiled
// into prioritized matchers so that static routes always beat parameterized
// ones and parameterized ones always beat catch-alls, and nested routers can
// be mounted under rewritable prefixes.
package routing

import (
	"regexp"
	"strings"
	"sync"
)

// Segment specificity scores, summed over a template to order matching.
const (
	scoreStatic   = 1
	scoreParam    = -1
	scoreOptional = -5
	scoreCatchAll = -10
)

// CompiledMeta is the immutable result of compiling one route template.
// Compilation is memoized by the literal template string; callers share the
// cached value and must never mutate it.
type CompiledMeta struct {
	Template   string
	ParamNames []string
	IsCatchAll bool
	IsOptional bool
	Priority   int

	// route anchors both ends (tolerating one trailing slash); prefix
	// anchors the start only. RE2 has no lookahead, so the /-or-end
	// boundary after a prefix match is checked by MatchPrefix itself.
	route  *regexp.Regexp
	prefix *regexp.Regexp
}

var (
	compileMu    sync.RWMutex
	compileCache = make(map[string]*CompiledMeta)
)

// Compile parses a route template such as /users/[id]/[...rest] into a
// matcher. Any string is accepted; an empty template matches only "/".
func Compile(template string) *CompiledMeta {
	compileMu.RLock()
	meta, ok := compileCache[template]
	compileMu.RUnlock()
	if ok {
		return meta
	}

	compileMu.Lock()
	defer compileMu.Unlock()
	if meta, ok := compileCache[template]; ok {
		return meta
	}

	meta = compile(template)
	compileCache[template] = meta
	return meta
}

func compile(template string) *CompiledMeta {
	meta := &CompiledMeta{Template: template}

	var pattern strings.Builder
	for _, seg := range strings.Split(template, "/") {
		if seg == "" {
			continue
		}
		switch {
		case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
			meta.ParamNames = append(meta.ParamNames, seg[4:len(seg)-1])
			meta.IsCatchAll = true
			meta.Priority += scoreCatchAll
			pattern.WriteString("/(.+)")
		case strings.HasPrefix(seg, "[[") && strings.HasSuffix(seg, "]]"):
			meta.ParamNames = append(meta.ParamNames, seg[2:len(seg)-2])
			meta.IsOptional = true
			meta.Priority += scoreOptional
			pattern.WriteString("(?:/([^/]+))?")
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			meta.ParamNames = append(meta.ParamNames, seg[1:len(seg)-1])
			meta.Priority += scoreParam
			pattern.WriteString("/([^/]+)")
		default:
			meta.Priority += scoreStatic
			pattern.WriteString("/" + regexp.QuoteMeta(seg))
		}
	}

	body := pattern.String()
	meta.route = regexp.MustCompile("^" + body + "/?$")
	meta.prefix = regexp.MustCompile("^" + body)
	return meta
}

// MatchRoute matches a full (already normalized) path against the template.
// Parameters are bound in declaration order; a single-name catch-all binds
// the entire remainder as one string, slashes included.
func (m *CompiledMeta) MatchRoute(path string) (map[string]string, bool) {
	groups := m.route.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}
	return m.bindParams(groups), true
}

// MatchPrefix matches the template as a mount prefix at offset 0 and
// returns the bound parameters plus the residual path ("/" when the prefix
// consumed everything). A prefix only matches at a segment boundary:
// /users must not claim /users2.
func (m *CompiledMeta) MatchPrefix(path string) (params map[string]string, rest string, ok bool) {
	loc := m.prefix.FindStringSubmatchIndex(path)
	if loc == nil || loc[0] != 0 {
		return nil, "", false
	}

	rest = path[loc[1]:]
	if rest != "" && rest[0] != '/' {
		return nil, "", false
	}
	if rest == "" {
		rest = "/"
	}

	groups := make([]string, 0, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
		} else {
			groups = append(groups, path[loc[i]:loc[i+1]])
		}
	}
	return m.bindParams(groups), rest, true
}

func (m *CompiledMeta) bindParams(groups []string) map[string]string {
	if len(m.ParamNames) == 0 {
		return nil
	}
	params := make(map[string]string, len(m.ParamNames))
	for i, name := range m.ParamNames {
		if i+1 >= len(groups) {
			break
		}
		// unmatched optional segments bind nothing
		if groups[i+1] == "" && m.IsOptional {
			continue
		}
		params[name] = groups[i+1]
	}
	return params
}
