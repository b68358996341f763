// Package pathroute classifies workspace file paths into typed descriptors.
//
// The sync engine watches a workspace tree containing MyBB template sets,
// stylesheet themes, and plugin-owned templates. Every filesystem event is
// classified by an ordered list of matcher rules; paths that fit none of the
// recognized directory shapes resolve to KindIgnored with no error. The
// watcher observes many incidental events (temp files, directory metadata)
// that must be dropped cheaply, so unmatched paths are never a failure.
package pathroute

import (
	"path"
	"path/filepath"
	"strings"
)

// TempSuffix marks in-progress atomic writes. Files carrying this suffix are
// always classified KindIgnored so a half-written export never triggers an
// import.
const TempSuffix = ".tmp"

// Kind identifies what a workspace path refers to.
type Kind int

const (
	// KindIgnored is any path outside the recognized directory shapes.
	KindIgnored Kind = iota
	// KindTemplate is a template under template_sets/{set}/{group}/.
	KindTemplate
	// KindStylesheet is a stylesheet under styles/{theme}/ or themes/{theme}/.
	KindStylesheet
	// KindPluginTemplate is a plugin-owned template under plugins/.
	KindPluginTemplate
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindTemplate:
		return "template"
	case KindStylesheet:
		return "stylesheet"
	case KindPluginTemplate:
		return "plugin_template"
	default:
		return "unknown"
	}
}

// ParsedPath is the typed result of classifying one workspace path.
// Only the fields relevant to the Kind are populated.
type ParsedPath struct {
	// Kind discriminates which of the shape-specific fields are meaningful.
	Kind Kind
	// SetName is the template set display name (KindTemplate).
	SetName string
	// ThemeName is the stylesheet theme display name (KindStylesheet), or
	// the destination theme for a themed plugin template. Empty for a plugin
	// template targeting the master set.
	ThemeName string
	// GroupName is the template organizational group (KindTemplate).
	GroupName string
	// Codename is the owning plugin's codename (KindPluginTemplate).
	Codename string
	// Leaf is the template/stylesheet title derived from the filename
	// without its extension.
	Leaf string
	// Path is the cleaned input path, kept for diagnostics.
	Path string
}

// rule matches one recognized directory shape. Rules are evaluated in order;
// the first match wins.
type rule struct {
	name  string
	match func(segs []string) (ParsedPath, bool)
}

// Router classifies workspace paths using an ordered rule list.
type Router struct {
	rules []rule
}

// NewRouter creates a Router with the standard workspace rules:
//
//  1. template_sets/{set}/{group}/{leaf}.html     -> template
//  2. styles|themes/{theme}/{leaf}.css            -> stylesheet
//  3. plugins/{vis}/{codename}/templates/{leaf}.html            -> plugin template (master)
//  4. plugins/{vis}/{codename}/templates_themes/{theme}/{leaf}.html -> plugin template (themed)
func NewRouter() *Router {
	return &Router{
		rules: []rule{
			{name: "template", match: matchTemplate},
			{name: "stylesheet", match: matchStylesheet},
			{name: "plugin_template", match: matchPluginTemplate},
			{name: "plugin_template_themed", match: matchPluginTemplateThemed},
		},
	}
}

// Parse classifies a path. Absolute and relative paths are both accepted;
// only the trailing segments matter. Malformed paths never produce an error,
// they classify as KindIgnored.
func (r *Router) Parse(p string) ParsedPath {
	clean := filepath.ToSlash(filepath.Clean(p))
	ignored := ParsedPath{Kind: KindIgnored, Path: clean}

	if strings.HasSuffix(clean, TempSuffix) {
		return ignored
	}

	segs := splitSegments(clean)
	for _, ru := range r.rules {
		if pp, ok := ru.match(segs); ok {
			pp.Path = clean
			return pp
		}
	}
	return ignored
}

// splitSegments splits a slash path into non-empty segments.
func splitSegments(p string) []string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

// leafName returns the filename without its extension, requiring the given
// extension (case-insensitive). Empty stems are rejected.
func leafName(filename, ext string) (string, bool) {
	e := path.Ext(filename)
	if !strings.EqualFold(e, ext) {
		return "", false
	}
	stem := filename[:len(filename)-len(e)]
	if stem == "" {
		return "", false
	}
	return stem, true
}

// matchTemplate recognizes .../template_sets/{set}/{group}/{leaf}.html.
func matchTemplate(segs []string) (ParsedPath, bool) {
	n := len(segs)
	if n < 4 || segs[n-4] != "template_sets" {
		return ParsedPath{}, false
	}
	leaf, ok := leafName(segs[n-1], ".html")
	if !ok {
		return ParsedPath{}, false
	}
	return ParsedPath{
		Kind:      KindTemplate,
		SetName:   segs[n-3],
		GroupName: segs[n-2],
		Leaf:      leaf,
	}, true
}

// matchStylesheet recognizes .../styles/{theme}/{leaf}.css and the legacy
// themes/ spelling of the same shape.
func matchStylesheet(segs []string) (ParsedPath, bool) {
	n := len(segs)
	if n < 3 || (segs[n-3] != "styles" && segs[n-3] != "themes") {
		return ParsedPath{}, false
	}
	leaf, ok := leafName(segs[n-1], ".css")
	if !ok {
		return ParsedPath{}, false
	}
	return ParsedPath{
		Kind:      KindStylesheet,
		ThemeName: segs[n-2],
		Leaf:      leaf,
	}, true
}

// pluginVisibility reports whether a plugins/ child segment is one of the
// recognized visibility buckets.
func pluginVisibility(seg string) bool {
	return seg == "public" || seg == "private"
}

// matchPluginTemplate recognizes
// .../plugins/{visibility}/{codename}/templates/{leaf}.html.
func matchPluginTemplate(segs []string) (ParsedPath, bool) {
	n := len(segs)
	if n < 5 || segs[n-5] != "plugins" || !pluginVisibility(segs[n-4]) || segs[n-2] != "templates" {
		return ParsedPath{}, false
	}
	leaf, ok := leafName(segs[n-1], ".html")
	if !ok {
		return ParsedPath{}, false
	}
	return ParsedPath{
		Kind:     KindPluginTemplate,
		Codename: segs[n-3],
		Leaf:     leaf,
	}, true
}

// matchPluginTemplateThemed recognizes
// .../plugins/{visibility}/{codename}/templates_themes/{theme}/{leaf}.html.
// The theme segment may contain spaces.
func matchPluginTemplateThemed(segs []string) (ParsedPath, bool) {
	n := len(segs)
	if n < 6 || segs[n-6] != "plugins" || !pluginVisibility(segs[n-5]) || segs[n-3] != "templates_themes" {
		return ParsedPath{}, false
	}
	leaf, ok := leafName(segs[n-1], ".html")
	if !ok {
		return ParsedPath{}, false
	}
	return ParsedPath{
		Kind:      KindPluginTemplate,
		Codename:  segs[n-4],
		ThemeName: segs[n-2],
		Leaf:      leaf,
	}, true
}
