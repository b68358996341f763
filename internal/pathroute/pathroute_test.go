package pathroute

import "testing"

// TestParse_RecognizedShapes verifies each of the four workspace directory
// shapes produces the expected descriptor.
func TestParse_RecognizedShapes(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name string
		path string
		want ParsedPath
	}{
		{
			name: "template",
			path: "/work/sync/template_sets/Default Templates/Header/header.html",
			want: ParsedPath{
				Kind:      KindTemplate,
				SetName:   "Default Templates",
				GroupName: "Header",
				Leaf:      "header",
			},
		},
		{
			name: "template relative path",
			path: "template_sets/MySet/Calendar/calendar_mini.html",
			want: ParsedPath{
				Kind:      KindTemplate,
				SetName:   "MySet",
				GroupName: "Calendar",
				Leaf:      "calendar_mini",
			},
		},
		{
			name: "stylesheet under styles",
			path: "/work/sync/styles/Default/global.css",
			want: ParsedPath{
				Kind:      KindStylesheet,
				ThemeName: "Default",
				Leaf:      "global",
			},
		},
		{
			name: "stylesheet under themes",
			path: "/work/sync/themes/Dark Mode/usercp.css",
			want: ParsedPath{
				Kind:      KindStylesheet,
				ThemeName: "Dark Mode",
				Leaf:      "usercp",
			},
		},
		{
			name: "plugin template master destination",
			path: "/work/plugins/public/dice_roller/templates/main.html",
			want: ParsedPath{
				Kind:     KindPluginTemplate,
				Codename: "dice_roller",
				Leaf:     "main",
			},
		},
		{
			name: "plugin template private visibility",
			path: "/work/plugins/private/secret_tool/templates/panel.html",
			want: ParsedPath{
				Kind:     KindPluginTemplate,
				Codename: "secret_tool",
				Leaf:     "panel",
			},
		},
		{
			name: "plugin template themed destination with spaces",
			path: "/work/plugins/public/dice_roller/templates_themes/Mobile Templates/main.html",
			want: ParsedPath{
				Kind:      KindPluginTemplate,
				Codename:  "dice_roller",
				ThemeName: "Mobile Templates",
				Leaf:      "main",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Parse(tt.path)
			if got.Kind != tt.want.Kind {
				t.Fatalf("Parse(%q).Kind = %v, want %v", tt.path, got.Kind, tt.want.Kind)
			}
			if got.SetName != tt.want.SetName {
				t.Errorf("SetName = %q, want %q", got.SetName, tt.want.SetName)
			}
			if got.ThemeName != tt.want.ThemeName {
				t.Errorf("ThemeName = %q, want %q", got.ThemeName, tt.want.ThemeName)
			}
			if got.GroupName != tt.want.GroupName {
				t.Errorf("GroupName = %q, want %q", got.GroupName, tt.want.GroupName)
			}
			if got.Codename != tt.want.Codename {
				t.Errorf("Codename = %q, want %q", got.Codename, tt.want.Codename)
			}
			if got.Leaf != tt.want.Leaf {
				t.Errorf("Leaf = %q, want %q", got.Leaf, tt.want.Leaf)
			}
		})
	}
}

// TestParse_IgnoredPaths verifies malformed or uninteresting paths classify
// as ignored without error.
func TestParse_IgnoredPaths(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name string
		path string
	}{
		{"temp suffix", "/work/sync/template_sets/Default/Header/header.html.tmp"},
		{"wrong template extension", "/work/sync/template_sets/Default/Header/header.css"},
		{"wrong stylesheet extension", "/work/sync/styles/Default/global.html"},
		{"template missing group depth", "/work/sync/template_sets/Default/header.html"},
		{"stylesheet missing theme depth", "/work/sync/styles/global.css"},
		{"plugin wrong visibility", "/work/plugins/shared/dice_roller/templates/main.html"},
		{"plugin missing templates segment", "/work/plugins/public/dice_roller/main.html"},
		{"plugin themed missing theme depth", "/work/plugins/public/dice_roller/templates_themes/main.html"},
		{"unrelated file", "/work/notes/readme.md"},
		{"directory-looking path", "/work/sync/template_sets"},
		{"empty stem", "/work/sync/styles/Default/.css"},
		{"editor swap file", "/work/sync/template_sets/Default/Header/.header.html.swp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Parse(tt.path)
			if got.Kind != KindIgnored {
				t.Errorf("Parse(%q).Kind = %v, want ignored", tt.path, got.Kind)
			}
		})
	}
}

// TestParse_FirstMatchWins verifies the template rule takes precedence when a
// path could superficially resemble several shapes.
func TestParse_FirstMatchWins(t *testing.T) {
	r := NewRouter()

	// "themes" as a set name must still classify by the template_sets anchor.
	got := r.Parse("/work/sync/template_sets/themes/Header/header.html")
	if got.Kind != KindTemplate {
		t.Fatalf("Kind = %v, want template", got.Kind)
	}
	if got.SetName != "themes" {
		t.Errorf("SetName = %q, want %q", got.SetName, "themes")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindIgnored, "ignored"},
		{KindTemplate, "template"},
		{KindStylesheet, "stylesheet"},
		{KindPluginTemplate, "plugin_template"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
