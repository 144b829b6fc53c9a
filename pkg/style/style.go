// Package style loads the stylesheet that controls how a run is drawn:
// colours per identifier or data structure type, code tracking, panel
// visibility and optional fixed positions.
package style

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/valgo/pkg/layout"
)

// Default colours for drawn structures.
const (
	DefaultTextColor      = "YELLOW"
	DefaultBorderColor    = "BLUE"
	DefaultHighlight      = "YELLOW"
	DefaultAnimationStyle = "FadeToColor"
	DefaultCreationStyle  = "FadeIn"
	DefaultSyntaxStyle    = "inkpot"
)

var (
	dataStructureNames = []string{"Array", "Stack", "Tree"}
	codeTrackingModes  = []string{"stepInto", "stepOver"}
	creationStyles     = []string{"DrawBorderThenFill", "FadeIn", "FadeInFromLarge", "GrowFromCenter", "ShowCreation", "Write"}
	animationStyles    = []string{"ApplyWave", "CircleIndicate", "FadeToColor", "Indicate", "TurnInsideOut", "WiggleOutThenIn"}
	syntaxStyles       = []string{"fruity", "inkpot", "monokai", "native", "paraiso-dark", "solarized-dark", "vim"}

	hexColour = regexp.MustCompile(`^#[a-fA-F0-9]{6}$`)
)

// Animation is the transitional style used while a structure is mutated.
type Animation struct {
	BorderColor    string   `yaml:"borderColor,omitempty" json:"borderColor,omitempty"`
	TextColor      string   `yaml:"textColor,omitempty" json:"textColor,omitempty"`
	Highlight      string   `yaml:"highlight,omitempty" json:"highlight,omitempty"`
	Pointer        *bool    `yaml:"pointer,omitempty" json:"pointer,omitempty"`
	AnimationStyle string   `yaml:"animationStyle,omitempty" json:"animationStyle,omitempty"`
	AnimationTime  *float64 `yaml:"animationTime,omitempty" json:"animationTime,omitempty"`
}

// Properties is the resting style of a variable, structure type or the
// subtitle panel. Unset fields fall back to the type style, then the
// defaults.
type Properties struct {
	BorderColor   string     `yaml:"borderColor,omitempty" json:"borderColor,omitempty"`
	TextColor     string     `yaml:"textColor,omitempty" json:"textColor,omitempty"`
	ShowLabel     *bool      `yaml:"showLabel,omitempty" json:"showLabel,omitempty"`
	CreationStyle string     `yaml:"creationStyle,omitempty" json:"creationStyle,omitempty"`
	CreationTime  *float64   `yaml:"creationTime,omitempty" json:"creationTime,omitempty"`
	Animate       *Animation `yaml:"animate,omitempty" json:"animate,omitempty"`
	Duration      *int       `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// Sheet is a decoded stylesheet.
type Sheet struct {
	CodeTracking            string                     `yaml:"codeTracking" json:"codeTracking"`
	HideCode                bool                       `yaml:"hideCode" json:"hideCode"`
	HideVariables           bool                       `yaml:"hideVariables" json:"hideVariables"`
	SyntaxHighlightingOn    bool                       `yaml:"syntaxHighlightingOn" json:"syntaxHighlightingOn"`
	SyntaxHighlightingStyle string                     `yaml:"syntaxHighlightingStyle" json:"syntaxHighlightingStyle"`
	DisplayNewLinesInCode   bool                       `yaml:"displayNewLinesInCode" json:"displayNewLinesInCode"`
	TabSpacing              int                        `yaml:"tabSpacing" json:"tabSpacing"`
	Subtitles               Properties                 `yaml:"subtitles" json:"subtitles"`
	Variables               map[string]Properties      `yaml:"variables" json:"variables"`
	DataStructures          map[string]Properties      `yaml:"dataStructures" json:"dataStructures"`
	Positions               map[string]layout.Position `yaml:"positions" json:"positions"`
}

// Style is a resolved resting style.
type Style struct {
	BorderColor   string
	TextColor     string
	ShowLabel     bool
	CreationStyle string
}

// AnimatedStyle is a resolved transitional style.
type AnimatedStyle struct {
	BorderColor    string
	TextColor      string
	Highlight      string
	Pointer        bool
	AnimationStyle string
	AnimationTime  float64 // 0 when the instruction keeps the current speed
}

// Default returns the stylesheet used when none is given.
func Default() *Sheet {
	return &Sheet{
		CodeTracking:            "stepInto",
		SyntaxHighlightingOn:    true,
		SyntaxHighlightingStyle: DefaultSyntaxStyle,
		DisplayNewLinesInCode:   true,
		TabSpacing:              2,
		Variables:               map[string]Properties{},
		DataStructures:          map[string]Properties{},
		Positions:               map[string]layout.Position{},
	}
}

// LoadFile reads a stylesheet from path.
func LoadFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stylesheet: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML or JSON stylesheet. Missing fields keep their
// defaults.
func Load(r io.Reader) (*Sheet, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid stylesheet: %w", err)
	}
	for uid, p := range s.Positions {
		if p.Width < 0 || p.Height < 0 {
			return nil, fmt.Errorf("invalid stylesheet: negative size in position of %s", uid)
		}
	}
	return s, nil
}

// Colour normalises a colour name: hex values are kept, anything else is a
// predefined constant in upper case.
func Colour(c string) string {
	if c == "" || hexColour.MatchString(c) {
		return c
	}
	return strings.ToUpper(c)
}

// TypeName maps a structure kind name to the dataStructures key styling it.
func TypeName(kind string) string {
	switch kind {
	case "Array", "Array2D":
		return "Array"
	case "Tree", "Node":
		return "Tree"
	}
	return kind
}

func (s *Sheet) lookup(identifier, typeName string) (Properties, Properties) {
	ds := s.DataStructures[TypeName(typeName)]
	v, ok := s.Variables[identifier]
	if !ok {
		v = ds
	}
	return v, ds
}

// Style resolves the resting style of identifier. The variable entry wins
// over the entry of its type.
func (s *Sheet) Style(identifier, typeName string) Style {
	v, ds := s.lookup(identifier, typeName)
	st := Style{
		BorderColor:   first(v.BorderColor, ds.BorderColor, DefaultBorderColor),
		TextColor:     first(v.TextColor, ds.TextColor, DefaultTextColor),
		CreationStyle: first(v.CreationStyle, ds.CreationStyle),
		ShowLabel:     true,
	}
	if v.ShowLabel != nil {
		st.ShowLabel = *v.ShowLabel
	} else if ds.ShowLabel != nil {
		st.ShowLabel = *ds.ShowLabel
	}
	st.BorderColor = Colour(st.BorderColor)
	st.TextColor = Colour(st.TextColor)
	return st
}

// AnimatedStyle resolves the transitional style of identifier. It returns
// nil when neither the variable nor its type configures one.
func (s *Sheet) AnimatedStyle(identifier, typeName string) *AnimatedStyle {
	v, ds := s.lookup(identifier, typeName)
	if v.Animate == nil && ds.Animate == nil {
		return nil
	}
	var va, da Animation
	if v.Animate != nil {
		va = *v.Animate
	}
	if ds.Animate != nil {
		da = *ds.Animate
	}
	a := &AnimatedStyle{
		BorderColor:    Colour(first(va.BorderColor, da.BorderColor)),
		TextColor:      Colour(first(va.TextColor, da.TextColor, DefaultTextColor)),
		Highlight:      Colour(first(va.Highlight, da.Highlight, DefaultHighlight)),
		AnimationStyle: first(va.AnimationStyle, da.AnimationStyle, DefaultAnimationStyle),
		Pointer:        true,
	}
	if va.Pointer != nil {
		a.Pointer = *va.Pointer
	} else if da.Pointer != nil {
		a.Pointer = *da.Pointer
	}
	if va.AnimationTime != nil {
		a.AnimationTime = *va.AnimationTime
	} else if da.AnimationTime != nil {
		a.AnimationTime = *da.AnimationTime
	}
	return a
}

// SubtitleDuration returns the configured subtitle duration.
func (s *Sheet) SubtitleDuration() (int, bool) {
	if s.Subtitles.Duration == nil {
		return 0, false
	}
	return *s.Subtitles.Duration, true
}

// SubtitleTextColor returns the subtitle text colour or "".
func (s *Sheet) SubtitleTextColor() string {
	return Colour(s.Subtitles.TextColor)
}

// StepIntoDefault reports whether calls and loops are stepped into.
func (s *Sheet) StepIntoDefault() bool {
	return s.CodeTracking == "stepInto"
}

// UserDefinedPositions reports whether the stylesheet fixes any position.
func (s *Sheet) UserDefinedPositions() bool {
	return len(s.Positions) > 0
}

// Position returns the fixed position of uid.
func (s *Sheet) Position(uid string) (layout.Position, bool) {
	p, ok := s.Positions[uid]
	return p, ok
}

// Render reports whether the structure uid is drawn. A position of zero
// width and height hides it.
func (s *Sheet) Render(uid string) bool {
	p, ok := s.Positions[uid]
	return !ok || p.Width != 0 || p.Height != 0
}

// Validate checks the stylesheet against the identifiers of a program.
// Every problem is logged as a warning and returned; invalid enumerated
// values are replaced by their defaults.
func (s *Sheet) Validate(identifiers []string, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		log.Warn("stylesheet", "problem", msg)
	}

	known := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		known[id] = true
	}
	for _, id := range sortedKeys(s.Variables) {
		if !known[id] {
			warn("style defined for undeclared variable %s", id)
		}
	}
	for _, name := range sortedKeys(s.DataStructures) {
		if !contains(dataStructureNames, name) {
			warn("invalid dataStructures entry %s, expected one of %v", name, dataStructureNames)
		}
	}
	if !contains(codeTrackingModes, s.CodeTracking) {
		warn("invalid codeTracking %s, expected one of %v", s.CodeTracking, codeTrackingModes)
		s.CodeTracking = "stepInto"
	}
	if !contains(syntaxStyles, s.SyntaxHighlightingStyle) {
		warn("invalid syntaxHighlightingStyle %s, expected one of %v", s.SyntaxHighlightingStyle, syntaxStyles)
		s.SyntaxHighlightingStyle = DefaultSyntaxStyle
	}
	for _, group := range []map[string]Properties{s.Variables, s.DataStructures} {
		for _, key := range sortedKeys(group) {
			p := group[key]
			if p.CreationStyle != "" && !contains(creationStyles, p.CreationStyle) {
				warn("invalid creationStyle %s for %s", p.CreationStyle, key)
				p.CreationStyle = DefaultCreationStyle
			}
			if p.Animate != nil && p.Animate.AnimationStyle != "" && !contains(animationStyles, p.Animate.AnimationStyle) {
				warn("invalid animationStyle %s for %s", p.Animate.AnimationStyle, key)
				a := *p.Animate
				a.AnimationStyle = DefaultAnimationStyle
				p.Animate = &a
			}
			group[key] = p
		}
	}
	return warnings
}

func first(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}

func sortedKeys(m map[string]Properties) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
