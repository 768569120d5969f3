package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/pipeline"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms gouge job source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: plunge-feed -> plunge_feed
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a geom.Point returned from `pt`.
type sexpPoint struct {
	p geom.Point
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g)", p.p.X, p.p.Y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpLoop wraps a closed contour produced by `rect`, `circle` or `poly`.
type sexpLoop struct {
	loop contour.Loop
}

func (l *sexpLoop) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(loop %d points area %.3g)", len(l.loop.Points), l.loop.Area())
}
func (l *sexpLoop) Type() *zygo.RegisteredType { return nil }

// sexpPrim wraps a loose drawing primitive that still has to be chained
// into loops.
type sexpPrim struct {
	prim contour.Primitive
}

func (p *sexpPrim) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", p.prim)
}
func (p *sexpPrim) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// A trailing keyword is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toFloats extracts n numbers from the front of args.
func toFloats(args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("expected %d numbers, got %d arguments", n, len(args))
	}
	out := make([]float64, n)
	for i := range out {
		f, err := toFloat64(args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_spiral) and plain strings ("spiral").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts true/false, :yes/:no style keywords, and numbers. A bare
// trailing keyword flag counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpFloat:
		return v.Val != 0, nil
	case *zygo.SexpStr:
		name, _ := toKeywordString(v)
		switch strings.ToLower(name) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toPoint extracts a point from a sexpPoint.
func toPoint(s zygo.Sexp) (geom.Point, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.p, nil
	}
	return geom.Point{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toPoints flattens points and lists of points.
func toPoints(args []zygo.Sexp) ([]geom.Point, error) {
	var pts []geom.Point
	for _, a := range args {
		if _, ok := a.(*sexpPoint); !ok {
			if items, err := sexpListToSlice(a); err == nil {
				more, err := toPoints(items)
				if err != nil {
					return nil, err
				}
				pts = append(pts, more...)
				continue
			}
		}
		p, err := toPoint(a)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// collectShapes adds loops and primitives, possibly nested in lists, to r.
func collectShapes(s zygo.Sexp, r *pipeline.Region) error {
	switch v := s.(type) {
	case *sexpLoop:
		r.Loops = append(r.Loops, v.loop)
		return nil
	case *sexpPrim:
		r.Primitives = append(r.Primitives, v.prim)
		return nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
	}
	for _, it := range items {
		if err := collectShapes(it, r); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Parameters
// ---------------------------------------------------------------------------

// setParam assigns one `params` keyword.
func setParam(p *pipeline.Params, key string, v zygo.Sexp) error {
	num := func(dst *float64) error {
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
	switch key {
	case "tool-diameter", "tool_diameter":
		return num(&p.ToolDiameter)
	case "stepover":
		return num(&p.StepoverFraction)
	case "stepdown":
		return num(&p.Stepdown)
	case "depth":
		return num(&p.Depth)
	case "margin":
		return num(&p.Margin)
	case "min-fillet", "min_fillet":
		return num(&p.MinFilletRadius)
	case "max-fillet", "max_fillet":
		return num(&p.MaxFilletRadius)
	case "target-stepover", "target_stepover":
		return num(&p.TargetStepover)
	case "feed":
		return num(&p.FeedXY)
	case "plunge-feed", "plunge_feed":
		return num(&p.PlungeFeed)
	case "safe-z", "safe_z":
		return num(&p.SafeZ)
	case "tolerance":
		return num(&p.Tolerance)
	case "max-passes", "max_passes":
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		if f < 0 || f != math.Trunc(f) {
			return fmt.Errorf("expected a whole number, got %g", f)
		}
		p.MaxPasses = int(f)
	case "strategy":
		s, err := toKeywordString(v)
		if err != nil {
			return err
		}
		p.Strategy = s
	case "climb":
		b, err := toBool(v)
		if err != nil {
			return err
		}
		p.Climb = b
	case "apply-overloads", "apply_overloads":
		b, err := toBool(v)
		if err != nil {
			return err
		}
		p.ApplyOverloads = b
	default:
		return fmt.Errorf("unknown parameter :%s", key)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the job DSL builtins into a zygomys environment.
// The builtins populate job during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, job *pipeline.Job) {

	// -----------------------------------------------------------------------
	// (job "bracket-pockets")
	// -----------------------------------------------------------------------
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("job: expected a name")
		}
		s, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("job: %w", err)
		}
		job.Name = s
		return &zygo.SexpStr{S: s}, nil
	})

	// -----------------------------------------------------------------------
	// (params :tool-diameter 6 :stepover 0.4 :strategy :spiral :climb true)
	// -----------------------------------------------------------------------
	env.AddFunction("params", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("params: unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}
		for k, v := range pa.kw {
			if err := setParam(&job.Params, k, v); err != nil {
				return zygo.SexpNull, fmt.Errorf("params: %s: %w", k, err)
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pt 10 20)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt: expected x and y, got %d arguments", len(args))
		}
		v, err := toFloats(args, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: %w", err)
		}
		return &sexpPoint{p: geom.Pt(v[0], v[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (rect 0 0 100 60)   corner x, y, width, height
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats(args, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		if v[2] <= 0 || v[3] <= 0 {
			return zygo.SexpNull, fmt.Errorf("rect: width and height must be positive, got %g x %g", v[2], v[3])
		}
		return &sexpLoop{loop: contour.Rect(v[0], v[1], v[2], v[3])}, nil
	})

	// -----------------------------------------------------------------------
	// (circle 50 30 12 :tol 0.01)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, err := toFloats(pa.positional, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if v[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", v[2])
		}
		tol := contour.DefaultChordTolerance
		if t, ok := pa.kw["tol"]; ok {
			if tol, err = toFloat64(t); err != nil || tol <= 0 {
				return zygo.SexpNull, fmt.Errorf("circle: tol must be a positive number")
			}
		}
		return &sexpLoop{loop: contour.Circle(geom.Pt(v[0], v[1]), v[2], tol)}, nil
	})

	// -----------------------------------------------------------------------
	// (poly (pt 0 0) (pt 40 0) (pt 20 30))
	// -----------------------------------------------------------------------
	env.AddFunction("poly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pts, err := toPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("poly: %w", err)
		}
		if len(pts) < 3 {
			return zygo.SexpNull, fmt.Errorf("poly: need at least 3 points, got %d", len(pts))
		}
		return &sexpLoop{loop: contour.NewLoop(pts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (line (pt 0 0) (pt 40 0))
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pts, err := toPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		if len(pts) != 2 {
			return zygo.SexpNull, fmt.Errorf("line: expected 2 points, got %d", len(pts))
		}
		return &sexpPrim{prim: contour.Line{A: pts[0], B: pts[1]}}, nil
	})

	// -----------------------------------------------------------------------
	// (polyline (pt 0 0) (pt 10 5) (pt 20 0))   open chain of segments
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pts, err := toPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline: %w", err)
		}
		if len(pts) < 2 {
			return zygo.SexpNull, fmt.Errorf("polyline: need at least 2 points, got %d", len(pts))
		}
		return &sexpPrim{prim: contour.SampledCurve{Pts: pts}}, nil
	})

	// -----------------------------------------------------------------------
	// (arc 0 0 10 0 90 :tol 0.01)   center x, y, radius, start and end
	// angles in degrees; counter-clockwise when end > start
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, err := toFloats(pa.positional, 5)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		if v[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("arc: radius must be positive, got %g", v[2])
		}
		if v[3] == v[4] {
			return zygo.SexpNull, fmt.Errorf("arc: start and end angles are equal")
		}
		tol := contour.DefaultChordTolerance
		if t, ok := pa.kw["tol"]; ok {
			if tol, err = toFloat64(t); err != nil || tol <= 0 {
				return zygo.SexpNull, fmt.Errorf("arc: tol must be a positive number")
			}
		}
		rad := math.Pi / 180
		c := contour.SampleArc(geom.Pt(v[0], v[1]), v[2], v[3]*rad, v[4]*rad, tol)
		return &sexpPrim{prim: c}, nil
	})

	// -----------------------------------------------------------------------
	// (pocket "window" (rect 0 0 100 60) (circle 50 30 10))
	// -----------------------------------------------------------------------
	env.AddFunction("pocket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("pocket: expected a name")
		}
		regionName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pocket: name: %w", err)
		}
		for _, r := range job.Regions {
			if r.Name == regionName {
				return zygo.SexpNull, fmt.Errorf("pocket: duplicate name %q", regionName)
			}
		}
		region := pipeline.Region{Name: regionName}
		for _, a := range args[1:] {
			if err := collectShapes(a, &region); err != nil {
				return zygo.SexpNull, fmt.Errorf("pocket %q: %w", regionName, err)
			}
		}
		if len(region.Loops) == 0 && len(region.Primitives) == 0 {
			return zygo.SexpNull, fmt.Errorf("pocket %q: no shapes", regionName)
		}
		job.Regions = append(job.Regions, region)
		return &zygo.SexpStr{S: regionName}, nil
	})
}
