package recipe

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/magicphoto/relief/pkg/tessellate"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites recipe source into something zygomys accepts:
//
//   - ; line comments become // comments
//   - :keyword becomes the string literal "__kw_keyword"
//   - kebab-case identifiers become snake_case (depth-range -> depth_range),
//     since zygomys reads a hyphen as subtraction
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	var out strings.Builder
	out.Grow(len(b) + len(b)/4)

	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out.Write(b[i:j])
			i = j

		case c == ';':
			j := i
			for j < len(b) && b[j] == ';' {
				j++
			}
			k := j
			for k < len(b) && b[k] != '\n' {
				k++
			}
			out.WriteString("//")
			out.Write(b[j:k])
			i = k

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix)
			out.Write(b[i+1 : j])
			out.WriteByte('"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal starting at i.
func skipString(b []byte, i int) int {
	quote := b[i]
	j := i + 1
	for j < len(b) && b[j] != quote {
		if quote == '"' && b[j] == '\\' && j+1 < len(b) {
			j += 2
			continue
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
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

// ---------------------------------------------------------------------------
// Values passed through the zygomys environment
// ---------------------------------------------------------------------------

// sexpOptions is what relief returns, mostly so the REPL prints something
// useful.
type sexpOptions struct {
	opts tessellate.Options
}

func (s *sexpOptions) SexpString(ps *zygo.PrintState) string {
	o := s.opts
	return fmt.Sprintf("(relief :extent %g :relief %g :scale %g :min-depth %g :max-depth %g :clip %g :winding :%s :workers %d)",
		o.Extent, o.Relief, o.Scale, o.MinDepth, o.MaxDepth, o.ClipPercent, o.Winding, o.Workers)
}
func (s *sexpOptions) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional+keyword argument list. order keeps the
// keywords in source order so errors are reported deterministically.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if _, seen := res.kw[name]; !seen {
			res.order = append(res.order, name)
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %s", s.SexpString(nil))
}

// toKeywordString accepts a keyword (:cw) or a plain string ("cw").
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected keyword, got %s", s.SexpString(nil))
}

func toWinding(s zygo.Sexp) (tessellate.Winding, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	switch name {
	case "ccw":
		return tessellate.WindingCCW, nil
	case "cw":
		return tessellate.WindingCW, nil
	}
	return 0, fmt.Errorf("invalid winding %q, expected ccw or cw", name)
}

// applyOption sets one relief keyword on opts.
func applyOption(opts *tessellate.Options, name string, v zygo.Sexp) error {
	var err error
	switch name {
	case "extent":
		opts.Extent, err = toFloat32(v)
	case "relief":
		opts.Relief, err = toFloat32(v)
	case "scale":
		opts.Scale, err = toFloat32(v)
	case "min-depth":
		opts.MinDepth, err = toFloat32(v)
	case "max-depth":
		opts.MaxDepth, err = toFloat32(v)
	case "clip":
		opts.ClipPercent, err = toFloat64(v)
	case "winding":
		opts.Winding, err = toWinding(v)
	case "workers":
		opts.Workers, err = toInt(v)
	default:
		return fmt.Errorf("unknown option :%s", name)
	}
	return err
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the recipe builtins into env. They write into
// opts as the program runs.
func registerBuiltins(env *zygo.Zlisp, opts *tessellate.Options) {

	// (relief :extent 1 :relief 0.4 :scale 0.2 :clip 0.01 :winding :cw)
	env.AddFunction("relief", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("relief: unexpected argument %s", pa.positional[0].SexpString(nil))
		}
		for _, kw := range pa.order {
			if err := applyOption(opts, kw, pa.kw[kw]); err != nil {
				return zygo.SexpNull, fmt.Errorf("relief: %s: %w", kw, err)
			}
		}
		return &sexpOptions{opts: *opts}, nil
	})

	// (depth-range 0.5 8), registered as depth_range after preprocessing.
	env.AddFunction("depth_range", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("depth-range requires exactly 2 arguments, got %d", len(args))
		}
		lo, err := toFloat32(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("depth-range: min: %w", err)
		}
		hi, err := toFloat32(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("depth-range: max: %w", err)
		}
		opts.MinDepth, opts.MaxDepth = lo, hi
		return &sexpOptions{opts: *opts}, nil
	})

	// (auto-range) or (auto-range 0.02) derives the range from the samples.
	env.AddFunction("auto_range", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		opts.MinDepth, opts.MaxDepth = 0, 0
		if len(args) > 0 {
			clip, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("auto-range: clip: %w", err)
			}
			opts.ClipPercent = clip
		}
		return &sexpOptions{opts: *opts}, nil
	})
}
