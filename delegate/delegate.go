// Package delegate checks the surface shape of Java delegate sources that
// service tasks reference by class name. Sources are only read, never
// compiled or run.
package delegate

import (
	"regexp"
	"strings"

	"github.com/meikuraledutech/bpmn"
)

// Interface is the fully qualified name of the delegate marker interface.
const Interface = "org.camunda.bpm.engine.delegate.JavaDelegate"

// Metadata describes a delegate class.
type Metadata struct {
	ClassName  string `json:"class_name"`
	Package    string `json:"package,omitempty"`
	SimpleName string `json:"simple_name"`
	// Qualified is true when the interface is named with its package.
	Qualified bool `json:"qualified"`
}

var (
	packageDecl = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)\s*;`)
	classDecl   = `\bclass\s+%s\b[^{]*\{`
	executeDecl = regexp.MustCompile(`\bpublic\s+void\s+execute\s*\(`)
)

// Split returns the package and simple name of a fully qualified class
// name. Classes in the default package have an empty package.
func Split(fqcn string) (pkg, simple string) {
	i := strings.LastIndex(fqcn, ".")
	if i < 0 {
		return "", fqcn
	}
	return fqcn[:i], fqcn[i+1:]
}

// Inspect checks that source declares fqcn's package and class, that the
// class implements the delegate interface and defines execute.
func Inspect(fqcn, source string) (Metadata, error) {
	fqcn = strings.TrimSpace(fqcn)
	pkg, simple := Split(fqcn)
	meta := Metadata{ClassName: fqcn, Package: pkg, SimpleName: simple}
	if simple == "" {
		return meta, invalid(fqcn, "class name must not be empty")
	}
	if strings.TrimSpace(source) == "" {
		return meta, invalid(fqcn, "source must not be empty")
	}

	var problems []string
	declared := ""
	if m := packageDecl.FindStringSubmatch(source); m != nil {
		declared = m[1]
	}
	if declared != pkg {
		problems = append(problems, "source declares package "+quote(declared)+", class name implies "+quote(pkg))
	}

	header := regexp.MustCompile(strings.Replace(classDecl, "%s", regexp.QuoteMeta(simple), 1)).FindString(source)
	if header == "" {
		problems = append(problems, "source does not declare class "+quote(simple))
	} else {
		qualified, ok := implements(header, source)
		if !ok {
			problems = append(problems, "class "+quote(simple)+" does not implement "+Interface)
		}
		meta.Qualified = qualified
	}
	if !executeDecl.MatchString(source) {
		problems = append(problems, "class "+quote(simple)+" does not define execute")
	}

	if len(problems) > 0 {
		return meta, bpmn.NewError(bpmn.ErrInvalidAttribute,
			"invalid delegate "+quote(fqcn)+": "+strings.Join(problems, "; "), nil,
			map[string]any{"class": fqcn, "problems": problems})
	}
	return meta, nil
}

// implements looks for the interface in the class header's implements
// clause. The simple name only counts when the interface is imported.
func implements(header, source string) (qualified, ok bool) {
	i := strings.Index(header, "implements")
	if i < 0 {
		return false, false
	}
	clause := strings.TrimSuffix(strings.TrimSpace(header[i+len("implements"):]), "{")
	for _, name := range strings.Split(clause, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case Interface:
			return true, true
		case "JavaDelegate":
			if strings.Contains(source, "import "+Interface+";") || strings.Contains(source, "import org.camunda.bpm.engine.delegate.*;") {
				return false, true
			}
		}
	}
	return false, false
}

func invalid(fqcn, msg string) error {
	return bpmn.NewError(bpmn.ErrInvalidAttribute, msg, nil, map[string]any{"class": fqcn})
}

func quote(s string) string {
	return `"` + s + `"`
}
