package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

type stateField struct {
	Key      string
	Type     string
	Optional bool
}

type view struct {
	Comments    bool
	Name        string
	Description string
	TypeName    string
	FuncName    string
	IndexType   string
	TaskQueue   string

	Imports     []string
	Proxies     []*proxy
	Signals     []signalDecl
	UsesPhase   bool
	UsesActive  bool
	StateFields []stateField
	Defaults    string
	Body        string
	Terminated  bool
	Activities  []activityStub
}

var funcs = template.FuncMap{
	"quote":   tsString,
	"comment": commentText,
	"join":    strings.Join,
}

var (
	workflowTmpl   = template.Must(template.New("workflow").Funcs(funcs).Parse(workflowTemplate))
	activitiesTmpl = template.Must(template.New("activities").Funcs(funcs).Parse(activitiesTemplate))
	workerTmpl     = template.Must(template.New("worker").Funcs(funcs).Parse(workerTemplate))
)

func (g *generator) displayName() string {
	if g.opts.WorkflowName != "" {
		return g.opts.WorkflowName
	}
	if g.w.Name != "" {
		return g.w.Name
	}
	return "workflow"
}

func (g *generator) tsType(t graph.VariableType) string {
	switch t {
	case graph.VarString:
		return "string"
	case graph.VarNumber:
		return "number"
	case graph.VarBoolean:
		return "boolean"
	case graph.VarArray:
		return g.dynamicType() + "[]"
	default:
		return "Record<string, " + g.dynamicType() + ">"
	}
}

func (g *generator) view() (*view, error) {
	name := g.displayName()
	v := &view{
		Comments:    g.opts.IncludeComments,
		Name:        name,
		Description: g.w.Settings.Description,
		TypeName:    typeName(name),
		FuncName:    identifier(name, "workflow") + "Workflow",
		IndexType:   g.dynamicType(),
		TaskQueue:   g.w.Settings.EffectiveTaskQueue(),
		Proxies:     g.proxies.list,
		Signals:     g.signals,
		UsesPhase:   g.usesPhase,
		UsesActive:  g.usesActive,
		Body:        strings.TrimRight(g.out.String(), "\n"),
		Terminated:  g.terminated,
		Activities:  g.activities,
	}

	imports := map[string]bool{"proxyActivities": true}
	if len(g.signals) > 0 {
		imports["defineSignal"], imports["setHandler"], imports["condition"] = true, true, true
	}
	if g.usesPhase {
		imports["defineQuery"], imports["setHandler"] = true, true
	}
	if g.usesChild {
		imports["executeChild"], imports["workflowInfo"] = true, true
	}
	for k := range imports {
		v.Imports = append(v.Imports, k)
	}
	sort.Strings(v.Imports)

	var defaults []string
	seen := make(map[string]bool)
	for _, variable := range g.w.Variables {
		if seen[variable.Name] {
			continue
		}
		seen[variable.Name] = true
		key := propertyKey(variable.Name)
		v.StateFields = append(v.StateFields, stateField{
			Key:      key,
			Type:     g.tsType(variable.Type),
			Optional: !variable.Required,
		})
		if variable.DefaultValue != nil {
			literal, err := json.Marshal(variable.DefaultValue)
			if err != nil {
				return nil, internalError(g.current, "default value of variable %q: %v", variable.Name, err)
			}
			defaults = append(defaults, fmt.Sprintf("%s: %s", key, literal))
		}
	}
	v.Defaults = "{}"
	if len(defaults) > 0 {
		v.Defaults = "{ " + strings.Join(defaults, ", ") + " }"
	}
	return v, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (g *generator) render() (*Bundle, error) {
	v, err := g.view()
	if err != nil {
		return nil, err
	}

	b := &Bundle{Steps: g.steps}
	for _, part := range []struct {
		tmpl *template.Template
		dst  *string
	}{
		{workflowTmpl, &b.Workflow},
		{activitiesTmpl, &b.Activities},
		{workerTmpl, &b.Worker},
	} {
		if *part.dst, err = execute(part.tmpl, v); err != nil {
			return nil, internalError(g.current, "%v", err)
		}
	}

	if b.PackageManifest, err = packageManifest(v.Name, g.w.Settings.Version, g.w.Settings.Description); err != nil {
		return nil, internalError(g.current, "%v", err)
	}
	if b.BuildConfig, err = buildConfig(g.strict()); err != nil {
		return nil, internalError(g.current, "%v", err)
	}
	return b, nil
}
