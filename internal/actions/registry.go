package actions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rendis/textaction/pkg/schema"
)

// Registry is the concrete thread-safe ActionRegistry implementation.
// It is filled once at startup and only read afterwards.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*Definition),
	}
}

// Register adds an action to the registry. Returns a CONFLICT error on a
// duplicate name and a VALIDATION_ERROR for a malformed definition.
func (r *Registry) Register(def Definition) error {
	if err := validateDefinition(def).ToError(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[def.Name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "action %q already registered", def.Name)
	}

	// Copy the slices so the caller cannot mutate a registered definition.
	stored := def
	stored.Params = append([]ParamSpec(nil), def.Params...)
	stored.Alternatives = copyForms(def.Alternatives)
	stored.Guards = append([]Guard(nil), def.Guards...)
	r.actions[def.Name] = &stored
	return nil
}

// Lookup retrieves an action by name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.actions[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeActionNotFound, "action not found: %q", name).WithAction(name)
	}
	return def, nil
}

// List returns info for all registered actions, sorted by name.
func (r *Registry) List() []ActionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ActionInfo, 0, len(r.actions))
	for _, d := range r.actions {
		infos = append(infos, ActionInfo{
			Name:         d.Name,
			Description:  d.Description,
			Params:       append([]ParamSpec(nil), d.Params...),
			Alternatives: copyForms(d.Alternatives),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// ArgsDescription maps each named action to its parameter names and type
// names, the shape the argument extraction endpoint expects. Unknown names
// are skipped. With no names, every registered action is described.
func (r *Registry) ArgsDescription(names ...string) map[string]map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		for name := range r.actions {
			names = append(names, name)
		}
	}

	out := make(map[string]map[string]string, len(names))
	for _, name := range names {
		def, ok := r.actions[name]
		if !ok {
			continue
		}
		params := make(map[string]string, len(def.Params))
		for _, p := range def.Params {
			params[p.Name] = string(p.Type)
		}
		out[name] = params
	}
	return out
}

// Has checks if an action is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

func validateDefinition(def Definition) *schema.ValidationResult {
	res := &schema.ValidationResult{}
	if def.Name == "" {
		res.AddError("name", schema.ErrCodeValidation, "action name is empty")
	}
	if def.Invoke == nil {
		res.AddError("invoke", schema.ErrCodeValidation, "invoke function is nil")
	}

	validateParams(res, "params", def.Params)
	for i, alt := range def.Alternatives {
		path := fmt.Sprintf("alternatives[%d]", i)
		if len(alt) == 0 {
			res.AddError(path, schema.ErrCodeValidation, "alternative parameter list is empty")
			continue
		}
		validateParams(res, path, alt)
	}

	for i, g := range def.Guards {
		if g.Expression == "" {
			res.AddError(fmt.Sprintf("guards[%d].expression", i), schema.ErrCodeValidation, "guard expression is empty")
		}
	}

	if def.Description == "" && def.Name != "" {
		res.AddWarning("description", schema.ErrCodeValidation, "action has no description")
	}
	return res
}

func validateParams(res *schema.ValidationResult, prefix string, params []ParamSpec) {
	seen := make(map[string]struct{}, len(params))
	for i, p := range params {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if p.Name == "" {
			res.AddError(path+".name", schema.ErrCodeValidation, "parameter name is empty")
		} else if _, dup := seen[p.Name]; dup {
			res.AddError(path+".name", schema.ErrCodeValidation, fmt.Sprintf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = struct{}{}
		if !p.Type.Valid() {
			res.AddError(path+".type", schema.ErrCodeValidation, fmt.Sprintf("unknown parameter type %q", p.Type))
		}
	}
}

func copyForms(forms [][]ParamSpec) [][]ParamSpec {
	if forms == nil {
		return nil
	}
	out := make([][]ParamSpec, len(forms))
	for i, f := range forms {
		out[i] = append([]ParamSpec(nil), f...)
	}
	return out
}

var _ ActionRegistry = (*Registry)(nil)
