package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Entity definitions live in CUE files of the form:
//
//	entities: User: attributes: {
//		id:        {type: "string"}
//		firstName: {type: "string"}
//		group: {
//			type: "relation"
//			relation: {
//				entityName:  "Group"
//				type:        "many-to-one"
//				identifiers: {source: "groupId", target: "id"}
//			}
//		}
//	}
//
// identifiers accepts a single pair or a list of pairs.

// Load error codes.
const (
	ErrCodeNotFound    = "SCHEMA_DIR_NOT_FOUND"
	ErrCodeNoFiles     = "NO_CUE_FILES"
	ErrCodeLoadFailed  = "CUE_LOAD_FAILED"
	ErrCodeBuildFailed = "CUE_BUILD_FAILED"
	ErrCodeBadEntity   = "BAD_ENTITY_DEFINITION"
)

// LoadError reports a schema loading failure with its CUE position when one
// is available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir reads every CUE file in dir and builds a registry from the
// entities it defines.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	// Pass the files explicitly rather than loading "." so that CUE files
	// without a package clause are still picked up.
	args := make([]string, len(cueFiles))
	for i, f := range cueFiles {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			rel = f
		}
		args[i] = rel
	}
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return FromCUE(value)
}

// FromCUE builds a registry from an already-built CUE value exposing an
// entities struct.
func FromCUE(value cue.Value) (*Registry, error) {
	entities := value.LookupPath(cue.ParsePath("entities"))
	if !entities.Exists() {
		return nil, &LoadError{Code: ErrCodeBadEntity, Message: "no entities struct found", Pos: value.Pos()}
	}

	reg := NewRegistry()
	iter, err := entities.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("iterating entities: %v", err), Pos: entities.Pos()}
	}
	for iter.Next() {
		ent, err := entityFromCUE(iter.Selector().String(), iter.Value())
		if err != nil {
			return nil, err
		}
		reg.Register(ent)
	}
	return reg, nil
}

func entityFromCUE(name string, v cue.Value) (Entity, error) {
	ent := Entity{Name: name, Attributes: make(map[string]Attribute)}

	attrs := v.LookupPath(cue.ParsePath("attributes"))
	if !attrs.Exists() {
		return Entity{}, &LoadError{
			Code:    ErrCodeBadEntity,
			Message: fmt.Sprintf("entity %q has no attributes struct", name),
			Pos:     v.Pos(),
		}
	}

	iter, err := attrs.Fields()
	if err != nil {
		return Entity{}, &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("entity %q: %v", name, err), Pos: attrs.Pos()}
	}
	for iter.Next() {
		attrName := iter.Selector().String()
		attr, err := attributeFromCUE(name, attrName, iter.Value())
		if err != nil {
			return Entity{}, err
		}
		ent.Attributes[attrName] = attr
	}

	return ent, nil
}

func attributeFromCUE(entity, name string, v cue.Value) (Attribute, error) {
	var attr Attribute

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if typeVal.Exists() {
		t, err := typeVal.String()
		if err != nil {
			return Attribute{}, &LoadError{
				Code:    ErrCodeBadEntity,
				Message: fmt.Sprintf("%s.%s: type must be a string: %v", entity, name, err),
				Pos:     typeVal.Pos(),
			}
		}
		attr.Type = t
	}

	relVal := v.LookupPath(cue.ParsePath("relation"))
	if relVal.Exists() {
		rel, err := relationFromCUE(entity, name, relVal)
		if err != nil {
			return Attribute{}, err
		}
		attr.Relation = rel
	}

	return attr, nil
}

func relationFromCUE(entity, name string, v cue.Value) (*Relation, error) {
	rel := &Relation{}

	var def struct {
		Entity string `json:"entityName"`
		Type   string `json:"type"`
	}
	if err := v.Decode(&def); err != nil {
		return nil, &LoadError{
			Code:    ErrCodeBadEntity,
			Message: fmt.Sprintf("%s.%s: bad relation: %v", entity, name, err),
			Pos:     v.Pos(),
		}
	}
	if def.Entity == "" {
		return nil, &LoadError{
			Code:    ErrCodeBadEntity,
			Message: fmt.Sprintf("%s.%s: relation is missing entityName", entity, name),
			Pos:     v.Pos(),
		}
	}
	rel.Entity = def.Entity
	rel.Type = RelationType(def.Type)

	// identifiers: a single pair or a list of pairs.
	idsVal := v.LookupPath(cue.ParsePath("identifiers"))
	if idsVal.Exists() {
		var many []IdentifierPair
		if err := idsVal.Decode(&many); err == nil {
			rel.Identifiers = many
		} else {
			var one IdentifierPair
			if err := idsVal.Decode(&one); err != nil {
				return nil, &LoadError{
					Code:    ErrCodeBadEntity,
					Message: fmt.Sprintf("%s.%s: identifiers must be a pair or a list of pairs: %v", entity, name, err),
					Pos:     idsVal.Pos(),
				}
			}
			rel.Identifiers = []IdentifierPair{one}
		}
	}

	return rel, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
