package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	entityRe           = regexp.MustCompile(`^entity\s+([^\s:]+)(\s.*)?:\s*$`)
	fieldRe            = regexp.MustCompile(`^\s*([\w-]+):\s*([^\s#]+)(.*)$`)
	enumRe             = regexp.MustCompile(`^enum\[(.*)\]$`)
	refRe              = regexp.MustCompile(`^ref\[([A-Za-z0-9_.-]+)\]$`)
	manyRe             = regexp.MustCompile(`^many\[([A-Za-z0-9_.-]+)\]$`)
	arrayRe            = regexp.MustCompile(`^array\[(.+)\]$`)
	moduleRe           = regexp.MustCompile(`^\s*module\s+([A-Za-z0-9_.-]+)\s*$`)
	reConstraintsStart = regexp.MustCompile(`^\s*constraints\s*:\s*$`)
	reUniqueLine       = regexp.MustCompile(`^\s*unique\s*\(\s*([^)]+)\s*\)\s*$`)
)

// parse: options tokenizer: делит "k=v k2='v 2' pattern=^[A-Z0-9 _-]+$" на токены, не рвёт по пробелам внутри кавычек/скобок
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0 // внутри [ ... ] у регэкспа

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[':
			if !inSingle && !inDouble {
				bracketDepth++
			}
			buf = append(buf, r)
		case ']':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
			buf = append(buf, r)
		default:
			// разделитель: пробел И ТОЛЬКО если мы не в кавычках и не внутри [...]
			if (r == ' ' || r == '\t') && !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// parseOptions превращает токены в map: флаг без значения → "true", кавычки снимаются.
func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	// запятые считаем разделителями
	raw = strings.ReplaceAll(raw, ",", " ")
	for _, tok := range splitOptionTokens(raw) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !strings.Contains(tok, "=") {
			opts[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.TrimSpace(kv[1])
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if k != "" {
			opts[k] = v
		}
	}
	return opts
}

func parseEnumValues(inside string) []string {
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(inside), ",") {
		s := strings.Trim(strings.TrimSpace(p), `"'`)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// applyType распознаёт тип поля; примитивы (string,int,float,bool,date,datetime) оставляем как есть
func applyType(f *Field, rawType string) {
	f.Type = rawType
	if mm := enumRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = TypeEnum
		f.Enum = parseEnumValues(mm[1])
	} else if mm := refRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = TypeRef
		f.RefTarget = strings.TrimSpace(mm[1])
	} else if mm := manyRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = TypeMany
		f.RefTarget = strings.TrimSpace(mm[1])
	} else if mm := arrayRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = TypeArray
		elem := strings.TrimSpace(mm[1])
		f.ElemType = elem
		// array[enum[...]]
		if em := enumRe.FindStringSubmatch(elem); em != nil {
			f.ElemType = TypeEnum
			f.Enum = parseEnumValues(em[1])
		}
		// array[ref[...]]
		if rm := refRe.FindStringSubmatch(elem); rm != nil {
			f.ElemType = TypeRef
			f.RefTarget = strings.TrimSpace(rm[1])
		}
	}
}

// applyEntityOptions: "entity product versioned version_owner=product:"
func applyEntityOptions(e *Entity, opts map[string]string) {
	if v, ok := opts["versioned"]; ok {
		e.Versioned = strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(opts["version_owner"]); v != "" {
		e.VersionOwner = v
	}
}

// LoadEntities читает .dsl файл и возвращает список Entity
func LoadEntities(path string) ([]*Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ents, err := ParseEntities(file)
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		e.Source = path
	}
	return ents, nil
}

// ParseEntities разбирает DSL из произвольного источника
func ParseEntities(r io.Reader) ([]*Entity, error) {
	var entities []*Entity
	var current *Entity
	currentModule := ""
	inConstraints := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// module ...
		if m := moduleRe.FindStringSubmatch(line); m != nil {
			currentModule = m[1]
			continue
		}

		// entity <name> [opts]:
		if m := entityRe.FindStringSubmatch(line); m != nil {
			// закрыть предыдущую сущность
			if current != nil {
				entities = append(entities, current)
			}
			current = &Entity{Name: m[1], Module: currentModule}
			applyEntityOptions(current, parseOptions(m[2]))
			inConstraints = false
			continue
		}
		if current == nil {
			// игнорируем всё вне сущности
			continue
		}

		// ----- БЛОК CONSTRAINTS -----
		if reConstraintsStart.MatchString(line) {
			inConstraints = true
			continue
		}

		if inConstraints {
			if m := reUniqueLine.FindStringSubmatch(line); m != nil {
				parts := strings.Split(m[1], ",")
				set := make([]string, 0, len(parts))
				for _, p := range parts {
					p = strings.TrimSpace(p)
					if p != "" {
						set = append(set, p)
					}
				}
				if len(set) > 0 {
					current.Constraints.Unique = append(current.Constraints.Unique, set)
				}
				continue
			}
			// любая другая строка: выходим из блока constraints и разбираем её как поле
			inConstraints = false
		}
		// ----- КОНЕЦ БЛОКА CONSTRAINTS -----

		// Поля
		if m := fieldRe.FindStringSubmatch(line); m != nil {
			rawType := m[2]
			tail := m[3] // остаток после типа (опции)

			// склейка оборванных типов со скобками: array[enum["a", "b"]]
			for strings.Count(rawType, "[") > strings.Count(rawType, "]") {
				idx := strings.Index(tail, "]")
				if idx < 0 {
					break
				}
				rawType += tail[:idx+1]
				tail = tail[idx+1:]
			}

			optsRaw := strings.TrimSpace(tail)
			// срезать комментарий
			if i := strings.IndexByte(optsRaw, '#'); i >= 0 {
				optsRaw = strings.TrimSpace(optsRaw[:i])
			}
			// убрать необязательный префикс "options:"
			if strings.HasPrefix(strings.ToLower(optsRaw), "options:") {
				optsRaw = strings.TrimSpace(optsRaw[len("options:"):])
			}

			f := Field{Name: m[1], Options: parseOptions(optsRaw)}
			applyType(&f, rawType)
			current.Fields = append(current.Fields, f)
			continue
		}

		return nil, fmt.Errorf("entity %q: cannot parse line %q", current.Name, line)
	}

	if current != nil {
		entities = append(entities, current)
	}
	return entities, scanner.Err()
}

// LoadAllEntities обходит дерево: *.dsl и манифесты плагинов *.yaml/*.yml.
// Ключ результата: имя сущности; имена глобально уникальны, т.к. по ним
// строятся имена таблиц связей.
func LoadAllEntities(root string) (map[string]*Entity, error) {
	result := make(map[string]*Entity)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		var (
			ents []*Entity
			err  error
		)
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".dsl":
			ents, err = LoadEntities(path)
		case ".yaml", ".yml":
			ents, err = LoadManifest(path)
		default:
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, e := range ents {
			if e == nil || e.Name == "" {
				return fmt.Errorf("empty entity name in %s", path)
			}
			if e.Module == "" {
				return fmt.Errorf("entity %q in %s has no module: add `module <name>` at the top", e.Name, path)
			}
			if prev, exists := result[e.Name]; exists {
				return fmt.Errorf("duplicate entity %q (modules %q and %q, file: %s)", e.Name, prev.Module, e.Module, path)
			}
			result[e.Name] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
