package dsl

// Entity описывает структуру динамической сущности из DSL или манифеста плагина
type Entity struct {
	Name         string
	Module       string
	Versioned    bool   // участвует в optimistic-concurrency версионировании
	VersionOwner string // чья линейка версий; пусто = сама сущность
	Fields       []Field
	Constraints  Constraints
	Source       string // файл, из которого загружена сущность
}

// Field описывает поле сущности
type Field struct {
	Name      string
	Type      string            // string, int, date, enum, ref, array, many и т.д.
	ElemType  string            // тип элемента для array[...]
	RefTarget string            // цель для ref[...], array[ref[...]] и many[...]
	Enum      []string          // значения enum, если поле типа enum
	Options   map[string]string // required, unique, default и прочие опции
}

type Constraints struct {
	Unique [][]string
}

// ManyTargets возвращает цели many[...] в порядке объявления полей.
func (e *Entity) ManyTargets() []string {
	var out []string
	for _, f := range e.Fields {
		if f.Type == TypeMany && f.RefTarget != "" {
			out = append(out, f.RefTarget)
		}
	}
	return out
}

const (
	TypeRef   = "ref"
	TypeArray = "array"
	TypeEnum  = "enum"
	TypeMany  = "many"
)
