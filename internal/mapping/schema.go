package mapping

// Kind различает варианты схем, которые могут сосуществовать в одном каталоге.
type Kind int

const (
	KindEntity Kind = iota + 1
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// Definition: общее для всех видов сгенерированных схем.
type Definition interface {
	EntityName() string
	Kind() Kind
	Fields() []FieldSpec
}

// Schema: описание таблицы связи. Неизменяема, аксессоры отдают копии.
type Schema struct {
	name      Identity
	source    string
	reference string
	fields    []FieldSpec
}

var _ Definition = (*Schema)(nil)

// Generate выводит каноническое имя и набор полей для пары.
// При ошибке схема не возвращается, частичных схем нет.
func Generate(source, reference string, r Resolver) (*Schema, error) {
	fields, err := BuildFields(source, reference, r)
	if err != nil {
		return nil, err
	}
	return &Schema{
		name:      DeriveIdentity(source, reference),
		source:    source,
		reference: reference,
		fields:    fields,
	}, nil
}

func (s *Schema) Name() Identity { return s.name }

func (s *Schema) EntityName() string { return string(s.name) }

func (s *Schema) Kind() Kind { return KindMapping }

func (s *Schema) Source() string { return s.source }

func (s *Schema) Reference() string { return s.reference }

// Pairs: описывает ли схема ту же неупорядоченную пару сущностей.
func (s *Schema) Pairs(source, reference string) bool {
	return (s.source == source && s.reference == reference) ||
		(s.source == reference && s.reference == source)
}

func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// PrimaryKey: поля с флагом PrimaryKey в порядке объявления.
func (s *Schema) PrimaryKey() []FieldSpec {
	return s.filter(func(f FieldSpec) bool { return f.IsPrimaryKey() })
}

func (s *Schema) ForeignKeys() []FieldSpec {
	return s.filter(func(f FieldSpec) bool { return f.Kind == ForeignKey })
}

func (s *Schema) Associations() []FieldSpec {
	return s.filter(func(f FieldSpec) bool { return f.Kind == Association })
}

func (s *Schema) VersionReferences() []FieldSpec {
	return s.filter(func(f FieldSpec) bool { return f.Kind == VersionReference })
}

func (s *Schema) filter(keep func(FieldSpec) bool) []FieldSpec {
	var out []FieldSpec
	for _, f := range s.fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
