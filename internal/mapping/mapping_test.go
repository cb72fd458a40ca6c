package mapping

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"junction/internal/naming"
	"junction/internal/registry"
)

func newRegistry(t *testing.T, defs ...*registry.Definition) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, d := range defs {
		require.NoError(t, r.Register(d))
	}
	return r
}

func storageNames(fields []FieldSpec) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.StorageName)
	}
	return out
}

func TestDeriveIdentity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected Identity
	}{
		{"product", "category", "category_product"},
		{"category", "product", "category_product"},
		{"sales-channel", "product", "product_sales-channel"},
		{"product", "product", "product_product"},
		{"b", "B", "B_b"}, // побайтное сравнение, не локаль
	}
	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveIdentity(tt.a, tt.b))
			assert.Equal(t, DeriveIdentity(tt.a, tt.b), DeriveIdentity(tt.b, tt.a))
		})
	}
}

func TestGenerate_NoVersioning(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product"},
		&registry.Definition{Name: "category"},
	)

	s, err := Generate("product", "category", Lookup(r.Resolve))
	require.NoError(t, err)

	assert.Equal(t, Identity("category_product"), s.Name())
	assert.Equal(t, "category_product", s.EntityName())
	assert.Equal(t, KindMapping, s.Kind())
	assert.Equal(t, "product", s.Source())
	assert.Equal(t, "category", s.Reference())

	pk := s.PrimaryKey()
	require.Len(t, pk, 2)
	assert.Equal(t, []string{"product_id", "category_id"}, storageNames(pk))
	assert.Empty(t, s.VersionReferences())

	fields := s.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, FieldSpec{
		StorageName: "product_id",
		LogicalName: "productId",
		Kind:        ForeignKey,
		Target:      Target{Entity: "product", Field: "id"},
		Scope:       "product",
		Flags:       Required | PrimaryKey,
	}, fields[0])
	assert.Equal(t, FieldSpec{
		StorageName: "category_id",
		LogicalName: "category",
		Kind:        Association,
		Target:      Target{Entity: "category", Field: "id"},
		Scope:       "category",
	}, fields[2])
	assert.Equal(t, "product", fields[3].LogicalName)
	assert.Equal(t, Association, fields[3].Kind)
}

func TestGenerate_OneSideVersioned(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product", Versioned: true},
		&registry.Definition{Name: "category"},
	)

	s, err := Generate("product", "category", Lookup(r.Resolve))
	require.NoError(t, err)

	pk := s.PrimaryKey()
	require.Len(t, pk, 3)
	v := pk[2]
	assert.Equal(t, VersionReference, v.Kind)
	assert.Equal(t, "product", v.Scope)
	assert.Equal(t, Target{Entity: "product", Field: "version_id"}, v.Target)
	assert.Empty(t, v.StorageName)
	assert.True(t, v.IsRequired())

	// reference-сторона версионирована: поле версии относится к ней
	s, err = Generate("category", "product", Lookup(r.Resolve))
	require.NoError(t, err)
	require.Len(t, s.VersionReferences(), 1)
	assert.Equal(t, "product", s.VersionReferences()[0].Scope)
}

func TestGenerate_BothSidesVersioned(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product", Versioned: true},
		&registry.Definition{Name: "sales-channel", Versioned: true},
	)

	s, err := Generate("product", "sales-channel", Lookup(r.Resolve))
	require.NoError(t, err)
	assert.Len(t, s.PrimaryKey(), 4)

	vr := s.VersionReferences()
	require.Len(t, vr, 2)
	assert.Equal(t, "product", vr[0].Scope)
	assert.Equal(t, "sales-channel", vr[1].Scope)

	fks := s.ForeignKeys()
	require.Len(t, fks, 2)
	assert.Equal(t, "salesChannelId", fks[1].LogicalName)
	assert.Equal(t, "sales-channel_id", fks[1].StorageName)
}

func TestGenerate_SharedVersionOwner(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product", Versioned: true},
		&registry.Definition{Name: "product-variant", Versioned: true, VersionOwner: "product"},
	)

	s, err := Generate("product", "product-variant", Lookup(r.Resolve))
	require.NoError(t, err)

	// дедупликации нет: по одному полю на сторону
	vr := s.VersionReferences()
	require.Len(t, vr, 2)
	assert.Equal(t, "product", vr[0].Target.Entity)
	assert.Equal(t, "product", vr[1].Target.Entity)
	assert.Equal(t, "product-variant", vr[1].Scope)
	assert.Len(t, s.PrimaryKey(), 4)
}

func TestGenerate_SelfReference(t *testing.T) {
	r := newRegistry(t, &registry.Definition{Name: "product", Versioned: true})

	s, err := Generate("product", "product", Lookup(r.Resolve))
	require.NoError(t, err)
	assert.Equal(t, Identity("product_product"), s.Name())
	assert.Len(t, s.PrimaryKey(), 4)
}

func TestGenerate_UnknownEntity(t *testing.T) {
	r := newRegistry(t, &registry.Definition{Name: "category"})

	s, err := Generate("ghost", "category", Lookup(r.Resolve))
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrUnknownEntity))

	var ue *registry.UnknownEntityError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "ghost", ue.Name)

	_, err = Generate("category", "ghost", Lookup(r.Resolve))
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "ghost", ue.Name)
}

// stubDef: определение без регистра.
type stubDef struct {
	versioned bool
	owner     string
}

func (d stubDef) IsVersionAware() bool { return d.versioned }

func (d stubDef) VersionOwnerName() string { return d.owner }

type stubResolver struct {
	calls     atomic.Int32
	err       error
	versioned map[string]string // имя -> владелец версий
}

func (s *stubResolver) Resolve(name string) (VersionInfo, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if owner, ok := s.versioned[name]; ok {
		return stubDef{versioned: true, owner: owner}, nil
	}
	return stubDef{owner: name}, nil
}

func TestGenerate_CustomResolver(t *testing.T) {
	stub := &stubResolver{versioned: map[string]string{"offer": "catalog"}}
	s, err := Generate("offer", "category", stub)
	require.NoError(t, err)

	vr := s.VersionReferences()
	require.Len(t, vr, 1)
	assert.Equal(t, Target{Entity: "catalog", Field: "version_id"}, vr[0].Target)
	assert.Equal(t, "offer", vr[0].Scope)
}

func TestLookup_PassesErrorsThrough(t *testing.T) {
	r := newRegistry(t, &registry.Definition{Name: "product"})
	res := Lookup(r.Resolve)

	d, err := res.Resolve("product")
	require.NoError(t, err)
	assert.False(t, d.IsVersionAware())

	d, err = res.Resolve("ghost")
	assert.Nil(t, d)
	assert.True(t, registry.IsUnknownEntity(err))
}

func TestGenerate_ErrorIsNotWrapped(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := Generate("product", "category", &stubResolver{err: sentinel})
	assert.Same(t, sentinel, err)
}

func TestGenerate_InvalidIdentifier(t *testing.T) {
	stub := &stubResolver{}
	for _, name := range []string{"", "Product", "sales--channel"} {
		_, err := Generate(name, "category", stub)
		require.Error(t, err)
		assert.True(t, errors.Is(err, naming.ErrInvalidIdentifier), name)
	}
	assert.Zero(t, stub.calls.Load())
}

func TestGenerate_AtMostTwoLookups(t *testing.T) {
	stub := &stubResolver{}
	_, err := Generate("product", "category", stub)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stub.calls.Load())
}

func TestGenerate_Deterministic(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product", Versioned: true},
		&registry.Definition{Name: "category"},
	)
	a, err := Generate("product", "category", Lookup(r.Resolve))
	require.NoError(t, err)
	b, err := Generate("product", "category", Lookup(r.Resolve))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
}

func TestGenerate_AssociationsAlwaysTwo(t *testing.T) {
	for _, versioned := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		r := newRegistry(t,
			&registry.Definition{Name: "product", Versioned: versioned[0]},
			&registry.Definition{Name: "category", Versioned: versioned[1]},
		)
		s, err := Generate("product", "category", Lookup(r.Resolve))
		require.NoError(t, err)

		assoc := s.Associations()
		require.Len(t, assoc, 2)
		assert.Equal(t, "category", assoc[0].Scope)
		assert.Equal(t, "product", assoc[1].Scope)
		for _, f := range assoc {
			assert.Zero(t, f.Flags)
			assert.False(t, f.Autoload)
		}
	}
}

func TestSchema_FieldsAreCopies(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "product"},
		&registry.Definition{Name: "category"},
	)
	s, err := Generate("product", "category", Lookup(r.Resolve))
	require.NoError(t, err)

	f := s.Fields()
	f[0].StorageName = "mutated"
	pk := s.PrimaryKey()
	pk[0].Flags = 0

	assert.Equal(t, "product_id", s.Fields()[0].StorageName)
	assert.True(t, s.Fields()[0].IsPrimaryKey())
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "required|primary_key", (Required | PrimaryKey).String())
	assert.Equal(t, "", Flag(0).String())
	assert.Equal(t, "version_reference", VersionReference.String())
	assert.Equal(t, "mapping", KindMapping.String())
}

func TestCache(t *testing.T) {
	stub := &stubResolver{}
	c := NewCache(stub)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, ref := "product", "category"
			if i%2 == 0 {
				src, ref = ref, src
			}
			s, err := c.Get(src, ref)
			assert.NoError(t, err)
			assert.Equal(t, Identity("category_product"), s.Name())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())

	first, err := c.Get("product", "category")
	require.NoError(t, err)
	second, err := c.Get("category", "product")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	r := newRegistry(t, &registry.Definition{Name: "category"})
	c := NewCache(Lookup(r.Resolve))

	_, err := c.Get("product", "category")
	require.True(t, registry.IsUnknownEntity(err))
	assert.Zero(t, c.Len())

	require.NoError(t, r.Register(&registry.Definition{Name: "product"}))
	s, err := c.Get("product", "category")
	require.NoError(t, err)
	assert.Len(t, s.PrimaryKey(), 2)
}

func TestCache_IdentityCollision(t *testing.T) {
	r := newRegistry(t,
		&registry.Definition{Name: "a"},
		&registry.Definition{Name: "b_c"},
		&registry.Definition{Name: "a_b"},
		&registry.Definition{Name: "c"},
	)
	require.Equal(t, DeriveIdentity("a", "b_c"), DeriveIdentity("a_b", "c"))

	c := NewCache(Lookup(r.Resolve))
	first, err := c.Get("a", "b_c")
	require.NoError(t, err)

	s, err := c.Get("a_b", "c")
	assert.Nil(t, s)
	require.ErrorIs(t, err, ErrIdentityCollision)
	var ce *IdentityCollisionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Identity("a_b_c"), ce.Identity)
	assert.Equal(t, [2]string{"a_b", "c"}, ce.Requested)
	assert.Equal(t, [2]string{"a", "b_c"}, ce.Existing)

	// кэш не перезаписан
	again, err := c.Get("b_c", "a")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, []string{"a_id", "b_c_id"}, storageNames(again.ForeignKeys()))
	assert.Equal(t, 1, c.Len())
}

func TestFieldSpec_JSON(t *testing.T) {
	in := FieldSpec{
		StorageName: "product_id",
		LogicalName: "productId",
		Kind:        ForeignKey,
		Target:      Target{Entity: "product", Field: "id"},
		Scope:       "product",
		Flags:       Required | PrimaryKey,
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"storageName":"product_id","logicalName":"productId","kind":"foreign_key",
		"target":{"entity":"product","field":"id"},"scope":"product","flags":"required|primary_key"}`, string(b))

	var out FieldSpec
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"nope"}`), &out))
	assert.Error(t, json.Unmarshal([]byte(`{"flags":"unique"}`), &out))
}
