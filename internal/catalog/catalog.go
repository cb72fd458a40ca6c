// Package catalog собирает регистр сущностей и все таблицы связей,
// объявленные через many[...], в один снимок с ревизией.
package catalog

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"junction/internal/dsl"
	"junction/internal/mapping"
	"junction/internal/registry"
)

type Catalog struct {
	Revision string
	Entities map[string]*dsl.Entity
	Registry *registry.Registry
	Mappings []*mapping.Schema // отсортированы по имени связи

	cache *mapping.Cache
}

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newRevision() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Build строит регистр и генерирует схему связи для каждого many[...] поля.
// Пара, объявленная с обеих сторон, генерируется один раз; разные пары
// с одним каноническим именем дают mapping.ErrIdentityCollision.
func Build(entities map[string]*dsl.Entity) (*Catalog, error) {
	reg, err := registry.FromEntities(entities)
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		Revision: newRevision(),
		Entities: entities,
		Registry: reg,
		cache:    mapping.NewCache(mapping.Lookup(reg.Resolve)),
	}

	seen := map[mapping.Identity]struct{}{}
	for _, name := range reg.Names() {
		def, _ := reg.Resolve(name)
		for _, target := range def.Entity.ManyTargets() {
			s, err := c.cache.Get(name, target)
			if err != nil {
				return nil, fmt.Errorf("entity %q: many[%s]: %w", name, target, err)
			}
			if _, ok := seen[s.Name()]; ok {
				continue
			}
			seen[s.Name()] = struct{}{}
			c.Mappings = append(c.Mappings, s)
		}
	}
	sort.Slice(c.Mappings, func(i, j int) bool { return c.Mappings[i].Name() < c.Mappings[j].Name() })
	return c, nil
}

// Mapping генерирует (или берёт из кэша) схему связи для произвольной пары.
func (c *Catalog) Mapping(source, reference string) (*mapping.Schema, error) {
	return c.cache.Get(source, reference)
}

// Declared ищет связь среди объявленных в DSL.
func (c *Catalog) Declared(id mapping.Identity) (*mapping.Schema, bool) {
	i := sort.Search(len(c.Mappings), func(i int) bool { return c.Mappings[i].Name() >= id })
	if i < len(c.Mappings) && c.Mappings[i].Name() == id {
		return c.Mappings[i], true
	}
	return nil, false
}
