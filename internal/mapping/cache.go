package mapping

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrIdentityCollision: две разные пары дают одно каноническое имя,
// например {a, b_c} и {a_b, c}.
var ErrIdentityCollision = errors.New("mapping identity collision")

type IdentityCollisionError struct {
	Identity  Identity
	Requested [2]string
	Existing  [2]string
}

func (e *IdentityCollisionError) Error() string {
	return fmt.Sprintf("mapping %q: pair {%s, %s} collides with {%s, %s}",
		e.Identity, e.Requested[0], e.Requested[1], e.Existing[0], e.Existing[1])
}

func (e *IdentityCollisionError) Is(target error) bool { return target == ErrIdentityCollision }

// Cache мемоизирует схемы по Identity. Параллельные запросы одной пары
// делят одну генерацию; ошибки не кэшируются.
//
// Схема кэшируется в той ориентации (source/reference), в которой её
// запросили первой: имя и первичный ключ от ориентации не зависят.
// Запрос другой пары с тем же именем получает IdentityCollisionError.
type Cache struct {
	resolver Resolver

	mu    sync.RWMutex
	items map[Identity]*Schema
	group singleflight.Group
}

func NewCache(r Resolver) *Cache {
	return &Cache{resolver: r, items: make(map[Identity]*Schema)}
}

func (c *Cache) Get(source, reference string) (*Schema, error) {
	id := DeriveIdentity(source, reference)

	c.mu.RLock()
	s, ok := c.items[id]
	c.mu.RUnlock()
	if ok {
		return checkPair(s, source, reference)
	}

	v, err, _ := c.group.Do(string(id), func() (any, error) {
		c.mu.RLock()
		prev, ok := c.items[id]
		c.mu.RUnlock()
		if ok {
			return prev, nil
		}
		s, err := Generate(source, reference, c.resolver)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[id] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	// singleflight склеивает вызовы по имени, а не по паре
	return checkPair(v.(*Schema), source, reference)
}

func checkPair(s *Schema, source, reference string) (*Schema, error) {
	if s.Pairs(source, reference) {
		return s, nil
	}
	return nil, &IdentityCollisionError{
		Identity:  s.Name(),
		Requested: [2]string{source, reference},
		Existing:  [2]string{s.Source(), s.Reference()},
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
