package keylock

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker выдаёт взаимное исключение по ключу. Записи живут, пока есть
// держатели или ожидающие, и удаляются после последнего Unlock.
type Locker[K comparable] struct {
	entries *xsync.MapOf[K, *entry]
}

func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: xsync.NewMapOf[K, *entry]()}
}

// Lock блокирует ключ и возвращает функцию разблокировки.
func (l *Locker[K]) Lock(key K) (unlock func()) {
	e, _ := l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = &entry{}
		}
		old.refs++
		return old, false
	})
	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
				if !loaded {
					return old, true
				}
				old.refs--
				return old, old.refs == 0
			})
		})
	}
}

// Len: число ключей с держателями или ожидающими.
func (l *Locker[K]) Len() int {
	return l.entries.Size()
}
