package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex сериализует изменения одной задачи внутри процесса,
// между экземплярами сервиса задачу защищает колонка version
type keyedMutex struct {
	mtx   sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

type keyedLock struct {
	mtx  sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*keyedLock)}
}

// Lock блокирует ключ и возвращает функцию разблокировки
func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mtx.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mtx.Unlock()

	l.mtx.Lock()

	return func() {
		l.mtx.Unlock()

		k.mtx.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mtx.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return len(k.locks)
}
