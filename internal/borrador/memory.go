package borrador

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	datos map[string]Borrador
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datos: make(map[string]Borrador)}
}

func (s *MemoryStore) Obtener(_ context.Context, clave Clave) (*Borrador, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.datos[clave.String()]
	if !ok {
		return nil, false, nil
	}
	cp := b
	cp.Contado = b.Contado.Completar()
	return &cp, true, nil
}

func (s *MemoryStore) Guardar(_ context.Context, clave Clave, b Borrador) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Contado = b.Contado.Completar()
	s.datos[clave.String()] = b
	return nil
}

func (s *MemoryStore) Eliminar(_ context.Context, clave Clave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datos, clave.String())
	return nil
}
