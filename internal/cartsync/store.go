// Package cartsync réconcilie un panier local (invité) avec le panier serveur
// (utilisateur connecté). Les mutations sont optimistes : l'état local est mis
// à jour immédiatement et compensé si l'appel réseau échoue.
package cartsync

import "sync"

// Clé unique sous laquelle le panier est persisté.
const cartStorageKey = "cart"

// Store est l'abstraction clé/valeur dans laquelle le panier persiste entre
// deux sessions. L'implémentation est injectée, jamais un singleton.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Clear(key string)
}

// MemoryStore est un Store en mémoire, sûr pour un usage concurrent.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
