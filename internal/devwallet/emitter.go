// Package devwallet provides locally backed wallets that speak the injected
// provider protocols, so the connector can run outside a browser. EVM wallets
// sign with the encrypted keystore and reach the chain through chain.Client;
// Solana wallets sign with a solana-keygen keypair.
package devwallet

import (
	"sync"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

type emitter struct {
	mu        sync.Mutex
	listeners map[string][]*provider.Listener
}

func (e *emitter) On(event string, l *provider.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]*provider.Listener)
	}
	e.listeners[event] = append(e.listeners[event], l)
}

func (e *emitter) RemoveListener(event string, l *provider.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[event]
	for i, existing := range ls {
		if existing == l {
			e.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (e *emitter) emit(event string, args ...any) {
	e.mu.Lock()
	ls := append([]*provider.Listener(nil), e.listeners[event]...)
	e.mu.Unlock()
	for _, l := range ls {
		l.Emit(args...)
	}
}
