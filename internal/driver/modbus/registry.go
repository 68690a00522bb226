package modbus

import (
	"strings"
	"sync"
)

// sharedPorts is the process-wide registry of open serial ports shared by
// every Modbus connection/device-driver instance that talks over the same
// physical port. Rust's implementation keyed a Weak<Mutex<Context>> here so
// the transport closed itself once the last Arc was dropped; Go has no
// equivalent lazily-expiring weak pointer, so this registry tracks an
// explicit reference count instead and closes the transport when it drops
// to zero. Acquire/Release must be paired exactly once per Connect/Disconnect.
var sharedPorts = struct {
	mu    sync.Mutex
	ports map[string]*portHandle
}{ports: make(map[string]*portHandle)}

// portHandle is a refcounted, shared serial transport plus the mutex that
// serializes Modbus transactions across every tag multiplexed onto it.
type portHandle struct {
	transport Transport
	txMu      sync.Mutex
	refs      int
}

// normalizedPortKey case-folds the port name so "COM3" and "com3" (and, on
// Windows, "\\.\COM3") resolve to the same registry entry.
func normalizedPortKey(port string) string {
	return strings.ToLower(normalizedPortName(port))
}

// acquirePort returns the shared handle for key, opening a fresh transport
// via open if none exists yet, and increments its reference count.
func acquirePort(key string, open func() (Transport, error)) (*portHandle, error) {
	sharedPorts.mu.Lock()
	defer sharedPorts.mu.Unlock()

	if h, ok := sharedPorts.ports[key]; ok {
		h.refs++
		return h, nil
	}

	transport, err := open()
	if err != nil {
		return nil, err
	}
	h := &portHandle{transport: transport, refs: 1}
	sharedPorts.ports[key] = h
	return h, nil
}

// releasePort decrements key's reference count and closes the underlying
// transport once the last holder has released it.
func releasePort(key string) {
	sharedPorts.mu.Lock()
	defer sharedPorts.mu.Unlock()

	h, ok := sharedPorts.ports[key]
	if !ok {
		return
	}
	h.refs--
	if h.refs <= 0 {
		_ = h.transport.Close()
		delete(sharedPorts.ports, key)
	}
}
