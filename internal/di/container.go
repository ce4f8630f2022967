// internal/di/container.go
package di

import (
	"fmt"
	"sort"
	"sync"
)

// Service names registered by the app.
const (
	Logger      = "logger"
	Config      = "config"
	LLM         = "llm"
	Credentials = "credentials"
	StatusHub   = "status_hub"
	Sessions    = "sessions"
	Prompts     = "prompts"
	Exports     = "exports"
	Storage     = "storage"
)

// Container is a registry of named service instances. Each app builds its
// own; there is no package-level instance.
type Container struct {
	services map[string]interface{}
	mutex    sync.RWMutex
}

func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

// Register stores service under name, replacing any previous instance.
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services[name] = service
}

// Get returns the service registered under name, or nil.
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.services[name]
}

func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.services[name]
	return exists
}

// GetNames returns the registered names in sorted order.
func (c *Container) GetNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the service registered under name as a T.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	service := c.Get(name)
	if service == nil {
		return zero, fmt.Errorf("service %q is not registered", name)
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has type %T, want %T", name, service, zero)
	}
	return typed, nil
}

// MustResolve is Resolve for wiring code where a missing service is a bug.
func MustResolve[T any](c *Container, name string) T {
	typed, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return typed
}
