package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ProjectAssistant/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNoSources = errors.New("catalog: no discovery source configured")

// Source discovers devices and scenes from one home-automation backend.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]entity.CatalogDevice, []entity.CatalogScene, error)
}

// ShortcutStore persists the shortcut registry across restarts.
type ShortcutStore interface {
	FetchShortcuts(ctx context.Context) ([]entity.CatalogShortcut, error)
	StoreShortcut(ctx context.Context, shortcut entity.CatalogShortcut) error
}

type Manager struct {
	mu        sync.RWMutex
	catalog   entity.Catalog
	shortcuts []entity.CatalogShortcut
	sources   []Source
	store     ShortcutStore
	log       *logrus.Logger
}

func NewManager(log *logrus.Logger, store ShortcutStore, sources ...Source) *Manager {
	return &Manager{
		sources: sources,
		store:   store,
		log:     log,
	}
}

// Refresh rebuilds the device and scene lists wholesale. Registered shortcuts
// survive. A source that fails is skipped; Refresh only errors when every
// source failed.
func (m *Manager) Refresh(ctx context.Context) error {
	if len(m.sources) == 0 {
		return ErrNoSources
	}

	var (
		devices []entity.CatalogDevice
		scenes  []entity.CatalogScene
		errs    []error
	)
	seen := map[string]struct{}{}

	for _, src := range m.sources {
		d, s, err := src.Discover(ctx)
		if err != nil {
			m.log.WithFields(logrus.Fields{
				"source": src.Name(),
				"error":  err.Error(),
			}).Warn("Catalog source discovery failed")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		for _, device := range d {
			key := strings.ToLower(device.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if len(device.SupportedActions) == 0 {
				device.SupportedActions = DefaultActions(device.Type)
			}
			devices = append(devices, device)
		}
		scenes = append(scenes, s...)
	}

	if len(errs) == len(m.sources) {
		return errors.Join(errs...)
	}

	m.mu.Lock()
	m.catalog = entity.Catalog{
		Devices:   devices,
		Scenes:    scenes,
		Shortcuts: append([]entity.CatalogShortcut(nil), m.shortcuts...),
	}
	shortcuts := len(m.catalog.Shortcuts)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"devices":   len(devices),
		"scenes":    len(scenes),
		"shortcuts": shortcuts,
	}).Info("Catalog refreshed")

	return nil
}

// LoadShortcuts replaces the registry with what the store holds.
func (m *Manager) LoadShortcuts(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	shortcuts, err := m.store.FetchShortcuts(ctx)
	if err != nil {
		return fmt.Errorf("fetch shortcuts: %w", err)
	}
	m.SetRegisteredShortcuts(shortcuts)
	return nil
}

func (m *Manager) SetRegisteredShortcuts(shortcuts []entity.CatalogShortcut) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shortcuts = append([]entity.CatalogShortcut(nil), shortcuts...)
	m.catalog.Shortcuts = append([]entity.CatalogShortcut(nil), shortcuts...)
}

func (m *Manager) RegisterShortcut(ctx context.Context, name, description string) (entity.CatalogShortcut, error) {
	shortcut := entity.CatalogShortcut{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}

	if m.store != nil {
		if err := m.store.StoreShortcut(ctx, shortcut); err != nil {
			return entity.CatalogShortcut{}, fmt.Errorf("store shortcut: %w", err)
		}
	}

	m.mu.Lock()
	m.shortcuts = append(m.shortcuts, shortcut)
	m.catalog.Shortcuts = append([]entity.CatalogShortcut(nil), m.shortcuts...)
	m.mu.Unlock()

	return shortcut, nil
}

// Snapshot returns a copy that is safe to read without further locking.
func (m *Manager) Snapshot() entity.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog.Copy()
}

func (m *Manager) Validate(intent entity.Intent) bool {
	return Validate(m.Snapshot(), intent)
}
