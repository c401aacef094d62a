package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ProjectAssistant/internal/entity"
	"ProjectAssistant/pkg/redis"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() entity.Catalog {
	return entity.Catalog{
		Devices: []entity.CatalogDevice{
			{ID: "1", Name: "Living Room Lights", Room: "Living Room", Type: "light", SupportedActions: []string{"turnOn", "turnOff", "setBrightness"}},
			{ID: "2", Name: "Front Door", Room: "Hall", Type: "lock", SupportedActions: []string{"lockDoor", "unlockDoor"}},
		},
		Scenes:    []entity.CatalogScene{{ID: "s1", Name: "Movie Night"}},
		Shortcuts: []entity.CatalogShortcut{{ID: "sc1", Name: "Morning Routine"}},
	}
}

func intentFor(action entity.Action, target string) entity.Intent {
	i := entity.Intent{Action: action, Parameters: entity.NewParameters()}
	if target != "" {
		i.Target = entity.StringPtr(target)
	}
	return i
}

func TestValidate(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name   string
		intent entity.Intent
		want   bool
	}{
		{"unknown never validates", intentFor(entity.ActionUnknown, "Living Room Lights"), false},
		{"device free without target", intentFor(entity.ActionSendMessage, ""), true},
		{"recall is device free", intentFor(entity.ActionRecall, ""), true},
		{"confirm yes is device free", intentFor(entity.ActionConfirmYes, ""), true},
		{"device match is case insensitive", intentFor(entity.ActionTurnOn, "living room lights"), true},
		{"device does not support action", intentFor(entity.ActionUnlockDoor, "Living Room Lights"), false},
		{"missing device", intentFor(entity.ActionTurnOff, "kitchen fan"), false},
		{"device action without target", intentFor(entity.ActionTurnOn, ""), false},
		{"lock supports unlock", intentFor(entity.ActionUnlockDoor, "front door"), true},
		{"shortcut match", intentFor(entity.ActionRunShortcut, "MORNING ROUTINE"), true},
		{"shortcut missing", intentFor(entity.ActionRunShortcut, "Evening"), false},
		{"scene match", intentFor(entity.ActionSetScene, "movie night"), true},
		{"scene is not a device", intentFor(entity.ActionTurnOn, "Movie Night"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(c, tt.intent))
		})
	}
}

type stubSource struct {
	name    string
	devices []entity.CatalogDevice
	scenes  []entity.CatalogScene
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Discover(context.Context) ([]entity.CatalogDevice, []entity.CatalogScene, error) {
	return s.devices, s.scenes, s.err
}

type memoryShortcutStore struct {
	shortcuts []entity.CatalogShortcut
	err       error
}

func (m *memoryShortcutStore) FetchShortcuts(context.Context) ([]entity.CatalogShortcut, error) {
	return m.shortcuts, m.err
}

func (m *memoryShortcutStore) StoreShortcut(_ context.Context, s entity.CatalogShortcut) error {
	if m.err != nil {
		return m.err
	}
	m.shortcuts = append(m.shortcuts, s)
	return nil
}

func TestManagerRefreshRebuildsAndKeepsShortcuts(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &memoryShortcutStore{shortcuts: []entity.CatalogShortcut{{ID: "a", Name: "Morning Routine"}}}
	src := &stubSource{
		name: "stub",
		devices: []entity.CatalogDevice{
			{ID: "1", Name: "Desk Lamp", Type: "light"},
		},
		scenes: []entity.CatalogScene{{ID: "s", Name: "Relax"}},
	}
	m := NewManager(logger, store, src)

	require.NoError(t, m.LoadShortcuts(context.Background()))
	require.NoError(t, m.Refresh(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, []string{"turnOn", "turnOff", "setBrightness"}, snap.Devices[0].SupportedActions)
	assert.Len(t, snap.Scenes, 1)
	assert.Len(t, snap.Shortcuts, 1)

	src.devices = []entity.CatalogDevice{{ID: "2", Name: "Hall Switch", Type: "switch"}}
	require.NoError(t, m.Refresh(context.Background()))

	snap = m.Snapshot()
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, "Hall Switch", snap.Devices[0].Name)
	assert.Len(t, snap.Shortcuts, 1)
}

func TestManagerRefreshSkipsFailingSource(t *testing.T) {
	logger, hook := test.NewNullLogger()
	good := &stubSource{name: "good", devices: []entity.CatalogDevice{{Name: "Lamp", Type: "light"}}}
	bad := &stubSource{name: "bad", err: errors.New("boom")}
	m := NewManager(logger, nil, bad, good)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Len(t, m.Snapshot().Devices, 1)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
}

func TestManagerRefreshAllSourcesFail(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := NewManager(logger, nil, &stubSource{name: "bad", err: errors.New("down")})

	err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")

	m = NewManager(logger, nil)
	assert.ErrorIs(t, m.Refresh(context.Background()), ErrNoSources)
}

func TestManagerSnapshotIsACopy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := NewManager(logger, nil, &stubSource{name: "s", devices: []entity.CatalogDevice{{Name: "Lamp", Type: "light"}}})
	require.NoError(t, m.Refresh(context.Background()))

	snap := m.Snapshot()
	snap.Devices[0].Name = "changed"
	snap.Devices[0].SupportedActions[0] = "changed"

	fresh := m.Snapshot()
	assert.Equal(t, "Lamp", fresh.Devices[0].Name)
	assert.Equal(t, "turnOn", fresh.Devices[0].SupportedActions[0])
}

func TestRegisterShortcut(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &memoryShortcutStore{}
	m := NewManager(logger, store)

	sc, err := m.RegisterShortcut(context.Background(), " Good Night ", "lights off")
	require.NoError(t, err)
	assert.Equal(t, "Good Night", sc.Name)
	assert.NotEmpty(t, sc.ID)
	assert.Len(t, store.shortcuts, 1)
	assert.True(t, m.Validate(intentFor(entity.ActionRunShortcut, "good night")))

	store.err = errors.New("db down")
	_, err = m.RegisterShortcut(context.Background(), "Other", "")
	require.Error(t, err)
	assert.Len(t, m.Snapshot().Shortcuts, 1)
}

func TestRefreshAndRegisterShortcutConcurrently(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := NewManager(logger, nil, &stubSource{name: "s", devices: []entity.CatalogDevice{{Name: "Lamp", Type: "light"}}})

	const n = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			assert.NoError(t, m.Refresh(context.Background()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_, err := m.RegisterShortcut(context.Background(), fmt.Sprintf("Routine %d", i), "")
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	require.NoError(t, m.Refresh(context.Background()))
	assert.Len(t, m.Snapshot().Shortcuts, n)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "Catalog refreshed", last.Message)
	assert.Equal(t, n, last.Data["shortcuts"])
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `devices:
  - name: Kitchen Light
    room: Kitchen
    type: light
  - id: lock-1
    name: Front Door
    room: Hall
    type: lock
    supportedActions: [lockDoor, unlockDoor]
scenes:
  - name: Movie Night
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	devices, scenes, err := NewFileSource(path).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Kitchen Light", devices[0].ID)
	assert.Equal(t, "lock-1", devices[1].ID)
	assert.Equal(t, []string{"lockDoor", "unlockDoor"}, devices[1].SupportedActions)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Movie Night", scenes[0].Name)

	_, _, err = NewFileSource(filepath.Join(dir, "missing.yaml")).Discover(context.Background())
	assert.Error(t, err)
}

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeRedis) Publish(context.Context, string, []byte) (int64, error) { return 0, nil }

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) Close() error { return nil }

func TestRedisSource(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}}
	src := NewRedisSource(client, "")

	devices, scenes, err := src.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.Empty(t, scenes)

	client.values[DefaultCatalogKey] = `{"devices":[{"id":"d1","name":"Porch Light","room":"Outside","type":"light","supportedActions":["turnOn"]}],"scenes":[{"id":"s1","name":"Away"}]}`
	devices, scenes, err = src.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Porch Light", devices[0].Name)
	assert.Equal(t, "Away", scenes[0].Name)

	client.values[DefaultCatalogKey] = `{not json`
	_, _, err = src.Discover(context.Background())
	assert.Error(t, err)
}

func TestPromptDescription(t *testing.T) {
	desc := testCatalog().PromptDescription()
	assert.Contains(t, desc, "Living Room:")
	assert.Contains(t, desc, "- Living Room Lights (light) [turnOn, turnOff, setBrightness]")
	assert.Contains(t, desc, "Scenes:\n  - Movie Night")
	assert.Contains(t, desc, "Shortcuts:\n  - Morning Routine")
}
