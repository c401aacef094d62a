package catalog

import (
	"context"
	"fmt"
	"os"

	"ProjectAssistant/internal/entity"
	"gopkg.in/yaml.v3"
)

type fileCatalog struct {
	Devices []entity.CatalogDevice `yaml:"devices"`
	Scenes  []entity.CatalogScene  `yaml:"scenes"`
}

// FileSource loads a static device list from YAML. The file is re-read on
// every refresh.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file"
}

func (s *FileSource) Discover(_ context.Context) ([]entity.CatalogDevice, []entity.CatalogScene, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog file: %w", err)
	}

	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for i := range fc.Devices {
		if fc.Devices[i].ID == "" {
			fc.Devices[i].ID = fc.Devices[i].Name
		}
	}
	for i := range fc.Scenes {
		if fc.Scenes[i].ID == "" {
			fc.Scenes[i].ID = fc.Scenes[i].Name
		}
	}
	return fc.Devices, fc.Scenes, nil
}
