// Package catalogfile reads a quiz catalog from a YAML document.
//
// Example:
//
//	topics:
//	  - id: 0d6f1c9e-...      # topic
//	    levels:
//	      - id: 5b1e...       # first level
//	        generators:
//	          - 9a3c...
//	          - 41f7...
package catalogfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
)

// ErrInvalidCatalog is returned when the document is malformed.
var ErrInvalidCatalog = errors.New("catalogfile: invalid catalog")

type fileDTO struct {
	Topics []topicDTO `yaml:"topics"`
}

type topicDTO struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name,omitempty"`
	Levels []levelDTO `yaml:"levels"`
}

type levelDTO struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name,omitempty"`
	Generators []string `yaml:"generators"`
}

// Load reads and parses the catalog file at path.
func Load(path string) ([]catalog.Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogfile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Ids must be UUIDs, unique per entity kind
// within their parent (topics globally, levels per topic, generators per level).
func Parse(data []byte) ([]catalog.Topic, error) {
	var doc fileDTO
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	topics := make([]catalog.Topic, 0, len(doc.Topics))
	seenTopics := make(map[uuid.UUID]struct{}, len(doc.Topics))

	for _, t := range doc.Topics {
		topicID, err := parseID("topic", t.ID, seenTopics)
		if err != nil {
			return nil, err
		}

		levels := make([]catalog.Level, 0, len(t.Levels))
		seenLevels := make(map[uuid.UUID]struct{}, len(t.Levels))
		for _, l := range t.Levels {
			levelID, err := parseID("level", l.ID, seenLevels)
			if err != nil {
				return nil, err
			}

			generators := make([]catalog.TaskGenerator, 0, len(l.Generators))
			seenGenerators := make(map[uuid.UUID]struct{}, len(l.Generators))
			for _, g := range l.Generators {
				generatorID, err := parseID("generator", g, seenGenerators)
				if err != nil {
					return nil, err
				}
				generators = append(generators, catalog.TaskGenerator{ID: generatorID})
			}

			levels = append(levels, catalog.Level{ID: levelID, Generators: generators})
		}

		topics = append(topics, catalog.Topic{ID: topicID, Levels: levels})
	}

	return topics, nil
}

func parseID(kind, raw string, seen map[uuid.UUID]struct{}) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s id %q: %v", ErrInvalidCatalog, kind, raw, err)
	}
	if _, dup := seen[id]; dup {
		return uuid.Nil, fmt.Errorf("%w: duplicate %s id %s", ErrInvalidCatalog, kind, id)
	}
	seen[id] = struct{}{}
	return id, nil
}
