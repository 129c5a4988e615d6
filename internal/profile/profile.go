package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
)

const (
	profileKeyPrefix = "profile:"
	activeProfileKey = "profiles:active"
)

// ColumnMapping is one stored mapping entry.
type ColumnMapping struct {
	XMLPath          string `yaml:"xml_path"`
	ColumnName       string `yaml:"column_name"`
	FormatAsCurrency bool   `yaml:"format_as_currency,omitempty"`
}

// Profile is a named, reusable field mapping.
type Profile struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Mappings    []ColumnMapping `yaml:"mappings"`
	CreatedAt   time.Time       `yaml:"created_at"`
	UpdatedAt   time.Time       `yaml:"updated_at"`

	// IsActive is derived from the store on read and never persisted.
	IsActive bool `yaml:"-"`
}

// FieldMapping compiles the profile's mappings.
func (p *Profile) FieldMapping() (*mapping.FieldMapping, error) {
	m := &mapping.FieldMapping{}
	for _, c := range p.Mappings {
		if err := m.Add(mapping.Entry{Path: c.XMLPath, Column: c.ColumnName, Currency: c.FormatAsCurrency}); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return m, nil
}

// FromMapping builds an unsaved profile from a field mapping.
func FromMapping(name, description string, m *mapping.FieldMapping) *Profile {
	p := &Profile{Name: name, Description: description}
	for _, e := range m.Entries() {
		p.Mappings = append(p.Mappings, ColumnMapping{
			XMLPath:          e.Path,
			ColumnName:       e.Column,
			FormatAsCurrency: e.Currency,
		})
	}
	return p
}

// DefaultProfile returns an unsaved profile with the default NFe fields.
func DefaultProfile() *Profile {
	return FromMapping("Padrão", "Campos mais usados da NFe", mapping.Default())
}

// FullProfile returns an unsaved profile with every known NFe field.
func FullProfile() *Profile {
	return FromMapping("Completo", fmt.Sprintf("Todos os %d campos conhecidos da NFe", len(nfe.DefaultDictionary())), mapping.Full())
}

// Manager stores and activates profiles. At most one profile is active.
type Manager struct {
	store *Store
	now   func() time.Time
}

// NewManager creates a Manager over store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Save inserts p, or replaces the stored profile with the same ID. An empty
// ID is assigned a new one.
func (m *Manager) Save(ctx context.Context, p *Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if _, err := p.FieldMapping(); err != nil {
		return err
	}

	now := m.now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return m.store.Put(ctx, profileKeyPrefix+p.ID, data)
}

// Get returns the profile with id.
func (m *Manager) Get(ctx context.Context, id string) (*Profile, error) {
	data, err := m.store.Get(ctx, profileKeyPrefix+id)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", id, err)
	}

	active, err := m.activeID(ctx)
	if err != nil {
		return nil, err
	}
	p.IsActive = p.ID == active
	return &p, nil
}

// Find returns the profile whose ID or name matches ref.
func (m *Manager) Find(ctx context.Context, ref string) (*Profile, error) {
	if p, err := m.Get(ctx, ref); err == nil {
		return p, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q: %w", ref, ErrNotFound)
}

// List returns every profile sorted by name.
func (m *Manager) List(ctx context.Context) ([]Profile, error) {
	keys, err := m.store.Keys(ctx, profileKeyPrefix)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(keys))
	for _, k := range keys {
		p, err := m.Get(ctx, strings.TrimPrefix(k, profileKeyPrefix))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return strings.ToLower(profiles[i].Name) < strings.ToLower(profiles[j].Name)
	})
	return profiles, nil
}

// Delete removes the profile. Deleting the active profile leaves no
// profile active.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.store.Get(ctx, profileKeyPrefix+id); err != nil {
		return err
	}

	active, err := m.activeID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		if err := m.store.Delete(ctx, activeProfileKey); err != nil {
			return err
		}
	}
	return m.store.Delete(ctx, profileKeyPrefix+id)
}

// Activate makes id the only active profile.
func (m *Manager) Activate(ctx context.Context, id string) error {
	if _, err := m.store.Get(ctx, profileKeyPrefix+id); err != nil {
		return err
	}
	return m.store.Put(ctx, activeProfileKey, []byte(id))
}

// Active returns the active profile, or ErrNotFound when none is active.
func (m *Manager) Active(ctx context.Context) (*Profile, error) {
	id, err := m.activeID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("active profile: %w", ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *Manager) activeID(ctx context.Context) (string, error) {
	data, err := m.store.Get(ctx, activeProfileKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
